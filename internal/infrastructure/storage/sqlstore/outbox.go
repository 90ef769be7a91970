package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// MaxOutboxRetries is the number of failed deliveries after which a message
// stops being retried.
const MaxOutboxRetries = 5

// OutboxMessage is one row of the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

var _ numbering.EventPublisher = (*OutboxRepo)(nil)

// OutboxRepo writes events next to the state change that caused them and lets
// the worker drain them.
type OutboxRepo struct {
	base
	selectCols []string
}

func NewOutboxRepo(src Source, dialect Dialect) *OutboxRepo {
	return &OutboxRepo{
		base:       base{src: src, dialect: dialect},
		selectCols: Columns[OutboxMessage](),
	}
}

// PublishAssigned records a document_number.assigned event in the current transaction.
func (r *OutboxRepo) PublishAssigned(ctx context.Context, event numbering.AssignedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = r.exec(ctx, r.builder().
		Insert(TableOutbox).
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "retry_count", "created_at").
		Values(id.New(), "submission", event.SubmissionID, numbering.EventTypeAssigned, payload,
			OutboxStatusPending, 0, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// FetchPending returns due messages, oldest first. On PostgreSQL the rows stay
// locked (and skipped by other workers) until the transaction ends.
func (r *OutboxRepo) FetchPending(ctx context.Context, limit int) ([]OutboxMessage, error) {
	now := time.Now().UTC()
	q := r.builder().
		Select(r.selectCols...).
		From(TableOutbox).
		Where(squirrel.Eq{"status": OutboxStatusPending}).
		Where(squirrel.Or{
			squirrel.Eq{"next_retry_at": nil},
			squirrel.LtOrEq{"next_retry_at": now},
		}).
		OrderBy("created_at").
		Limit(uint64(limit))
	if r.dialect.SkipLocked != "" {
		q = q.Suffix(r.dialect.SkipLocked)
	}

	var out []OutboxMessage
	if err := r.selectAll(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("fetch outbox messages: %w", err)
	}
	return out, nil
}

// MarkPublished records a successful delivery.
func (r *OutboxRepo) MarkPublished(ctx context.Context, msgID id.ID) error {
	_, err := r.exec(ctx, r.builder().
		Update(TableOutbox).
		Set("status", OutboxStatusPublished).
		Set("published_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": msgID}))
	if err != nil {
		return fmt.Errorf("mark outbox message %s published: %w", msgID, err)
	}
	return nil
}

// MarkFailed schedules a retry with linear backoff and gives up after MaxOutboxRetries.
func (r *OutboxRepo) MarkFailed(ctx context.Context, msg *OutboxMessage, cause error) error {
	retries := msg.RetryCount + 1
	status := OutboxStatusPending
	if retries >= MaxOutboxRetries {
		status = OutboxStatusFailed
	}

	_, err := r.exec(ctx, r.builder().
		Update(TableOutbox).
		Set("retry_count", retries).
		Set("last_error", cause.Error()).
		Set("next_retry_at", time.Now().UTC().Add(time.Duration(retries)*time.Minute)).
		Set("status", status).
		Where(squirrel.Eq{"id": msg.ID}))
	if err != nil {
		return fmt.Errorf("mark outbox message %s failed: %w", msg.ID, err)
	}
	return nil
}
