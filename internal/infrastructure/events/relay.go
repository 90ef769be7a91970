// Package events delivers outbox messages to downstream consumers.
package events

import (
	"context"
	"time"

	appctx "docnum/internal/core/context"
	"docnum/internal/core/id"
	"docnum/internal/core/tx"
	"docnum/internal/infrastructure/storage/sqlstore"
	"docnum/pkg/logger"
)

// Publisher hands one outbox message to a consumer.
type Publisher interface {
	Publish(ctx context.Context, msg *sqlstore.OutboxMessage) error
}

// Outbox is the part of sqlstore.OutboxRepo the relay drains.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]sqlstore.OutboxMessage, error)
	MarkPublished(ctx context.Context, msgID id.ID) error
	MarkFailed(ctx context.Context, msg *sqlstore.OutboxMessage, cause error) error
}

// BatchResult counts the outcome of one relay pass.
type BatchResult struct {
	Published int
	Failed    int
}

// Relay moves pending outbox messages to a Publisher. Each batch is fetched,
// published and marked in one transaction, so on PostgreSQL concurrent relays
// skip each other's rows.
type Relay struct {
	txm       tx.Manager
	outbox    Outbox
	publisher Publisher
	batchSize int
	log       *logger.Logger
}

func NewRelay(txm tx.Manager, outbox Outbox, publisher Publisher, batchSize int, log *logger.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if log == nil {
		log = logger.Default()
	}
	return &Relay{
		txm:       txm,
		outbox:    outbox,
		publisher: publisher,
		batchSize: batchSize,
		log:       log.WithComponent("outbox-relay"),
	}
}

// ProcessBatch publishes up to one batch of due messages. A failed delivery is
// scheduled for retry and does not stop the batch.
func (r *Relay) ProcessBatch(ctx context.Context) (BatchResult, error) {
	var res BatchResult
	log := r.log.WithContext(ctx)
	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		res = BatchResult{}
		messages, err := r.outbox.FetchPending(ctx, r.batchSize)
		if err != nil {
			return err
		}

		for i := range messages {
			msg := &messages[i]
			if pubErr := r.publisher.Publish(ctx, msg); pubErr != nil {
				log.Warnw("outbox delivery failed",
					"message_id", msg.ID,
					"event_type", msg.EventType,
					"retry", msg.RetryCount+1,
					"error", pubErr,
				)
				if err := r.outbox.MarkFailed(ctx, msg, pubErr); err != nil {
					return err
				}
				res.Failed++
				continue
			}
			if err := r.outbox.MarkPublished(ctx, msg.ID); err != nil {
				return err
			}
			res.Published++
		}
		return nil
	})
	return res, err
}

// Run polls every interval until ctx is done.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		batchCtx := appctx.StartTrace(ctx, appctx.OriginWorker, "", "")
		res, err := r.ProcessBatch(batchCtx)
		log := r.log.WithContext(batchCtx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Errorw("outbox batch failed", "error", err)
		case res.Published > 0 || res.Failed > 0:
			log.Infow("outbox batch processed", "published", res.Published, "failed", res.Failed)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
