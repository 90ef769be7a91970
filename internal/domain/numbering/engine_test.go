package numbering_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
	domain "docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/storage"
	"docnum/internal/infrastructure/storage/sqlstore"
	"docnum/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetDefault(logger.Nop())
	os.Exit(m.Run())
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type testEnv struct {
	t         *testing.T
	ctx       context.Context
	backend   *storage.Backend
	clock     *testClock
	engine    *domain.Engine
	projectID id.ID
	docTypeID id.ID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	backend, err := storage.Open(ctx, storage.Config{
		Driver:      storage.DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "docnum.db"),
		LockTimeout: 5 * time.Second,
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(backend.Close)

	env := &testEnv{
		t:         t,
		ctx:       ctx,
		backend:   backend,
		clock:     &testClock{now: time.Date(2025, 5, 17, 9, 30, 0, 0, time.UTC)},
		projectID: id.New(),
		docTypeID: id.New(),
	}
	env.engine = env.newEngine(nil)

	env.seed(&sqlstore.Fixtures{
		Projects:      []sqlstore.ProjectFixture{{ID: env.projectID.String(), Code: "Acme Co.", Name: "Acme"}},
		DocumentTypes: []sqlstore.DocumentTypeFixture{{ID: env.docTypeID.String(), ProjectID: env.projectID.String(), Name: "Invoice"}},
	})
	return env
}

// newEngine builds an engine over the test database; audit replaces the
// audit writer when not nil.
func (e *testEnv) newEngine(audit numbering.AuditWriter) *domain.Engine {
	if audit == nil {
		audit = e.backend.Audit
	}
	return domain.NewEngine(domain.Deps{
		TxManager:   e.backend.TxManager,
		Submissions: e.backend.Submissions,
		Series:      e.backend.Series,
		Projects:    e.backend.Projects,
		Counters:    e.backend.Counters,
		Audit:       audit,
		Events:      e.backend.Outbox,
		Clock:       e.clock.Now,
	})
}

func (e *testEnv) seed(f *sqlstore.Fixtures) {
	e.t.Helper()
	_, err := e.backend.Seeder.Seed(e.ctx, f)
	require.NoError(e.t, err)
}

func (e *testEnv) addSeries(s sqlstore.SeriesFixture) id.ID {
	e.t.Helper()
	seriesID := id.New()
	s.ID = seriesID.String()
	if s.Code == "" {
		s.Code = "S-" + seriesID.String()
	}
	e.seed(&sqlstore.Fixtures{Series: []sqlstore.SeriesFixture{s}})
	return seriesID
}

func (e *testEnv) addSubmission(seriesID id.ID, number, submittedBy string) id.ID {
	e.t.Helper()
	subID := id.New()
	e.seed(&sqlstore.Fixtures{Submissions: []sqlstore.SubmissionFixture{{
		ID:             subID.String(),
		SeriesID:       seriesID.String(),
		DocumentTypeID: e.docTypeID.String(),
		DocumentNumber: number,
		SubmittedBy:    submittedBy,
	}}})
	return subID
}

func (e *testEnv) generate(subID id.ID, actingUser string) *numbering.Result {
	e.t.Helper()
	res, err := e.engine.GenerateForSubmission(e.ctx, domain.GenerateRequest{
		SubmissionID: subID,
		ActingUserID: actingUser,
	})
	require.NoError(e.t, err)
	return res
}

func (e *testEnv) counter(seriesID id.ID, key string) (int64, bool) {
	e.t.Helper()
	v, ok, err := e.backend.Counters.Current(e.ctx, seriesID, key)
	require.NoError(e.t, err)
	return v, ok
}

func TestGenerate_Success(t *testing.T) {
	env := newTestEnv(t)
	seriesID := env.addSeries(sqlstore.SeriesFixture{
		Template:        "{PROJECT}-{YYYY}{MM}{DD}-{SEQ}",
		ResetPolicy:     "Daily",
		SequencePadding: 4,
	})
	subID := env.addSubmission(seriesID, "DRAFT-1", "alice")

	res := env.generate(subID, "")
	require.True(t, res.Success, "failure: %+v", res.Failure)
	assert.Equal(t, "ACMECO-20250517-0001", res.DocumentNumber)
	assert.Equal(t, int64(1), res.SequenceNumber)
	assert.Equal(t, "20250517", res.PeriodKey)
	assert.True(t, res.IsNewBucket)
	assert.Equal(t, "alice", res.GeneratedBy)

	sub, err := env.backend.Submissions.GetSubmission(env.ctx, subID)
	require.NoError(t, err)
	assert.Equal(t, "ACMECO-20250517-0001", sub.DocumentNumber)

	series, err := env.backend.Series.GetSeries(env.ctx, seriesID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), series.NextNumber)

	records, err := env.backend.Audit.ListBySubmission(env.ctx, subID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, res.DocumentNumber, records[0].DocumentNumber)
	assert.Equal(t, "20250517", records[0].PeriodKey)
	assert.Equal(t, int64(1), records[0].SequenceNumber)
	assert.Equal(t, numbering.TriggerSubmit, records[0].Trigger)
	assert.Equal(t, series.Template, records[0].Template)
	assert.True(t, records[0].GeneratedAt.Equal(env.clock.Now()))

	events, err := env.backend.Outbox.FetchPending(env.ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, numbering.EventTypeAssigned, events[0].EventType)
	assert.Equal(t, subID, events[0].AggregateID)
	assert.Contains(t, string(events[0].Payload), res.DocumentNumber)

	// Second submission continues the bucket.
	res2 := env.generate(env.addSubmission(seriesID, "", "bob"), "")
	require.True(t, res2.Success)
	assert.Equal(t, "ACMECO-20250517-0002", res2.DocumentNumber)
	assert.False(t, res2.IsNewBucket)
}

func TestGenerate_PeriodBucketsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	seriesID := env.addSeries(sqlstore.SeriesFixture{Template: "INV-{YYYY}{MM}-{SEQ}", ResetPolicy: "monthly"})

	may := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	june := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	env.clock.Set(may)
	assert.Equal(t, "INV-202505-001", env.generate(env.addSubmission(seriesID, "", "u"), "").DocumentNumber)
	assert.Equal(t, "INV-202505-002", env.generate(env.addSubmission(seriesID, "", "u"), "").DocumentNumber)

	env.clock.Set(june)
	res := env.generate(env.addSubmission(seriesID, "", "u"), "")
	assert.Equal(t, "INV-202506-001", res.DocumentNumber)
	assert.True(t, res.IsNewBucket)

	env.clock.Set(may.Add(48 * time.Hour))
	assert.Equal(t, "INV-202505-003", env.generate(env.addSubmission(seriesID, "", "u"), "").DocumentNumber)

	mayValue, _ := env.counter(seriesID, "202505")
	juneValue, _ := env.counter(seriesID, "202506")
	assert.Equal(t, int64(3), mayValue)
	assert.Equal(t, int64(1), juneValue)

	// The high-water mark is never lowered by the younger June bucket.
	series, err := env.backend.Series.GetSeries(env.ctx, seriesID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), series.NextNumber)
}

func TestGenerate_SeriesAddedTogetherKeepSeparateCounters(t *testing.T) {
	env := newTestEnv(t)
	first := env.addSeries(sqlstore.SeriesFixture{Template: "A-{SEQ}"})
	second := env.addSeries(sqlstore.SeriesFixture{Template: "B-{SEQ}"})
	require.NotEqual(t, first, second)

	a, err := env.backend.Series.GetSeries(env.ctx, first)
	require.NoError(t, err)
	b, err := env.backend.Series.GetSeries(env.ctx, second)
	require.NoError(t, err)
	assert.NotEqual(t, a.Code, b.Code)

	assert.Equal(t, "A-001", env.generate(env.addSubmission(first, "", "u"), "").DocumentNumber)
	assert.Equal(t, "B-001", env.generate(env.addSubmission(second, "", "u"), "").DocumentNumber)
	assert.Equal(t, "A-002", env.generate(env.addSubmission(first, "", "u"), "").DocumentNumber)
}

func TestGenerate_SequenceStartAndGlobalBucket(t *testing.T) {
	env := newTestEnv(t)
	seriesID := env.addSeries(sqlstore.SeriesFixture{Template: "PO{SEQ}", SequenceStart: 1000, SequencePadding: 2})

	res := env.generate(env.addSubmission(seriesID, "", "u"), "")
	assert.Equal(t, "PO1000", res.DocumentNumber)
	assert.Equal(t, numbering.GlobalPeriodKey, res.PeriodKey)

	env.clock.Set(env.clock.Now().AddDate(2, 0, 0))
	assert.Equal(t, "PO1001", env.generate(env.addSubmission(seriesID, "", "u"), "").DocumentNumber)
}

func TestGenerate_ConcurrentCallersGetDistinctGapFreeNumbers(t *testing.T) {
	env := newTestEnv(t)
	seriesID := env.addSeries(sqlstore.SeriesFixture{Template: "C-{SEQ}", ResetPolicy: "Yearly"})

	const n = 25
	subs := make([]id.ID, n)
	for i := range subs {
		subs[i] = env.addSubmission(seriesID, "", "u")
	}

	results := make([]*numbering.Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = env.engine.GenerateForSubmission(env.ctx, domain.GenerateRequest{SubmissionID: subs[i]})
		}()
	}
	close(start)
	wg.Wait()

	seen := make(map[string]bool, n)
	seqs := make([]int, 0, n)
	for i := range n {
		require.NoError(t, errs[i])
		require.True(t, results[i].Success, "failure: %+v", results[i].Failure)
		assert.False(t, seen[results[i].DocumentNumber], "duplicate %s", results[i].DocumentNumber)
		seen[results[i].DocumentNumber] = true
		seqs = append(seqs, int(results[i].SequenceNumber))
	}

	sort.Ints(seqs)
	for i, s := range seqs {
		assert.Equal(t, i+1, s)
	}

	value, _ := env.counter(seriesID, "2025")
	assert.Equal(t, int64(n), value)
}

type failingAudit struct{}

func (failingAudit) Append(context.Context, *numbering.AuditRecord) error {
	return errors.New("audit store unavailable")
}

func TestGenerate_AuditFailureRollsBackEverything(t *testing.T) {
	env := newTestEnv(t)
	seriesID := env.addSeries(sqlstore.SeriesFixture{Template: "R-{SEQ}"})
	subID := env.addSubmission(seriesID, "DRAFT-7", "u")

	broken := env.newEngine(failingAudit{})
	res, err := broken.GenerateForSubmission(env.ctx, domain.GenerateRequest{SubmissionID: subID})
	require.Error(t, err)
	require.False(t, res.Success)
	assert.Equal(t, numbering.FailureUnexpected, res.Failure.Kind)
	assert.NotContains(t, res.Failure.Message, "audit store")

	_, exists := env.counter(seriesID, numbering.GlobalPeriodKey)
	assert.False(t, exists, "counter bucket must not survive the rollback")

	sub, err := env.backend.Submissions.GetSubmission(env.ctx, subID)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT-7", sub.DocumentNumber)

	series, err := env.backend.Series.GetSeries(env.ctx, seriesID)
	require.NoError(t, err)
	assert.Zero(t, series.NextNumber)

	events, err := env.backend.Outbox.FetchPending(env.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	// The same submission succeeds afterwards with the first value.
	assert.Equal(t, "R-001", env.generate(subID, "").DocumentNumber)
}

func TestGenerate_ExpectedFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		series   sqlstore.SeriesFixture
		kind     numbering.FailureKind
		category numbering.Category
	}{
		{
			name:     "Inactive series",
			series:   sqlstore.SeriesFixture{Template: "A-{SEQ}", Inactive: true},
			kind:     numbering.FailureInactive,
			category: numbering.CategoryInvalidConfiguration,
		},
		{
			name:     "Unsupported token",
			series:   sqlstore.SeriesFixture{Template: "A-{FOO}-{SEQ}"},
			kind:     numbering.FailureInvalidTemplate,
			category: numbering.CategoryInvalidConfiguration,
		},
		{
			name:     "Missing SEQ",
			series:   sqlstore.SeriesFixture{Template: "A-{YYYY}"},
			kind:     numbering.FailureInvalidTemplate,
			category: numbering.CategoryInvalidConfiguration,
		},
		{
			name:     "Unknown reset policy",
			series:   sqlstore.SeriesFixture{Template: "A-{SEQ}", ResetPolicy: "Weekly"},
			kind:     numbering.FailureInvalidResetPolicy,
			category: numbering.CategoryInvalidConfiguration,
		},
		{
			name:     "Number too long",
			series:   sqlstore.SeriesFixture{Template: strings.Repeat("X", 48) + "{SEQ}"},
			kind:     numbering.FailureNumberTooLong,
			category: numbering.CategoryNumberTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seriesID := env.addSeries(tt.series)
			subID := env.addSubmission(seriesID, "", "u")

			res := env.generate(subID, "")
			require.False(t, res.Success)
			require.NotNil(t, res.Failure)
			assert.Equal(t, tt.kind, res.Failure.Kind)
			assert.Equal(t, tt.category, res.Failure.Kind.Category())
			assert.False(t, res.Failure.Kind.Retryable())
			assert.NotEmpty(t, res.Failure.Message)

			_, exists := env.counter(seriesID, numbering.GlobalPeriodKey)
			assert.False(t, exists, "no value may be consumed")

			sub, err := env.backend.Submissions.GetSubmission(env.ctx, subID)
			require.NoError(t, err)
			assert.Empty(t, sub.DocumentNumber)
		})
	}
}

func TestGenerate_NotFound(t *testing.T) {
	env := newTestEnv(t)

	res := env.generate(id.New(), "")
	require.False(t, res.Success)
	assert.Equal(t, numbering.FailureNotFound, res.Failure.Kind)
	assert.Equal(t, numbering.CategoryNotFound, res.Failure.Kind.Category())
}

func TestGenerate_InvalidTrigger(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.GenerateForSubmission(env.ctx, domain.GenerateRequest{SubmissionID: id.New(), Trigger: "Publish"})
	require.NoError(t, err)
	assert.Equal(t, numbering.FailureInvalidTrigger, res.Failure.Kind)
}

func TestGenerate_ActorResolution(t *testing.T) {
	env := newTestEnv(t)
	seriesID := env.addSeries(sqlstore.SeriesFixture{Template: "U-{SEQ}"})

	assert.Equal(t, "carol", env.generate(env.addSubmission(seriesID, "", "alice"), "carol").GeneratedBy)
	assert.Equal(t, "alice", env.generate(env.addSubmission(seriesID, "", "alice"), "").GeneratedBy)
	assert.Equal(t, numbering.SystemUserID, env.generate(env.addSubmission(seriesID, "", ""), "").GeneratedBy)
}

func TestGenerate_ProjectFallsBackToSeries(t *testing.T) {
	env := newTestEnv(t)
	ops := id.New()
	env.seed(&sqlstore.Fixtures{Projects: []sqlstore.ProjectFixture{{ID: ops.String(), Code: "", Name: "ops team"}}})
	seriesID := env.addSeries(sqlstore.SeriesFixture{Template: "{PROJECT}/{SEQ}", ProjectID: ops.String()})

	subID := id.New()
	env.seed(&sqlstore.Fixtures{Submissions: []sqlstore.SubmissionFixture{{ID: subID.String(), SeriesID: seriesID.String()}}})

	assert.Equal(t, "OPSTEAM/001", env.generate(subID, "").DocumentNumber)

	bare := env.addSeries(sqlstore.SeriesFixture{Template: "{PROJECT}/{SEQ}"})
	bareSub := id.New()
	env.seed(&sqlstore.Fixtures{Submissions: []sqlstore.SubmissionFixture{{ID: bareSub.String(), SeriesID: bare.String()}}})
	assert.Equal(t, "NA/001", env.generate(bareSub, "").DocumentNumber)
}

func TestGenerate_ParticipatesInCallerTransaction(t *testing.T) {
	env := newTestEnv(t)
	seriesID := env.addSeries(sqlstore.SeriesFixture{Template: "T-{SEQ}"})
	subID := env.addSubmission(seriesID, "", "u")

	errCaller := errors.New("caller aborted")
	err := env.backend.TxManager.RunInTransaction(env.ctx, func(ctx context.Context) error {
		res, err := env.engine.GenerateForSubmission(ctx, domain.GenerateRequest{SubmissionID: subID})
		require.NoError(t, err)
		require.True(t, res.Success)
		return errCaller
	})
	require.ErrorIs(t, err, errCaller)

	_, exists := env.counter(seriesID, numbering.GlobalPeriodKey)
	assert.False(t, exists)
	sub, err := env.backend.Submissions.GetSubmission(env.ctx, subID)
	require.NoError(t, err)
	assert.Empty(t, sub.DocumentNumber)
}

func TestGenerate_ContextErrorsAreTransient(t *testing.T) {
	env := newTestEnv(t)
	seriesID := env.addSeries(sqlstore.SeriesFixture{Template: "T-{SEQ}"})
	subID := env.addSubmission(seriesID, "", "u")

	expired, cancelExpired := context.WithDeadline(env.ctx, time.Now().Add(-time.Second))
	defer cancelExpired()
	res, err := env.engine.GenerateForSubmission(expired, domain.GenerateRequest{SubmissionID: subID})
	require.NoError(t, err)
	assert.Equal(t, numbering.FailureLockTimeout, res.Failure.Kind)
	assert.True(t, res.Failure.Kind.Retryable())

	canceled, cancel := context.WithCancel(env.ctx)
	cancel()
	res, err = env.engine.GenerateForSubmission(canceled, domain.GenerateRequest{SubmissionID: subID})
	require.NoError(t, err)
	assert.Equal(t, numbering.FailureCanceled, res.Failure.Kind)
	assert.True(t, res.Failure.Kind.Retryable())

	_, exists := env.counter(seriesID, numbering.GlobalPeriodKey)
	assert.False(t, exists)
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)
	seriesID := env.addSeries(sqlstore.SeriesFixture{
		Template:    "{PROJECT}-{YYYY}-{SEQ}",
		ProjectID:   env.projectID.String(),
		ResetPolicy: "Yearly",
	})

	p, err := env.engine.Preview(env.ctx, seriesID)
	require.NoError(t, err)
	assert.Equal(t, "ACMECO-2025-001", p.DocumentNumber)
	assert.False(t, p.BucketExists)

	env.generate(env.addSubmission(seriesID, "", "u"), "")

	p, err = env.engine.Preview(env.ctx, seriesID)
	require.NoError(t, err)
	assert.Equal(t, "ACMECO-2025-002", p.DocumentNumber)
	assert.Equal(t, int64(1), p.CurrentNumber)

	// Previewing reserves nothing.
	value, _ := env.counter(seriesID, "2025")
	assert.Equal(t, int64(1), value)
}
