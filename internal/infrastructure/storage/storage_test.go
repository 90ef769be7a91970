package storage

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
	"docnum/internal/infrastructure/storage/sqlstore"
)

func openSQLiteBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(context.Background(), Config{
		Driver:      DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "nested", "docnum.db"),
		LockTimeout: time.Second,
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func seedExample(t *testing.T, b *Backend) *sqlstore.SeedResult {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "fixtures.yaml"))
	require.NoError(t, err)
	defer f.Close()

	fixtures, err := sqlstore.DecodeFixtures(f)
	require.NoError(t, err)

	res, err := b.Seeder.Seed(context.Background(), fixtures)
	require.NoError(t, err)
	return res
}

func TestOpen_SQLiteMigratesAndSeeds(t *testing.T) {
	b := openSQLiteBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Ping(ctx))
	require.NoError(t, b.Migrate(), "migrations must be re-runnable")

	res := seedExample(t, b)
	assert.Equal(t, int64(1), res.Projects)
	assert.Equal(t, int64(1), res.Series)
	assert.Equal(t, int64(2), res.Submissions)

	// Seeding again inserts nothing.
	res = seedExample(t, b)
	assert.Zero(t, res.Series)
	assert.Zero(t, res.Submissions)

	series, err := b.Series.GetSeriesByCode(ctx, "INV")
	require.NoError(t, err)
	assert.Equal(t, "Monthly", series.ResetPolicy)
	assert.Equal(t, 4, series.SequencePadding)
	assert.True(t, series.IsActive)
	assert.True(t, series.ProjectID.Valid)

	sub, err := b.Submissions.GetSubmission(ctx, id.MustParse("0196d8a0-0000-7000-8000-000000001001"))
	require.NoError(t, err)
	assert.False(t, sub.DocumentTypeID.Valid)
	assert.True(t, sub.IsDraft())

	p, err := b.Projects.GetProjectByDocumentType(ctx, id.MustParse("0196d8a0-0000-7000-8000-000000000010"))
	require.NoError(t, err)
	assert.Equal(t, "ACME", p.Code)
}

func TestCounterRepo_SQLite(t *testing.T) {
	b := openSQLiteBackend(t)
	seedExample(t, b)
	ctx := context.Background()
	seriesID := id.MustParse("0196d8a0-0000-7000-8000-000000000100")

	var got []int64
	for range 3 {
		err := b.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
			seq, _, err := b.Counters.AcquireAndIncrement(ctx, seriesID, "202505", 7)
			got = append(got, seq)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{7, 8, 9}, got)

	value, ok, err := b.Counters.Current(ctx, seriesID, "202505")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(9), value)

	_, ok, err = b.Counters.Current(ctx, seriesID, "202506")
	require.NoError(t, err)
	assert.False(t, ok)

	buckets, err := b.Counters.List(ctx, seriesID)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "202505", buckets[0].PeriodKey)
}

// TestCounterRepo_PostgresConcurrent runs against a real server when
// DOCNUM_TEST_DATABASE_URL is set.
func TestCounterRepo_PostgresConcurrent(t *testing.T) {
	url := os.Getenv("DOCNUM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DOCNUM_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	b, err := Open(ctx, Config{
		Driver:      DriverPostgres,
		DatabaseURL: url,
		LockTimeout: 10 * time.Second,
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(b.Close)

	seriesID := id.New()
	_, err = b.Seeder.Seed(ctx, &sqlstore.Fixtures{Series: []sqlstore.SeriesFixture{{
		ID:       seriesID.String(),
		Code:     "PG-" + seriesID.String(),
		Template: "{SEQ}",
	}}})
	require.NoError(t, err)

	const workers, perWorker = 8, 10
	buckets := []string{"20250517", "20250518"}

	var (
		mu     sync.Mutex
		issued = map[string][]int64{}
		fresh  = map[string]int{}
		wg     sync.WaitGroup
	)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				key := buckets[(w+i)%len(buckets)]
				err := b.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
					seq, isNew, err := b.Counters.AcquireAndIncrement(ctx, seriesID, key, 1)
					if err != nil {
						return err
					}
					mu.Lock()
					issued[key] = append(issued[key], seq)
					if isNew {
						fresh[key]++
					}
					mu.Unlock()
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for _, key := range buckets {
		got := issued[key]
		slices.Sort(got)
		want := make([]int64, len(got))
		for i := range want {
			want[i] = int64(i + 1)
		}
		assert.Equal(t, want, got, "bucket %s must be distinct and gap-free", key)
		assert.Equal(t, 1, fresh[key], "bucket %s created once", key)

		current, ok, err := b.Counters.Current(ctx, seriesID, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(len(got)), current)
	}
	assert.Equal(t, workers*perWorker, len(issued[buckets[0]])+len(issued[buckets[1]]))
}

func TestRepos_NotFound(t *testing.T) {
	b := openSQLiteBackend(t)
	ctx := context.Background()

	_, err := b.Series.GetSeries(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))

	_, err = b.Submissions.GetSubmission(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))

	err = b.Submissions.StampDocumentNumber(ctx, id.New(), "X-1")
	assert.True(t, apperror.IsNotFound(err))

	_, err = b.Projects.GetProject(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	require.Error(t, err)
}
