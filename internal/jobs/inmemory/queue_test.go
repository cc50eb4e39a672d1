package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fblacp/scales/internal/jobs"
	"github.com/fblacp/scales/internal/receipt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ScanReceiptJob {
	t.Helper()
	var job *jobs.ScanReceiptJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		job = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestQueue_ProcessesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 2, store)
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ScanReceiptJob) error {
		job.Draft = &receipt.Draft{Amount: decimal.NewFromInt(-12), Category: "Food"}
		return nil
	}))
	defer q.Stop(context.Background())

	job := &jobs.ScanReceiptJob{UserID: "u1", Image: []byte("img"), MimeType: "image/png"}
	require.NoError(t, q.PublishScanReceipt(ctx, job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, 3, job.MaxRetries)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	require.NotNil(t, done.Draft)
	assert.Equal(t, "Food", done.Draft.Category)
	assert.Nil(t, done.Image)
	assert.NotNil(t, done.CompletedAt)
}

func TestQueue_RetriesThenFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store)
	q.backoff = func(int) time.Duration { return time.Millisecond }

	var calls int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ScanReceiptJob) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("model unavailable")
	}))
	defer q.Stop(context.Background())

	job := &jobs.ScanReceiptJob{UserID: "u1", MaxRetries: 2}
	require.NoError(t, q.PublishScanReceipt(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, failed.RetryCount)
	assert.Equal(t, "model unavailable", failed.Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueue_NoRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(1, 1, store)
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ScanReceiptJob) error {
		return errors.New("bad image")
	}))
	defer q.Stop(context.Background())

	job := &jobs.ScanReceiptJob{UserID: "u1", MaxRetries: -1}
	require.NoError(t, q.PublishScanReceipt(ctx, job))
	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 0, failed.RetryCount)
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(1, 1, nil)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.Error(t, q.PublishScanReceipt(context.Background(), &jobs.ScanReceiptJob{}))
	assert.Error(t, q.Start(context.Background(), nil))
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, user := range []string{"a", "b", "a", "a"} {
		require.NoError(t, s.SaveJob(ctx, &jobs.ScanReceiptJob{
			JobID:     string(rune('1' + i)),
			UserID:    user,
			Status:    jobs.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.UpdateJobStatus(ctx, "3", jobs.JobStatusFailed, "boom"))

	all, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "a"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"4", "3", "1"}, []string{all[0].JobID, all[1].JobID, all[2].JobID})

	failed, _ := s.ListJobs(ctx, jobs.JobFilter{UserID: "a", Status: jobs.JobStatusFailed})
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)

	page, _ := s.ListJobs(ctx, jobs.JobFilter{UserID: "a", Offset: 1, Limit: 1})
	require.Len(t, page, 1)
	assert.Equal(t, "3", page[0].JobID)

	empty, _ := s.ListJobs(ctx, jobs.JobFilter{Offset: 10})
	assert.Empty(t, empty)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""), jobs.ErrJobNotFound)
	assert.Error(t, s.SaveJob(ctx, &jobs.ScanReceiptJob{}))
}
