package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunNowRecordsRuns(t *testing.T) {
	svc := New(zap.NewNop())

	out, err := svc.RunNow(context.Background(), "backup", func(ctx context.Context) (any, error) {
		return "data/backups/ledger.json", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "data/backups/ledger.json", out)

	_, err = svc.RunNow(context.Background(), "backup", func(ctx context.Context) (any, error) {
		return nil, errors.New("disk full")
	})
	require.Error(t, err)

	_, err = svc.RunNow(context.Background(), "boom", func(ctx context.Context) (any, error) {
		panic("bad")
	})
	require.Error(t, err)

	runs := svc.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, "boom", runs[0].Name)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "disk full", runs[1].Error)
	assert.Equal(t, StatusCompleted, runs[2].Status)
	assert.Equal(t, "manual", runs[2].Trigger)
	assert.NotNil(t, runs[2].FinishedAt)
}

func TestRunsAreBounded(t *testing.T) {
	svc := New(nil)
	svc.keep = 3
	for i := 0; i < 5; i++ {
		_, _ = svc.RunNow(context.Background(), "noop", func(ctx context.Context) (any, error) { return i, nil })
	}
	runs := svc.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, 4, runs[0].Result)
	assert.Equal(t, 2, runs[2].Result)
}

func TestEnqueueRunsOnWorker(t *testing.T) {
	svc := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	done := make(chan struct{})
	svc.Enqueue("queued", func(ctx context.Context) (any, error) {
		close(done)
		return nil, nil
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued job did not run")
	}
	assert.Eventually(t, func() bool {
		runs := svc.Runs()
		return len(runs) == 1 && runs[0].Status == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	svc := New(zap.NewNop())
	assert.Error(t, svc.Schedule("not a spec", "backup", func(ctx context.Context) (any, error) { return nil, nil }))
	assert.NoError(t, svc.Schedule("0 3 * * *", "backup", func(ctx context.Context) (any, error) { return nil, nil }))
}
