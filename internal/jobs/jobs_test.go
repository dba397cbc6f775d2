package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	before time.Time
	n      int64
	err    error
}

func (f *fakePruner) PruneBefore(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return f.n, f.err
}

func TestRetention_PrunesOlderThanDays(t *testing.T) {
	store := &fakePruner{n: 3}
	r := NewRetention(store, 30, zerolog.Nop())
	now := time.Date(2024, time.June, 30, 4, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, now.AddDate(0, 0, -30), store.before)
}

func TestRetention_PropagatesErrors(t *testing.T) {
	store := &fakePruner{err: errors.New("locked")}
	r := NewRetention(store, 1, zerolog.Nop())
	assert.Error(t, r.Run(context.Background()))
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestPingJob(t *testing.T) {
	assert.NoError(t, PingJob(fakePinger{}, zerolog.Nop())(context.Background()))
	assert.Error(t, PingJob(fakePinger{err: errors.New("gone")}, zerolog.Nop())(context.Background()))
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.UTC, zerolog.Nop())
	err := s.Add("retention", "every tuesday", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestScheduler_RunsJobsUntilCancelled(t *testing.T) {
	s := NewScheduler(time.UTC, zerolog.Nop())
	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	require.NoError(t, s.Add("boom", "@every 1s", func(context.Context) error {
		panic("job exploded")
	}))
	assert.Equal(t, 2, s.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
