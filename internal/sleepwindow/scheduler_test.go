package sleepwindow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recorder struct {
	mu    sync.Mutex
	calls []bool
}

func (r *recorder) listen(_ context.Context, sleeping bool) error {
	r.mu.Lock()
	r.calls = append(r.calls, sleeping)
	r.mu.Unlock()
	return nil
}

func (r *recorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.calls...)
}

func newTestScheduler(t *testing.T, settings Settings, start time.Time) (*Scheduler, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: start}
	s, err := NewScheduler(settings, zerolog.Nop(), WithClock(clock.Now))
	require.NoError(t, err)
	return s, clock
}

func TestScheduler_InitialState(t *testing.T) {
	s, _ := newTestScheduler(t, nightWindow(), at(23, 30))
	assert.True(t, s.Sleeping())
	assert.Equal(t, OverrideUnset, s.Override())
}

func TestScheduler_RejectsInvalidSettings(t *testing.T) {
	settings := nightWindow()
	settings.PollInterval = 0
	_, err := NewScheduler(settings, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestScheduler_RefreshNotifiesOnlyOnChange(t *testing.T) {
	s, clock := newTestScheduler(t, nightWindow(), at(22, 0))
	rec := &recorder{}
	s.RegisterListener("rec", rec.listen)

	_, notified := s.Refresh(context.Background(), false)
	assert.False(t, notified)

	clock.Set(at(22, 30))
	_, notified = s.Refresh(context.Background(), false)
	assert.False(t, notified, "same state, same transition")

	clock.Set(at(23, 0))
	state, notified := s.Refresh(context.Background(), false)
	assert.True(t, notified)
	assert.True(t, state.Sleeping)
	assert.Equal(t, []bool{true}, rec.snapshot())
}

func TestScheduler_ForceAwakeNotifiesOnce(t *testing.T) {
	s, _ := newTestScheduler(t, nightWindow(), at(23, 30))
	before := s.State()
	rec := &recorder{}
	s.RegisterListener("rec", rec.listen)

	state := s.SetManualOverride(context.Background(), OverrideAwake)
	assert.False(t, state.Sleeping)
	assert.False(t, s.Sleeping())
	assert.True(t, before.NextTransition.Equal(state.NextTransition))
	assert.Equal(t, []bool{false}, rec.snapshot())

	// A plain refresh afterwards sees no change.
	_, notified := s.Refresh(context.Background(), false)
	assert.False(t, notified)
	assert.Len(t, rec.snapshot(), 1)
}

func TestScheduler_OverrideNotifiesEvenWithoutChange(t *testing.T) {
	s, _ := newTestScheduler(t, nightWindow(), at(12, 0))
	rec := &recorder{}
	s.RegisterListener("rec", rec.listen)

	s.SetManualOverride(context.Background(), OverrideAwake)
	s.SetManualOverride(context.Background(), OverrideUnset)
	assert.Equal(t, []bool{false, false}, rec.snapshot())
}

func TestScheduler_ClearingOverrideRestoresWindow(t *testing.T) {
	s, _ := newTestScheduler(t, nightWindow(), at(12, 0))

	s.SetManualOverride(context.Background(), OverrideAsleep)
	assert.True(t, s.Sleeping())
	assert.Equal(t, OverrideAsleep, s.Override())

	s.SetManualOverride(context.Background(), OverrideUnset)
	assert.False(t, s.Sleeping())
}

func TestScheduler_ListenersRunInOrderAndFailuresAreIsolated(t *testing.T) {
	s, _ := newTestScheduler(t, nightWindow(), at(12, 0))

	var order []string
	s.RegisterListener("first", func(context.Context, bool) error {
		order = append(order, "first")
		return errors.New("boom")
	})
	s.RegisterListener("second", func(context.Context, bool) error {
		order = append(order, "second")
		panic("listener exploded")
	})
	s.RegisterListener("third", func(context.Context, bool) error {
		order = append(order, "third")
		return nil
	})

	require.NotPanics(t, func() {
		s.SetManualOverride(context.Background(), OverrideAsleep)
	})
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.True(t, s.Sleeping())
}

func TestScheduler_DisabledWindowDoesNotNotifyOnPoll(t *testing.T) {
	settings := nightWindow()
	settings.Enabled = false
	s, clock := newTestScheduler(t, settings, at(12, 0))
	rec := &recorder{}
	s.RegisterListener("rec", rec.listen)

	clock.Set(at(12, 5))
	state, notified := s.Refresh(context.Background(), false)
	assert.False(t, notified)
	assert.True(t, at(12, 5).Add(placeholderTransition).Equal(state.NextTransition))
	assert.True(t, state.Equal(s.State()))
	assert.Empty(t, rec.snapshot())
}

func TestScheduler_RunPublishesTransitions(t *testing.T) {
	settings := nightWindow()
	settings.PollInterval = 5 * time.Millisecond
	s, clock := newTestScheduler(t, settings, at(22, 59))

	changes := make(chan bool, 4)
	s.RegisterListener("chan", func(_ context.Context, sleeping bool) error {
		changes <- sleeping
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	clock.Set(at(23, 0))
	select {
	case sleeping := <-changes:
		assert.True(t, sleeping)
	case <-time.After(time.Second):
		t.Fatal("no transition published")
	}

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
