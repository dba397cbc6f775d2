package sleepwindow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Listener is notified with the new sleeping flag. Listeners run synchronously
// in registration order and must not call SetManualOverride or Refresh.
type Listener func(ctx context.Context, sleeping bool) error

type namedListener struct {
	name string
	fn   Listener
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler owns the published sleep State. It re-evaluates the window every
// PollInterval and notifies listeners when the state changes.
type Scheduler struct {
	settings Settings
	logger   zerolog.Logger
	now      func() time.Time

	// evalMu orders evaluate+notify cycles so listeners see changes in sequence.
	evalMu sync.Mutex

	mu        sync.RWMutex
	state     State
	override  Override
	listeners []namedListener
}

// NewScheduler validates settings and computes the initial state.
func NewScheduler(settings Settings, logger zerolog.Logger, opts ...Option) (*Scheduler, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		settings: settings,
		logger:   logger.With().Str("component", "sleep").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = Evaluate(settings, OverrideUnset, s.now())
	return s, nil
}

// Settings returns the window configuration.
func (s *Scheduler) Settings() Settings { return s.settings }

// RegisterListener appends a listener.
func (s *Scheduler) RegisterListener(name string, fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, namedListener{name: name, fn: fn})
	s.mu.Unlock()
}

// State returns a snapshot of the published state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Override returns the active manual override.
func (s *Scheduler) Override() Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.override
}

// Sleeping reports the published sleeping flag.
func (s *Scheduler) Sleeping() bool {
	return s.State().Sleeping
}

// Evaluate computes the state at now with the current override without publishing it.
func (s *Scheduler) Evaluate(now time.Time) State {
	return Evaluate(s.settings, s.Override(), now)
}

// SetManualOverride stores the override, re-evaluates and notifies listeners
// even when the resulting state did not change.
func (s *Scheduler) SetManualOverride(ctx context.Context, override Override) State {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	s.mu.Lock()
	s.override = override
	s.mu.Unlock()
	s.logger.Info().Str("override", override.String()).Msg("sleep: manual override applied")

	state, _ := s.refreshLocked(ctx, true)
	return state
}

// Refresh re-evaluates the window. Listeners are notified when the state
// changed or force is set. It reports whether a notification went out.
func (s *Scheduler) Refresh(ctx context.Context, force bool) (State, bool) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	return s.refreshLocked(ctx, force)
}

func (s *Scheduler) refreshLocked(ctx context.Context, force bool) (State, bool) {
	s.mu.Lock()
	next, placeholder := evaluate(s.settings, s.override, s.now())
	changed := !next.Equal(s.state)
	if placeholder && next.Sleeping == s.state.Sleeping {
		// Only the placeholder moved: publish it without notifying.
		s.state = next
		changed = false
	}
	if changed || force {
		s.state = next
	}
	listeners := make([]namedListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if !changed && !force {
		return next, false
	}
	s.logger.Info().
		Bool("sleeping", next.Sleeping).
		Time("next_transition", next.NextTransition).
		Bool("forced", force && !changed).
		Msg("sleep: state published")
	s.broadcast(ctx, listeners, next.Sleeping)
	return next, true
}

func (s *Scheduler) broadcast(ctx context.Context, listeners []namedListener, sleeping bool) {
	for _, l := range listeners {
		if err := callListener(ctx, l.fn, sleeping); err != nil {
			s.logger.Error().Err(err).Str("listener", l.name).Msg("sleep: listener failed")
		}
	}
}

func callListener(ctx context.Context, fn Listener, sleeping bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(ctx, sleeping)
}

// Run evaluates immediately and then every PollInterval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Bool("enabled", s.settings.Enabled).
		Str("start", s.settings.Start.String()).
		Str("end", s.settings.End.String()).
		Str("timezone", s.settings.location().String()).
		Msg("sleep: scheduler started")

	ticker := time.NewTicker(s.settings.PollInterval)
	defer ticker.Stop()

	for {
		s.Refresh(ctx, false)
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sleep: scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
