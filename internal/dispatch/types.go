package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("dispatch: invalid settings")

// Settings controls the cadence of the queue. MaxAttempts of zero retries a
// failing delivery forever.
type Settings struct {
	DefaultDelay time.Duration
	MinimumGap   time.Duration
	MaximumDelay time.Duration
	MaxAttempts  int
}

// Validate enforces 0 <= DefaultDelay <= MaximumDelay and MinimumGap >= 0.
func (s Settings) Validate() error {
	switch {
	case s.DefaultDelay < 0:
		return fmt.Errorf("%w: default delay %s is negative", ErrInvalidSettings, s.DefaultDelay)
	case s.MinimumGap < 0:
		return fmt.Errorf("%w: minimum gap %s is negative", ErrInvalidSettings, s.MinimumGap)
	case s.MaximumDelay < s.DefaultDelay:
		return fmt.Errorf("%w: maximum delay %s is below default delay %s", ErrInvalidSettings, s.MaximumDelay, s.DefaultDelay)
	case s.MaxAttempts < 0:
		return fmt.Errorf("%w: max attempts %d is negative", ErrInvalidSettings, s.MaxAttempts)
	}
	return nil
}

// Backoff returns the retry delay after the given number of failed attempts.
func (s Settings) Backoff(attempt int) time.Duration {
	backoff := s.MinimumGap * time.Duration(attempt+1)
	if backoff > s.MaximumDelay || backoff < 0 {
		backoff = s.MaximumDelay
	}
	return backoff
}

// Entry is a scheduled donation. ExecuteAt is the earliest dispatch instant
// and Deadline the latest one; both are recomputed when the entry is retried.
type Entry struct {
	Event     domain.DonationEvent
	ExecuteAt time.Time
	Deadline  time.Time
	Attempt   int

	seq uint64
}

// Sink receives due donations. Calls are serialized by the queue.
type Sink interface {
	Deliver(ctx context.Context, event domain.DonationEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event domain.DonationEvent) error

func (f SinkFunc) Deliver(ctx context.Context, event domain.DonationEvent) error {
	return f(ctx, event)
}

// Stats is a snapshot of queue counters.
type Stats struct {
	Pending    int       `json:"pending"`
	Dispatched uint64    `json:"dispatched"`
	Failed     uint64    `json:"failed"`
	Retried    uint64    `json:"retried"`
	Dropped    uint64    `json:"dropped"`
	Closed     bool      `json:"closed"`
	NextAt     time.Time `json:"next_at,omitzero"`
}
