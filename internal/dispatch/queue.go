package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

// RetryHook observes every rescheduled entry together with the backoff applied.
type RetryHook func(entry Entry, backoff time.Duration)

// Option customizes a Queue.
type Option func(*Queue)

// WithRetryHook registers a hook invoked after a failed delivery is rescheduled.
func WithRetryHook(hook RetryHook) Option {
	return func(q *Queue) { q.onRetry = hook }
}

// Queue delays incoming donations, spaces dispatches at least MinimumGap apart
// and never holds a fresh entry past MaximumDelay. A single worker goroutine
// delivers due entries to the Sink; Enqueue is safe for concurrent producers.
type Queue struct {
	settings Settings
	sink     Sink
	logger   zerolog.Logger
	onRetry  RetryHook

	mu            sync.Mutex
	entries       entryHeap
	seq           uint64
	nextAvailable time.Time
	lastDispatch  time.Time
	started       bool
	closed        bool
	dispatched    uint64
	failed        uint64
	retried       uint64
	dropped       uint64

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewQueue validates settings and builds an idle queue. Call Start to run the worker.
func NewQueue(settings Settings, sink Sink, logger zerolog.Logger, opts ...Option) (*Queue, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: sink is required", ErrInvalidSettings)
	}
	q := &Queue{
		settings: settings,
		sink:     sink,
		logger:   logger.With().Str("component", "queue").Logger(),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Settings returns the queue configuration.
func (q *Queue) Settings() Settings { return q.settings }

// Enqueue schedules a donation and returns immediately. Input is never rejected;
// after Close the entry is acknowledged but neither queued nor delivered.
func (q *Queue) Enqueue(event domain.DonationEvent) Entry {
	now := time.Now()
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn().Str("donation_id", event.ID).Msg("queue: enqueue after close, donation will not be dispatched")
		return Entry{Event: event, ExecuteAt: now, Deadline: now.Add(q.settings.MaximumDelay)}
	}
	snapshot := *q.scheduleLocked(&Entry{Event: event}, now, q.settings.DefaultDelay)
	q.mu.Unlock()
	q.signal()

	q.logger.Info().
		Str("donation_id", event.ID).
		Str("username", event.Username).
		Time("execute_at", snapshot.ExecuteAt).
		Dur("delay", snapshot.ExecuteAt.Sub(now)).
		Msg("queue: donation scheduled")
	return snapshot
}

// scheduleLocked computes ExecuteAt as min(max(nextAvailable, now+delay), now+MaximumDelay),
// reserves the following slot and pushes the entry. Callers hold q.mu.
func (q *Queue) scheduleLocked(entry *Entry, now time.Time, delay time.Duration) *Entry {
	earliest := now.Add(delay)
	if q.nextAvailable.After(earliest) {
		earliest = q.nextAvailable
	}
	latest := now.Add(q.settings.MaximumDelay)
	executeAt := earliest
	if executeAt.After(latest) {
		executeAt = latest
	}
	if reserved := executeAt.Add(q.settings.MinimumGap); reserved.After(q.nextAvailable) {
		q.nextAvailable = reserved
	}

	entry.ExecuteAt = executeAt
	entry.Deadline = latest
	q.pushLocked(entry)
	return entry
}

// rescheduleLocked puts a failed entry back at now+backoff without reserving a
// slot; next still enforces MinimumGap against the last dispatch. Callers hold q.mu.
func (q *Queue) rescheduleLocked(entry *Entry, now time.Time, backoff time.Duration) {
	entry.ExecuteAt = now.Add(backoff)
	entry.Deadline = now.Add(q.settings.MaximumDelay)
	q.pushLocked(entry)
}

func (q *Queue) pushLocked(entry *Entry) {
	entry.seq = q.seq
	q.seq++
	heapPush(&q.entries, entry)
}

// Start launches the worker. It is a no-op when already started or closed.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.wg.Add(1)
	q.mu.Unlock()

	go q.run(ctx)
}

// Close stops the worker after any in-flight delivery returns. Pending entries
// are abandoned. Close is idempotent.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		pending := len(q.entries)
		q.mu.Unlock()
		close(q.done)
		q.logger.Info().Int("pending", pending).Msg("queue: closing")
	})
	q.wg.Wait()
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := Stats{
		Pending:    len(q.entries),
		Dispatched: q.dispatched,
		Failed:     q.failed,
		Retried:    q.retried,
		Dropped:    q.dropped,
		Closed:     q.closed,
	}
	if len(q.entries) > 0 {
		stats.NextAt = q.entries[0].ExecuteAt
	}
	return stats
}

// Pending returns copies of the scheduled entries in dispatch order.
func (q *Queue) Pending() []Entry {
	q.mu.Lock()
	sorted := make(entryHeap, len(q.entries))
	copy(sorted, q.entries)
	q.mu.Unlock()

	sort.Sort(sorted)
	out := make([]Entry, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, *e)
	}
	return out
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()
	q.logger.Info().Msg("queue: worker started")
	defer q.logger.Info().Msg("queue: worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		default:
		}

		entry, wait, ok := q.next(time.Now())
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.done:
				return
			case <-q.wake:
			}
			continue
		}
		if entry == nil {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-q.done:
				timer.Stop()
				return
			case <-q.wake:
			case <-timer.C:
			}
			timer.Stop()
			continue
		}

		q.deliver(ctx, entry)
	}
}

// next pops the entry that is due at now. When nothing is due it returns the
// time to wait; ok is false when the queue is empty.
//
// An entry is ready at max(ExecuteAt, lastDispatch+MinimumGap) but never later
// than its Deadline. Any entry whose Deadline precedes the head's ready time is
// taken first, out of order.
func (q *Queue) next(now time.Time) (*Entry, time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil, 0, false
	}

	pick := 0
	head := q.entries[0]
	ready := head.ExecuteAt
	if !q.lastDispatch.IsZero() {
		if spaced := q.lastDispatch.Add(q.settings.MinimumGap); spaced.After(ready) {
			ready = spaced
		}
	}
	if ready.After(head.Deadline) {
		ready = head.Deadline
	}
	if i := q.entries.earliestDeadline(); i > 0 && q.entries[i].Deadline.Before(ready) {
		pick = i
		ready = q.entries[i].Deadline
	}

	if ready.After(now) {
		return nil, ready.Sub(now), true
	}

	entry := heapRemoveAt(&q.entries, pick)
	q.lastDispatch = now
	if reserved := now.Add(q.settings.MinimumGap); reserved.After(q.nextAvailable) {
		q.nextAvailable = reserved
	}
	return entry, 0, true
}

func (q *Queue) deliver(ctx context.Context, entry *Entry) {
	log := q.logger.With().Str("donation_id", entry.Event.ID).Int("attempt", entry.Attempt).Logger()

	err := q.invoke(ctx, entry.Event)
	if err == nil {
		q.mu.Lock()
		q.dispatched++
		q.mu.Unlock()
		log.Info().Msg("queue: donation dispatched")
		return
	}

	entry.Attempt++
	q.mu.Lock()
	q.failed++
	if q.settings.MaxAttempts > 0 && entry.Attempt >= q.settings.MaxAttempts {
		q.dropped++
		q.mu.Unlock()
		log.Error().Err(err).Int("failed_attempts", entry.Attempt).Msg("queue: donation dropped after max attempts")
		return
	}
	backoff := q.settings.Backoff(entry.Attempt)
	q.rescheduleLocked(entry, time.Now(), backoff)
	q.retried++
	snapshot := *entry
	q.mu.Unlock()
	q.signal()

	log.Error().Err(err).
		Int("next_attempt", snapshot.Attempt).
		Dur("backoff", backoff).
		Time("execute_at", snapshot.ExecuteAt).
		Msg("queue: dispatch failed, donation re-queued")
	if q.onRetry != nil {
		q.onRetry(snapshot, backoff)
	}
}

// invoke calls the sink, turning a panic into an ordinary delivery failure.
func (q *Queue) invoke(ctx context.Context, event domain.DonationEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch: sink panic: %v", r)
		}
	}()
	return q.sink.Deliver(ctx, event)
}
