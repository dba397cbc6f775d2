package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Miquel-TA/cat-feeder/internal/dispatch"
	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

const (
	anonymousUsername = "Anonymous"
	defaultPlatform   = "Direct"
)

// Donation is the raw input an ingestion adapter hands to the Emitter.
type Donation struct {
	Username    string
	Platform    string
	AmountMinor int64
	Currency    string
	Message     string
}

// Saver persists new donations.
type Saver interface {
	Save(ctx context.Context, event domain.DonationEvent) error
}

// Enqueuer schedules donations for dispatch.
type Enqueuer interface {
	Enqueue(event domain.DonationEvent) dispatch.Entry
}

// Emitter turns raw donations into events, persists them and queues them.
type Emitter struct {
	tiers  []domain.Tier
	store  Saver
	queue  Enqueuer
	logger zerolog.Logger
	now    func() time.Time
}

// NewEmitter requires at least one tier.
func NewEmitter(tiers []domain.Tier, store Saver, queue Enqueuer, logger zerolog.Logger) (*Emitter, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: no tiers configured", domain.ErrInvalidDonation)
	}
	return &Emitter{
		tiers:  tiers,
		store:  store,
		queue:  queue,
		logger: logger.With().Str("component", "emitter").Logger(),
		now:    time.Now,
	}, nil
}

// Emit validates d, builds the event and persists it before queueing. When
// persisting fails nothing is queued.
func (e *Emitter) Emit(ctx context.Context, d Donation) (domain.DonationEvent, error) {
	event, err := e.build(d)
	if err != nil {
		return domain.DonationEvent{}, err
	}
	if err := e.store.Save(ctx, event); err != nil {
		return domain.DonationEvent{}, fmt.Errorf("emitter: save donation: %w", err)
	}
	entry := e.queue.Enqueue(event)

	e.logger.Info().
		Str("donation_id", event.ID).
		Str("username", event.Username).
		Str("platform", event.Platform).
		Int64("amount", event.AmountMinor).
		Str("currency", event.Currency).
		Str("tier", event.Tier.Name).
		Time("execute_at", entry.ExecuteAt).
		Msg("emitter: donation accepted")
	return event, nil
}

func (e *Emitter) build(d Donation) (domain.DonationEvent, error) {
	if d.AmountMinor < 0 {
		return domain.DonationEvent{}, fmt.Errorf("%w: negative amount %d", domain.ErrInvalidDonation, d.AmountMinor)
	}
	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		return domain.DonationEvent{}, fmt.Errorf("%w: currency is required", domain.ErrInvalidDonation)
	}
	username := strings.TrimSpace(d.Username)
	if username == "" {
		username = anonymousUsername
	}
	platform := strings.TrimSpace(d.Platform)
	if platform == "" {
		platform = defaultPlatform
	}
	note := strings.TrimSpace(d.Message)

	tier := ResolveTier(e.tiers, d.AmountMinor)
	message := RenderMessage(tier.MessageTemplate, MessageFields{
		Username: username,
		Platform: platform,
		Amount:   FormatAmount(d.AmountMinor),
		Currency: currency,
	})
	if strings.TrimSpace(message) == "" {
		message = note
	}

	return domain.DonationEvent{
		ID:          uuid.NewString(),
		Username:    username,
		Platform:    platform,
		AmountMinor: d.AmountMinor,
		Currency:    currency,
		Message:     message,
		DonorNote:   note,
		Tier:        tier,
		CreatedAt:   e.now().UTC(),
	}, nil
}
