package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Miquel-TA/cat-feeder/internal/display"
	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

// Actuator drives the feeder motors.
type Actuator interface {
	TriggerMotor(ctx context.Context, motor int) error
}

// Broadcaster pushes messages to overlay clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg display.Message) int
}

// Recorder marks persisted donations as shown.
type Recorder interface {
	MarkDispatched(ctx context.Context, id string, at time.Time, actuated bool) error
}

// Processor is the queue's dispatch sink: it asks the gate, runs the motor,
// shows the alert and records the outcome.
type Processor struct {
	gate     *Gate
	actuator Actuator
	alerts   Broadcaster
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

// New wires a Processor. actuator may be nil when no feeder is attached.
func New(gate *Gate, actuator Actuator, alerts Broadcaster, recorder Recorder, logger zerolog.Logger) *Processor {
	return &Processor{
		gate:     gate,
		actuator: actuator,
		alerts:   alerts,
		recorder: recorder,
		logger:   logger.With().Str("component", "processor").Logger(),
		now:      time.Now,
	}
}

// Deliver implements dispatch.Sink. An actuator failure is returned so the
// queue retries the whole delivery; nothing is shown in that case.
func (p *Processor) Deliver(ctx context.Context, event domain.DonationEvent) error {
	log := p.logger.With().Str("donation_id", event.ID).Int("motor", event.Tier.Motor).Logger()

	sleep, allowed := p.gate.Decide(event.Tier.Motor)
	p.alerts.Broadcast(ctx, display.QueueStatusMessage(display.NewQueueStatus(true, sleep, p.now())))

	actuated := false
	switch {
	case allowed && p.actuator != nil:
		if err := p.actuator.TriggerMotor(ctx, event.Tier.Motor); err != nil {
			p.alerts.Broadcast(ctx, display.QueueStatusMessage(display.NewQueueStatus(false, sleep, p.now())))
			return fmt.Errorf("processor: trigger motor %d: %w", event.Tier.Motor, err)
		}
		actuated = true
	case allowed:
		log.Warn().Msg("processor: no actuator configured, skipping motor")
	case sleep.Sleeping && event.Tier.Motor > 0:
		log.Info().Msg("processor: sleep mode active, skipping motor")
	}

	clients := p.alerts.Broadcast(ctx, display.DonationMessage(event, actuated))
	p.alerts.Broadcast(ctx, display.QueueStatusMessage(display.NewQueueStatus(false, sleep, p.now())))

	if err := p.recorder.MarkDispatched(ctx, event.ID, p.now().UTC(), actuated); err != nil {
		log.Error().Err(err).Msg("processor: mark dispatched failed")
	}

	log.Info().
		Str("username", event.Username).
		Int64("amount", event.AmountMinor).
		Str("currency", event.Currency).
		Bool("actuated", actuated).
		Int("clients", clients).
		Msg("processor: donation processed")
	return nil
}
