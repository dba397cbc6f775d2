package processor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Miquel-TA/cat-feeder/internal/sleepwindow"
)

// ShouldActuate is the actuation decision: the motor runs only while awake
// and only for tiers that name a motor.
func ShouldActuate(sleeping bool, motor int) bool {
	return !sleeping && motor > 0
}

// SleepState is the read side of the sleep scheduler.
type SleepState interface {
	State() sleepwindow.State
}

// Gate consults the published sleep state at dispatch time.
type Gate struct {
	sleep  SleepState
	logger zerolog.Logger
}

func NewGate(sleep SleepState, logger zerolog.Logger) *Gate {
	return &Gate{sleep: sleep, logger: logger.With().Str("component", "gate").Logger()}
}

// Decide returns the sleep snapshot used and whether motor may run.
func (g *Gate) Decide(motor int) (sleepwindow.State, bool) {
	state := g.sleep.State()
	return state, ShouldActuate(state.Sleeping, motor)
}

// OnSleepChange is registered as a scheduler listener.
func (g *Gate) OnSleepChange(_ context.Context, sleeping bool) error {
	if sleeping {
		g.logger.Info().Msg("gate: actuation muted")
	} else {
		g.logger.Info().Msg("gate: actuation enabled")
	}
	return nil
}
