package display

import (
	"context"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
	"github.com/Miquel-TA/cat-feeder/internal/sleepwindow"
)

const (
	TypeDonation    = "donation"
	TypeSleep       = "sleep"
	TypeQueueStatus = "queue_status"
)

// SleepPayload is the sleep state as shown to overlays and operators.
type SleepPayload struct {
	Sleeping       bool      `json:"sleeping"`
	NextTransition time.Time `json:"next_transition"`
	Override       *bool     `json:"override"`
}

// NewSleepPayload converts a scheduler snapshot.
func NewSleepPayload(state sleepwindow.State, override sleepwindow.Override) SleepPayload {
	return SleepPayload{
		Sleeping:       state.Sleeping,
		NextTransition: state.NextTransition,
		Override:       override.Sleeping(),
	}
}

// QueueStatus tells overlays whether an alert is being played.
type QueueStatus struct {
	Active           bool    `json:"active"`
	SleepMode        bool    `json:"sleep_mode"`
	SecondsUntilWake float64 `json:"seconds_until_wake"`
}

// NewQueueStatus derives the status from the sleep state at now.
func NewQueueStatus(active bool, state sleepwindow.State, now time.Time) QueueStatus {
	status := QueueStatus{Active: active, SleepMode: state.Sleeping}
	if state.Sleeping && state.NextTransition.After(now) {
		status.SecondsUntilWake = state.NextTransition.Sub(now).Seconds()
	}
	return status
}

// DonationMessage wraps a dispatched donation. actuated reports whether the
// motor ran.
func DonationMessage(event domain.DonationEvent, actuated bool) Message {
	payload := event.DisplayPayload()
	payload["actuated"] = actuated
	return Message{Type: TypeDonation, Payload: payload}
}

func SleepMessage(payload SleepPayload) Message {
	return Message{Type: TypeSleep, Payload: payload}
}

func QueueStatusMessage(status QueueStatus) Message {
	return Message{Type: TypeQueueStatus, Payload: status}
}

// SleepSource is the read side of the sleep scheduler.
type SleepSource interface {
	State() sleepwindow.State
	Override() sleepwindow.Override
}

// CurrentSleep snapshots src as a payload.
func CurrentSleep(src SleepSource) SleepPayload {
	return NewSleepPayload(src.State(), src.Override())
}

// SleepGreeting sends the current sleep state to new clients of hub.
func SleepGreeting(src SleepSource) Option {
	return WithGreeting(func() Message { return SleepMessage(CurrentSleep(src)) })
}

// SleepListener pushes every sleep notification to the hub's clients.
func SleepListener(hub *Hub, src SleepSource) sleepwindow.Listener {
	return func(ctx context.Context, sleeping bool) error {
		payload := CurrentSleep(src)
		payload.Sleeping = sleeping
		hub.Broadcast(ctx, SleepMessage(payload))
		return nil
	}
}
