package sleepwindow

import (
	"fmt"
	"time"
)

// placeholderTransition is reported when no transition will ever happen.
const placeholderTransition = 12 * time.Hour

// Override is an operator decision that replaces the computed sleep state.
type Override int

const (
	OverrideUnset Override = iota
	OverrideAwake
	OverrideAsleep
)

func (o Override) String() string {
	switch o {
	case OverrideAwake:
		return "awake"
	case OverrideAsleep:
		return "asleep"
	default:
		return "unset"
	}
}

// ParseOverride accepts "awake", "asleep" and "unset" (also "auto" and "").
func ParseOverride(value string) (Override, error) {
	switch value {
	case "awake":
		return OverrideAwake, nil
	case "asleep", "sleep":
		return OverrideAsleep, nil
	case "unset", "auto", "":
		return OverrideUnset, nil
	}
	return OverrideUnset, fmt.Errorf("sleepwindow: unknown override %q", value)
}

// OverrideFromSleeping maps the wire form used by operators: nil clears the
// override, true forces sleep and false forces awake.
func OverrideFromSleeping(sleeping *bool) Override {
	switch {
	case sleeping == nil:
		return OverrideUnset
	case *sleeping:
		return OverrideAsleep
	default:
		return OverrideAwake
	}
}

// Sleeping is the inverse of OverrideFromSleeping.
func (o Override) Sleeping() *bool {
	var v bool
	switch o {
	case OverrideAsleep:
		v = true
	case OverrideAwake:
		v = false
	default:
		return nil
	}
	return &v
}

// State is the published sleep state.
type State struct {
	Sleeping       bool
	NextTransition time.Time
}

// Equal compares states by value.
func (s State) Equal(o State) bool {
	return s.Sleeping == o.Sleeping && s.NextTransition.Equal(o.NextTransition)
}

// Evaluate computes the state at now. The override replaces the sleeping flag
// only; NextTransition always follows the configured window.
func Evaluate(settings Settings, override Override, now time.Time) State {
	state, _ := evaluate(settings, override, now)
	return state
}

// evaluate also reports whether NextTransition is only a placeholder.
func evaluate(settings Settings, override Override, now time.Time) (State, bool) {
	sleeping, next := window(settings, now)
	switch override {
	case OverrideAwake:
		sleeping = false
	case OverrideAsleep:
		sleeping = true
	}
	return State{Sleeping: sleeping, NextTransition: next}, inert(settings)
}

func inert(s Settings) bool {
	return !s.Enabled || s.Start == s.End
}

// window returns the computed state and the next instant it flips. A disabled
// or zero-length window (Start == End) is always awake.
func window(s Settings, now time.Time) (bool, time.Time) {
	if inert(s) {
		return false, now.Add(placeholderTransition)
	}

	local := now.In(s.location())
	start := s.Start.on(local, 0)
	end := s.End.on(local, 0)

	if s.Start.Before(s.End) {
		switch {
		case local.Before(start):
			return false, start
		case local.Before(end):
			return true, end
		default:
			return false, s.Start.on(local, 1)
		}
	}

	// Window crosses midnight.
	switch {
	case !local.Before(start):
		return true, s.End.on(local, 1)
	case local.Before(end):
		return true, end
	default:
		return false, start
	}
}
