package sleepwindow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTimeOfDay = errors.New("sleepwindow: invalid time of day")
	ErrInvalidSettings  = errors.New("sleepwindow: invalid settings")
)

// TimeOfDay is a wall-clock hour and minute.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" in 24h format.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	hour, minute, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	if !twoDigits(hour) {
		return TimeOfDay{}, fmt.Errorf("%w: hour in %q", ErrInvalidTimeOfDay, value)
	}
	h, err := strconv.Atoi(hour)
	if err != nil || h > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: hour in %q", ErrInvalidTimeOfDay, value)
	}
	if !twoDigits(minute) {
		return TimeOfDay{}, fmt.Errorf("%w: minute in %q", ErrInvalidTimeOfDay, value)
	}
	m, err := strconv.Atoi(minute)
	if err != nil || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: minute in %q", ErrInvalidTimeOfDay, value)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// MustParseTimeOfDay is ParseTimeOfDay for literals.
func MustParseTimeOfDay(value string) TimeOfDay {
	t, err := ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is earlier in the day than o.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.Hour*60+t.Minute < o.Hour*60+o.Minute
}

// on returns t on the calendar day of day (in day's location) shifted by offset days.
func (t TimeOfDay) on(day time.Time, offset int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+offset, t.Hour, t.Minute, 0, 0, day.Location())
}

// Settings describes the daily do-not-disturb window.
type Settings struct {
	Enabled      bool
	Location     *time.Location
	Start        TimeOfDay
	End          TimeOfDay
	PollInterval time.Duration
}

// NewSettings parses the textual configuration surface.
func NewSettings(enabled bool, timezone, start, end string, poll time.Duration) (Settings, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil {
		return Settings{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalidSettings, timezone, err)
	}
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Settings{}, fmt.Errorf("sleep start: %w", err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Settings{}, fmt.Errorf("sleep end: %w", err)
	}
	settings := Settings{Enabled: enabled, Location: loc, Start: s, End: e, PollInterval: poll}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate checks the poll interval; time-of-day ordering is unconstrained.
func (s Settings) Validate() error {
	if s.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidSettings, s.PollInterval)
	}
	return nil
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
