package sleepwindow

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var madrid = time.FixedZone("CET", 60*60)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.March, 10, hour, minute, 0, 0, madrid)
}

func nightWindow() Settings {
	return Settings{
		Enabled:      true,
		Location:     madrid,
		Start:        MustParseTimeOfDay("23:00"),
		End:          MustParseTimeOfDay("06:00"),
		PollInterval: time.Second,
	}
}

func dayWindow() Settings {
	s := nightWindow()
	s.Start = MustParseTimeOfDay("08:00")
	s.End = MustParseTimeOfDay("20:00")
	return s
}

func TestEvaluate_Window(t *testing.T) {
	nextDay := func(hour, minute int) time.Time { return at(hour, minute).AddDate(0, 0, 1) }

	tests := []struct {
		name     string
		settings Settings
		now      time.Time
		sleeping bool
		next     time.Time
	}{
		{"night window late evening", nightWindow(), at(23, 30), true, nextDay(6, 0)},
		{"night window midday", nightWindow(), at(12, 0), false, at(23, 0)},
		{"night window early morning", nightWindow(), at(3, 0), true, at(6, 0)},
		{"night window end is exclusive", nightWindow(), at(6, 0), false, at(23, 0)},
		{"night window start is inclusive", nightWindow(), at(23, 0), true, nextDay(6, 0)},
		{"day window before start", dayWindow(), at(7, 59), false, at(8, 0)},
		{"day window at start", dayWindow(), at(8, 0), true, at(20, 0)},
		{"day window at end", dayWindow(), at(20, 0), false, nextDay(8, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Evaluate(tt.settings, OverrideUnset, tt.now)
			assert.Equal(t, tt.sleeping, state.Sleeping)
			assert.True(t, tt.next.Equal(state.NextTransition), "next = %s, want %s", state.NextTransition, tt.next)
		})
	}
}

func TestEvaluate_SpringForwardGap(t *testing.T) {
	// Europe/Madrid skips 02:00-03:00 local on 2024-03-31 (01:00Z).
	zone, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	window := func(start, end string) Settings {
		return Settings{
			Enabled:      true,
			Location:     zone,
			Start:        MustParseTimeOfDay(start),
			End:          MustParseTimeOfDay(end),
			PollInterval: time.Second,
		}
	}
	utc := func(day, hour, minute int) time.Time {
		return time.Date(2024, time.March, day, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		settings Settings
		now      time.Time
		sleeping bool
		next     time.Time
	}{
		{"start in gap before change", window("02:30", "08:00"), utc(31, 0, 0), false, utc(31, 1, 30)},
		{"start in gap after change", window("02:30", "08:00"), utc(31, 1, 10), false, utc(31, 1, 30)},
		{"start in gap reached", window("02:30", "08:00"), utc(31, 1, 30), true, utc(31, 6, 0)},
		{"end in gap", window("00:30", "02:30"), utc(31, 0, 30), true, utc(31, 1, 30)},
		{"end in gap reached", window("00:30", "02:30"), utc(31, 1, 30), false, utc(31, 22, 30)},
		{"night window spans change", window("23:00", "06:00"), utc(30, 23, 0), true, utc(31, 4, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Evaluate(tt.settings, OverrideUnset, tt.now)
			assert.Equal(t, tt.sleeping, state.Sleeping)
			assert.True(t, tt.next.Equal(state.NextTransition), "next = %s, want %s", state.NextTransition, tt.next)
		})
	}

	for _, settings := range []Settings{window("02:30", "08:00"), window("00:30", "02:30")} {
		day := time.Date(2024, time.March, 31, 0, 0, 0, 0, zone)
		for minute := 0; minute < 23*60; minute++ {
			now := day.Add(time.Duration(minute) * time.Minute)
			state := Evaluate(settings, OverrideUnset, now)
			require.True(t, state.NextTransition.After(now), "at %s", now)
			flipped := Evaluate(settings, OverrideUnset, state.NextTransition)
			require.NotEqual(t, state.Sleeping, flipped.Sleeping, "at %s", now)
		}
	}
}

func TestEvaluate_UsesConfiguredTimezone(t *testing.T) {
	// 22:30 UTC is 23:30 in the window's zone.
	now := time.Date(2024, time.March, 10, 22, 30, 0, 0, time.UTC)
	state := Evaluate(nightWindow(), OverrideUnset, now)
	assert.True(t, state.Sleeping)
	assert.True(t, at(6, 0).AddDate(0, 0, 1).Equal(state.NextTransition))
}

func TestEvaluate_DisabledIsAlwaysAwake(t *testing.T) {
	s := nightWindow()
	s.Enabled = false
	now := at(23, 30)

	state := Evaluate(s, OverrideUnset, now)
	assert.False(t, state.Sleeping)
	assert.Equal(t, now.Add(placeholderTransition), state.NextTransition)
}

func TestEvaluate_EmptyWindowIsAlwaysAwake(t *testing.T) {
	s := nightWindow()
	s.End = s.Start
	for _, now := range []time.Time{at(0, 0), at(23, 0), at(23, 30)} {
		state := Evaluate(s, OverrideUnset, now)
		assert.False(t, state.Sleeping, now.String())
		assert.True(t, state.NextTransition.After(now))
	}
}

func TestEvaluate_OverrideKeepsWindowTransition(t *testing.T) {
	now := at(23, 30)
	base := Evaluate(nightWindow(), OverrideUnset, now)

	awake := Evaluate(nightWindow(), OverrideAwake, now)
	assert.False(t, awake.Sleeping)
	assert.True(t, base.NextTransition.Equal(awake.NextTransition))

	asleep := Evaluate(nightWindow(), OverrideAsleep, at(12, 0))
	assert.True(t, asleep.Sleeping)
	assert.True(t, at(23, 0).Equal(asleep.NextTransition))
}

func TestEvaluate_NextTransitionFlipsState(t *testing.T) {
	for _, settings := range []Settings{nightWindow(), dayWindow()} {
		day := at(0, 0)
		for minute := 0; minute < 24*60; minute++ {
			now := day.Add(time.Duration(minute) * time.Minute)
			state := Evaluate(settings, OverrideUnset, now)
			require.True(t, state.NextTransition.After(now), "at %s", now)

			flipped := Evaluate(settings, OverrideUnset, state.NextTransition)
			require.NotEqual(t, state.Sleeping, flipped.Sleeping, "at %s", now)

			before := Evaluate(settings, OverrideUnset, state.NextTransition.Add(-time.Minute))
			require.Equal(t, state.Sleeping, before.Sleeping, "at %s", now)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "23:00", want: TimeOfDay{23, 0}},
		{in: "06:05", want: TimeOfDay{6, 5}},
		{in: "6:05", wantErr: true},
		{in: "+7:00", wantErr: true},
		{in: "-0:30", wantErr: true},
		{in: "07:+5", wantErr: true},
		{in: "007:00", wantErr: true},
		{in: " 00:00 ", want: TimeOfDay{0, 0}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, MustParseTimeOfDay(got.String()))
		})
	}
}

func TestNewSettings(t *testing.T) {
	s, err := NewSettings(true, "UTC", "22:30", "07:00", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{22, 30}, s.Start)
	assert.Equal(t, time.UTC, s.Location)

	_, err = NewSettings(true, "Nowhere/Atlantis", "22:30", "07:00", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = NewSettings(true, "UTC", "22:30", "07:00", 0)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = NewSettings(true, "UTC", "nope", "07:00", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
}

func TestOverrideWireForm(t *testing.T) {
	yes, no := true, false
	assert.Equal(t, OverrideUnset, OverrideFromSleeping(nil))
	assert.Equal(t, OverrideAsleep, OverrideFromSleeping(&yes))
	assert.Equal(t, OverrideAwake, OverrideFromSleeping(&no))

	assert.Nil(t, OverrideUnset.Sleeping())
	assert.Equal(t, &yes, OverrideAsleep.Sleeping())
	assert.Equal(t, &no, OverrideAwake.Sleeping())

	for _, in := range []string{"awake", "asleep", "unset"} {
		o, err := ParseOverride(in)
		require.NoError(t, err)
		assert.Equal(t, in, o.String())
	}
	_, err := ParseOverride("maybe")
	assert.Error(t, err)
}
