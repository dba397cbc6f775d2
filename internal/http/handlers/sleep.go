package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Miquel-TA/cat-feeder/internal/display"
	"github.com/Miquel-TA/cat-feeder/internal/middleware"
	"github.com/Miquel-TA/cat-feeder/internal/sleepwindow"
)

func (a *App) SleepStatus(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, display.CurrentSleep(a.Sleep))
}

// SleepOverride accepts {"override": true|false|null}: true forces sleep,
// false forces awake and null returns to the schedule.
func (a *App) SleepOverride(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<10))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	var req map[string]json.RawMessage
	if err := json.Unmarshal(body, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	raw, ok := req["override"]
	if !ok {
		a.error(w, http.StatusBadRequest, "invalid_override", "override is required")
		return
	}
	var override sleepwindow.Override
	switch string(bytes.TrimSpace(raw)) {
	case "true":
		override = sleepwindow.OverrideAsleep
	case "false":
		override = sleepwindow.OverrideAwake
	case "null":
		override = sleepwindow.OverrideUnset
	default:
		a.error(w, http.StatusBadRequest, "invalid_override", "override must be true, false or null")
		return
	}

	state := a.Sleep.SetManualOverride(r.Context(), override)
	a.Logger.Info().
		Str("override", override.String()).
		Str("operator", middleware.OperatorFromContext(r.Context())).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("api: sleep override set")
	a.json(w, http.StatusOK, display.NewSleepPayload(state, override))
}
