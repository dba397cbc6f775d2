package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Miquel-TA/cat-feeder/internal/dispatch"
	"github.com/Miquel-TA/cat-feeder/internal/domain"
	"github.com/Miquel-TA/cat-feeder/internal/sleepwindow"
	"github.com/Miquel-TA/cat-feeder/internal/sources"
)

// SleepControl is the operator side of the sleep scheduler.
type SleepControl interface {
	State() sleepwindow.State
	Override() sleepwindow.Override
	SetManualOverride(ctx context.Context, override sleepwindow.Override) sleepwindow.State
}

// DonationLister reads donation history.
type DonationLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.DonationRecord, error)
}

// DonationEmitter accepts new donations.
type DonationEmitter interface {
	Emit(ctx context.Context, d sources.Donation) (domain.DonationEvent, error)
}

// QueueInspector exposes dispatch queue snapshots.
type QueueInspector interface {
	Stats() dispatch.Stats
	Pending() []dispatch.Entry
}

type App struct {
	Sleep     SleepControl
	Donations DonationLister
	Emitter   DonationEmitter
	Queue     QueueInspector
	Logger    zerolog.Logger
}

func NewApp(sleep SleepControl, donations DonationLister, emitter DonationEmitter, queue QueueInspector, logger zerolog.Logger) *App {
	return &App{
		Sleep:     sleep,
		Donations: donations,
		Emitter:   emitter,
		Queue:     queue,
		Logger:    logger.With().Str("component", "api").Logger(),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}
