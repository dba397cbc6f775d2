package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
	"github.com/Miquel-TA/cat-feeder/internal/format"
	"github.com/Miquel-TA/cat-feeder/internal/middleware"
	"github.com/Miquel-TA/cat-feeder/internal/sources"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxDonationBody     = 64 << 10
)

type donationItem struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Platform      string     `json:"platform"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	DisplayAmount string     `json:"display_amount"`
	Message       string     `json:"message"`
	DonorNote     string     `json:"donor_note"`
	Tier          string     `json:"tier"`
	Motor         int        `json:"motor"`
	Status        string     `json:"status"`
	Actuated      bool       `json:"actuated"`
	CreatedAt     time.Time  `json:"created_at"`
	DispatchedAt  *time.Time `json:"dispatched_at"`
}

// DonationsList returns recent donations, newest first.
func (a *App) DonationsList(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := a.Donations.ListRecent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("api: list donations failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load donations")
		return
	}

	locale := middleware.LocaleFromContext(r.Context())
	items := make([]donationItem, 0, len(records))
	for _, rec := range records {
		items = append(items, donationItem{
			ID:            rec.ID,
			Username:      rec.Username,
			Platform:      rec.Platform,
			Amount:        rec.AmountMinor,
			Currency:      rec.Currency,
			DisplayAmount: format.Amount(locale, rec.AmountMinor, rec.Currency),
			Message:       rec.Message,
			DonorNote:     rec.DonorNote,
			Tier:          rec.TierName,
			Motor:         rec.Motor,
			Status:        string(rec.Status),
			Actuated:      rec.Actuated,
			CreatedAt:     rec.CreatedAt,
			DispatchedAt:  rec.DispatchedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// DonationsCreate ingests a donation payload or a Streamlabs event. Each
// accepted donation is persisted and queued; the response lists their ids.
func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDonationBody))
	if err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "bad_request", "payload too large")
		return
	}
	donations, err := sources.DecodeDonations(body)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_donation", err.Error())
		return
	}

	ids := make([]string, 0, len(donations))
	for _, d := range donations {
		event, err := a.Emitter.Emit(r.Context(), d)
		if errors.Is(err, domain.ErrInvalidDonation) {
			a.error(w, http.StatusBadRequest, "invalid_donation", err.Error())
			return
		}
		if err != nil {
			a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("api: emit donation failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to accept donation")
			return
		}
		ids = append(ids, event.ID)
	}

	resp := map[string]any{"ids": ids}
	if len(ids) > 0 {
		resp["id"] = ids[0]
	}
	a.json(w, http.StatusAccepted, resp)
}
