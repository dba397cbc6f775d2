package handlers

import (
	"net/http"
	"time"
)

type pendingItem struct {
	DonationID string    `json:"donation_id"`
	Username   string    `json:"username"`
	Tier       string    `json:"tier"`
	ExecuteAt  time.Time `json:"execute_at"`
	Deadline   time.Time `json:"deadline"`
	Attempt    int       `json:"attempt"`
}

// QueueStatus reports dispatch counters and the scheduled entries in order.
func (a *App) QueueStatus(w http.ResponseWriter, r *http.Request) {
	pending := a.Queue.Pending()
	items := make([]pendingItem, 0, len(pending))
	for _, e := range pending {
		items = append(items, pendingItem{
			DonationID: e.Event.ID,
			Username:   e.Event.Username,
			Tier:       e.Event.Tier.Name,
			ExecuteAt:  e.ExecuteAt,
			Deadline:   e.Deadline,
			Attempt:    e.Attempt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{
		"stats":   a.Queue.Stats(),
		"pending": items,
	})
}
