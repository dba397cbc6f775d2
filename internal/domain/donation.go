package domain

import "time"

// DonationStatus tracks where a persisted donation is in the alert pipeline.
type DonationStatus string

const (
	DonationStatusQueued     DonationStatus = "queued"
	DonationStatusDispatched DonationStatus = "dispatched"
)

// Tier maps a donation amount bracket to an on-screen message, assets and a motor.
// Amounts are integer minor units.
type Tier struct {
	Name            string
	MinimumAmount   int64
	MaximumAmount   *int64
	Motor           int
	MessageTemplate string
	Animation       string
	Sound           string
	Duration        time.Duration
}

// Matches reports whether amount falls inside the tier bounds.
func (t Tier) Matches(amount int64) bool {
	if amount < t.MinimumAmount {
		return false
	}
	return t.MaximumAmount == nil || amount <= *t.MaximumAmount
}

// DonationEvent is the normalized, immutable record produced by an ingestion
// adapter. It is passed by value from the queue to the dispatch sink.
type DonationEvent struct {
	ID          string
	Username    string
	Platform    string
	AmountMinor int64
	Currency    string
	Message     string
	DonorNote   string
	Tier        Tier
	CreatedAt   time.Time
}

// DisplayPayload is the JSON shape pushed to overlay clients.
func (e DonationEvent) DisplayPayload() map[string]any {
	return map[string]any{
		"id":         e.ID,
		"username":   e.Username,
		"platform":   e.Platform,
		"amount":     e.AmountMinor,
		"currency":   e.Currency,
		"message":    e.Message,
		"donor_note": e.DonorNote,
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339),
		"name":       e.Tier.Name,
		"motor":      e.Tier.Motor,
		"animation":  e.Tier.Animation,
		"sound":      e.Tier.Sound,
		"duration":   e.Tier.Duration.Seconds(),
	}
}

// DonationRecord is a persisted donation as read back from storage.
type DonationRecord struct {
	ID           string
	Username     string
	Platform     string
	AmountMinor  int64
	Currency     string
	Message      string
	DonorNote    string
	TierName     string
	Motor        int
	Status       DonationStatus
	Actuated     bool
	CreatedAt    time.Time
	DispatchedAt *time.Time
}
