package domain

import (
	"context"
	"time"
)

// DonationRepository handles donation persistence.
type DonationRepository interface {
	Save(ctx context.Context, event DonationEvent) error
	MarkDispatched(ctx context.Context, id string, at time.Time, actuated bool) error
	ListRecent(ctx context.Context, limit int) ([]DonationRecord, error)
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}
