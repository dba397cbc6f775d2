package sources

import (
	"context"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

// Source is a long-running ingestion adapter. Run blocks until ctx is done.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

// EmitFunc hands a decoded donation to the pipeline.
type EmitFunc func(ctx context.Context, d Donation) (domain.DonationEvent, error)
