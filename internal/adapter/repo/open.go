package repo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
	"github.com/Miquel-TA/cat-feeder/internal/infra"
)

// Open connects to PostgreSQL when database_url is set and to the SQLite file
// at database_path otherwise, creating the schema. The returned func releases
// the database.
func Open(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (domain.DonationRepository, func(), error) {
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		r := NewDonationRepositoryPG(infra.NewSQLRunner(pool, logger))
		if err := r.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		logger.Info().Str("backend", "postgres").Msg("store: opened")
		return r, pool.Close, nil
	}

	db, err := infra.OpenSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	r := NewDonationRepositorySQLite(db)
	if err := r.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite store: %w", err)
	}
	logger.Info().Str("backend", "sqlite").Str("path", cfg.DatabasePath).Msg("store: opened")
	return r, func() { db.Close() }, nil
}
