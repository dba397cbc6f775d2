package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
	"github.com/Miquel-TA/cat-feeder/internal/infra"
	"github.com/Miquel-TA/cat-feeder/internal/sqlinline"
)

// DonationRepositoryPG stores donation history in PostgreSQL.
type DonationRepositoryPG struct {
	db infra.SQLExecutor
}

func NewDonationRepositoryPG(db infra.SQLExecutor) *DonationRepositoryPG {
	return &DonationRepositoryPG{db: db}
}

// EnsureSchema creates the donations table when missing.
func (r *DonationRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, sqlinline.QCreateDonationsTable); err != nil {
		return fmt.Errorf("create donations table: %w", err)
	}
	return nil
}

func (r *DonationRepositoryPG) Save(ctx context.Context, e domain.DonationEvent) error {
	_, err := r.db.Exec(ctx, sqlinline.QInsertDonation,
		e.ID, e.Username, e.Platform, e.AmountMinor, e.Currency, e.Message, e.DonorNote,
		e.Tier.Name, e.Tier.Motor, string(domain.DonationStatusQueued), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert donation %s: %w", e.ID, err)
	}
	return nil
}

func (r *DonationRepositoryPG) MarkDispatched(ctx context.Context, id string, at time.Time, actuated bool) error {
	tag, err := r.db.Exec(ctx, sqlinline.QMarkDonationDispatched, id, string(domain.DonationStatusDispatched), actuated, at)
	if err != nil {
		return fmt.Errorf("mark donation %s dispatched: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark donation %s dispatched: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *DonationRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.DonationRecord, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListRecentDonations, limit)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	items := make([]domain.DonationRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return items, nil
}

func (r *DonationRepositoryPG) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, sqlinline.QPruneDonations, before)
	if err != nil {
		return 0, fmt.Errorf("prune donations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecord(rows pgx.Rows) (domain.DonationRecord, error) {
	var (
		rec    domain.DonationRecord
		status string
	)
	if err := rows.Scan(&rec.ID, &rec.Username, &rec.Platform, &rec.AmountMinor, &rec.Currency,
		&rec.Message, &rec.DonorNote, &rec.TierName, &rec.Motor, &status, &rec.Actuated,
		&rec.CreatedAt, &rec.DispatchedAt); err != nil {
		return rec, fmt.Errorf("scan donation: %w", err)
	}
	rec.Status = domain.DonationStatus(status)
	return rec, nil
}

var _ domain.DonationRepository = (*DonationRepositoryPG)(nil)
