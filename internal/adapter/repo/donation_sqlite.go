package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

const sqliteSchema = `
create table if not exists donations (
  id text primary key,
  username text not null,
  platform text not null,
  amount_minor integer not null,
  currency text not null,
  message text not null default '',
  donor_note text not null default '',
  tier_name text not null,
  motor integer not null default 0,
  status text not null default 'queued',
  actuated integer not null default 0,
  created_at integer not null,
  dispatched_at integer
);
create index if not exists donations_created_at_idx on donations (created_at desc);
`

// DonationRepositorySQLite stores donation history in an embedded SQLite
// file. Timestamps are unix nanoseconds in UTC.
type DonationRepositorySQLite struct {
	db *sql.DB
}

func NewDonationRepositorySQLite(db *sql.DB) *DonationRepositorySQLite {
	return &DonationRepositorySQLite{db: db}
}

// EnsureSchema creates the donations table when missing.
func (r *DonationRepositorySQLite) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create donations table: %w", err)
	}
	return nil
}

func (r *DonationRepositorySQLite) Save(ctx context.Context, e domain.DonationEvent) error {
	_, err := r.db.ExecContext(ctx, `
insert into donations(id, username, platform, amount_minor, currency, message, donor_note, tier_name, motor, status, created_at)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Username, e.Platform, e.AmountMinor, e.Currency, e.Message, e.DonorNote,
		e.Tier.Name, e.Tier.Motor, string(domain.DonationStatusQueued), e.CreatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("insert donation %s: %w", e.ID, err)
	}
	return nil
}

func (r *DonationRepositorySQLite) MarkDispatched(ctx context.Context, id string, at time.Time, actuated bool) error {
	res, err := r.db.ExecContext(ctx, `
update donations set status = ?, actuated = ?, dispatched_at = ? where id = ?`,
		string(domain.DonationStatusDispatched), actuated, at.UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("mark donation %s dispatched: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark donation %s dispatched: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark donation %s dispatched: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *DonationRepositorySQLite) ListRecent(ctx context.Context, limit int) ([]domain.DonationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
select id, username, platform, amount_minor, currency, message, donor_note, tier_name, motor, status, actuated, created_at, dispatched_at
from donations
order by created_at desc
limit ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	items := make([]domain.DonationRecord, 0, limit)
	for rows.Next() {
		var (
			rec          domain.DonationRecord
			status       string
			createdAt    int64
			dispatchedAt sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.Platform, &rec.AmountMinor, &rec.Currency,
			&rec.Message, &rec.DonorNote, &rec.TierName, &rec.Motor, &status, &rec.Actuated,
			&createdAt, &dispatchedAt); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		rec.Status = domain.DonationStatus(status)
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		if dispatchedAt.Valid {
			t := time.Unix(0, dispatchedAt.Int64).UTC()
			rec.DispatchedAt = &t
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return items, nil
}

func (r *DonationRepositorySQLite) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `delete from donations where created_at < ?`, before.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune donations: %w", err)
	}
	return res.RowsAffected()
}

var _ domain.DonationRepository = (*DonationRepositorySQLite)(nil)
