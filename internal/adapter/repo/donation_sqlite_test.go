package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
	"github.com/Miquel-TA/cat-feeder/internal/infra"
)

func newSQLiteRepo(t *testing.T) *DonationRepositorySQLite {
	t.Helper()
	ctx := context.Background()
	db, err := infra.OpenSQLite(ctx, filepath.Join(t.TempDir(), "data", "feeder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := NewDonationRepositorySQLite(db)
	require.NoError(t, r.EnsureSchema(ctx))
	require.NoError(t, r.EnsureSchema(ctx), "schema creation is idempotent")
	return r
}

func donationAt(id string, at time.Time) domain.DonationEvent {
	return domain.DonationEvent{
		ID:          id,
		Username:    "mia",
		Platform:    "Twitch",
		AmountMinor: 750,
		Currency:    "EUR",
		Message:     "mia sent 7.50 EUR",
		DonorNote:   "for the cat",
		Tier:        domain.Tier{Name: "medium", Motor: 1},
		CreatedAt:   at,
	}
}

func TestSQLiteRepo_SaveAndList(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	base := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Save(ctx, donationAt("a", base)))
	require.NoError(t, r.Save(ctx, donationAt("b", base.Add(time.Minute))))
	require.NoError(t, r.Save(ctx, donationAt("c", base.Add(2*time.Minute))))

	items, err := r.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, "b", items[1].ID)

	rec := items[0]
	assert.Equal(t, "mia", rec.Username)
	assert.Equal(t, int64(750), rec.AmountMinor)
	assert.Equal(t, "medium", rec.TierName)
	assert.Equal(t, 1, rec.Motor)
	assert.Equal(t, "for the cat", rec.DonorNote)
	assert.Equal(t, domain.DonationStatusQueued, rec.Status)
	assert.False(t, rec.Actuated)
	assert.Nil(t, rec.DispatchedAt)
	assert.True(t, base.Add(2*time.Minute).Equal(rec.CreatedAt))
}

func TestSQLiteRepo_DuplicateIDFails(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	now := time.Now().UTC()

	require.NoError(t, r.Save(ctx, donationAt("a", now)))
	assert.Error(t, r.Save(ctx, donationAt("a", now)))
}

func TestSQLiteRepo_MarkDispatched(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	created := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.Save(ctx, donationAt("a", created)))

	at := created.Add(10 * time.Second)
	require.NoError(t, r.MarkDispatched(ctx, "a", at, true))

	items, err := r.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.DonationStatusDispatched, items[0].Status)
	assert.True(t, items[0].Actuated)
	require.NotNil(t, items[0].DispatchedAt)
	assert.True(t, at.Equal(*items[0].DispatchedAt))

	assert.ErrorIs(t, r.MarkDispatched(ctx, "missing", at, false), domain.ErrNotFound)
}

func TestSQLiteRepo_PruneBefore(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	now := time.Date(2024, time.June, 30, 4, 0, 0, 0, time.UTC)

	require.NoError(t, r.Save(ctx, donationAt("old", now.AddDate(0, 0, -40))))
	require.NoError(t, r.Save(ctx, donationAt("new", now.AddDate(0, 0, -1))))

	removed, err := r.PruneBefore(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	items, err := r.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID)
}
