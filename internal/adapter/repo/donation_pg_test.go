package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
	"github.com/Miquel-TA/cat-feeder/internal/infra"
)

type execCall struct {
	query string
	args  []any
}

// fakePool records statements as the pool would receive them.
type fakePool struct {
	tag   pgconn.CommandTag
	err   error
	calls []execCall
}

func (f *fakePool) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{query: query, args: args})
	return f.tag, f.err
}

func (f *fakePool) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (f *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func newPGRepo(pool *fakePool) *DonationRepositoryPG {
	return NewDonationRepositoryPG(infra.NewSQLRunner(pool, zerolog.Nop()))
}

func TestPGRepo_SaveStripsMarkerAndBindsFields(t *testing.T) {
	pool := &fakePool{tag: pgconn.NewCommandTag("INSERT 0 1")}
	r := newPGRepo(pool)
	created := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Save(context.Background(), donationAt("5b0c1c1e-8a57-4d8e-9b1a-3f0f2d0c6a11", created)))
	require.Len(t, pool.calls, 1)
	call := pool.calls[0]
	assert.False(t, strings.HasPrefix(strings.TrimSpace(call.query), "--sql"))
	assert.Contains(t, call.query, "insert into donations")
	require.Len(t, call.args, 11)
	assert.Equal(t, "medium", call.args[7])
	assert.Equal(t, "queued", call.args[9])
	assert.Equal(t, created, call.args[10])
}

func TestPGRepo_MarkDispatchedNotFound(t *testing.T) {
	pool := &fakePool{tag: pgconn.NewCommandTag("UPDATE 0")}
	r := newPGRepo(pool)

	err := r.MarkDispatched(context.Background(), "missing", time.Now(), true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPGRepo_PruneReportsRows(t *testing.T) {
	pool := &fakePool{tag: pgconn.NewCommandTag("DELETE 4")}
	r := newPGRepo(pool)

	n, err := r.PruneBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestPGRepo_ErrorsAreWrapped(t *testing.T) {
	pool := &fakePool{err: errors.New("connection reset")}
	r := newPGRepo(pool)

	err := r.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	_, err = r.ListRecent(context.Background(), 5)
	assert.Error(t, err)
}
