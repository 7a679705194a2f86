package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedash/internal/core"
	"tradedash/internal/dataset"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "tradedash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReplaceAllAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	txs, err := dataset.LoadFile("../../testdata/trade.csv")
	require.NoError(t, err)

	info, err := repo.ReplaceAll(ctx, txs, "csv:trade.csv")
	require.NoError(t, err)
	assert.Equal(t, 11, info.Rows)
	assert.NotZero(t, info.ID)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(txs))
	for i := range txs {
		assert.Equal(t, txs[i].TransactionID, got[i].TransactionID)
		assert.Equal(t, txs[i].Country, got[i].Country)
		assert.Equal(t, txs[i].Direction, got[i].Direction)
		assert.Equal(t, txs[i].Quantity, got[i].Quantity)
		assert.True(t, txs[i].Value.Equal(got[i].Value), "value row %d", i)
		assert.Equal(t, txs[i].Date.String(), got[i].Date.String(), "date row %d", i)
		assert.Equal(t, txs[i].ShippingMethod, got[i].ShippingMethod)
	}
	assert.False(t, got[9].Date.Valid(), "undefined dates survive the round trip")
}

func TestReplaceAllOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.ReplaceAll(ctx, []core.Transaction{
		{Country: "A", Value: decimal.NewFromInt(1), Date: core.NewDate(2020, 1, 1)},
		{Country: "B", Value: decimal.NewFromInt(2), Date: core.NewDate(2020, 1, 1)},
	}, "first")
	require.NoError(t, err)

	_, err = repo.ReplaceAll(ctx, []core.Transaction{
		{Country: "C", Value: decimal.RequireFromString("3.25"), Date: core.NewDate(2021, 6, 1)},
	}, "second")
	require.NoError(t, err)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "C", got[0].Country)
	assert.True(t, got[0].Value.Equal(decimal.RequireFromString("3.25")))

	info, err := repo.LastImport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", info.Source)
	assert.Equal(t, 1, info.Rows)
}

func TestLastImport_Empty(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.LastImport(context.Background())
	assert.True(t, errors.Is(err, ErrNoImport))

	txs, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradedash.db")

	first, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	second, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	assert.Equal(t, first, repo.SchemaVersion())
}

func TestRunMigrations_DirtySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradedash.db")
	_, err := RunMigrations(path)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE schema_migrations SET dirty = 1`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = RunMigrations(path)
	assert.ErrorIs(t, err, ErrDirtySchema)

	_, err = NewSQLiteRepository(path)
	assert.ErrorIs(t, err, ErrDirtySchema)
}
