package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldos/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "saldos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func mustAccount(t *testing.T, repo *SQLiteRepository, code string) core.Account {
	t.Helper()
	a, err := repo.CreateAccount(context.Background(), core.Account{Code: code, Description: "Conta " + code, CreatedAt: base})
	require.NoError(t, err)
	return a
}

func entry(code string, seq int64, amount string, at time.Time) core.BalanceEntry {
	return core.BalanceEntry{
		Key:       core.BalanceKey{AccountCode: code, Seq: seq},
		Amount:    decimal.RequireFromString(amount),
		CreatedAt: at,
	}
}

func TestSQLiteRepository_Accounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustAccount(t, repo, "POUP")
	mustAccount(t, repo, "CTA1")

	_, err := repo.CreateAccount(ctx, core.Account{Code: "CTA1", Description: "outra", CreatedAt: base})
	assert.ErrorIs(t, err, core.ErrDuplicateCode)

	got, err := repo.GetAccount(ctx, "CTA1")
	require.NoError(t, err)
	assert.Equal(t, "Conta CTA1", got.Description)
	assert.True(t, got.CreatedAt.Equal(base))

	_, err = repo.GetAccount(ctx, "NOPE")
	assert.ErrorIs(t, err, core.ErrNotFound)

	all, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "CTA1", all[0].Code)
	assert.Equal(t, "POUP", all[1].Code)
}

func TestSQLiteRepository_InsertBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustAccount(t, repo, "CTA1")

	e, err := repo.InsertBalance(ctx, entry("CTA1", 100, "1234.56", base))
	require.NoError(t, err)

	got, err := repo.GetBalance(ctx, e.Key)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "R$ 1.234,56", core.FormatBRL(got.Amount))

	_, err = repo.InsertBalance(ctx, entry("CTA1", 100, "1.00", base))
	assert.True(t, errors.Is(err, ErrKeyCollision), "got %v", err)

	_, err = repo.InsertBalance(ctx, entry("GHOST", 1, "1.00", base))
	assert.ErrorIs(t, err, core.ErrNotFound)

	last, err := repo.LastSeq(ctx, "CTA1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), last)

	last, err = repo.LastSeq(ctx, "GHOST")
	require.NoError(t, err)
	assert.Zero(t, last)

	_, err = repo.GetBalance(ctx, core.BalanceKey{AccountCode: "CTA1", Seq: 7})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteRepository_ListBalancesPage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustAccount(t, repo, "CTA1")

	for i := 0; i < 25; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		_, err := repo.InsertBalance(ctx, entry("CTA1", int64(i+1), "10.00", at))
		require.NoError(t, err)
	}

	cases := []struct {
		offset, limit int
		want          int
	}{
		{0, 10, 10},
		{20, 10, 5},
		{30, 10, 0},
	}
	for _, c := range cases {
		items, total, err := repo.ListBalancesPage(ctx, c.offset, c.limit)
		require.NoError(t, err)
		assert.Equal(t, int64(25), total)
		assert.Len(t, items, c.want, "offset %d", c.offset)
	}

	first, _, err := repo.ListBalancesPage(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(25), first[0].Key.Seq, "newest entry first")
}

func TestSQLiteRepository_ListBalancesByAccount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustAccount(t, repo, "CTA1")
	mustAccount(t, repo, "CTA2")

	t1, t2, t3 := base, base.Add(time.Hour), base.Add(2*time.Hour)
	for i, at := range []time.Time{t3, t1, t2} {
		_, err := repo.InsertBalance(ctx, entry("CTA1", int64(i+1), "1.00", at))
		require.NoError(t, err)
	}
	_, err := repo.InsertBalance(ctx, entry("CTA2", 1, "5.00", t1))
	require.NoError(t, err)

	items, err := repo.ListBalancesByAccount(ctx, "CTA1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].CreatedAt.Equal(t1))
	assert.True(t, items[1].CreatedAt.Equal(t2))
	assert.True(t, items[2].CreatedAt.Equal(t3))

	none, err := repo.ListBalancesByAccount(ctx, "EMPTY")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteRepository_CreateAccountWithBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := core.Account{Code: "NOVA", Description: "Nova", CreatedAt: base}
	_, _, err := repo.CreateAccountWithBalance(ctx, a, entry("NOVA", 1, "50.00", base))
	require.NoError(t, err)

	items, err := repo.ListBalancesByAccount(ctx, "NOVA")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// duplicate account: nothing new persisted
	_, _, err = repo.CreateAccountWithBalance(ctx, a, entry("NOVA", 2, "60.00", base))
	assert.ErrorIs(t, err, core.ErrDuplicateCode)

	items, err = repo.ListBalancesByAccount(ctx, "NOVA")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSQLiteRepository_ListAccountSummaries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustAccount(t, repo, "CTA1")
	mustAccount(t, repo, "VAZIA")

	for i, amt := range []string{"1.00", "2.00", "3.00", "4.00", "5.00"} {
		_, err := repo.InsertBalance(ctx, entry("CTA1", int64(i+1), amt, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	sums, err := repo.ListAccountSummaries(ctx, 3)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	cta := sums[0]
	assert.Equal(t, "CTA1", cta.Account.Code)
	assert.Equal(t, int64(5), cta.Entries)
	require.NotNil(t, cta.Latest)
	assert.Equal(t, "5.00", cta.Latest.Amount.StringFixed(2))
	require.Len(t, cta.Previous, 3)
	assert.Equal(t, "4.00", cta.Previous[0].StringFixed(2))
	assert.Equal(t, "2.00", cta.Previous[2].StringFixed(2))

	empty := sums[1]
	assert.Nil(t, empty.Latest)
	assert.Zero(t, empty.Entries)
}
