package services

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldos/internal/core"
	"saldos/internal/storage"
)

type fakePublisher struct {
	mu   sync.Mutex
	keys []core.BalanceKey
	err  error
}

func (p *fakePublisher) PublishBalanceRecorded(_ context.Context, key core.BalanceKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// fixedClock returns each instant in turn, repeating the last one.
func fixedClock(ts ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, clock ...time.Time) (*LedgerService, *storage.SQLiteRepository, *fakePublisher) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "saldos.db"))
	require.NoError(t, err)
	pub := &fakePublisher{}
	svc := NewLedgerService(repo, pub)
	if len(clock) > 0 {
		svc.WithClock(fixedClock(clock...))
	}
	t.Cleanup(func() { svc.Close() })
	return svc, repo, pub
}

func TestLedgerService_CreateAccount(t *testing.T) {
	svc, _, _ := newService(t, t0)
	ctx := context.Background()

	a, err := svc.CreateAccount(ctx, " cta1 ", "  Conta Corrente ")
	require.NoError(t, err)
	assert.Equal(t, "CTA1", a.Code)
	assert.Equal(t, "Conta Corrente", a.Description)

	_, err = svc.CreateAccount(ctx, "CTA1", "Outra")
	assert.ErrorIs(t, err, core.ErrDuplicateCode)

	_, err = svc.CreateAccount(ctx, "", "Sem codigo")
	assert.ErrorIs(t, err, core.ErrInvalidCode)

	_, err = svc.CreateAccount(ctx, "CTA2", "   ")
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	all, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLedgerService_AddBalance(t *testing.T) {
	svc, _, pub := newService(t, t0)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "CTA1", "Conta")
	require.NoError(t, err)

	e, err := svc.AddBalance(ctx, "CTA1", "1234.56", "")
	require.NoError(t, err)
	assert.Equal(t, "R$ 1.234,56", e.Formatted())
	assert.Equal(t, "", e.Description)

	neg, err := svc.AddBalance(ctx, "cta1", "-50.00", "saque")
	require.NoError(t, err)
	assert.Equal(t, "-R$ 50,00", neg.Formatted())

	// same clock instant: the key is still unique
	assert.NotEqual(t, e.Key, neg.Key)
	assert.Greater(t, neg.Key.Seq, e.Key.Seq)

	assert.Equal(t, []core.BalanceKey{e.Key, neg.Key}, pub.keys)
}

func TestLedgerService_AddBalance_Failures(t *testing.T) {
	svc, repo, pub := newService(t, t0)
	ctx := context.Background()
	_, err := svc.CreateAccount(ctx, "CTA1", "Conta")
	require.NoError(t, err)

	tests := []struct {
		name    string
		code    string
		amount  string
		desc    string
		wantErr error
	}{
		{"unknown account", "NOPE", "10.00", "", core.ErrNotFound},
		{"invalid code", "no pe!", "10.00", "", core.ErrNotFound},
		{"invalid amount", "CTA1", "abc", "", core.ErrInvalidAmount},
		{"too precise", "CTA1", "1,234", "", core.ErrInvalidAmount},
		{"empty amount", "CTA1", "", "", core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddBalance(ctx, tt.code, tt.amount, tt.desc)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// nothing persisted, nothing published
	items, total, err := repo.ListBalancesPage(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.Empty(t, pub.keys)
}

func TestLedgerService_AddBalance_PublishFailureKeepsEntry(t *testing.T) {
	svc, repo, pub := newService(t, t0)
	ctx := context.Background()
	pub.err = errors.New("broker down")

	_, err := svc.CreateAccount(ctx, "CTA1", "Conta")
	require.NoError(t, err)
	e, err := svc.AddBalance(ctx, "CTA1", "10", "")
	require.NoError(t, err)

	got, err := repo.GetBalance(ctx, e.Key)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.Amount.StringFixed(2))
}

// collidingStore reports a key collision for the first n inserts.
type collidingStore struct {
	Store
	n     int
	calls int
}

func (s *collidingStore) InsertBalance(ctx context.Context, e core.BalanceEntry) (core.BalanceEntry, error) {
	s.calls++
	if s.calls <= s.n {
		return core.BalanceEntry{}, storage.ErrKeyCollision
	}
	return s.Store.InsertBalance(ctx, e)
}

func TestLedgerService_AddBalance_RetriesCollisions(t *testing.T) {
	_, repo, _ := newService(t, t0)
	ctx := context.Background()
	_, err := repo.CreateAccount(ctx, core.Account{Code: "CTA1", Description: "Conta", CreatedAt: t0})
	require.NoError(t, err)

	store := &collidingStore{Store: repo, n: 2}
	svc := NewLedgerService(store, nil).WithClock(fixedClock(t0))

	_, err = svc.AddBalance(ctx, "CTA1", "1", "")
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)

	store = &collidingStore{Store: repo, n: maxSeqAttempts}
	svc = NewLedgerService(store, nil).WithClock(fixedClock(t0))
	_, err = svc.AddBalance(ctx, "CTA1", "1", "")
	assert.ErrorIs(t, err, storage.ErrKeyCollision)
	assert.Equal(t, maxSeqAttempts, store.calls)
}

func TestLedgerService_ListAll(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	stamps := make([]time.Time, 25)
	for i := range stamps {
		stamps[i] = t0.Add(time.Duration(i) * time.Second)
	}
	svc.WithClock(fixedClock(append([]time.Time{t0}, stamps...)...))

	_, err := svc.CreateAccount(ctx, "CTA1", "Conta")
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		_, err := svc.AddBalance(ctx, "CTA1", "1.00", "")
		require.NoError(t, err)
	}

	tests := []struct {
		page int
		want int
	}{
		{1, 10},
		{3, 5},
		{4, 0},
	}
	for _, tt := range tests {
		p, err := svc.ListAll(ctx, tt.page, 10)
		require.NoError(t, err)
		assert.Len(t, p.Items, tt.want, "page %d", tt.page)
		assert.Equal(t, int64(25), p.Total)
		assert.Equal(t, 3, p.Pages())
	}

	p, err := svc.ListAll(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, p.Items[0].CreatedAt.Equal(stamps[24]), "most recent first")

	// a page whose offset overflows int is past the end, not a wrapped window
	p, err = svc.ListAll(ctx, 1844674407370955163, 10)
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.Equal(t, int64(25), p.Total)
	p, err = svc.ListAll(ctx, math.MaxInt, 10)
	require.NoError(t, err)
	assert.Empty(t, p.Items)

	_, err = svc.ListAll(ctx, 0, 10)
	assert.ErrorIs(t, err, core.ErrInvalidPage)
	_, err = svc.ListAll(ctx, 1, 0)
	assert.ErrorIs(t, err, core.ErrInvalidPage)
}

func TestLedgerService_ListForAccount(t *testing.T) {
	t1, t2, t3 := t0.Add(time.Hour), t0.Add(2*time.Hour), t0.Add(3*time.Hour)
	svc, _, _ := newService(t, t0, t3, t1, t2)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "CTA1", "Conta")
	require.NoError(t, err)
	for _, amt := range []string{"3", "1", "2"} {
		_, err := svc.AddBalance(ctx, "CTA1", amt, "")
		require.NoError(t, err)
	}

	items, err := svc.ListForAccount(ctx, "CTA1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].CreatedAt.Equal(t1))
	assert.True(t, items[1].CreatedAt.Equal(t2))
	assert.True(t, items[2].CreatedAt.Equal(t3))
	assert.Equal(t, "1.00", items[0].Amount.StringFixed(2))

	_, err = svc.ListForAccount(ctx, "NOPE")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedgerService_OpenAccountWithBalance(t *testing.T) {
	svc, _, pub := newService(t, t0)
	ctx := context.Background()

	a, e, err := svc.OpenAccountWithBalance(ctx, "poup", "Poupanca", "R$ 1.500,00", "deposito inicial")
	require.NoError(t, err)
	assert.Equal(t, "POUP", a.Code)
	assert.Equal(t, "R$ 1.500,00", e.Formatted())
	assert.Len(t, pub.keys, 1)

	_, _, err = svc.OpenAccountWithBalance(ctx, "POUP", "Outra", "1", "")
	assert.ErrorIs(t, err, core.ErrDuplicateCode)

	_, _, err = svc.OpenAccountWithBalance(ctx, "NOVA", "Nova", "x", "")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = svc.GetAccount(ctx, "NOVA")
	assert.ErrorIs(t, err, core.ErrNotFound, "invalid amount must not create the account")

	sums, err := svc.ListAccountSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, int64(1), sums[0].Entries)
}

func TestLedgerService_Close(t *testing.T) {
	svc := NewLedgerService(nil, nil)
	assert.NoError(t, svc.Close())
}
