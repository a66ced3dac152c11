package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"saldos/internal/core"
	"saldos/internal/storage"
)

// maxSeqAttempts bounds how often AddBalance regenerates a colliding key.
const maxSeqAttempts = 5

// summaryDepth is how many amounts before the latest one the overview shows.
const summaryDepth = 5

// Store is the persistence the ledger needs; *storage.SQLiteRepository
// implements it.
type Store interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, code string) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListAccountSummaries(ctx context.Context, previous int) ([]core.AccountSummary, error)
	LastSeq(ctx context.Context, code string) (int64, error)
	InsertBalance(ctx context.Context, e core.BalanceEntry) (core.BalanceEntry, error)
	CreateAccountWithBalance(ctx context.Context, a core.Account, e core.BalanceEntry) (core.Account, core.BalanceEntry, error)
	GetBalance(ctx context.Context, key core.BalanceKey) (core.BalanceEntry, error)
	ListBalancesPage(ctx context.Context, offset, limit int) ([]core.BalanceEntry, int64, error)
	ListBalancesByAccount(ctx context.Context, code string) ([]core.BalanceEntry, error)
	Ping(ctx context.Context) error
	Close() error
}

// Publisher announces persisted entries; *amqp.Client implements it.
type Publisher interface {
	PublishBalanceRecorded(ctx context.Context, key core.BalanceKey) error
	Close() error
}

var _ Store = (*storage.SQLiteRepository)(nil)

// LedgerService orchestrates account and balance operations across SQLite
// and AMQP.
type LedgerService struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

func NewLedgerService(store Store, publisher Publisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

func (s *LedgerService) CreateAccount(ctx context.Context, code, description string) (core.Account, error) {
	a, err := core.NewAccount(code, description)
	if err != nil {
		return core.Account{}, err
	}
	a.CreatedAt = s.now().UTC()
	return s.store.CreateAccount(ctx, a)
}

func (s *LedgerService) GetAccount(ctx context.Context, code string) (core.Account, error) {
	c, err := core.ValidateAccountCode(code)
	if err != nil {
		// a code that cannot exist is simply not there
		return core.Account{}, fmt.Errorf("account %q: %w", code, core.ErrNotFound)
	}
	return s.store.GetAccount(ctx, c)
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

// ListAccountSummaries returns each account with its latest entry and the
// few amounts before it.
func (s *LedgerService) ListAccountSummaries(ctx context.Context) ([]core.AccountSummary, error) {
	return s.store.ListAccountSummaries(ctx, summaryDepth)
}

// AddBalance validates and records a new entry for an existing account.
func (s *LedgerService) AddBalance(ctx context.Context, accountCode, amountRaw, descriptionRaw string) (core.BalanceEntry, error) {
	amount, err := core.ValidateAmount(amountRaw)
	if err != nil {
		return core.BalanceEntry{}, err
	}
	description, err := core.ValidateDescription(descriptionRaw, false)
	if err != nil {
		return core.BalanceEntry{}, err
	}
	account, err := s.GetAccount(ctx, accountCode)
	if err != nil {
		return core.BalanceEntry{}, err
	}

	e := core.BalanceEntry{
		Key:         core.BalanceKey{AccountCode: account.Code},
		Amount:      amount,
		Description: description,
		CreatedAt:   s.now().UTC(),
	}

	for attempt := 1; ; attempt++ {
		last, err := s.store.LastSeq(ctx, account.Code)
		if err != nil {
			return core.BalanceEntry{}, err
		}
		e.Key.Seq = core.NextSeq(e.CreatedAt, last)

		saved, err := s.store.InsertBalance(ctx, e)
		if err == nil {
			s.publish(ctx, saved.Key)
			return saved, nil
		}
		if !errors.Is(err, storage.ErrKeyCollision) || attempt == maxSeqAttempts {
			return core.BalanceEntry{}, fmt.Errorf("add balance: %w", err)
		}
		slog.WarnContext(ctx, "Balance key collision, retrying",
			"key", e.Key.String(),
			"attempt", attempt)
	}
}

// OpenAccountWithBalance creates an account together with its first entry.
// Either both are persisted or neither is.
func (s *LedgerService) OpenAccountWithBalance(ctx context.Context, code, description, amountRaw, balanceDescriptionRaw string) (core.Account, core.BalanceEntry, error) {
	a, err := core.NewAccount(code, description)
	if err != nil {
		return core.Account{}, core.BalanceEntry{}, err
	}
	amount, err := core.ValidateAmount(amountRaw)
	if err != nil {
		return core.Account{}, core.BalanceEntry{}, err
	}
	bd, err := core.ValidateDescription(balanceDescriptionRaw, false)
	if err != nil {
		return core.Account{}, core.BalanceEntry{}, err
	}

	now := s.now().UTC()
	a.CreatedAt = now
	e := core.BalanceEntry{
		Key:         core.BalanceKey{AccountCode: a.Code, Seq: core.NextSeq(now, 0)},
		Amount:      amount,
		Description: bd,
		CreatedAt:   now,
	}

	a, e, err = s.store.CreateAccountWithBalance(ctx, a, e)
	if err != nil {
		return core.Account{}, core.BalanceEntry{}, err
	}
	s.publish(ctx, e.Key)
	return a, e, nil
}

func (s *LedgerService) GetBalance(ctx context.Context, key core.BalanceKey) (core.BalanceEntry, error) {
	return s.store.GetBalance(ctx, key)
}

// ListAll returns a 1-indexed page of all entries, most recent first. A page
// past the end has no items but still reports the true total.
func (s *LedgerService) ListAll(ctx context.Context, page, pageSize int) (core.Page, error) {
	offset, err := core.Offset(page, pageSize)
	if err != nil {
		return core.Page{}, fmt.Errorf("page %d size %d: %w", page, pageSize, err)
	}
	items, total, err := s.store.ListBalancesPage(ctx, offset, pageSize)
	if err != nil {
		return core.Page{}, err
	}
	return core.Page{Items: items, Number: page, Size: pageSize, Total: total}, nil
}

// ListForAccount returns an account's entries oldest first.
func (s *LedgerService) ListForAccount(ctx context.Context, code string) ([]core.BalanceEntry, error) {
	account, err := s.GetAccount(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.store.ListBalancesByAccount(ctx, account.Code)
}

// Ready reports whether the backing store answers.
func (s *LedgerService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *LedgerService) publish(ctx context.Context, key core.BalanceKey) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping balance message", "key", key.String())
		return
	}
	// the entry is already stored; a lost message only delays the mirror
	if err := s.publisher.PublishBalanceRecorded(ctx, key); err != nil {
		slog.ErrorContext(ctx, "Failed to publish balance message",
			"key", key.String(), "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
