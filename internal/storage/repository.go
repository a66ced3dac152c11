package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"saldos/internal/core"

	_ "modernc.org/sqlite"
)

const pragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + pragmas

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateAccount inserts a new account. The primary key is the only
// duplicate check: a violation maps to core.ErrDuplicateCode.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.CreatedAt = a.CreatedAt.UTC()
	_, err := r.db.ExecContext(ctx, insertAccount, a.Code, a.Description, a.CreatedAt.UnixMicro())
	if err != nil {
		if isUniqueViolation(err) {
			return core.Account{}, fmt.Errorf("create account %s: %w", a.Code, core.ErrDuplicateCode)
		}
		return core.Account{}, fmt.Errorf("create account %s: %w", a.Code, err)
	}

	slog.InfoContext(ctx, "Account saved to SQLite", "code", a.Code)
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, code string) (core.Account, error) {
	var (
		a       core.Account
		created int64
	)
	err := r.db.QueryRowContext(ctx, selectAccount, code).Scan(&a.Code, &a.Description, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", code, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %s: %w", code, err)
	}
	a.CreatedAt = time.UnixMicro(created).UTC()
	return a, nil
}

// ListAccounts returns every account ordered by code.
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, selectAccounts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var (
			a       core.Account
			created int64
		)
		if err := rows.Scan(&a.Code, &a.Description, &created); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.CreatedAt = time.UnixMicro(created).UTC()
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// LastSeq returns the highest sequence stored for the account, 0 if none.
func (r *SQLiteRepository) LastSeq(ctx context.Context, code string) (int64, error) {
	var last int64
	if err := r.db.QueryRowContext(ctx, selectLastSeq, code).Scan(&last); err != nil {
		return 0, fmt.Errorf("last seq for %s: %w", code, err)
	}
	return last, nil
}

// InsertBalance stores an entry under its composite key. It returns
// ErrKeyCollision when the key is taken and core.ErrNotFound when the
// account does not exist.
func (r *SQLiteRepository) InsertBalance(ctx context.Context, e core.BalanceEntry) (core.BalanceEntry, error) {
	e.CreatedAt = e.CreatedAt.UTC()
	if err := insertBalanceWith(ctx, r.db, e); err != nil {
		return core.BalanceEntry{}, err
	}

	slog.InfoContext(ctx, "Balance saved to SQLite",
		"key", e.Key.String(),
		"amount", e.Amount.StringFixed(2))
	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBalanceWith(ctx context.Context, db execer, e core.BalanceEntry) error {
	_, err := db.ExecContext(ctx, insertBalance,
		e.Key.AccountCode,
		e.Key.Seq,
		e.Amount.StringFixed(2),
		e.Description,
		e.CreatedAt.UnixMicro())
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("insert balance %s: %w", e.Key, ErrKeyCollision)
	case isForeignKeyViolation(err):
		return fmt.Errorf("insert balance %s: account %w", e.Key, core.ErrNotFound)
	default:
		return fmt.Errorf("insert balance %s: %w", e.Key, err)
	}
}

// CreateAccountWithBalance persists a new account and its first entry in a
// single transaction: either both exist afterwards or neither does.
func (r *SQLiteRepository) CreateAccountWithBalance(ctx context.Context, a core.Account, e core.BalanceEntry) (core.Account, core.BalanceEntry, error) {
	a.CreatedAt = a.CreatedAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Account{}, core.BalanceEntry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, insertAccount, a.Code, a.Description, a.CreatedAt.UnixMicro()); err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("create account %s: %w", a.Code, core.ErrDuplicateCode)
		} else {
			err = fmt.Errorf("create account %s: %w", a.Code, err)
		}
		return core.Account{}, core.BalanceEntry{}, err
	}
	if err = insertBalanceWith(ctx, tx, e); err != nil {
		return core.Account{}, core.BalanceEntry{}, err
	}
	if err = tx.Commit(); err != nil {
		return core.Account{}, core.BalanceEntry{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Account and first balance saved to SQLite",
		"code", a.Code,
		"key", e.Key.String())
	return a, e, nil
}

func (r *SQLiteRepository) GetBalance(ctx context.Context, key core.BalanceKey) (core.BalanceEntry, error) {
	e, err := scanBalance(r.db.QueryRowContext(ctx, selectBalance, key.AccountCode, key.Seq))
	if errors.Is(err, sql.ErrNoRows) {
		return core.BalanceEntry{}, fmt.Errorf("balance %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return core.BalanceEntry{}, fmt.Errorf("get balance %s: %w", key, err)
	}
	return e, nil
}

// ListBalancesPage returns one window of all entries, most recent first,
// together with the total count, read from a single snapshot.
func (r *SQLiteRepository) ListBalancesPage(ctx context.Context, offset, limit int) ([]core.BalanceEntry, int64, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int64
	if err := tx.QueryRowContext(ctx, countBalances).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count balances: %w", err)
	}
	if int64(offset) >= total {
		return []core.BalanceEntry{}, total, nil
	}

	rows, err := tx.QueryContext(ctx, selectBalancesPage, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list balances: %w", err)
	}
	entries, err := collectBalances(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListBalancesByAccount returns an account's entries oldest first.
func (r *SQLiteRepository) ListBalancesByAccount(ctx context.Context, code string) ([]core.BalanceEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectBalancesByAccount, code)
	if err != nil {
		return nil, fmt.Errorf("list balances for %s: %w", code, err)
	}
	return collectBalances(rows)
}

// ListAccountSummaries returns every account with its latest entry, the
// amounts of up to `previous` earlier entries (most recent first) and the
// entry count.
func (r *SQLiteRepository) ListAccountSummaries(ctx context.Context, previous int) ([]core.AccountSummary, error) {
	accounts, err := r.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]core.AccountSummary, len(accounts))
	index := make(map[string]int, len(accounts))
	for i, a := range accounts {
		summaries[i] = core.AccountSummary{Account: a}
		index[a.Code] = i
	}

	rows, err := r.db.QueryContext(ctx, selectRecentPerAccount, previous+1)
	if err != nil {
		return nil, fmt.Errorf("list recent balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e       core.BalanceEntry
			created int64
			rank    int
			count   int64
		)
		if err := rows.Scan(&e.Key.AccountCode, &e.Key.Seq, &e.Amount, &e.Description, &created, &rank, &count); err != nil {
			return nil, fmt.Errorf("scan recent balance: %w", err)
		}
		e.CreatedAt = time.UnixMicro(created).UTC()

		i, ok := index[e.Key.AccountCode]
		if !ok {
			// account created after the first query
			continue
		}
		s := &summaries[i]
		s.Entries = count
		if rank == 1 {
			latest := e
			s.Latest = &latest
		} else {
			s.Previous = append(s.Previous, e.Amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recent balances: %w", err)
	}
	return summaries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (core.BalanceEntry, error) {
	var (
		e       core.BalanceEntry
		amount  decimal.Decimal
		created int64
	)
	if err := row.Scan(&e.Key.AccountCode, &e.Key.Seq, &amount, &e.Description, &created); err != nil {
		return core.BalanceEntry{}, err
	}
	e.Amount = amount
	e.CreatedAt = time.UnixMicro(created).UTC()
	return e, nil
}

func collectBalances(rows *sql.Rows) ([]core.BalanceEntry, error) {
	defer rows.Close()
	entries := []core.BalanceEntry{}
	for rows.Next() {
		e, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return entries, nil
}
