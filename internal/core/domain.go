package core

import (
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxCodeLength               = 32
	MaxAccountDescriptionLength = 200
	MaxDescriptionLength        = 500
)

type (
	Account struct {
		Code        string
		Description string
		CreatedAt   time.Time
	}

	// BalanceKey is the composite identity of a balance entry.
	BalanceKey struct {
		AccountCode string
		Seq         int64
	}

	BalanceEntry struct {
		Key         BalanceKey
		Amount      decimal.Decimal
		Description string
		CreatedAt   time.Time
	}

	// AccountSummary is an account together with its most recent entries,
	// as shown on the overview page.
	AccountSummary struct {
		Account  Account
		Latest   *BalanceEntry
		Previous []decimal.Decimal
		Entries  int64
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCode        = errors.New("invalid account code")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrDuplicateCode      = errors.New("duplicate account code")
	ErrNotFound           = errors.New("not found")
	ErrInvalidPage        = errors.New("invalid page")
)

// String renders the key as "CODE#seq", the reference used in logs and messages.
func (k BalanceKey) String() string {
	return k.AccountCode + "#" + strconv.FormatInt(k.Seq, 10)
}

// NextSeq returns the discriminator for an entry created at t, given the
// highest discriminator already stored for the account (0 when none).
func NextSeq(t time.Time, last int64) int64 {
	seq := t.UnixMicro()
	if seq <= last {
		seq = last + 1
	}
	return seq
}

// Formatted returns the entry amount in BRL notation.
func (e BalanceEntry) Formatted() string {
	return FormatBRL(e.Amount)
}
