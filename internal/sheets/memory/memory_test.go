package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"saldos/internal/core"
)

func TestMemoryStoreAppend(t *testing.T) {
	s := New()
	e := core.BalanceEntry{
		Key:         core.BalanceKey{AccountCode: "CTA1", Seq: 7},
		Amount:      decimal.RequireFromString("-50"),
		Description: "saque",
		CreatedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	ref, err := s.AppendBalance(context.Background(), e)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	// redelivery of the same key
	ref, err = s.AppendBalance(context.Background(), e)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected re-append: ref=%q err=%v", ref, err)
	}

	rows := s.Rows()
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	want := []string{"CTA1", "7", "2024-03-01T12:00:00Z", "-50.00", "saque"}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("col %d = %q, want %q", i, rows[0][i], want[i])
		}
	}

	rows[0][0] = "changed"
	if s.Rows()[0][0] != "CTA1" {
		t.Fatal("Rows must return a copy")
	}
}
