package memory

import (
	"context"
	"fmt"
	"sync"

	"saldos/internal/core"
	ports "saldos/internal/sheets"
)

var _ ports.BalanceWriter = (*Store)(nil)

// Store is an in-process stand-in for the spreadsheet mirror.
type Store struct {
	mu   sync.Mutex
	rows [][]string
	refs map[core.BalanceKey]string
}

func New() *Store {
	return &Store{refs: make(map[core.BalanceKey]string)}
}

// AppendBalance stores the entry row and returns a synthetic row reference.
// A key already stored returns its original reference.
func (s *Store) AppendBalance(_ context.Context, e core.BalanceEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.refs[e.Key]; ok {
		return ref, nil
	}
	s.rows = append(s.rows, ports.Row(e))
	ref := fmt.Sprintf("mem:%d", len(s.rows))
	s.refs[e.Key] = ref
	return ref, nil
}

// Rows returns a copy of the stored rows in append order.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
