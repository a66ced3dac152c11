package sheets

import (
	"context"
	"strconv"
	"time"

	"saldos/internal/core"
)

// Ports for outbound adapters.
type (
	// BalanceWriter mirrors a persisted balance entry as one spreadsheet
	// row. Writing the same key twice must not produce a second row.
	BalanceWriter interface {
		AppendBalance(ctx context.Context, e core.BalanceEntry) (rowRef string, err error)
	}
)

// Header is the column layout of the mirror sheet.
var Header = []string{"Conta", "Sequencia", "Criado em", "Valor", "Descricao"}

// Row renders an entry in the column order of Header. The amount keeps the
// plain decimal text so spreadsheet formulas can sum it.
func Row(e core.BalanceEntry) []string {
	return []string{
		e.Key.AccountCode,
		strconv.FormatInt(e.Key.Seq, 10),
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.Amount.StringFixed(2),
		e.Description,
	}
}
