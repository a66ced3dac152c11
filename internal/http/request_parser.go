package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"saldos/internal/core"
)

const maxFormBytes = 64 << 10

const (
	ModeExisting = "existing"
	ModeNew      = "new"
)

// BalanceForm holds the raw fields of the new balance form. Values are only
// trimmed here; validation happens in the ledger.
type BalanceForm struct {
	Mode               string
	AccountCode        string
	Code               string
	AccountDescription string
	Amount             string
	Description        string
}

// ParseBalanceForm reads the balance form. A missing mode means "existing"
// when an account is selected and "new" otherwise.
func ParseBalanceForm(form url.Values) BalanceForm {
	f := BalanceForm{
		Mode:               strings.ToLower(strings.TrimSpace(form.Get("mode"))),
		AccountCode:        strings.TrimSpace(form.Get("account_code")),
		Code:               strings.TrimSpace(form.Get("code")),
		AccountDescription: strings.TrimSpace(form.Get("account_description")),
		Amount:             strings.TrimSpace(form.Get("amount")),
		Description:        strings.TrimSpace(form.Get("description")),
	}
	if f.Mode == "" {
		if f.AccountCode != "" {
			f.Mode = ModeExisting
		} else {
			f.Mode = ModeNew
		}
	}
	return f
}

// ValidMode reports whether the form selects a known mode.
func (f BalanceForm) ValidMode() bool {
	return f.Mode == ModeExisting || f.Mode == ModeNew
}

// ParsePage reads the 1-indexed page query parameter, defaulting to 1.
func ParsePage(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("page"))
	if v == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("page %q: %w", v, core.ErrInvalidPage)
	}
	return page, nil
}

// ParseFormOrFail parses a size-limited form body and returns an error
// response on failure. Returns nil on success.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) *ResponseBuilder {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Formato da requisição inválido.")
	}
	return nil
}
