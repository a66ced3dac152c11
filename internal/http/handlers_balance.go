package http

import (
	"fmt"
	"net/http"
	"net/url"

	"saldos/internal/core"
	applog "saldos/internal/log"
)

// handleCreateAccount registers an account without a first balance.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w, nil)
		return
	}
	code := r.PostForm.Get("code")
	description := r.PostForm.Get("account_description")
	if description == "" {
		description = r.PostForm.Get("description")
	}

	account, err := s.ledger.CreateAccount(r.Context(), code, description)
	if err != nil {
		s.formFailed(w, r, BalanceForm{Mode: ModeNew, Code: code, AccountDescription: description}, err)
		return
	}
	s.invalidateSummaries()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Account created", applog.FieldAccountCode, account.Code)

	NewResponse().
		Flash(FlashSuccess, fmt.Sprintf("Conta %s criada com sucesso!", account.Code)).
		Redirect("/accounts/" + url.PathEscape(account.Code)).
		Write(w, &s.flash)
}

// handleCreateBalance records a balance for an existing account, or opens a
// new account with its first balance, depending on the form mode.
func (s *Server) handleCreateBalance(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w, nil)
		return
	}
	form := ParseBalanceForm(r.PostForm)
	if !form.ValidMode() {
		s.renderForm(w, r, http.StatusBadRequest, form, "Operação inválida.", nil)
		return
	}

	var (
		entry core.BalanceEntry
		err   error
	)
	if form.Mode == ModeExisting {
		entry, err = s.ledger.AddBalance(r.Context(), form.AccountCode, form.Amount, form.Description)
	} else {
		_, entry, err = s.ledger.OpenAccountWithBalance(r.Context(), form.Code, form.AccountDescription, form.Amount, form.Description)
	}
	if err != nil {
		s.formFailed(w, r, form, err)
		return
	}

	s.invalidateSummaries()
	applog.FromContext(r.Context()).LogBalanceRecorded(r.Context(),
		entry.Key.AccountCode, entry.Key.String(), entry.Amount.StringFixed(2))

	NewResponse().
		Flash(FlashSuccess, fmt.Sprintf("Saldo de %s salvo com sucesso para a conta %s!", entry.Formatted(), entry.Key.AccountCode)).
		Redirect("/").
		Write(w, &s.flash)
}

// formFailed re-renders the form with the user's input for client errors and
// falls back to the error page for server errors.
func (s *Server) formFailed(w http.ResponseWriter, r *http.Request, form BalanceForm, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Form rejected",
		applog.FieldError, err,
		applog.FieldErrorType, errorType(status))
	s.renderForm(w, r, status, form, msg, nil)
}
