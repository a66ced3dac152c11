package http

import (
	"context"
	"net/http"
	"time"

	"saldos/internal/core"
	applog "saldos/internal/log"
)

type indexPage struct {
	layoutData
	Summaries []core.AccountSummary
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	flash := s.flash.pop(w, r)
	sums, err := s.accountSummaries(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, pageIndex, indexPage{
		layoutData: layoutData{Flash: flash},
		Summaries:  sums,
	})
}

type balancesPage struct {
	layoutData
	Page core.Page
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	flash := s.flash.pop(w, r)
	number, err := ParsePage(r.URL.Query())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	page, err := s.ledger.ListAll(r.Context(), number, s.pageSize)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, pageBalances, balancesPage{
		layoutData: layoutData{Title: "Lançamentos", Flash: flash},
		Page:       page,
	})
}

type accountPage struct {
	layoutData
	Account core.Account
	Entries []core.BalanceEntry
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	flash := s.flash.pop(w, r)
	account, err := s.ledger.GetAccount(r.Context(), r.PathValue("code"))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	entries, err := s.ledger.ListForAccount(r.Context(), account.Code)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	s.render(w, r, http.StatusOK, pageAccount, accountPage{
		layoutData: layoutData{Title: account.Code, Flash: flash},
		Account:    account,
		Entries:    entries,
	})
}

type formPage struct {
	layoutData
	Accounts []core.Account
	Old      BalanceForm
	Error    string
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	flash := s.flash.pop(w, r)
	old := BalanceForm{Mode: ModeExisting, AccountCode: r.URL.Query().Get("account")}
	s.renderForm(w, r, http.StatusOK, old, "", flash)
}

// renderForm shows the balance form, keeping what the user typed.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, old BalanceForm, errMsg string, flash *Flash) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	if len(accounts) == 0 {
		old.Mode = ModeNew
	}
	s.render(w, r, status, pageForm, formPage{
		layoutData: layoutData{Title: "Novo saldo", Flash: flash},
		Accounts:   accounts,
		Old:        old,
		Error:      errMsg,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "Página não encontrada.")
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r))
	TooManyRequestsError("Muitas requisições. Tente novamente em instantes.").Write(w, nil)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().BodyJSON(map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}).Write(w, nil)
}

// handleReady checks that the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"database": "ok"}
	if err := s.ledger.Ready(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		checks["database"] = "failed"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	NewResponse().Status(code).BodyJSON(map[string]any{
		"status":         status,
		"checks":         checks,
		"active_clients": s.limiter.ActiveClients(),
		"rate_limited":   s.limiter.Hits(),
		"cached_pages":   s.summaries.Size(),
	}).Write(w, nil)
}
