package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"saldos/internal/core"
	applog "saldos/internal/log"
)

const (
	pageIndex    = "index.html"
	pageBalances = "balances.html"
	pageAccount  = "account.html"
	pageForm     = "form.html"
	pageError    = "error.html"
)

var templateFuncs = template.FuncMap{
	"brl":      core.FormatBRL,
	"datetime": formatDateTime,
	"inc":      func(n int) int { return n + 1 },
	"dec":      func(n int) int { return n - 1 },
}

// parseTemplates builds one template set per page, each sharing the layout.
func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	pages := []string{pageIndex, pageBalances, pageAccount, pageForm, pageError}
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New(page).Funcs(templateFuncs).ParseFS(fsys, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

func formatDateTime(t time.Time) string {
	return t.Local().Format("02/01/2006 15:04")
}

// layoutData is embedded in every page's data.
type layoutData struct {
	Title string
	Flash *Flash
}

// render executes page into a buffer first so a template failure still
// yields a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := s.templates[page]
	if !ok {
		s.logger.ErrorContext(r.Context(), "Unknown template", "template", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		applog.FromContext(r.Context()).LogError(r.Context(), "Template execution failed", err, applog.ErrorTypeInternal,
			applog.NewFields().WithOperation(applog.OpRender))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorPage struct {
	layoutData
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, pageError, errorPage{
		layoutData: layoutData{Title: http.StatusText(status)},
		Status:     status,
		Message:    message,
	})
}
