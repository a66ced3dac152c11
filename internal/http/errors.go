package http

import (
	"errors"
	"net/http"

	"saldos/internal/core"
	applog "saldos/internal/log"
)

const msgUnexpected = "Erro inesperado. Tente novamente."

// classify maps a ledger error to a status and a message for the user.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "Valor inválido. Use formatos como 1.234,56 ou 1234.56."
	case errors.Is(err, core.ErrInvalidCode):
		return http.StatusUnprocessableEntity, "Código de conta inválido. Use até 32 letras, números, - ou _."
	case errors.Is(err, core.ErrEmptyDescription):
		return http.StatusUnprocessableEntity, "A descrição da conta é obrigatória."
	case errors.Is(err, core.ErrDescriptionTooLong):
		return http.StatusUnprocessableEntity, "A descrição é muito longa."
	case errors.Is(err, core.ErrDuplicateCode):
		return http.StatusConflict, "Já existe uma conta com este código."
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Conta não encontrada."
	case errors.Is(err, core.ErrInvalidPage):
		return http.StatusBadRequest, "Página inválida."
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusNotFound:
		return applog.ErrorTypeNotFound
	case http.StatusConflict:
		return applog.ErrorTypeConflict
	case http.StatusInternalServerError:
		return applog.ErrorTypeInternal
	default:
		return applog.ErrorTypeValidation
	}
}

// fail renders the error page for err. Server errors are logged with the
// cause; the user only sees a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := classify(err)
	logger := applog.FromContext(r.Context())
	if status == http.StatusInternalServerError {
		logger.LogError(r.Context(), "Request failed", err, errorType(status), applog.NewFields().WithOperation(op))
	} else {
		logger.DebugContext(r.Context(), "Request rejected", applog.FieldError, err, applog.FieldErrorType, errorType(status))
	}
	s.renderError(w, r, status, msg)
}
