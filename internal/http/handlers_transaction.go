package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	msgTransactionSaved   = "Transaction saved"
	msgTransactionDeleted = "Transaction deleted"
	msgTransactionMissing = "Transaction not found"
)

// handleCreateTransaction appends one row from the input form.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form").Write(w)
		return
	}

	in, err := ParseTransactionForm(r.PostForm)
	if err != nil {
		logger.WarnContext(ctx, "Rejected transaction input", applog.FieldError, err.Error())
		UnprocessableEntityWarning(validationMessage(err)).Write(w)
		return
	}

	if _, err := s.tracker.Add(ctx, in); err != nil {
		if isValidationError(err) {
			UnprocessableEntityWarning(validationMessage(err)).Write(w)
			return
		}
		s.storageFailure(w, r, "Failed to add transaction", err, applog.OpCreate)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	messageResponse(http.StatusOK, "success", msgTransactionSaved).
		TriggerFormReset().
		TriggerReportRefresh().
		TriggerSuccessNotification(msgTransactionSaved).
		Write(w)
}

// handleDeleteTransaction serves both DELETE /transactions/{id} and the form fallback.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	_, err := s.tracker.Delete(r.Context(), id)
	switch {
	case errors.Is(err, services.ErrTransactionNotFound):
		NotFoundWarning(msgTransactionMissing).Write(w)
		return
	case err != nil:
		s.storageFailure(w, r, "Failed to delete transaction", err, applog.OpDelete)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	NewHTMXResponse().
		TriggerReportRefresh().
		TriggerSuccessNotification(msgTransactionDeleted).
		Write(w)
}
