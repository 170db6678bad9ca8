package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"visitorpass/internal/domain"
)

// WriteServiceError maps a service error onto the API status code and error envelope.
// Unrecognised errors are logged and reported as 500 without leaking their text.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		ve *domain.ValidationError
		te *domain.TransitionError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, &APIError{Code: ErrCodeValidation, Message: ve.Message, Field: ve.Field})
	case errors.Is(err, domain.ErrValidation):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, domain.ErrExpired):
		WriteJSONError(w, http.StatusBadRequest, ErrCodePassExpired, "pass has expired")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteJSONError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.As(err, &te):
		WriteJSONError(w, http.StatusConflict, ErrCodeInvalidTransition, te.Error())
	case errors.Is(err, domain.ErrAlreadyProcessed):
		WriteJSONError(w, http.StatusConflict, ErrCodeAlreadyProcessed, "pass already processed")
	case errors.Is(err, domain.ErrAlreadyApproved):
		WriteJSONError(w, http.StatusConflict, ErrCodeAlreadyApproved, "visitor is already approved")
	case errors.Is(err, domain.ErrConflict):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
