package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"marketstall/internal/apperror"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Error: APIError{Code: code, Message: message},
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteServiceError maps the apperror taxonomy onto HTTP. Anything else is
// logged and reported as a generic internal error.
func WriteServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		ve *apperror.ValidationError
		ce *apperror.ConflictError
		te *apperror.InvalidTransitionError
		nf *apperror.NotFoundError
		fe *apperror.ForbiddenError
	)
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", ve.Message)
	case errors.As(err, &ce):
		WriteError(w, http.StatusConflict, ce.Code, ce.Message)
	case errors.As(err, &te):
		WriteError(w, http.StatusConflict, "INVALID_STATE_TRANSITION", te.Detail())
	case errors.As(err, &nf):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", nf.Resource+" not found")
	case errors.As(err, &fe):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", fe.Message)
	default:
		logger.Error("request failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
