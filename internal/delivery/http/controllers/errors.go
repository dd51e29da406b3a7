package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"eventrsvp/internal/delivery/http/helpers"
	"eventrsvp/internal/delivery/http/middleware"
	"eventrsvp/internal/domain"
)

// errorMapping pairs a sentinel with its HTTP status and envelope code. First match wins.
var errorMappings = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidInput, http.StatusBadRequest, helpers.ErrCodeBadRequest},
	{domain.ErrInvalidSession, http.StatusUnauthorized, helpers.ErrCodeUnauthorized},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, helpers.ErrCodeUnauthorized},
	{domain.ErrAccountInactive, http.StatusForbidden, helpers.ErrCodeForbidden},
	{domain.ErrEmailNotVerified, http.StatusForbidden, helpers.ErrCodeForbidden},
	{domain.ErrInvalidOTP, http.StatusBadRequest, helpers.ErrCodeBadRequest},
	{domain.ErrOTPCooldown, http.StatusTooManyRequests, helpers.ErrCodeTooManyRequests},
	{domain.ErrAlreadyVerified, http.StatusConflict, helpers.ErrCodeConflict},
	{domain.ErrForbidden, http.StatusForbidden, helpers.ErrCodeForbidden},
	{domain.ErrNotFound, http.StatusNotFound, helpers.ErrCodeNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound, helpers.ErrCodeNotFound},
	{domain.ErrTokenNotFound, http.StatusNotFound, helpers.ErrCodeNotFound},
	{domain.ErrCapacityExceeded, http.StatusConflict, helpers.ErrCodeConflict},
	{domain.ErrDuplicateRSVP, http.StatusConflict, helpers.ErrCodeConflict},
	{domain.ErrInvalidTransition, http.StatusConflict, helpers.ErrCodeConflict},
	{domain.ErrAlreadyCheckedIn, http.StatusConflict, helpers.ErrCodeConflict},
	{domain.ErrTicketCancelled, http.StatusConflict, helpers.ErrCodeConflict},
	{domain.ErrDuplicateEmail, http.StatusConflict, helpers.ErrCodeConflict},
	{domain.ErrEventNotOpen, http.StatusConflict, helpers.ErrCodeConflict},
	{domain.ErrSaleClosed, http.StatusConflict, helpers.ErrCodeConflict},
}

// writeServiceError maps domain sentinels to a JSON error. Anything unrecognised is
// logged and reported as 500 without leaking its text.
func writeServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			helpers.WriteJSONError(w, m.status, m.code, err.Error())
			return
		}
	}
	logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
}

// pathID reads a uuid path parameter, writing 400 when it is missing or malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if id == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid "+name)
		return "", false
	}
	return id, true
}

// principal returns the authenticated caller or writes 401.
func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
	}
	return p, ok
}
