package endpoints

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/cayopay/cayopay-identity/pkg/errs"
)

const minPasswordLength = 8

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch errs.Kind(err) {
	case errs.ErrInvalidCredentials, errs.ErrUnauthenticated:
		return http.StatusUnauthorized
	case errs.ErrForbidden:
		return http.StatusForbidden
	case errs.ErrAlreadyExists, errs.ErrAlreadyInvited:
		return http.StatusConflict
	case errs.ErrExpired:
		return http.StatusGone
	case errs.ErrNotFound:
		return http.StatusNotFound
	case errs.ErrNotification:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondWithKind writes err as its kind only. Internal causes are logged.
func respondWithKind(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := statusFor(err)
	kind := errs.Kind(err)
	if code == http.StatusInternalServerError || kind == nil {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if errors.Is(err, errs.ErrNotification) {
		logger.WarnContext(r.Context(), "notification failed", "path", r.URL.Path, "error", err)
	}
	respondWithError(w, code, kind.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == strings.TrimSpace(s)
}

func validPassword(s string) bool {
	return len(s) >= minPasswordLength
}
