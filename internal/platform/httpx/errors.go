// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/newdim001/biz-pro/internal/shared"
)

// ErrUnauthorized indicates a missing or expired session.
var ErrUnauthorized = errors.New("unauthorized")

// StatusFor maps ledger error kinds to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrInsufficientFunds), errors.Is(err, shared.ErrInsufficientEntitlement):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusInternalServerError:
		Problem(w, status, "Internal Error", "")
	case http.StatusServiceUnavailable:
		ProblemType(w, status, typeFor(err), "Storage Unavailable", "")
	default:
		ProblemType(w, status, typeFor(err), http.StatusText(status), err.Error())
	}
}

func typeFor(err error) string {
	switch shared.Kind(err) {
	case shared.ErrValidation:
		return "urn:bizpro:validation"
	case shared.ErrInsufficientFunds:
		return "urn:bizpro:insufficient-funds"
	case shared.ErrInsufficientEntitlement:
		return "urn:bizpro:insufficient-entitlement"
	case shared.ErrNotFound:
		return "urn:bizpro:not-found"
	case shared.ErrConflict:
		return "urn:bizpro:conflict"
	case shared.ErrPersistence:
		return "urn:bizpro:persistence"
	default:
		return ""
	}
}
