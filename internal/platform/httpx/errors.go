package httpx

import (
	"errors"
	"net/http"

	"github.com/backline-erp/backline/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Storage failures deliberately hide detail from the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConsistency):
		Problem(w, http.StatusConflict, "Ledger Inconsistent", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrStorage):
		Problem(w, http.StatusInternalServerError, "Storage Error", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
