package httpx

import (
	"errors"
	"net/http"

	"github.com/shelfwatch/shelfwatch/internal/shared"
)

// ErrValidation marks a request the admin API refuses to act on.
var ErrValidation = errors.New("validation failed")

// RespondError maps domain errors to problem responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrJobLocked):
		Problem(w, http.StatusConflict, "Job Running", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
