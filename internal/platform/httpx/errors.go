// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/haciendadigital/sicam/internal/shared"
)

// RespondError maps cross-cutting domain errors to HTTP responses using
// RFC7807. Module handlers map their own sentinels before falling back here.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "No encontrado", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Validacion fallida", err.Error())
	case errors.Is(err, shared.ErrConcurrencyConflict):
		Problem(w, http.StatusConflict, "Conflicto", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Error interno", "")
	}
}
