package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("sicam: recurso no encontrado")
	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("sicam: datos invalidos")
	// ErrConcurrencyConflict indicates a lost race on shared state.
	// Callers may retry the operation.
	ErrConcurrencyConflict = errors.New("sicam: conflicto de concurrencia")
)
