package polizas

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTooFewLines indicates less than two movement lines.
	ErrTooFewLines = errors.New("polizas: se requieren al menos dos movimientos")
	// ErrPeriodoCerrado indicates the target period does not accept postings.
	ErrPeriodoCerrado = errors.New("polizas: el periodo no esta abierto")
	// ErrCuentaNoDetalle indicates a movement references a summary account.
	ErrCuentaNoDetalle = errors.New("polizas: la cuenta no es de detalle")
	// ErrMotivoRequerido indicates cancelling an approved poliza without a reason.
	ErrMotivoRequerido = errors.New("polizas: motivo de cancelacion requerido")
)

// TransitionError reports an illegal state machine edge. Callers must not
// retry without changing the entry first.
type TransitionError struct {
	From Estado
	To   Estado
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("polizas: transicion invalida %s -> %s", e.From, e.To)
}

// DescuadreError reports a partida doble violation with the computed totals.
type DescuadreError struct {
	TotalDebe  float64
	TotalHaber float64
}

func (e *DescuadreError) Error() string {
	return fmt.Sprintf("polizas: poliza descuadrada: debe %.2f, haber %.2f, diferencia %.2f",
		e.TotalDebe, e.TotalHaber, e.Diferencia())
}

// Diferencia returns the absolute gap between the totals.
func (e *DescuadreError) Diferencia() float64 {
	return math.Abs(e.TotalDebe - e.TotalHaber)
}
