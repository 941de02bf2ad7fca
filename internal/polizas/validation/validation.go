// Package validation holds the pure double-entry validators. Every function
// is side-effect free and returns a structured result instead of an error so
// the UI layer can compose them; the hard gates live in the polizas service.
package validation

import (
	"fmt"
	"math"

	"github.com/haciendadigital/sicam/internal/catalogo/cuentas"
	"github.com/haciendadigital/sicam/internal/catalogo/ejercicios"
)

// BalanceTolerance is the absolute allowance between total debe and haber.
const BalanceTolerance = 0.01

// Line is the minimal shape the balance validator needs.
type Line struct {
	Debe  float64
	Haber float64
}

// BalanceResult reports the outcome of a partida doble check.
type BalanceResult struct {
	Valid      bool
	TotalDebe  float64
	TotalHaber float64
	Difference float64
	Message    string
}

// ValidateBalance checks the partida doble invariant over the lines. An
// empty list is trivially valid; the minimum-lines rule is enforced by the
// entry store, not here.
func ValidateBalance(lines []Line) BalanceResult {
	var debe, haber float64
	for _, line := range lines {
		debe += line.Debe
		haber += line.Haber
	}
	diff := math.Abs(debe - haber)
	res := BalanceResult{TotalDebe: debe, TotalHaber: haber, Difference: diff}
	if diff < BalanceTolerance {
		res.Valid = true
		res.Message = "la poliza cuadra"
		return res
	}
	res.Message = fmt.Sprintf("la poliza no cuadra: debe %.2f, haber %.2f, diferencia %.2f", debe, haber, diff)
	return res
}

// Result is the generic outcome of the remaining validators.
type Result struct {
	Valid   bool
	Message string
}

// ValidatePeriodOpen checks the period accepts postings.
func ValidatePeriodOpen(period *ejercicios.Period) Result {
	if period == nil {
		return Result{Message: "el periodo no existe"}
	}
	if period.State != ejercicios.PeriodOpen {
		return Result{Message: fmt.Sprintf("el periodo %d esta en estado %s", period.Number, period.State)}
	}
	return Result{Valid: true, Message: "periodo abierto"}
}

// ValidateDetailAccount checks the account accepts movements.
func ValidateDetailAccount(account *cuentas.Account) Result {
	if account == nil {
		return Result{Message: "la cuenta no existe"}
	}
	if !account.Postable() {
		return Result{Message: fmt.Sprintf("la cuenta %s no es de detalle (nivel %d)", account.Code, account.Level)}
	}
	return Result{Valid: true, Message: "cuenta de detalle"}
}
