package validation

import "fmt"

// Budget execution moments. Expense and income follow distinct statutory
// chains; the order here matters.
var (
	MomentosEgreso  = []string{"aprobado", "modificado", "comprometido", "devengado", "ejercido", "pagado"}
	MomentosIngreso = []string{"estimado", "modificado", "devengado", "recaudado"}
)

// MomentResult reports the outcome of a moment sequence check. A later
// moment without its predecessor registered stays valid but carries an
// advisory warning; this is never a hard gate.
type MomentResult struct {
	Valid          bool
	PreviousMoment string
	Message        string
	Warning        string
}

// ValidateMomentSequence checks the budget-execution moment against the
// chain it belongs to. Unknown moments are invalid; the first moment of a
// chain is always clean.
func ValidateMomentSequence(moment string, chain []string) MomentResult {
	idx := -1
	for i, m := range chain {
		if m == moment {
			idx = i
			break
		}
	}
	if idx < 0 {
		return MomentResult{Message: fmt.Sprintf("momento presupuestal desconocido: %q", moment)}
	}
	if idx == 0 {
		return MomentResult{Valid: true, Message: fmt.Sprintf("momento inicial %s", moment)}
	}
	prev := chain[idx-1]
	return MomentResult{
		Valid:          true,
		PreviousMoment: prev,
		Message:        fmt.Sprintf("momento %s aceptado", moment),
		Warning:        fmt.Sprintf("se esperaba registrar %s antes de %s", prev, moment),
	}
}
