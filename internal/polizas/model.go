package polizas

import (
	"time"
)

// Tipo enumerates the statutory poliza types.
type Tipo string

const (
	TipoIngreso Tipo = "INGRESO"
	TipoEgreso  Tipo = "EGRESO"
	TipoDiario  Tipo = "DIARIO"
	TipoAjuste  Tipo = "AJUSTE"
	TipoCierre  Tipo = "CIERRE"
)

// Estado enumerates the poliza lifecycle states.
type Estado string

const (
	EstadoBorrador  Estado = "BORRADOR"
	EstadoPendiente Estado = "PENDIENTE"
	EstadoAprobada  Estado = "APROBADA"
	EstadoCancelada Estado = "CANCELADA"
)

// Poliza is a journal entry. The sequence number stays zero until the first
// submit, when it is assigned atomically per (ente, ejercicio, tipo).
type Poliza struct {
	ID             int64
	EnteID         int64
	FiscalYearID   int64
	PeriodID       int64
	Tipo           Tipo
	SequenceNumber int64
	Fecha          time.Time
	Descripcion    string
	Estado         Estado
	TotalDebe      float64
	TotalHaber     float64
	MontoAprobado  *float64
	MontoEjercido  *float64
	CreatedBy      int64
	ApprovedBy     *int64
	CancelledBy    *int64
	CancelReason   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lineas         []Movimiento
}

// Movimiento is one debit or credit line of a poliza. Lines reference
// accounts by id only; there are no back-pointers.
type Movimiento struct {
	ID           int64
	PolizaID     int64
	CuentaID     int64
	Concepto     string
	Beneficiario string
	Debe         float64
	Haber        float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SetDebe charges the line on the debit side, clearing the credit side.
func (m *Movimiento) SetDebe(v float64) {
	m.Debe = v
	m.Haber = 0
}

// SetHaber charges the line on the credit side, clearing the debit side.
func (m *Movimiento) SetHaber(v float64) {
	m.Haber = v
	m.Debe = 0
}

// RecomputeTotals folds the lines into the header totals.
func (p *Poliza) RecomputeTotals() {
	var debe, haber float64
	for _, l := range p.Lineas {
		debe += l.Debe
		haber += l.Haber
	}
	p.TotalDebe = debe
	p.TotalHaber = haber
}

// transitions is the lifecycle adjacency table. Cancelada is terminal.
var transitions = map[Estado][]Estado{
	EstadoBorrador:  {EstadoPendiente, EstadoCancelada},
	EstadoPendiente: {EstadoAprobada, EstadoBorrador, EstadoCancelada},
	EstadoAprobada:  {EstadoCancelada},
	EstadoCancelada: {},
}

// CanTransition reports whether the state machine allows the edge.
func CanTransition(from, to Estado) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
