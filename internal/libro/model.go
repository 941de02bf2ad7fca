// Package libro derives the three statutory ledger views (Diario, Mayor,
// Balanza) from approved, non-cancelled polizas. Projections are read-only;
// nothing here mutates entry state.
package libro

import (
	"time"

	"github.com/haciendadigital/sicam/internal/catalogo/cuentas"
)

// Entry is one approved poliza as seen by the diario.
type Entry struct {
	PolizaID       int64
	Referencia     string
	Tipo           string
	SequenceNumber int64
	Fecha          time.Time
	Descripcion    string
	Lines          []Line
}

// Line is one movement as seen by the aggregator.
type Line struct {
	PolizaID       int64
	SequenceNumber int64
	Fecha          time.Time
	CuentaID       int64
	CuentaCode     string
	CuentaName     string
	Nature         cuentas.Nature
	Concepto       string
	Debe           float64
	Haber          float64
}

// DiarioEntry expands an entry with its per-entry totals.
type DiarioEntry struct {
	Entry
	TotalDebe  float64
	TotalHaber float64
}

// DiarioProjection is the chronological journal of a period.
type DiarioProjection struct {
	Entries    []DiarioEntry
	TotalDebe  float64
	TotalHaber float64
}

// MayorLine is a movement with its running balance.
type MayorLine struct {
	Line
	Balance float64
}

// MayorAccount groups the movements of one account.
type MayorAccount struct {
	CuentaID   int64
	CuentaCode string
	CuentaName string
	Nature     cuentas.Nature
	Opening    float64
	Lines      []MayorLine
	Closing    float64
}

// MayorProjection is the per-account ledger of a period.
type MayorProjection struct {
	Accounts []MayorAccount
}

// BalanzaRow is one trial balance line.
type BalanzaRow struct {
	CuentaID   int64
	CuentaCode string
	CuentaName string
	Nature     cuentas.Nature
	Opening    float64
	Debe       float64
	Haber      float64
	Closing    float64
}

// BalanzaProjection is the trial balance with its totals row. A debit/credit
// grand-total mismatch is surfaced as Warning rather than rejected; it almost
// always points at an upstream posting bug the caller should investigate.
type BalanzaProjection struct {
	Rows    []BalanzaRow
	Totals  BalanzaRow
	Warning string
}
