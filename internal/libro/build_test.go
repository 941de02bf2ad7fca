package libro

import (
	"testing"
	"time"

	"github.com/haciendadigital/sicam/internal/catalogo/cuentas"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildMayorRunningBalanceDeudora(t *testing.T) {
	lines := []Line{
		{PolizaID: 1, SequenceNumber: 1, Fecha: day(1), CuentaID: 100, CuentaCode: "1.1.1.01", Nature: cuentas.NatureDeudora, Debe: 100},
		{PolizaID: 2, SequenceNumber: 2, Fecha: day(2), CuentaID: 100, CuentaCode: "1.1.1.01", Nature: cuentas.NatureDeudora, Haber: 30},
		{PolizaID: 3, SequenceNumber: 3, Fecha: day(3), CuentaID: 100, CuentaCode: "1.1.1.01", Nature: cuentas.NatureDeudora, Debe: 20},
	}
	projection := BuildMayor(lines, map[int64]float64{100: 0})
	if len(projection.Accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(projection.Accounts))
	}
	got := projection.Accounts[0]
	want := []float64{100, 70, 90}
	for i, balance := range want {
		if got.Lines[i].Balance != balance {
			t.Fatalf("line %d balance = %v, want %v", i, got.Lines[i].Balance, balance)
		}
	}
	if got.Closing != 90 {
		t.Fatalf("closing = %v", got.Closing)
	}
}

func TestBuildMayorAcreedoraSeedsOpening(t *testing.T) {
	lines := []Line{
		{PolizaID: 1, SequenceNumber: 1, Fecha: day(1), CuentaID: 200, CuentaCode: "2.1", Nature: cuentas.NatureAcreedora, Haber: 100},
		{PolizaID: 2, SequenceNumber: 2, Fecha: day(2), CuentaID: 200, CuentaCode: "2.1", Nature: cuentas.NatureAcreedora, Debe: 30},
	}
	projection := BuildMayor(lines, map[int64]float64{200: 50})
	got := projection.Accounts[0]
	if got.Lines[0].Balance != 150 || got.Lines[1].Balance != 120 {
		t.Fatalf("balances = %v/%v", got.Lines[0].Balance, got.Lines[1].Balance)
	}
}

func TestBuildMayorOrdersByDateThenSequence(t *testing.T) {
	lines := []Line{
		{PolizaID: 2, SequenceNumber: 2, Fecha: day(5), CuentaID: 1, CuentaCode: "1", Nature: cuentas.NatureDeudora, Debe: 10},
		{PolizaID: 1, SequenceNumber: 1, Fecha: day(5), CuentaID: 1, CuentaCode: "1", Nature: cuentas.NatureDeudora, Debe: 5},
		{PolizaID: 3, SequenceNumber: 3, Fecha: day(1), CuentaID: 1, CuentaCode: "1", Nature: cuentas.NatureDeudora, Debe: 1},
	}
	projection := BuildMayor(lines, nil)
	got := projection.Accounts[0].Lines
	if got[0].PolizaID != 3 || got[1].PolizaID != 1 || got[2].PolizaID != 2 {
		t.Fatalf("order = %d,%d,%d", got[0].PolizaID, got[1].PolizaID, got[2].PolizaID)
	}
}

func TestBuildDiarioOrdersAndTotals(t *testing.T) {
	entries := []Entry{
		{PolizaID: 2, SequenceNumber: 2, Fecha: day(9), Lines: []Line{{Debe: 200}, {Haber: 200}}},
		{PolizaID: 1, SequenceNumber: 1, Fecha: day(9), Lines: []Line{{Debe: 100}, {Haber: 100}}},
		{PolizaID: 3, SequenceNumber: 5, Fecha: day(2), Lines: []Line{{Debe: 50}, {Haber: 50}}},
	}
	projection := BuildDiario(entries)
	if projection.Entries[0].PolizaID != 3 || projection.Entries[1].PolizaID != 1 || projection.Entries[2].PolizaID != 2 {
		t.Fatalf("unexpected order")
	}
	if projection.Entries[0].TotalDebe != 50 || projection.Entries[0].TotalHaber != 50 {
		t.Fatalf("per-entry totals = %v/%v", projection.Entries[0].TotalDebe, projection.Entries[0].TotalHaber)
	}
	if projection.TotalDebe != 350 || projection.TotalHaber != 350 {
		t.Fatalf("grand totals = %v/%v", projection.TotalDebe, projection.TotalHaber)
	}
}

func TestBuildDiarioEmpty(t *testing.T) {
	projection := BuildDiario(nil)
	if len(projection.Entries) != 0 || projection.TotalDebe != 0 {
		t.Fatal("empty period must yield an empty projection")
	}
}

func TestBuildBalanzaTotalsAlign(t *testing.T) {
	rows := []BalanzaRow{
		{CuentaID: 2, CuentaCode: "1.2", CuentaName: "Bancos", Nature: cuentas.NatureDeudora, Opening: 500, Debe: 100, Haber: 50},
		{CuentaID: 1, CuentaCode: "1.1", CuentaName: "Caja", Nature: cuentas.NatureDeudora, Opening: 1000, Debe: 200, Haber: 250},
	}
	projection := BuildBalanza(rows)
	if projection.Rows[0].CuentaCode != "1.1" {
		t.Fatalf("rows must sort by code, got %s first", projection.Rows[0].CuentaCode)
	}
	if projection.Rows[0].Closing != 950 {
		t.Fatalf("closing = %v", projection.Rows[0].Closing)
	}
	totals := projection.Totals
	if totals.Opening != 1500 || totals.Debe != 300 || totals.Haber != 300 || totals.Closing != 1500 {
		t.Fatalf("totals = %+v", totals)
	}
	// For a debit-normal-only set, opening+debe must equal closing+haber.
	if totals.Opening+totals.Debe != totals.Closing+totals.Haber {
		t.Fatal("structural identity broken")
	}
	if projection.Warning != "" {
		t.Fatalf("unexpected warning %q", projection.Warning)
	}
}

func TestBuildBalanzaWarnsOnMismatch(t *testing.T) {
	rows := []BalanzaRow{
		{CuentaID: 1, CuentaCode: "1.1", Nature: cuentas.NatureDeudora, Debe: 100, Haber: 40},
	}
	projection := BuildBalanza(rows)
	if projection.Warning == "" {
		t.Fatal("mismatched totals must surface a warning")
	}
}

func TestBuildBalanzaEmpty(t *testing.T) {
	projection := BuildBalanza(nil)
	if len(projection.Rows) != 0 || projection.Warning != "" {
		t.Fatal("empty period must yield a clean empty balanza")
	}
}
