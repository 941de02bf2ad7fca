package anomalias

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedDetector(t *testing.T) *Detector {
	t.Helper()
	d := NewDetector()
	d.WithNow(func() time.Time { return time.Date(2026, 8, 15, 3, 0, 0, 0, time.UTC) })
	return d
}

func weekdayAt(day, hour int) time.Time {
	// 2026-06-01 is a Monday.
	return time.Date(2026, 6, day, hour, 0, 0, 0, time.UTC)
}

func TestDetectUnusualAmountOutlier(t *testing.T) {
	d := fixedDetector(t)
	movements := []MovementInput{
		{MovimientoID: 1, PolizaID: 10, Cuenta: "5100.01", Fecha: weekdayAt(1, 10), Monto: 1000},
		{MovimientoID: 2, PolizaID: 11, Cuenta: "5100.01", Fecha: weekdayAt(2, 10), Monto: 1000},
		{MovimientoID: 3, PolizaID: 12, Cuenta: "5100.01", Fecha: weekdayAt(3, 10), Monto: 1000},
		{MovimientoID: 4, PolizaID: 13, Cuenta: "5100.01", Fecha: weekdayAt(4, 10), Monto: 1000},
		{MovimientoID: 5, PolizaID: 14, Cuenta: "5100.02", Fecha: weekdayAt(5, 10), Monto: 50000},
	}
	rules := []Rule{{Tipo: TipoMontoInusual, Umbral: 1.5}}

	got := d.Detect(nil, movements, rules)

	flagged := ofType(got, TipoMontoInusual)
	require.Len(t, flagged, 1)
	require.Equal(t, RiesgoAlto, flagged[0].Riesgo)
	require.Equal(t, 50000.0, flagged[0].Monto)
	require.Equal(t, int64(14), *flagged[0].PolizaID)
}

func TestDetectUnusualAmountUniformCorpusIsClean(t *testing.T) {
	d := fixedDetector(t)
	movements := []MovementInput{
		{MovimientoID: 1, PolizaID: 1, Cuenta: "5100.01", Fecha: weekdayAt(1, 10), Monto: 1000},
		{MovimientoID: 2, PolizaID: 2, Cuenta: "5100.01", Fecha: weekdayAt(2, 10), Monto: 1000},
	}
	got := d.Detect(nil, movements, nil)
	require.Empty(t, ofType(got, TipoMontoInusual))
}

func TestDetectDuplicatePattern(t *testing.T) {
	d := fixedDetector(t)
	movements := []MovementInput{
		{MovimientoID: 1, PolizaID: 10, Cuenta: "2100.01", Fecha: weekdayAt(1, 9), Monto: 4300},
		{MovimientoID: 2, PolizaID: 11, Cuenta: "2100.01", Fecha: weekdayAt(4, 9), Monto: -4300},
		{MovimientoID: 3, PolizaID: 12, Cuenta: "2100.01", Fecha: weekdayAt(22, 9), Monto: 4300},
		{MovimientoID: 4, PolizaID: 13, Cuenta: "2100.02", Fecha: weekdayAt(4, 9), Monto: 4300},
	}

	got := ofType(d.Detect(nil, movements, nil), TipoPatronDuplicado)

	require.Len(t, got, 1)
	require.Equal(t, RiesgoMedio, got[0].Riesgo)
	require.Equal(t, "2100.01", got[0].Cuenta)
	require.Equal(t, int64(11), *got[0].PolizaID)
}

func TestDetectDuplicatePatternPairHashesAreDistinct(t *testing.T) {
	d := fixedDetector(t)
	// Three identical payments inside the window yield three pairs. Each
	// pair must carry its own evidence hash or the insert dedup silently
	// drops findings that share the later movement.
	movements := []MovementInput{
		{MovimientoID: 1, PolizaID: 10, Cuenta: "2100.01", Fecha: weekdayAt(1, 9), Monto: 4300},
		{MovimientoID: 2, PolizaID: 11, Cuenta: "2100.01", Fecha: weekdayAt(2, 9), Monto: 4300},
		{MovimientoID: 3, PolizaID: 12, Cuenta: "2100.01", Fecha: weekdayAt(3, 9), Monto: 4300},
	}

	got := ofType(d.Detect(nil, movements, nil), TipoPatronDuplicado)

	require.Len(t, got, 3)
	seen := make(map[string]bool, len(got))
	for _, reg := range got {
		require.False(t, seen[reg.EvidenceHash], "evidence hash %s shared by two pair findings", reg.EvidenceHash)
		seen[reg.EvidenceHash] = true
	}
}

func TestDetectUnusualTiming(t *testing.T) {
	d := fixedDetector(t)
	entries := []EntryInput{
		{PolizaID: 1, Fecha: time.Date(2026, 6, 6, 11, 0, 0, 0, time.UTC)},  // Saturday
		{PolizaID: 2, Fecha: time.Date(2026, 6, 2, 23, 30, 0, 0, time.UTC)}, // Tuesday night
		{PolizaID: 3, Fecha: time.Date(2026, 6, 2, 11, 0, 0, 0, time.UTC)},  // office hours
		{PolizaID: 4, Fecha: time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)},   // date only, no capture time
	}

	got := ofType(d.Detect(entries, nil, nil), TipoHorarioInusual)

	require.Len(t, got, 2)
	for _, r := range got {
		require.Equal(t, RiesgoMedio, r.Riesgo)
	}
	require.ElementsMatch(t, []int64{1, 2}, []int64{*got[0].PolizaID, *got[1].PolizaID})
}

func TestDetectRoundAmounts(t *testing.T) {
	d := fixedDetector(t)
	movements := []MovementInput{
		{MovimientoID: 1, PolizaID: 1, Cuenta: "5100.01", Fecha: weekdayAt(1, 10), Monto: 250000},
		{MovimientoID: 2, PolizaID: 2, Cuenta: "5100.01", Fecha: weekdayAt(2, 10), Monto: 250001},
		{MovimientoID: 3, PolizaID: 3, Cuenta: "5100.01", Fecha: weekdayAt(3, 10), Monto: 50000},
	}

	got := ofType(d.Detect(nil, movements, nil), TipoMontoRedondo)

	require.Len(t, got, 1)
	require.Equal(t, RiesgoBajo, got[0].Riesgo)
	require.Equal(t, 250000.0, got[0].Monto)
}

func TestDetectBudgetDeviation(t *testing.T) {
	d := fixedDetector(t)
	aprobado := func(v float64) *float64 { return &v }
	entries := []EntryInput{
		{PolizaID: 1, Fecha: weekdayAt(1, 10), MontoAprobado: aprobado(1000), MontoEjercido: aprobado(1300)},
		{PolizaID: 2, Fecha: weekdayAt(1, 10), MontoAprobado: aprobado(1000), MontoEjercido: aprobado(1600)},
		{PolizaID: 3, Fecha: weekdayAt(1, 10), MontoAprobado: aprobado(1000), MontoEjercido: aprobado(1100)},
		{PolizaID: 4, Fecha: weekdayAt(1, 10)},
	}

	got := ofType(d.Detect(entries, nil, nil), TipoDesviacion)

	require.Len(t, got, 2)
	byPoliza := map[int64]Riesgo{}
	for _, r := range got {
		byPoliza[*r.PolizaID] = r.Riesgo
	}
	require.Equal(t, RiesgoAlto, byPoliza[1])
	require.Equal(t, RiesgoCritico, byPoliza[2])
}

func TestDetectVendorConcentration(t *testing.T) {
	d := fixedDetector(t)
	movements := []MovementInput{
		{MovimientoID: 1, PolizaID: 1, Cuenta: "5100.01", Fecha: weekdayAt(1, 10), Monto: 4500, Proveedor: "Constructora X"},
		{MovimientoID: 2, PolizaID: 2, Cuenta: "5100.01", Fecha: weekdayAt(2, 10), Monto: 3000, Proveedor: "Papeleria Y"},
		{MovimientoID: 3, PolizaID: 3, Cuenta: "5100.01", Fecha: weekdayAt(3, 10), Monto: 2500, Proveedor: "Servicios Z"},
	}

	got := ofType(d.Detect(nil, movements, nil), TipoProveedorConcent)

	require.Len(t, got, 1)
	require.Equal(t, RiesgoAlto, got[0].Riesgo)
	require.Contains(t, got[0].Descripcion, "Constructora X")
}

func TestDetectVendorConcentrationCritical(t *testing.T) {
	d := fixedDetector(t)
	movements := []MovementInput{
		{MovimientoID: 1, PolizaID: 1, Cuenta: "5100.01", Fecha: weekdayAt(1, 10), Monto: 8000, Proveedor: "Constructora X"},
		{MovimientoID: 2, PolizaID: 2, Cuenta: "5100.01", Fecha: weekdayAt(2, 10), Monto: 2000, Proveedor: "Papeleria Y"},
	}

	got := ofType(d.Detect(nil, movements, nil), TipoProveedorConcent)

	require.Len(t, got, 1)
	require.Equal(t, RiesgoCritico, got[0].Riesgo)
}

func TestDetectEmptyCorpus(t *testing.T) {
	d := fixedDetector(t)
	require.Empty(t, d.Detect(nil, nil, nil))
}

func TestDetectIsIdempotentByEvidenceHash(t *testing.T) {
	d := fixedDetector(t)
	movements := []MovementInput{
		{MovimientoID: 1, PolizaID: 10, Cuenta: "5100.01", Fecha: weekdayAt(1, 10), Monto: 1000},
		{MovimientoID: 2, PolizaID: 11, Cuenta: "5100.01", Fecha: weekdayAt(2, 10), Monto: 1000},
		{MovimientoID: 3, PolizaID: 12, Cuenta: "5100.02", Fecha: weekdayAt(3, 10), Monto: 250000, Proveedor: "Constructora X"},
	}

	first := d.Detect(nil, movements, nil)
	second := d.Detect(nil, movements, nil)

	require.Equal(t, hashes(first), hashes(second))
	require.NotEmpty(t, first)
}

func TestReviewTransitions(t *testing.T) {
	require.NoError(t, ValidateReviewTransition(EstadoDetectada, EstadoEnRevision))
	require.NoError(t, ValidateReviewTransition(EstadoDetectada, EstadoDescartada))
	require.NoError(t, ValidateReviewTransition(EstadoEnRevision, EstadoResuelta))
	require.NoError(t, ValidateReviewTransition(EstadoEnRevision, EstadoDescartada))

	require.ErrorIs(t, ValidateReviewTransition(EstadoDetectada, EstadoResuelta), ErrTransicionInvalida)
	require.ErrorIs(t, ValidateReviewTransition(EstadoResuelta, EstadoEnRevision), ErrTransicionInvalida)
	require.ErrorIs(t, ValidateReviewTransition(EstadoDescartada, EstadoDetectada), ErrTransicionInvalida)
}

func ofType(in []Registro, tipo Tipo) []Registro {
	var out []Registro
	for _, r := range in {
		if r.Tipo == tipo {
			out = append(out, r)
		}
	}
	return out
}

func hashes(in []Registro) []string {
	out := make([]string, len(in))
	for i, r := range in {
		out[i] = r.EvidenceHash
	}
	return out
}
