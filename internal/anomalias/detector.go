package anomalias

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Default thresholds applied when no active rule of the type exists.
const (
	DefaultSigmaMultiple      = 3.0    // monto_inusual: flag beyond mean + k*sigma
	DefaultDuplicateWindow    = 7.0    // patron_duplicado: days between matching movements
	DefaultRoundAmountFloor   = 100000 // monto_redondo: minimum amount considered
	DefaultDeviationPercent   = 20.0   // desviacion_presupuestal: percent over approved
	DefaultConcentrationShare = 40.0   // proveedor_concentrado: percent of total value
)

const (
	criticalSigmaMultiple      = 5.0
	criticalDeviationPercent   = 50.0
	criticalConcentrationShare = 70.0
	roundAmountStep            = 10000
	workdayStartHour           = 7
	workdayEndHour             = 20
)

// EntryInput is the slice of a poliza the detector inspects.
type EntryInput struct {
	PolizaID      int64
	Fecha         time.Time
	MontoAprobado *float64
	MontoEjercido *float64
}

// MovementInput is the slice of a movimiento the detector inspects. Monto is
// the signed line amount (debe positive, haber negative); heuristics work on
// its absolute value.
type MovementInput struct {
	MovimientoID int64
	PolizaID     int64
	Cuenta       string
	Fecha        time.Time
	Monto        float64
	Proveedor    string
}

// Rule parameterizes one heuristic. An absent rule falls back to the
// documented default threshold.
type Rule struct {
	Tipo   Tipo
	Umbral float64
}

// Detector runs the heuristics. The scan is stateless and side-effect free:
// the same corpus always yields the same detections.
type Detector struct {
	now func() time.Time
}

func NewDetector() *Detector {
	return &Detector{now: time.Now}
}

func (d *Detector) WithNow(now func() time.Time) {
	if now != nil {
		d.now = now
	}
}

// Detect unions the findings of all six heuristics over the corpus. An empty
// result is success, never an error.
func (d *Detector) Detect(entries []EntryInput, movements []MovementInput, rules []Rule) []Registro {
	thresholds := make(map[Tipo]float64, len(rules))
	for _, rule := range rules {
		thresholds[rule.Tipo] = rule.Umbral
	}
	detectedAt := d.now()

	var out []Registro
	out = append(out, detectUnusualAmounts(movements, threshold(thresholds, TipoMontoInusual, DefaultSigmaMultiple), detectedAt)...)
	out = append(out, detectDuplicatePatterns(movements, threshold(thresholds, TipoPatronDuplicado, DefaultDuplicateWindow), detectedAt)...)
	out = append(out, detectUnusualTiming(entries, detectedAt)...)
	out = append(out, detectRoundAmounts(movements, threshold(thresholds, TipoMontoRedondo, DefaultRoundAmountFloor), detectedAt)...)
	out = append(out, detectBudgetDeviation(entries, threshold(thresholds, TipoDesviacion, DefaultDeviationPercent), detectedAt)...)
	out = append(out, detectVendorConcentration(movements, threshold(thresholds, TipoProveedorConcent, DefaultConcentrationShare), detectedAt)...)
	return out
}

func threshold(rules map[Tipo]float64, tipo Tipo, fallback float64) float64 {
	if v, ok := rules[tipo]; ok && v > 0 {
		return v
	}
	return fallback
}

// detectUnusualAmounts flags movements beyond mean + k*sigma of the absolute
// amount distribution. Sigma is the population standard deviation.
func detectUnusualAmounts(movements []MovementInput, sigmaMultiple float64, at time.Time) []Registro {
	if len(movements) < 2 {
		return nil
	}
	values := make([]float64, len(movements))
	for i, m := range movements {
		values[i] = math.Abs(m.Monto)
	}
	mean := average(values)
	sigma := populationStd(values, mean)
	if sigma == 0 {
		return nil
	}

	var out []Registro
	for _, m := range movements {
		amount := math.Abs(m.Monto)
		if amount <= mean+sigmaMultiple*sigma {
			continue
		}
		riesgo := RiesgoAlto
		if amount > mean+criticalSigmaMultiple*sigma {
			riesgo = RiesgoCritico
		}
		multiple := (amount - mean) / sigma
		out = append(out, newRegistro(TipoMontoInusual, riesgo, at, m.PolizaID, m.Cuenta, amount,
			fmt.Sprintf("%d", m.MovimientoID),
			fmt.Sprintf("movimiento de %.2f excede la media %.2f por %.1f desviaciones", amount, mean, multiple),
			map[string]any{
				"movimiento_id": m.MovimientoID,
				"media":         mean,
				"sigma":         sigma,
				"multiplo":      multiple,
			}))
	}
	return out
}

// detectDuplicatePatterns flags pairs of movements on the same account with
// the same absolute amount posted within the window.
func detectDuplicatePatterns(movements []MovementInput, windowDays float64, at time.Time) []Registro {
	type key struct {
		cuenta string
		monto  float64
	}
	groups := make(map[key][]MovementInput)
	for _, m := range movements {
		k := key{cuenta: m.Cuenta, monto: math.Abs(m.Monto)}
		groups[k] = append(groups[k], m)
	}

	var out []Registro
	for k, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Fecha.Before(group[j].Fecha) })
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				gap := group[j].Fecha.Sub(group[i].Fecha).Hours() / 24
				if gap > windowDays {
					break
				}
				out = append(out, newRegistro(TipoPatronDuplicado, RiesgoMedio, at, group[j].PolizaID, k.cuenta, k.monto,
					fmt.Sprintf("%d|%d", group[i].MovimientoID, group[j].MovimientoID),
					fmt.Sprintf("movimientos de %.2f en la cuenta %s con %.0f dias de diferencia", k.monto, k.cuenta, gap),
					map[string]any{
						"movimiento_a": group[i].MovimientoID,
						"movimiento_b": group[j].MovimientoID,
						"dias":         gap,
					}))
			}
		}
	}
	return out
}

// detectUnusualTiming flags entries dated on weekends or outside working
// hours. Entries dated at midnight carry no capture time and are skipped
// from the hour check.
func detectUnusualTiming(entries []EntryInput, at time.Time) []Registro {
	var out []Registro
	for _, e := range entries {
		weekday := e.Fecha.Weekday()
		weekend := weekday == time.Sunday || weekday == time.Saturday
		hour := e.Fecha.Hour()
		hasTime := hour != 0 || e.Fecha.Minute() != 0 || e.Fecha.Second() != 0
		offHours := hasTime && (hour < workdayStartHour || hour >= workdayEndHour)
		if !weekend && !offHours {
			continue
		}
		reason := "fin de semana"
		if !weekend {
			reason = fmt.Sprintf("fuera de horario (%02d:00)", hour)
		}
		id := e.PolizaID
		out = append(out, Registro{
			ID:           uuid.New(),
			Tipo:         TipoHorarioInusual,
			Riesgo:       RiesgoMedio,
			Estado:       EstadoDetectada,
			Descripcion:  fmt.Sprintf("poliza registrada en %s: %s", reason, e.Fecha.Format(time.RFC3339)),
			Evidencia:    map[string]any{"fecha": e.Fecha, "motivo": reason},
			EvidenceHash: evidenceHash(TipoHorarioInusual, id, "", 0, e.Fecha.Format(time.RFC3339)),
			PolizaID:     &id,
			DetectedAt:   at,
		})
	}
	return out
}

// detectRoundAmounts flags large movements that are exact multiples of the
// round step.
func detectRoundAmounts(movements []MovementInput, floor float64, at time.Time) []Registro {
	var out []Registro
	for _, m := range movements {
		amount := math.Abs(m.Monto)
		if amount < floor {
			continue
		}
		if math.Mod(amount, roundAmountStep) != 0 {
			continue
		}
		out = append(out, newRegistro(TipoMontoRedondo, RiesgoBajo, at, m.PolizaID, m.Cuenta, amount,
			fmt.Sprintf("%d", m.MovimientoID),
			fmt.Sprintf("monto redondo de %.2f en la cuenta %s", amount, m.Cuenta),
			map[string]any{"movimiento_id": m.MovimientoID}))
	}
	return out
}

// detectBudgetDeviation flags entries whose executed amount exceeds the
// approved amount beyond the threshold percent.
func detectBudgetDeviation(entries []EntryInput, percent float64, at time.Time) []Registro {
	var out []Registro
	for _, e := range entries {
		if e.MontoAprobado == nil || e.MontoEjercido == nil || *e.MontoAprobado == 0 {
			continue
		}
		deviation := (*e.MontoEjercido - *e.MontoAprobado) / *e.MontoAprobado * 100
		if deviation <= percent {
			continue
		}
		riesgo := RiesgoAlto
		if deviation > criticalDeviationPercent {
			riesgo = RiesgoCritico
		}
		out = append(out, newRegistro(TipoDesviacion, riesgo, at, e.PolizaID, "", *e.MontoEjercido,
			"",
			fmt.Sprintf("ejercido %.2f excede lo aprobado %.2f en %.1f%%", *e.MontoEjercido, *e.MontoAprobado, deviation),
			map[string]any{"aprobado": *e.MontoAprobado, "ejercido": *e.MontoEjercido, "desviacion": deviation}))
	}
	return out
}

// detectVendorConcentration flags vendors holding an excessive share of the
// total movement value, computed over the movements that name a vendor.
func detectVendorConcentration(movements []MovementInput, sharePercent float64, at time.Time) []Registro {
	totals := make(map[string]float64)
	var grandTotal float64
	for _, m := range movements {
		if m.Proveedor == "" {
			continue
		}
		amount := math.Abs(m.Monto)
		totals[m.Proveedor] += amount
		grandTotal += amount
	}
	if grandTotal == 0 {
		return nil
	}

	vendors := make([]string, 0, len(totals))
	for vendor := range totals {
		vendors = append(vendors, vendor)
	}
	sort.Strings(vendors)

	var out []Registro
	for _, vendor := range vendors {
		share := totals[vendor] / grandTotal * 100
		if share <= sharePercent {
			continue
		}
		riesgo := RiesgoAlto
		if share > criticalConcentrationShare {
			riesgo = RiesgoCritico
		}
		out = append(out, Registro{
			ID:           uuid.New(),
			Tipo:         TipoProveedorConcent,
			Riesgo:       riesgo,
			Estado:       EstadoDetectada,
			Descripcion:  fmt.Sprintf("proveedor %s concentra %.1f%% del importe total", vendor, share),
			Evidencia:    map[string]any{"proveedor": vendor, "participacion": share, "importe": totals[vendor]},
			EvidenceHash: evidenceHash(TipoProveedorConcent, 0, vendor, totals[vendor], ""),
			Monto:        totals[vendor],
			DetectedAt:   at,
		})
	}
	return out
}

func newRegistro(tipo Tipo, riesgo Riesgo, at time.Time, polizaID int64, cuenta string, monto float64, extra, descripcion string, evidencia map[string]any) Registro {
	id := polizaID
	return Registro{
		ID:           uuid.New(),
		Tipo:         tipo,
		Riesgo:       riesgo,
		Estado:       EstadoDetectada,
		Descripcion:  descripcion,
		Evidencia:    evidencia,
		EvidenceHash: evidenceHash(tipo, polizaID, cuenta, monto, extra),
		Monto:        monto,
		Cuenta:       cuenta,
		PolizaID:     &id,
		DetectedAt:   at,
	}
}

// evidenceHash gives repeated scans over the same corpus a stable identity
// so persistence can deduplicate findings.
func evidenceHash(tipo Tipo, polizaID int64, cuenta string, monto float64, extra string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s|%.2f|%s", tipo, polizaID, cuenta, monto, extra)))
	return hex.EncodeToString(sum[:])
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStd is the population standard deviation; the corpus is the
// whole population of the period, not a sample.
func populationStd(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
