package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haciendadigital/sicam/internal/anomalias"
	jobmetrics "github.com/haciendadigital/sicam/internal/jobs"
	"github.com/haciendadigital/sicam/internal/shared"
)

// AnomalyScanJob sweeps the approved polizas of each scoped ente through the
// detection heuristics and persists the findings.
type AnomalyScanJob struct {
	Pool    *pgxpool.Pool
	Service *anomalias.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAnomalyScanJob initialises the anomaly scan handler.
func NewAnomalyScanJob(pool *pgxpool.Pool, service *anomalias.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnomalyScanJob {
	return &AnomalyScanJob{
		Pool:    pool,
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one detection sweep.
func (j *AnomalyScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil || j.Service == nil {
		return errors.New("anomaly scan: handler not configured")
	}
	var payload AnomalyScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 90
	}

	tracker := j.metrics().Track(TaskAnomalyScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	logger := j.logger().With(
		slog.Int64("ente_id", payload.EnteID),
		slog.Int64("fiscal_year_id", payload.FiscalYearID),
		slog.Int("window_days", payload.WindowDays),
	)
	logger.Info("starting anomaly scan")

	scopes, err := j.resolveScopes(ctx, payload, start)
	if err != nil {
		resultErr = err
		logger.Error("resolve scopes", slog.Any("error", err))
		return resultErr
	}

	rules := j.rules(ctx, payload)
	since := start.AddDate(0, 0, -payload.WindowDays)

	totalDetected := 0
	totalInserted := 0
	for _, scope := range scopes {
		entries, movements, err := j.loadCorpus(ctx, scope, since)
		if err != nil {
			resultErr = err
			logger.Error("load corpus", slog.Int64("ente", scope.EnteID), slog.Any("error", err))
			return resultErr
		}
		detected, inserted, err := j.Service.Scan(ctx, scope, entries, movements, rules)
		if err != nil {
			resultErr = err
			logger.Error("scan ente", slog.Int64("ente", scope.EnteID), slog.Any("error", err))
			return resultErr
		}
		totalDetected += detected
		totalInserted += len(inserted)
		byRisk := make(map[string]int)
		for _, reg := range inserted {
			byRisk[string(reg.Riesgo)]++
		}
		for riesgo, count := range byRisk {
			j.metrics().AddAnomalies(riesgo, scope.EnteID, count)
		}
		if len(inserted) > 0 {
			logger.Warn("anomalies detected",
				slog.Int64("ente", scope.EnteID),
				slog.Int("new", len(inserted)),
			)
		}
	}

	logger.Info("completed anomaly scan",
		slog.Int("scopes", len(scopes)),
		slog.Int("detected", totalDetected),
		slog.Int("inserted", totalInserted),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

// resolveScopes expands the payload into (ente, ejercicio) pairs. Fiscal
// years are per ente, so a zero FiscalYearID selects every ente's fiscal
// year matching the current calendar year.
func (j *AnomalyScanJob) resolveScopes(ctx context.Context, payload AnomalyScanPayload, now time.Time) ([]shared.Scope, error) {
	if payload.EnteID != 0 && payload.FiscalYearID != 0 {
		return []shared.Scope{{EnteID: payload.EnteID, FiscalYearID: payload.FiscalYearID}}, nil
	}

	query := `SELECT id, ente_id FROM fiscal_years WHERE year = $1`
	args := []any{now.Year()}
	if payload.FiscalYearID != 0 {
		query = `SELECT id, ente_id FROM fiscal_years WHERE id = $1`
		args = []any{payload.FiscalYearID}
	} else if payload.EnteID != 0 {
		query += ` AND ente_id = $2`
		args = append(args, payload.EnteID)
	}
	query += ` ORDER BY ente_id`

	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("anomaly scan: list scopes: %w", err)
	}
	defer rows.Close()

	var scopes []shared.Scope
	for rows.Next() {
		var fiscalYearID, enteID int64
		if err := rows.Scan(&fiscalYearID, &enteID); err != nil {
			return nil, err
		}
		scopes = append(scopes, shared.Scope{EnteID: enteID, FiscalYearID: fiscalYearID})
	}
	return scopes, rows.Err()
}

// rules loads active detection rules; the payload's sigma override wins for
// the unusual-amount heuristic. Missing rules fall back to defaults.
func (j *AnomalyScanJob) rules(ctx context.Context, payload AnomalyScanPayload) []anomalias.Rule {
	var rules []anomalias.Rule
	rows, err := j.Pool.Query(ctx, `SELECT tipo, umbral FROM anomaly_rules WHERE activo`)
	if err != nil {
		j.logger().Warn("anomaly scan: load rules failed, using defaults", "error", err)
	} else {
		defer rows.Close()
		for rows.Next() {
			var rule anomalias.Rule
			if err := rows.Scan(&rule.Tipo, &rule.Umbral); err == nil {
				rules = append(rules, rule)
			}
		}
		if err := rows.Err(); err != nil {
			j.logger().Warn("anomaly scan: reading rules failed, using defaults", "error", err)
		}
	}
	if payload.SigmaK > 0 {
		rules = append(rules, anomalias.Rule{Tipo: anomalias.TipoMontoInusual, Umbral: payload.SigmaK})
	}
	return rules
}

func (j *AnomalyScanJob) loadCorpus(ctx context.Context, scope shared.Scope, since time.Time) ([]anomalias.EntryInput, []anomalias.MovementInput, error) {
	entryRows, err := j.Pool.Query(ctx, `SELECT id, fecha, monto_aprobado, monto_ejercido FROM polizas
WHERE ente_id = $1 AND fiscal_year_id = $2 AND estado = 'APROBADA' AND fecha >= $3
ORDER BY fecha, sequence_number`, scope.EnteID, scope.FiscalYearID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("anomaly scan: load polizas: %w", err)
	}
	defer entryRows.Close()

	var entries []anomalias.EntryInput
	for entryRows.Next() {
		var e anomalias.EntryInput
		if err := entryRows.Scan(&e.PolizaID, &e.Fecha, &e.MontoAprobado, &e.MontoEjercido); err != nil {
			return nil, nil, err
		}
		entries = append(entries, e)
	}
	if err := entryRows.Err(); err != nil {
		return nil, nil, err
	}

	moveRows, err := j.Pool.Query(ctx, `SELECT m.id, m.poliza_id, c.code, p.fecha,
	(m.debe - m.haber)::double precision, COALESCE(m.beneficiario, '')
FROM movimientos m
JOIN polizas p ON p.id = m.poliza_id
JOIN accounts c ON c.id = m.cuenta_id
WHERE p.ente_id = $1 AND p.fiscal_year_id = $2 AND p.estado = 'APROBADA' AND p.fecha >= $3
ORDER BY p.fecha, p.sequence_number, m.id`, scope.EnteID, scope.FiscalYearID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("anomaly scan: load movimientos: %w", err)
	}
	defer moveRows.Close()

	var movements []anomalias.MovementInput
	for moveRows.Next() {
		var m anomalias.MovementInput
		if err := moveRows.Scan(&m.MovimientoID, &m.PolizaID, &m.Cuenta, &m.Fecha, &m.Monto, &m.Proveedor); err != nil {
			return nil, nil, err
		}
		movements = append(movements, m)
	}
	return entries, movements, moveRows.Err()
}

func (j *AnomalyScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnomalyScan))
	}
	return slog.Default().With(slog.String("job", TaskAnomalyScan))
}

func (j *AnomalyScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *AnomalyScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
