package anomalias

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haciendadigital/sicam/internal/shared"
)

// Repository persists detections and drives the review workflow.
type Repository interface {
	InsertDetections(ctx context.Context, scope shared.Scope, registros []Registro) ([]Registro, error)
	List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Registro, error)
	Get(ctx context.Context, id uuid.UUID) (*Registro, error)
	UpdateReview(ctx context.Context, id uuid.UUID, estado Estado, notas string) (*Registro, error)
}

// ListFilter narrows List results; zero values mean no filter.
type ListFilter struct {
	Tipo   Tipo
	Riesgo Riesgo
	Estado Estado
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const anomalyColumns = `id, tipo, riesgo, estado, descripcion, evidencia, evidence_hash,
	monto, cuenta, poliza_id, notas, detected_at, updated_at`

// InsertDetections stores a scan's findings. The evidence hash deduplicates:
// a finding already on file is silently skipped, so rerunning a scan over an
// unchanged corpus inserts nothing. Returns the rows that were actually new.
func (r *pgRepository) InsertDetections(ctx context.Context, scope shared.Scope, registros []Registro) ([]Registro, error) {
	if len(registros) == 0 {
		return nil, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("anomalias: begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	var inserted []Registro
	for _, reg := range registros {
		evidencia, err := json.Marshal(reg.Evidencia)
		if err != nil {
			return nil, fmt.Errorf("anomalias: marshal evidencia: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO anomalias (id, ente_id, fiscal_year_id, tipo, riesgo, estado,
				descripcion, evidencia, evidence_hash, monto, cuenta, poliza_id, detected_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, $13)
			ON CONFLICT (evidence_hash) DO NOTHING`,
			reg.ID, scope.EnteID, scope.FiscalYearID, reg.Tipo, reg.Riesgo, reg.Estado,
			reg.Descripcion, evidencia, reg.EvidenceHash, reg.Monto, reg.Cuenta, reg.PolizaID, reg.DetectedAt)
		if err != nil {
			return nil, fmt.Errorf("anomalias: insert deteccion: %w", err)
		}
		if tag.RowsAffected() > 0 {
			inserted = append(inserted, reg)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("anomalias: commit insert: %w", err)
	}
	return inserted, nil
}

func (r *pgRepository) List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Registro, error) {
	query := `SELECT ` + anomalyColumns + ` FROM anomalias
		WHERE ente_id = $1 AND fiscal_year_id = $2`
	args := []any{scope.EnteID, scope.FiscalYearID}
	if filter.Tipo != "" {
		args = append(args, filter.Tipo)
		query += fmt.Sprintf(" AND tipo = $%d", len(args))
	}
	if filter.Riesgo != "" {
		args = append(args, filter.Riesgo)
		query += fmt.Sprintf(" AND riesgo = $%d", len(args))
	}
	if filter.Estado != "" {
		args = append(args, filter.Estado)
		query += fmt.Sprintf(" AND estado = $%d", len(args))
	}
	query += ` ORDER BY detected_at DESC, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("anomalias: list: %w", err)
	}
	defer rows.Close()

	var out []Registro
	for rows.Next() {
		reg, err := scanRegistro(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *reg)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id uuid.UUID) (*Registro, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+anomalyColumns+` FROM anomalias WHERE id = $1`, id)
	reg, err := scanRegistro(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("anomalias %s: %w", id, shared.ErrNotFound)
	}
	return reg, err
}

// UpdateReview applies an already-validated state change.
func (r *pgRepository) UpdateReview(ctx context.Context, id uuid.UUID, estado Estado, notas string) (*Registro, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE anomalias
		SET estado = $2, notas = COALESCE(NULLIF($3, ''), notas), updated_at = now()
		WHERE id = $1
		RETURNING `+anomalyColumns, id, estado, notas)
	reg, err := scanRegistro(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("anomalias %s: %w", id, shared.ErrNotFound)
	}
	return reg, err
}

func scanRegistro(row pgx.Row) (*Registro, error) {
	var (
		reg       Registro
		evidencia []byte
		cuenta    *string
		notas     *string
	)
	err := row.Scan(&reg.ID, &reg.Tipo, &reg.Riesgo, &reg.Estado, &reg.Descripcion,
		&evidencia, &reg.EvidenceHash, &reg.Monto, &cuenta, &reg.PolizaID,
		&notas, &reg.DetectedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(evidencia) > 0 {
		if err := json.Unmarshal(evidencia, &reg.Evidencia); err != nil {
			return nil, fmt.Errorf("anomalias: unmarshal evidencia: %w", err)
		}
	}
	if cuenta != nil {
		reg.Cuenta = *cuenta
	}
	if notas != nil {
		reg.Notas = *notas
	}
	return &reg, nil
}
