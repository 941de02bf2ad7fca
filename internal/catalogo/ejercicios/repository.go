package ejercicios

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haciendadigital/sicam/internal/shared"
)

type Repository interface {
	ListFiscalYears(ctx context.Context, enteID int64) ([]FiscalYear, error)
	GetFiscalYear(ctx context.Context, id int64) (FiscalYear, error)
	ListPeriods(ctx context.Context, fiscalYearID int64) ([]Period, error)
	GetPeriod(ctx context.Context, id int64) (Period, error)
	ClosePeriod(ctx context.Context, id, actorID int64) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListFiscalYears(ctx context.Context, enteID int64) ([]FiscalYear, error) {
	rows, err := r.db.Query(ctx, `SELECT id, ente_id, year, state, created_at, updated_at
FROM fiscal_years WHERE ente_id=$1 ORDER BY year DESC`, enteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []FiscalYear
	for rows.Next() {
		var fy FiscalYear
		if err := rows.Scan(&fy.ID, &fy.EnteID, &fy.Year, &fy.State, &fy.CreatedAt, &fy.UpdatedAt); err != nil {
			return nil, err
		}
		years = append(years, fy)
	}
	return years, rows.Err()
}

func (r *repository) GetFiscalYear(ctx context.Context, id int64) (FiscalYear, error) {
	var fy FiscalYear
	err := r.db.QueryRow(ctx, `SELECT id, ente_id, year, state, created_at, updated_at
FROM fiscal_years WHERE id=$1`, id).
		Scan(&fy.ID, &fy.EnteID, &fy.Year, &fy.State, &fy.CreatedAt, &fy.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, fmt.Errorf("%w: ejercicio %d", shared.ErrNotFound, id)
		}
		return FiscalYear{}, err
	}
	return fy, nil
}

func (r *repository) ListPeriods(ctx context.Context, fiscalYearID int64) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT id, fiscal_year_id, number, state, closed_at, closed_by, created_at, updated_at
FROM periods WHERE fiscal_year_id=$1 ORDER BY number`, fiscalYearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.FiscalYearID, &p.Number, &p.State, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *repository) GetPeriod(ctx context.Context, id int64) (Period, error) {
	var p Period
	err := r.db.QueryRow(ctx, `SELECT id, fiscal_year_id, number, state, closed_at, closed_by, created_at, updated_at
FROM periods WHERE id=$1`, id).
		Scan(&p.ID, &p.FiscalYearID, &p.Number, &p.State, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, fmt.Errorf("%w: periodo %d", shared.ErrNotFound, id)
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) ClosePeriod(ctx context.Context, id, actorID int64) (Period, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE periods SET state='CLOSED', closed_at=NOW(), closed_by=$2, updated_at=NOW()
WHERE id=$1 AND state='OPEN'`, id, actorID)
	if err != nil {
		return Period{}, err
	}
	if cmd.RowsAffected() == 0 {
		current, getErr := r.GetPeriod(ctx, id)
		if getErr != nil {
			return Period{}, getErr
		}
		if current.State != PeriodOpen {
			return Period{}, ErrInvalidPeriodTransition
		}
		return Period{}, shared.ErrConcurrencyConflict
	}
	return r.GetPeriod(ctx, id)
}
