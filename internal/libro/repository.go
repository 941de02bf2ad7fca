package libro

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haciendadigital/sicam/internal/shared"
)

// Repository reads the approved movement corpus the projections fold over.
type Repository interface {
	PeriodNumber(ctx context.Context, periodID int64) (int, error)
	ListEntries(ctx context.Context, scope shared.Scope) ([]Entry, error)
	ListLines(ctx context.Context, scope shared.Scope) ([]Line, error)
	OpeningBalances(ctx context.Context, scope shared.Scope, periodNumber int) ([]BalanzaRow, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) PeriodNumber(ctx context.Context, periodID int64) (int, error) {
	var number int
	err := r.db.QueryRow(ctx, `SELECT number FROM periods WHERE id=$1`, periodID).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: periodo %d", shared.ErrNotFound, periodID)
		}
		return 0, err
	}
	return number, nil
}

const lineSelect = `SELECT m.poliza_id, p.sequence_number, p.fecha, m.cuenta_id, c.code, c.name, c.nature, m.concepto,
m.debe::double precision, m.haber::double precision
FROM movimientos m
JOIN polizas p ON p.id = m.poliza_id
JOIN accounts c ON c.id = m.cuenta_id
WHERE p.ente_id=$1 AND p.fiscal_year_id=$2 AND p.period_id=$3 AND p.estado='APROBADA'
ORDER BY p.fecha, p.sequence_number, m.id`

func (r *repository) ListLines(ctx context.Context, scope shared.Scope) ([]Line, error) {
	rows, err := r.db.Query(ctx, lineSelect, scope.EnteID, scope.FiscalYearID, scope.PeriodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.PolizaID, &l.SequenceNumber, &l.Fecha, &l.CuentaID, &l.CuentaCode, &l.CuentaName,
			&l.Nature, &l.Concepto, &l.Debe, &l.Haber); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) ListEntries(ctx context.Context, scope shared.Scope) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tipo, sequence_number, fecha, descripcion
FROM polizas WHERE ente_id=$1 AND fiscal_year_id=$2 AND period_id=$3 AND estado='APROBADA'
ORDER BY fecha, sequence_number`, scope.EnteID, scope.FiscalYearID, scope.PeriodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	index := make(map[int64]int)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PolizaID, &e.Tipo, &e.SequenceNumber, &e.Fecha, &e.Descripcion); err != nil {
			return nil, err
		}
		index[e.PolizaID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.ListLines(ctx, scope)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if idx, ok := index[line.PolizaID]; ok {
			entries[idx].Lines = append(entries[idx].Lines, line)
		}
	}
	return entries, nil
}

// OpeningBalances folds approved movements of the earlier periods of the
// same fiscal year, then overlays the current period's debit/credit sums.
// Accounts with an opening but no period activity still get a row.
func (r *repository) OpeningBalances(ctx context.Context, scope shared.Scope, periodNumber int) ([]BalanzaRow, error) {
	rows, err := r.db.Query(ctx, `SELECT c.id, c.code, c.name, c.nature,
COALESCE(SUM(CASE WHEN pe.number < $3 THEN CASE WHEN c.nature='ACREEDORA' THEN m.haber - m.debe ELSE m.debe - m.haber END END), 0)::double precision AS opening,
COALESCE(SUM(CASE WHEN pe.number = $3 THEN m.debe END), 0)::double precision AS period_debe,
COALESCE(SUM(CASE WHEN pe.number = $3 THEN m.haber END), 0)::double precision AS period_haber
FROM movimientos m
JOIN polizas p ON p.id = m.poliza_id
JOIN periods pe ON pe.id = p.period_id
JOIN accounts c ON c.id = m.cuenta_id
WHERE p.ente_id=$1 AND p.fiscal_year_id=$2 AND p.estado='APROBADA' AND pe.number <= $3
GROUP BY c.id, c.code, c.name, c.nature
ORDER BY c.code`, scope.EnteID, scope.FiscalYearID, periodNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BalanzaRow
	for rows.Next() {
		var row BalanzaRow
		if err := rows.Scan(&row.CuentaID, &row.CuentaCode, &row.CuentaName, &row.Nature,
			&row.Opening, &row.Debe, &row.Haber); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
