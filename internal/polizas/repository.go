package polizas

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haciendadigital/sicam/internal/catalogo/ejercicios"
	"github.com/haciendadigital/sicam/internal/platform/db"
	"github.com/haciendadigital/sicam/internal/shared"
)

// Repository encapsulates DB operations for polizas. Lifecycle mutations run
// inside a transaction via WithTx.
type Repository interface {
	Get(ctx context.Context, id int64) (Poliza, error)
	List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Poliza, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	InsertPoliza(ctx context.Context, p Poliza) (Poliza, error)
	InsertMovimientos(ctx context.Context, polizaID int64, lines []Movimiento) error
	ReplaceMovimientos(ctx context.Context, polizaID int64, lines []Movimiento) error
	GetPolizaForUpdate(ctx context.Context, id int64) (Poliza, error)
	GetMovimientos(ctx context.Context, polizaID int64) ([]Movimiento, error)
	UpdateDraft(ctx context.Context, p Poliza) error
	MarkSubmitted(ctx context.Context, id, sequenceNumber int64, totalDebe, totalHaber float64) error
	MarkReturned(ctx context.Context, id int64) error
	MarkApproved(ctx context.Context, id, approverID int64) error
	MarkCancelled(ctx context.Context, id, actorID int64, reason string) error

	// NextSequence atomically increments and returns the per
	// (ente, ejercicio, tipo) counter.
	NextSequence(ctx context.Context, enteID, fiscalYearID int64, tipo Tipo) (int64, error)

	// Period and account gates needed within poliza transactions.
	GetPeriodForUpdate(ctx context.Context, periodID int64) (ejercicios.Period, error)
	GetPostableAccounts(ctx context.Context, ids []int64) (map[int64]bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const polizaColumns = `id, ente_id, fiscal_year_id, period_id, tipo, sequence_number, fecha, descripcion, estado,
total_debe, total_haber, monto_aprobado, monto_ejercido, created_by, approved_by, cancelled_by, cancel_reason, created_at, updated_at`

func scanPoliza(row pgx.Row) (Poliza, error) {
	var p Poliza
	err := row.Scan(&p.ID, &p.EnteID, &p.FiscalYearID, &p.PeriodID, &p.Tipo, &p.SequenceNumber, &p.Fecha,
		&p.Descripcion, &p.Estado, &p.TotalDebe, &p.TotalHaber, &p.MontoAprobado, &p.MontoEjercido,
		&p.CreatedBy, &p.ApprovedBy, &p.CancelledBy, &p.CancelReason, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) Get(ctx context.Context, id int64) (Poliza, error) {
	p, err := scanPoliza(r.db.QueryRow(ctx, `SELECT `+polizaColumns+` FROM polizas WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Poliza{}, fmt.Errorf("%w: poliza %d", shared.ErrNotFound, id)
		}
		return Poliza{}, err
	}
	lines, err := queryMovimientos(ctx, r.db, id)
	if err != nil {
		return Poliza{}, err
	}
	p.Lineas = lines
	return p, nil
}

func (r *repository) List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Poliza, error) {
	query := `SELECT ` + polizaColumns + ` FROM polizas WHERE ente_id=$1 AND fiscal_year_id=$2`
	args := []any{scope.EnteID, scope.FiscalYearID}
	if scope.PeriodID != 0 {
		args = append(args, scope.PeriodID)
		query += fmt.Sprintf(" AND period_id=$%d", len(args))
	}
	if filter.Tipo != "" {
		args = append(args, filter.Tipo)
		query += fmt.Sprintf(" AND tipo=$%d", len(args))
	}
	if filter.Estado != "" {
		args = append(args, filter.Estado)
		query += fmt.Sprintf(" AND estado=$%d", len(args))
	}
	query += ` ORDER BY fecha, sequence_number, id`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var polizas []Poliza
	for rows.Next() {
		p, err := scanPoliza(rows)
		if err != nil {
			return nil, err
		}
		polizas = append(polizas, p)
	}
	return polizas, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		if db.IsSerializationFailure(err) {
			return fmt.Errorf("%w: %v", shared.ErrConcurrencyConflict, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if db.IsSerializationFailure(err) {
			return fmt.Errorf("%w: %v", shared.ErrConcurrencyConflict, err)
		}
		return err
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryMovimientos(ctx context.Context, q querier, polizaID int64) ([]Movimiento, error) {
	rows, err := q.Query(ctx, `SELECT id, poliza_id, cuenta_id, concepto, COALESCE(beneficiario, ''), debe, haber, created_at, updated_at
FROM movimientos WHERE poliza_id=$1 ORDER BY id`, polizaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Movimiento
	for rows.Next() {
		var m Movimiento
		if err := rows.Scan(&m.ID, &m.PolizaID, &m.CuentaID, &m.Concepto, &m.Beneficiario, &m.Debe, &m.Haber, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, m)
	}
	return lines, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertPoliza(ctx context.Context, p Poliza) (Poliza, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO polizas (ente_id, fiscal_year_id, period_id, tipo, fecha, descripcion, estado, total_debe, total_haber, monto_aprobado, monto_ejercido, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id, created_at, updated_at`,
		p.EnteID, p.FiscalYearID, p.PeriodID, p.Tipo, p.Fecha, p.Descripcion, p.Estado, toNumeric(p.TotalDebe), toNumeric(p.TotalHaber), p.MontoAprobado, p.MontoEjercido, p.CreatedBy)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Poliza{}, err
	}
	return p, nil
}

func (r *txRepository) InsertMovimientos(ctx context.Context, polizaID int64, lines []Movimiento) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO movimientos (poliza_id, cuenta_id, concepto, beneficiario, debe, haber)
VALUES ($1,$2,$3,NULLIF($4,''),$5,$6)`, polizaID, line.CuentaID, line.Concepto, line.Beneficiario, toNumeric(line.Debe), toNumeric(line.Haber)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) ReplaceMovimientos(ctx context.Context, polizaID int64, lines []Movimiento) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM movimientos WHERE poliza_id=$1`, polizaID); err != nil {
		return err
	}
	return r.InsertMovimientos(ctx, polizaID, lines)
}

func (r *txRepository) GetPolizaForUpdate(ctx context.Context, id int64) (Poliza, error) {
	p, err := scanPoliza(r.tx.QueryRow(ctx, `SELECT `+polizaColumns+` FROM polizas WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Poliza{}, fmt.Errorf("%w: poliza %d", shared.ErrNotFound, id)
		}
		return Poliza{}, err
	}
	return p, nil
}

func (r *txRepository) GetMovimientos(ctx context.Context, polizaID int64) ([]Movimiento, error) {
	return queryMovimientos(ctx, r.tx, polizaID)
}

func (r *txRepository) UpdateDraft(ctx context.Context, p Poliza) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE polizas SET tipo=$2, fecha=$3, descripcion=$4, total_debe=$5, total_haber=$6, monto_aprobado=$7, monto_ejercido=$8, updated_at=NOW()
WHERE id=$1 AND estado='BORRADOR'`, p.ID, p.Tipo, p.Fecha, p.Descripcion, toNumeric(p.TotalDebe), toNumeric(p.TotalHaber), p.MontoAprobado, p.MontoEjercido)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: poliza %d", shared.ErrNotFound, p.ID)
	}
	return nil
}

func (r *txRepository) MarkSubmitted(ctx context.Context, id, sequenceNumber int64, totalDebe, totalHaber float64) error {
	return r.setEstado(ctx, `UPDATE polizas SET estado='PENDIENTE', sequence_number=$2, total_debe=$3, total_haber=$4, updated_at=NOW() WHERE id=$1`,
		id, sequenceNumber, toNumeric(totalDebe), toNumeric(totalHaber))
}

func (r *txRepository) MarkReturned(ctx context.Context, id int64) error {
	return r.setEstado(ctx, `UPDATE polizas SET estado='BORRADOR', updated_at=NOW() WHERE id=$1`, id)
}

func (r *txRepository) MarkApproved(ctx context.Context, id, approverID int64) error {
	return r.setEstado(ctx, `UPDATE polizas SET estado='APROBADA', approved_by=$2, updated_at=NOW() WHERE id=$1`, id, approverID)
}

func (r *txRepository) MarkCancelled(ctx context.Context, id, actorID int64, reason string) error {
	return r.setEstado(ctx, `UPDATE polizas SET estado='CANCELADA', cancelled_by=$2, cancel_reason=NULLIF($3,''), updated_at=NOW() WHERE id=$1`, id, actorID, reason)
}

func (r *txRepository) setEstado(ctx context.Context, query string, args ...any) error {
	cmd, err := r.tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: poliza", shared.ErrNotFound)
	}
	return nil
}

// NextSequence relies on the upsert being atomic under the row lock the
// conflict clause takes, so two concurrent submits of the same scope can
// never observe the same number.
func (r *txRepository) NextSequence(ctx context.Context, enteID, fiscalYearID int64, tipo Tipo) (int64, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `INSERT INTO poliza_sequences (ente_id, fiscal_year_id, tipo, last_number)
VALUES ($1,$2,$3,1)
ON CONFLICT (ente_id, fiscal_year_id, tipo)
DO UPDATE SET last_number = poliza_sequences.last_number + 1
RETURNING last_number`, enteID, fiscalYearID, tipo).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, periodID int64) (ejercicios.Period, error) {
	var p ejercicios.Period
	err := r.tx.QueryRow(ctx, `SELECT id, fiscal_year_id, number, state, closed_at, closed_by, created_at, updated_at
FROM periods WHERE id=$1 FOR UPDATE`, periodID).
		Scan(&p.ID, &p.FiscalYearID, &p.Number, &p.State, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ejercicios.Period{}, fmt.Errorf("%w: periodo %d", shared.ErrNotFound, periodID)
		}
		return ejercicios.Period{}, err
	}
	return p, nil
}

func (r *txRepository) GetPostableAccounts(ctx context.Context, ids []int64) (map[int64]bool, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, (is_detail OR level >= 3) FROM accounts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	postable := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		var ok bool
		if err := rows.Scan(&id, &ok); err != nil {
			return nil, err
		}
		postable[id] = ok
	}
	return postable, rows.Err()
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
