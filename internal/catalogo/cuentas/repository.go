package cuentas

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haciendadigital/sicam/internal/shared"
)

// ErrAccountReferenced signals an update attempt on an account already
// referenced by posted movements. Referenced accounts are immutable.
var ErrAccountReferenced = errors.New("cuentas: la cuenta tiene movimientos registrados")

type Repository interface {
	List(ctx context.Context, enteID int64) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	GetByCode(ctx context.Context, enteID int64, code string) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, ente_id, code, name, kind, nature, level, is_detail, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.EnteID, &a.Code, &a.Name, &a.Kind, &a.Nature, &a.Level, &a.IsDetail, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) List(ctx context.Context, enteID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE ente_id=$1 ORDER BY code`, enteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: cuenta %d", shared.ErrNotFound, id)
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) GetByCode(ctx context.Context, enteID int64, code string) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE ente_id=$1 AND code=$2`, enteID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: cuenta %s", shared.ErrNotFound, code)
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, account Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (ente_id, code, name, kind, nature, level, is_detail)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
		account.EnteID, account.Code, account.Name, account.Kind, account.Nature, account.Level, account.IsDetail)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return Account{}, err
	}
	return account, nil
}

// Update rewrites a catalog node. Accounts referenced by movement lines are
// immutable; the guard runs in the same statement to avoid a read-then-write
// window.
func (r *repository) Update(ctx context.Context, account Account) (Account, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET name=$2, kind=$3, nature=$4, level=$5, is_detail=$6, updated_at=NOW()
WHERE id=$1 AND NOT EXISTS (SELECT 1 FROM movimientos WHERE cuenta_id=$1)`,
		account.ID, account.Name, account.Kind, account.Nature, account.Level, account.IsDetail)
	if err != nil {
		return Account{}, err
	}
	if cmd.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, account.ID); getErr != nil {
			return Account{}, getErr
		}
		return Account{}, ErrAccountReferenced
	}
	return r.Get(ctx, account.ID)
}
