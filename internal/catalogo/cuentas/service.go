package cuentas

import (
	"context"
	"fmt"
	"strings"

	"github.com/haciendadigital/sicam/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, enteID int64) ([]Account, error) {
	return s.repo.List(ctx, enteID)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, enteID int64, code string) (Account, error) {
	return s.repo.GetByCode(ctx, enteID, code)
}

func (s *Service) Create(ctx context.Context, account Account) (Account, error) {
	if err := validateAccount(&account); err != nil {
		return Account{}, err
	}
	return s.repo.Create(ctx, account)
}

func (s *Service) Update(ctx context.Context, account Account) (Account, error) {
	if err := validateAccount(&account); err != nil {
		return Account{}, err
	}
	return s.repo.Update(ctx, account)
}

func validateAccount(account *Account) error {
	if account.EnteID == 0 {
		return fmt.Errorf("%w: ente requerido", shared.ErrValidation)
	}
	if account.Code == "" || account.Name == "" {
		return fmt.Errorf("%w: codigo y nombre requeridos", shared.ErrValidation)
	}
	switch account.Kind {
	case KindActivo, KindPasivo, KindHacienda, KindIngresos, KindGastos:
	default:
		return fmt.Errorf("%w: rubro desconocido %q", shared.ErrValidation, account.Kind)
	}
	if account.Level < 1 {
		account.Level = strings.Count(account.Code, ".") + 1
	}
	if account.Nature == "" {
		account.Nature = NatureForKind(account.Kind)
	}
	return nil
}
