package ejercicios

import (
	"context"
	"fmt"
	"time"

	"github.com/haciendadigital/sicam/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) ListFiscalYears(ctx context.Context, enteID int64) ([]FiscalYear, error) {
	return s.repo.ListFiscalYears(ctx, enteID)
}

func (s *Service) ListPeriods(ctx context.Context, fiscalYearID int64) ([]Period, error) {
	return s.repo.ListPeriods(ctx, fiscalYearID)
}

func (s *Service) GetPeriod(ctx context.Context, id int64) (Period, error) {
	return s.repo.GetPeriod(ctx, id)
}

// ClosePeriod transitions an open period to closed. The transition is
// irreversible through this engine.
func (s *Service) ClosePeriod(ctx context.Context, periodID, actorID int64) (Period, error) {
	period, err := s.repo.ClosePeriod(ctx, periodID, actorID)
	if err != nil {
		return Period{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "periodo.cerrar",
			Entity:   "period",
			EntityID: fmt.Sprintf("%d", period.ID),
			Meta:     map[string]any{"number": period.Number, "fiscal_year_id": period.FiscalYearID},
			At:       s.now(),
		})
	}
	return period, nil
}
