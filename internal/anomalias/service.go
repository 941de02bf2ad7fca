package anomalias

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haciendadigital/sicam/internal/shared"
)

// AuditPort records review actions on detections.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes the scan entry point and the review workflow.
type Service struct {
	repo     Repository
	detector *Detector
	audit    AuditPort
	now      func() time.Time
}

func NewService(repo Repository, detector *Detector, audit AuditPort) *Service {
	return &Service{repo: repo, detector: detector, audit: audit, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Scan runs the detector over the supplied corpus and persists new findings.
// Returns how many were detected in total and the subset that was new.
func (s *Service) Scan(ctx context.Context, scope shared.Scope, entries []EntryInput, movements []MovementInput, rules []Rule) (int, []Registro, error) {
	if err := scope.Validate(false); err != nil {
		return 0, nil, err
	}
	registros := s.detector.Detect(entries, movements, rules)
	if len(registros) == 0 {
		return 0, nil, nil
	}
	inserted, err := s.repo.InsertDetections(ctx, scope, registros)
	if err != nil {
		return 0, nil, err
	}
	return len(registros), inserted, nil
}

func (s *Service) List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Registro, error) {
	if err := scope.Validate(false); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Registro, error) {
	return s.repo.Get(ctx, id)
}

// Review moves a detection through the workflow. Notes are appended context
// for the reviewer's decision; they are required when discarding.
func (s *Service) Review(ctx context.Context, actorID int64, id uuid.UUID, target Estado, notas string) (*Registro, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateReviewTransition(current.Estado, target); err != nil {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransicionInvalida, current.Estado, target)
	}
	if target == EstadoDescartada && notas == "" {
		return nil, fmt.Errorf("%w: descartar requiere notas", shared.ErrValidation)
	}
	updated, err := s.repo.UpdateReview(ctx, id, target, notas)
	if err != nil {
		return nil, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "anomalia.revisar",
		Entity:   "anomalia",
		EntityID: id.String(),
		Meta:     map[string]any{"de": current.Estado, "a": target},
		At:       s.now(),
	})
	return updated, nil
}
