package polizas

import (
	"context"
	"fmt"
	"time"

	"github.com/haciendadigital/sicam/internal/catalogo/ejercicios"
	"github.com/haciendadigital/sicam/internal/polizas/validation"
	"github.com/haciendadigital/sicam/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator bumps the ledger projection cache after a mutation that
// changes what the aggregator sees.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

type Service struct {
	repo  Repository
	audit AuditPort
	cache CacheInvalidator
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort, cache CacheInvalidator) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Get(ctx context.Context, id int64) (Poliza, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Poliza, error) {
	if err := scope.Validate(false); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope, filter)
}

// CreateDraft stores a new poliza in BORRADOR. The period must be open and
// every line must hit a detail account; balance is not required until submit.
// No sequence number is assigned here.
func (s *Service) CreateDraft(ctx context.Context, scope shared.Scope, req DraftRequest) (Poliza, error) {
	if err := scope.Validate(true); err != nil {
		return Poliza{}, err
	}
	if err := req.Validate(); err != nil {
		return Poliza{}, err
	}
	poliza := req.toPoliza(scope)
	var created Poliza
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, scope.PeriodID)
		if err != nil {
			return err
		}
		if res := validation.ValidatePeriodOpen(&period); !res.Valid {
			return fmt.Errorf("%w: %s", ErrPeriodoCerrado, res.Message)
		}
		if err := s.checkAccounts(ctx, tx, poliza.Lineas); err != nil {
			return err
		}
		inserted, err := tx.InsertPoliza(ctx, poliza)
		if err != nil {
			return err
		}
		if err := tx.InsertMovimientos(ctx, inserted.ID, poliza.Lineas); err != nil {
			return err
		}
		inserted.Lineas = poliza.Lineas
		created = inserted
		return nil
	})
	if err != nil {
		return Poliza{}, err
	}
	s.record(ctx, req.CreatedBy, "poliza.crear", created.ID, map[string]any{"tipo": created.Tipo})
	return created, nil
}

// UpdateDraft rewrites header and lines of a BORRADOR poliza. The same
// account and period gates apply; the recomputed totals are stored even
// when unbalanced, since balance is only enforced on submit.
func (s *Service) UpdateDraft(ctx context.Context, id int64, req DraftRequest) (Poliza, error) {
	if err := req.Validate(); err != nil {
		return Poliza{}, err
	}
	var updated Poliza
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPolizaForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Estado != EstadoBorrador {
			return &TransitionError{From: current.Estado, To: EstadoBorrador}
		}
		poliza := req.toPoliza(shared.Scope{EnteID: current.EnteID, FiscalYearID: current.FiscalYearID, PeriodID: current.PeriodID})
		poliza.ID = current.ID
		poliza.CreatedBy = current.CreatedBy
		if err := s.checkAccounts(ctx, tx, poliza.Lineas); err != nil {
			return err
		}
		if err := tx.UpdateDraft(ctx, poliza); err != nil {
			return err
		}
		if err := tx.ReplaceMovimientos(ctx, poliza.ID, poliza.Lineas); err != nil {
			return err
		}
		updated = poliza
		return nil
	})
	if err != nil {
		return Poliza{}, err
	}
	s.record(ctx, req.CreatedBy, "poliza.actualizar", updated.ID, nil)
	return updated, nil
}

// Submit moves BORRADOR -> PENDIENTE. Totals are recomputed from the stored
// lines; an imbalance at or beyond the tolerance aborts with the computed
// difference. The first submit assigns the definitive sequence number
// atomically within the same transaction.
func (s *Service) Submit(ctx context.Context, id, actorID int64) (Poliza, error) {
	var submitted Poliza
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPolizaForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Estado, EstadoPendiente) {
			return &TransitionError{From: current.Estado, To: EstadoPendiente}
		}
		period, err := tx.GetPeriodForUpdate(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if period.State != ejercicios.PeriodOpen {
			return fmt.Errorf("%w: periodo %d en estado %s", ErrPeriodoCerrado, period.Number, period.State)
		}
		lines, err := tx.GetMovimientos(ctx, id)
		if err != nil {
			return err
		}
		if len(lines) < 2 {
			return ErrTooFewLines
		}
		current.Lineas = lines
		current.RecomputeTotals()
		if res := balanceOf(lines); !res.Valid {
			return &DescuadreError{TotalDebe: res.TotalDebe, TotalHaber: res.TotalHaber}
		}
		if current.SequenceNumber == 0 {
			seq, err := tx.NextSequence(ctx, current.EnteID, current.FiscalYearID, current.Tipo)
			if err != nil {
				return err
			}
			current.SequenceNumber = seq
		}
		if err := tx.MarkSubmitted(ctx, id, current.SequenceNumber, current.TotalDebe, current.TotalHaber); err != nil {
			return err
		}
		current.Estado = EstadoPendiente
		submitted = current
		return nil
	})
	if err != nil {
		return Poliza{}, err
	}
	s.record(ctx, actorID, "poliza.enviar", submitted.ID, map[string]any{
		"referencia": FormatSequenceRef(submitted.Tipo, submitted.SequenceNumber),
	})
	return submitted, nil
}

// Approve moves PENDIENTE -> APROBADA. Lines become immutable and visible
// to the ledger aggregator; the projection cache version is bumped.
func (s *Service) Approve(ctx context.Context, id, approverID int64) (Poliza, error) {
	var approved Poliza
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPolizaForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Estado, EstadoAprobada) {
			return &TransitionError{From: current.Estado, To: EstadoAprobada}
		}
		if err := tx.MarkApproved(ctx, id, approverID); err != nil {
			return err
		}
		current.Estado = EstadoAprobada
		current.ApprovedBy = &approverID
		approved = current
		return nil
	})
	if err != nil {
		return Poliza{}, err
	}
	s.bumpCache(ctx)
	s.record(ctx, approverID, "poliza.aprobar", approved.ID, nil)
	return approved, nil
}

// ReturnToDraft moves PENDIENTE -> BORRADOR.
func (s *Service) ReturnToDraft(ctx context.Context, id, actorID int64) (Poliza, error) {
	var returned Poliza
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPolizaForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Estado != EstadoPendiente {
			return &TransitionError{From: current.Estado, To: EstadoBorrador}
		}
		if err := tx.MarkReturned(ctx, id); err != nil {
			return err
		}
		current.Estado = EstadoBorrador
		returned = current
		return nil
	})
	if err != nil {
		return Poliza{}, err
	}
	s.record(ctx, actorID, "poliza.regresar", returned.ID, nil)
	return returned, nil
}

// Cancel moves any non-terminal state to CANCELADA. Cancelling an approved
// poliza reverses posted balances, so it demands a reason and bumps the
// projection cache. Cancelada has no outgoing edges.
func (s *Service) Cancel(ctx context.Context, id int64, req CancelRequest) (Poliza, error) {
	var cancelled Poliza
	var wasApproved bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPolizaForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Estado, EstadoCancelada) {
			return &TransitionError{From: current.Estado, To: EstadoCancelada}
		}
		wasApproved = current.Estado == EstadoAprobada
		if wasApproved && req.Motivo == "" {
			return ErrMotivoRequerido
		}
		if err := tx.MarkCancelled(ctx, id, req.ActorID, req.Motivo); err != nil {
			return err
		}
		current.Estado = EstadoCancelada
		current.CancelledBy = &req.ActorID
		if req.Motivo != "" {
			motivo := req.Motivo
			current.CancelReason = &motivo
		}
		cancelled = current
		return nil
	})
	if err != nil {
		return Poliza{}, err
	}
	if wasApproved {
		s.bumpCache(ctx)
	}
	s.record(ctx, req.ActorID, "poliza.cancelar", cancelled.ID, map[string]any{"motivo": req.Motivo})
	return cancelled, nil
}

func (s *Service) checkAccounts(ctx context.Context, tx TxRepository, lines []Movimiento) error {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.CuentaID]; !ok {
			seen[line.CuentaID] = struct{}{}
			ids = append(ids, line.CuentaID)
		}
	}
	postable, err := tx.GetPostableAccounts(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		ok, found := postable[id]
		if !found {
			return fmt.Errorf("%w: cuenta %d", shared.ErrNotFound, id)
		}
		if !ok {
			return fmt.Errorf("%w: cuenta %d", ErrCuentaNoDetalle, id)
		}
	}
	return nil
}

func balanceOf(lines []Movimiento) validation.BalanceResult {
	vl := make([]validation.Line, 0, len(lines))
	for _, line := range lines {
		vl = append(vl, validation.Line{Debe: line.Debe, Haber: line.Haber})
	}
	return validation.ValidateBalance(vl)
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "poliza",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}
