package polizas

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/haciendadigital/sicam/internal/catalogo/ejercicios"
	"github.com/haciendadigital/sicam/internal/shared"
)

type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	polizas  map[int64]Poliza
	lines    map[int64][]Movimiento
	periods  map[int64]ejercicios.Period
	accounts map[int64]bool
	seqs     map[string]int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		polizas:  make(map[int64]Poliza),
		lines:    make(map[int64][]Movimiento),
		periods:  make(map[int64]ejercicios.Period),
		accounts: make(map[int64]bool),
		seqs:     make(map[string]int64),
	}
}

func (r *memRepo) Get(ctx context.Context, id int64) (Poliza, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polizas[id]
	if !ok {
		return Poliza{}, shared.ErrNotFound
	}
	p.Lineas = append([]Movimiento(nil), r.lines[id]...)
	return p, nil
}

func (r *memRepo) List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Poliza, error) {
	return nil, nil
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memTx{repo: r})
}

type memTx struct {
	repo *memRepo
}

func (tx *memTx) InsertPoliza(ctx context.Context, p Poliza) (Poliza, error) {
	tx.repo.nextID++
	p.ID = tx.repo.nextID
	tx.repo.polizas[p.ID] = p
	return p, nil
}

func (tx *memTx) InsertMovimientos(ctx context.Context, polizaID int64, lines []Movimiento) error {
	tx.repo.lines[polizaID] = append([]Movimiento(nil), lines...)
	return nil
}

func (tx *memTx) ReplaceMovimientos(ctx context.Context, polizaID int64, lines []Movimiento) error {
	return tx.InsertMovimientos(ctx, polizaID, lines)
}

func (tx *memTx) GetPolizaForUpdate(ctx context.Context, id int64) (Poliza, error) {
	p, ok := tx.repo.polizas[id]
	if !ok {
		return Poliza{}, shared.ErrNotFound
	}
	return p, nil
}

func (tx *memTx) GetMovimientos(ctx context.Context, polizaID int64) ([]Movimiento, error) {
	return append([]Movimiento(nil), tx.repo.lines[polizaID]...), nil
}

func (tx *memTx) UpdateDraft(ctx context.Context, p Poliza) error {
	stored := tx.repo.polizas[p.ID]
	stored.Tipo, stored.Fecha, stored.Descripcion = p.Tipo, p.Fecha, p.Descripcion
	stored.TotalDebe, stored.TotalHaber = p.TotalDebe, p.TotalHaber
	tx.repo.polizas[p.ID] = stored
	return nil
}

func (tx *memTx) MarkSubmitted(ctx context.Context, id, seq int64, debe, haber float64) error {
	p := tx.repo.polizas[id]
	p.Estado, p.SequenceNumber, p.TotalDebe, p.TotalHaber = EstadoPendiente, seq, debe, haber
	tx.repo.polizas[id] = p
	return nil
}

func (tx *memTx) MarkReturned(ctx context.Context, id int64) error {
	p := tx.repo.polizas[id]
	p.Estado = EstadoBorrador
	tx.repo.polizas[id] = p
	return nil
}

func (tx *memTx) MarkApproved(ctx context.Context, id, approverID int64) error {
	p := tx.repo.polizas[id]
	p.Estado = EstadoAprobada
	p.ApprovedBy = &approverID
	tx.repo.polizas[id] = p
	return nil
}

func (tx *memTx) MarkCancelled(ctx context.Context, id, actorID int64, reason string) error {
	p := tx.repo.polizas[id]
	p.Estado = EstadoCancelada
	p.CancelledBy = &actorID
	if reason != "" {
		p.CancelReason = &reason
	}
	tx.repo.polizas[id] = p
	return nil
}

func (tx *memTx) NextSequence(ctx context.Context, enteID, fiscalYearID int64, tipo Tipo) (int64, error) {
	key := fmt.Sprintf("%d:%d:%s", enteID, fiscalYearID, tipo)
	tx.repo.seqs[key]++
	return tx.repo.seqs[key], nil
}

func (tx *memTx) GetPeriodForUpdate(ctx context.Context, periodID int64) (ejercicios.Period, error) {
	p, ok := tx.repo.periods[periodID]
	if !ok {
		return ejercicios.Period{}, shared.ErrNotFound
	}
	return p, nil
}

func (tx *memTx) GetPostableAccounts(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	for _, id := range ids {
		if postable, ok := tx.repo.accounts[id]; ok {
			out[id] = postable
		}
	}
	return out, nil
}

func testFixture() (*Service, *memRepo) {
	repo := newMemRepo()
	repo.periods[10] = ejercicios.Period{ID: 10, FiscalYearID: 2, Number: 4, State: ejercicios.PeriodOpen}
	repo.periods[11] = ejercicios.Period{ID: 11, FiscalYearID: 2, Number: 5, State: ejercicios.PeriodClosed}
	repo.accounts[100] = true
	repo.accounts[200] = true
	repo.accounts[300] = false
	return NewService(repo, nil, nil), repo
}

func balancedDraft() DraftRequest {
	return DraftRequest{
		Tipo:        "EGRESO",
		Fecha:       time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
		Descripcion: "pago de nomina",
		CreatedBy:   7,
		Lineas: []LineRequest{
			{CuentaID: 100, Concepto: "cargo", Debe: 500},
			{CuentaID: 200, Concepto: "abono", Haber: 500},
		},
	}
}

func openScope() shared.Scope {
	return shared.Scope{EnteID: 1, FiscalYearID: 2, PeriodID: 10}
}

func TestCreateDraftHappyPath(t *testing.T) {
	svc, _ := testFixture()
	created, err := svc.CreateDraft(context.Background(), openScope(), balancedDraft())
	require.NoError(t, err)
	require.Equal(t, EstadoBorrador, created.Estado)
	require.Zero(t, created.SequenceNumber)
	require.Len(t, created.Lineas, 2)
}

func TestCreateDraftRejectsClosedPeriod(t *testing.T) {
	svc, _ := testFixture()
	scope := shared.Scope{EnteID: 1, FiscalYearID: 2, PeriodID: 11}
	_, err := svc.CreateDraft(context.Background(), scope, balancedDraft())
	require.ErrorIs(t, err, ErrPeriodoCerrado)
}

func TestCreateDraftRejectsSummaryAccount(t *testing.T) {
	svc, _ := testFixture()
	req := balancedDraft()
	req.Lineas[0].CuentaID = 300
	_, err := svc.CreateDraft(context.Background(), openScope(), req)
	require.ErrorIs(t, err, ErrCuentaNoDetalle)
}

func TestCreateDraftRejectsSingleLine(t *testing.T) {
	svc, _ := testFixture()
	req := balancedDraft()
	req.Lineas = req.Lineas[:1]
	_, err := svc.CreateDraft(context.Background(), openScope(), req)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSubmitBalancedAssignsSequence(t *testing.T) {
	svc, _ := testFixture()
	ctx := context.Background()
	first, err := svc.CreateDraft(ctx, openScope(), balancedDraft())
	require.NoError(t, err)
	second, err := svc.CreateDraft(ctx, openScope(), balancedDraft())
	require.NoError(t, err)

	submitted, err := svc.Submit(ctx, first.ID, 7)
	require.NoError(t, err)
	require.Equal(t, EstadoPendiente, submitted.Estado)
	require.EqualValues(t, 1, submitted.SequenceNumber)

	submitted, err = svc.Submit(ctx, second.ID, 7)
	require.NoError(t, err)
	require.EqualValues(t, 2, submitted.SequenceNumber)
}

func TestSubmitRejectsUnbalanced(t *testing.T) {
	svc, _ := testFixture()
	ctx := context.Background()
	req := balancedDraft()
	req.Lineas[1].Haber = 499.98
	draft, err := svc.CreateDraft(ctx, openScope(), req)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, draft.ID, 7)
	var descuadre *DescuadreError
	require.ErrorAs(t, err, &descuadre)
	require.InDelta(t, 0.02, descuadre.Diferencia(), 0.001)

	current, err := svc.Get(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, EstadoBorrador, current.Estado)
	require.Zero(t, current.SequenceNumber)
}

func TestSubmitRejectsClosedPeriod(t *testing.T) {
	svc, repo := testFixture()
	ctx := context.Background()
	draft, err := svc.CreateDraft(ctx, openScope(), balancedDraft())
	require.NoError(t, err)

	period := repo.periods[10]
	period.State = ejercicios.PeriodClosed
	repo.periods[10] = period

	_, err = svc.Submit(ctx, draft.ID, 7)
	require.ErrorIs(t, err, ErrPeriodoCerrado)
}

func TestApproveFromDraftFails(t *testing.T) {
	svc, _ := testFixture()
	ctx := context.Background()
	draft, err := svc.CreateDraft(ctx, openScope(), balancedDraft())
	require.NoError(t, err)

	_, err = svc.Approve(ctx, draft.ID, 9)
	var transition *TransitionError
	require.ErrorAs(t, err, &transition)
	require.Equal(t, EstadoBorrador, transition.From)
}

func TestCancelFromCancelledFails(t *testing.T) {
	svc, _ := testFixture()
	ctx := context.Background()
	draft, err := svc.CreateDraft(ctx, openScope(), balancedDraft())
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, draft.ID, CancelRequest{ActorID: 7})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, draft.ID, CancelRequest{ActorID: 7})
	var transition *TransitionError
	require.ErrorAs(t, err, &transition)
	require.Equal(t, EstadoCancelada, transition.From)
}

func TestCancelApprovedRequiresReason(t *testing.T) {
	svc, _ := testFixture()
	ctx := context.Background()
	draft, err := svc.CreateDraft(ctx, openScope(), balancedDraft())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, draft.ID, 7)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, draft.ID, 9)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, draft.ID, CancelRequest{ActorID: 7})
	require.ErrorIs(t, err, ErrMotivoRequerido)

	cancelled, err := svc.Cancel(ctx, draft.ID, CancelRequest{ActorID: 7, Motivo: "captura duplicada"})
	require.NoError(t, err)
	require.Equal(t, EstadoCancelada, cancelled.Estado)
	require.NotNil(t, cancelled.CancelReason)
}

func TestReturnToDraftAllowsResubmitKeepingSequence(t *testing.T) {
	svc, _ := testFixture()
	ctx := context.Background()
	draft, err := svc.CreateDraft(ctx, openScope(), balancedDraft())
	require.NoError(t, err)
	submitted, err := svc.Submit(ctx, draft.ID, 7)
	require.NoError(t, err)
	seq := submitted.SequenceNumber

	_, err = svc.ReturnToDraft(ctx, draft.ID, 9)
	require.NoError(t, err)

	resubmitted, err := svc.Submit(ctx, draft.ID, 7)
	require.NoError(t, err)
	require.Equal(t, seq, resubmitted.SequenceNumber, "resubmit must not burn a new number")
}

func TestConcurrentSubmitsYieldPermutation(t *testing.T) {
	svc, _ := testFixture()
	ctx := context.Background()

	const n = 24
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		draft, err := svc.CreateDraft(ctx, openScope(), balancedDraft())
		require.NoError(t, err)
		ids = append(ids, draft.ID)
	}

	results := make([]int64, n)
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			submitted, err := svc.Submit(ctx, id, 7)
			if err != nil {
				return err
			}
			results[i] = submitted.SequenceNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, seq := range results {
		require.EqualValues(t, i+1, seq, "sequence numbers must be a gapless permutation")
	}
}

func TestSubmitUnknownPolizaIsNotFound(t *testing.T) {
	svc, _ := testFixture()
	_, err := svc.Submit(context.Background(), 999, 7)
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
