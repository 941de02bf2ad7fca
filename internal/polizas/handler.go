package polizas

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/haciendadigital/sicam/internal/platform/httpx"
	"github.com/haciendadigital/sicam/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.CreateDraft)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.UpdateDraft)
	r.Post("/{id}/enviar", h.Submit)
	r.Post("/{id}/aprobar", h.Approve)
	r.Post("/{id}/regresar", h.ReturnToDraft)
	r.Post("/{id}/cancelar", h.Cancel)
}

func scopeFromQuery(r *http.Request) shared.Scope {
	q := r.URL.Query()
	ente, _ := strconv.ParseInt(q.Get("ente"), 10, 64)
	fy, _ := strconv.ParseInt(q.Get("ejercicio"), 10, 64)
	period, _ := strconv.ParseInt(q.Get("periodo"), 10, 64)
	return shared.Scope{EnteID: ente, FiscalYearID: fy, PeriodID: period}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Tipo:   Tipo(r.URL.Query().Get("tipo")),
		Estado: Estado(r.URL.Query().Get("estado")),
	}
	polizas, err := h.service.List(r.Context(), scopeFromQuery(r), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, polizas)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	poliza, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, poliza)
}

func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Cuerpo invalido", err.Error())
		return
	}
	created, err := h.service.CreateDraft(r.Context(), scopeFromQuery(r), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req DraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Cuerpo invalido", err.Error())
		return
	}
	updated, err := h.service.UpdateDraft(r.Context(), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

type actorRequest struct {
	ActorID int64 `json:"actor_id"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(id, actor int64) (Poliza, error) {
		return h.service.Submit(r.Context(), id, actor)
	})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(id, actor int64) (Poliza, error) {
		return h.service.Approve(r.Context(), id, actor)
	})
}

func (h *Handler) ReturnToDraft(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(id, actor int64) (Poliza, error) {
		return h.service.ReturnToDraft(r.Context(), id, actor)
	})
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, fn func(id, actor int64) (Poliza, error)) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req actorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Cuerpo invalido", err.Error())
		return
	}
	poliza, err := fn(id, req.ActorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, poliza)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req CancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Cuerpo invalido", err.Error())
		return
	}
	cancelled, err := h.service.Cancel(r.Context(), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cancelled)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var descuadre *DescuadreError
	var transition *TransitionError
	switch {
	case errors.As(err, &descuadre):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Poliza descuadrada", descuadre.Error())
	case errors.As(err, &transition):
		httpx.Problem(w, http.StatusConflict, "Transicion invalida", transition.Error())
	case errors.Is(err, ErrPeriodoCerrado):
		httpx.Problem(w, http.StatusConflict, "Periodo cerrado", err.Error())
	case errors.Is(err, ErrCuentaNoDetalle):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Cuenta no es de detalle", err.Error())
	case errors.Is(err, ErrTooFewLines):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Movimientos insuficientes", err.Error())
	case errors.Is(err, ErrMotivoRequerido):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Motivo requerido", err.Error())
	default:
		if !errorsIsKnown(err) {
			h.logger.Error("polizas handler", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}

func errorsIsKnown(err error) bool {
	return errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrValidation) ||
		errors.Is(err, shared.ErrConcurrencyConflict)
}
