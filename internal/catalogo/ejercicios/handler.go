package ejercicios

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/haciendadigital/sicam/internal/platform/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ListFiscalYears)
	r.Get("/{id}/periodos", h.ListPeriods)
	r.Post("/periodos/{id}/cerrar", h.ClosePeriod)
}

func (h *Handler) ListFiscalYears(w http.ResponseWriter, r *http.Request) {
	enteID, _ := strconv.ParseInt(r.URL.Query().Get("ente"), 10, 64)
	years, err := h.service.ListFiscalYears(r.Context(), enteID)
	if err != nil {
		h.logger.Error("list fiscal years", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, years)
}

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	fyID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	periods, err := h.service.ListPeriods(r.Context(), fyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, periods)
}

type closeRequest struct {
	ActorID int64 `json:"actor_id"`
}

func (h *Handler) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req closeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Cuerpo invalido", err.Error())
		return
	}
	period, err := h.service.ClosePeriod(r.Context(), id, req.ActorID)
	if err != nil {
		if errors.Is(err, ErrInvalidPeriodTransition) {
			httpx.Problem(w, http.StatusConflict, "Transicion invalida", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}
