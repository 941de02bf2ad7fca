package libro

import (
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
	r.Get("/diario", h.Diario)
	r.Get("/mayor", h.Mayor)
	r.Get("/balanza", h.Balanza)
}

func scopeFromQuery(r *http.Request) shared.Scope {
	q := r.URL.Query()
	ente, _ := strconv.ParseInt(q.Get("ente"), 10, 64)
	fy, _ := strconv.ParseInt(q.Get("ejercicio"), 10, 64)
	period, _ := strconv.ParseInt(q.Get("periodo"), 10, 64)
	return shared.Scope{EnteID: ente, FiscalYearID: fy, PeriodID: period}
}

func (h *Handler) Diario(w http.ResponseWriter, r *http.Request) {
	projection, err := h.service.Diario(r.Context(), scopeFromQuery(r))
	if err != nil {
		h.logError("diario", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, projection)
}

func (h *Handler) Mayor(w http.ResponseWriter, r *http.Request) {
	projection, err := h.service.Mayor(r.Context(), scopeFromQuery(r))
	if err != nil {
		h.logError("mayor", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, projection)
}

func (h *Handler) Balanza(w http.ResponseWriter, r *http.Request) {
	projection, err := h.service.Balanza(r.Context(), scopeFromQuery(r))
	if err != nil {
		h.logError("balanza", err)
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("formato") == "vista" {
		httpx.JSON(w, http.StatusOK, NewBalanzaViewModel(projection))
		return
	}
	httpx.JSON(w, http.StatusOK, projection)
}

func (h *Handler) logError(view string, err error) {
	h.logger.Error("build projection", slog.String("view", view), slog.Any("error", err))
}
