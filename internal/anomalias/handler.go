package anomalias

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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
	r.Get("/{id}", h.Get)
	r.Post("/{id}/revisar", h.Review)
}

type reviewRequest struct {
	ActorID int64  `json:"actor_id"`
	Estado  Estado `json:"estado"`
	Notas   string `json:"notas"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ente, _ := strconv.ParseInt(q.Get("ente"), 10, 64)
	fy, _ := strconv.ParseInt(q.Get("ejercicio"), 10, 64)
	scope := shared.Scope{EnteID: ente, FiscalYearID: fy}
	filter := ListFilter{
		Tipo:   Tipo(q.Get("tipo")),
		Riesgo: Riesgo(q.Get("riesgo")),
		Estado: Estado(q.Get("estado")),
	}
	registros, err := h.service.List(r.Context(), scope, filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if registros == nil {
		registros = []Registro{}
	}
	httpx.JSON(w, http.StatusOK, registros)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid identifier", "id must be a UUID")
		return
	}
	registro, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, registro)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid identifier", "id must be a UUID")
		return
	}
	var req reviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	registro, err := h.service.Review(r.Context(), req.ActorID, id, req.Estado, req.Notas)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, registro)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrTransicionInvalida) {
		httpx.Problem(w, http.StatusConflict, "Invalid review transition", err.Error())
		return
	}
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrValidation) {
		h.logger.Error("review anomaly", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
