package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haciendadigital/sicam/internal/anomalias"
	"github.com/haciendadigital/sicam/internal/catalogo/cuentas"
	"github.com/haciendadigital/sicam/internal/catalogo/ejercicios"
	"github.com/haciendadigital/sicam/internal/libro"
	"github.com/haciendadigital/sicam/internal/polizas"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	CuentasHandler    *cuentas.Handler
	EjerciciosHandler *ejercicios.Handler
	PolizasHandler    *polizas.Handler
	LibroHandler      *libro.Handler
	AnomaliasHandler  *anomalias.Handler
}

// NewRouter constructs the chi.Router with SICAM defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/cuentas", params.CuentasHandler.MountRoutes)
		api.Route("/ejercicios", params.EjerciciosHandler.MountRoutes)
		api.Route("/polizas", params.PolizasHandler.MountRoutes)
		api.Route("/libro", params.LibroHandler.MountRoutes)
		api.Route("/anomalias", params.AnomaliasHandler.MountRoutes)
	})

	return r
}
