package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haciendadigital/sicam/internal/anomalias"
	"github.com/haciendadigital/sicam/internal/app"
	"github.com/haciendadigital/sicam/internal/catalogo/cuentas"
	"github.com/haciendadigital/sicam/internal/catalogo/ejercicios"
	"github.com/haciendadigital/sicam/internal/libro"
	"github.com/haciendadigital/sicam/internal/platform/cache"
	"github.com/haciendadigital/sicam/internal/platform/db"
	"github.com/haciendadigital/sicam/internal/polizas"
	"github.com/haciendadigital/sicam/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, ledger cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)

	cuentasRepo := cuentas.NewRepository(dbpool)
	cuentasService := cuentas.NewService(cuentasRepo)
	cuentasHandler := cuentas.NewHandler(logger, cuentasService)

	ejerciciosRepo := ejercicios.NewRepository(dbpool)
	ejerciciosService := ejercicios.NewService(ejerciciosRepo, auditLogger)
	ejerciciosHandler := ejercicios.NewHandler(logger, ejerciciosService)

	libroCache := libro.NewCache(redisClient, cfg.LedgerCacheTTL)
	libroRepo := libro.NewRepository(dbpool)
	libroService := libro.NewService(libroRepo, libroCache)
	libroHandler := libro.NewHandler(logger, libroService)

	polizasRepo := polizas.NewRepository(dbpool)
	polizasService := polizas.NewService(polizasRepo, auditLogger, libroCache)
	polizasHandler := polizas.NewHandler(logger, polizasService)

	anomaliasRepo := anomalias.NewRepository(dbpool)
	anomaliasService := anomalias.NewService(anomaliasRepo, anomalias.NewDetector(), auditLogger)
	anomaliasHandler := anomalias.NewHandler(logger, anomaliasService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		CuentasHandler:    cuentasHandler,
		EjerciciosHandler: ejerciciosHandler,
		PolizasHandler:    polizasHandler,
		LibroHandler:      libroHandler,
		AnomaliasHandler:  anomaliasHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
