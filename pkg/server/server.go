package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	handlers "github.com/de-tools/counter-atlas/pkg/handlers/reports"
	counteratlasmiddleware "github.com/de-tools/counter-atlas/pkg/server/middleware"
)

const defaultShutdownTimeout = 10 * time.Second

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Parser handlers.Parser
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	Metrics         *prometheus.Registry
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	router := ConfigureRouter(logger, config)

	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
	}
}

// ConfigureRouter builds the API routes. Metrics are served on /metrics from
// config.Metrics, or from a fresh registry when it is nil.
func ConfigureRouter(logger zerolog.Logger, config Config) *chi.Mux {
	reg := config.Metrics
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := counteratlasmiddleware.NewMetrics(reg)
	reportsHandler := handlers.NewHandler(config.Dependencies.Parser, config.MaxUploadBytes, metrics)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(counteratlasmiddleware.Logger(&logger))
	router.Use(metrics.Handler)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports/parse", reportsHandler.ParseReport)
		r.Get("/report-types", reportsHandler.ListReportTypes)
		r.Get("/report-types/{code}", reportsHandler.GetReportType)
	})

	return router
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
