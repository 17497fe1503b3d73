package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"github.com/davidgonveg/trading-advisor-sub002/src/handler"
	"github.com/davidgonveg/trading-advisor-sub002/src/telemetry"
)

// NewRouter builds the results API. All run routes sit behind the bearer
// middleware; healthcheck and metrics stay public for probes and scrapers.
func NewRouter(repo handler.RunReader, tokenHash string) *chi.Mux {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck error")
		}
	})
	r.Handle("/metrics", telemetry.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(tokenHash))

		r.Get("/runs", handler.ListRunsHandler(repo))
		r.Get("/runs/{runID}", handler.GetRunHandler(repo))
		r.Get("/runs/{runID}/trades", handler.RunTradesHandler(repo))
		r.Get("/runs/{runID}/equity", handler.RunEquityHandler(repo))
		r.Get("/runs/{runID}/stream", handler.StreamEquityHandler(repo))
	})

	return r
}

// StartServer runs the results API until SIGINT/SIGTERM, then shuts down
// gracefully.
func StartServer(port string, repo handler.RunReader, tokenHash string) {
	r := NewRouter(repo, tokenHash)

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
