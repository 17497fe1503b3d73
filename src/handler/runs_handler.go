package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

// RunReader is the read-side surface the results API needs; the repository
// satisfies it.
type RunReader interface {
	FindRunByID(ctx context.Context, id string) (*model.BacktestRun, error)
	ListRuns(ctx context.Context, symbol string, limit int) ([]model.BacktestRun, error)
	TradesForRun(ctx context.Context, runID string) ([]model.Trade, error)
	EquityForRun(ctx context.Context, runID string) ([]model.EquitySnapshot, error)
}

// ListRunsHandler returns a handler that lists persisted runs, newest first.
// Supports symbol and limit query filters.
func ListRunsHandler(repo RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		runs, err := repo.ListRuns(r.Context(), r.URL.Query().Get("symbol"), limit)
		if err != nil {
			logger.WithError(err).Error("failed to list runs")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, runs)
	}
}

// GetRunHandler returns one run summary by ID.
func GetRunHandler(repo RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := repo.FindRunByID(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			logger.WithError(err).Error("failed to load run")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if run == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		writeJSON(w, run)
	}
}

// RunTradesHandler returns a run's fill log.
func RunTradesHandler(repo RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trades, err := repo.TradesForRun(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			logger.WithError(err).Error("failed to load trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, trades)
	}
}

// RunEquityHandler returns a run's equity curve.
func RunEquityHandler(repo RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		curve, err := repo.EquityForRun(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			logger.WithError(err).Error("failed to load equity curve")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, curve)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
