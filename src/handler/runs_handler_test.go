package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

type stubRunReader struct {
	runs   []model.BacktestRun
	trades []model.Trade
	curve  []model.EquitySnapshot
	err    error
}

func (s *stubRunReader) FindRunByID(_ context.Context, id string) (*model.BacktestRun, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.runs {
		if s.runs[i].ID == id {
			return &s.runs[i], nil
		}
	}
	return nil, nil
}

func (s *stubRunReader) ListRuns(context.Context, string, int) ([]model.BacktestRun, error) {
	return s.runs, s.err
}

func (s *stubRunReader) TradesForRun(context.Context, string) ([]model.Trade, error) {
	return s.trades, s.err
}

func (s *stubRunReader) EquityForRun(context.Context, string) ([]model.EquitySnapshot, error) {
	return s.curve, s.err
}

func newTestRouter(repo RunReader) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/runs", ListRunsHandler(repo))
	r.Get("/runs/{runID}", GetRunHandler(repo))
	r.Get("/runs/{runID}/trades", RunTradesHandler(repo))
	r.Get("/runs/{runID}/stream", StreamEquityHandler(repo))
	return r
}

func TestListRunsHandler(t *testing.T) {
	repo := &stubRunReader{runs: []model.BacktestRun{{ID: "r1", Symbol: "AAPL"}}}
	rec := httptest.NewRecorder()

	newTestRouter(repo).ServeHTTP(rec, httptest.NewRequest("GET", "/runs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var runs []model.BacktestRun
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "r1" {
		t.Fatalf("unexpected payload: %+v", runs)
	}
}

func TestListRunsHandlerRejectsBadLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubRunReader{}).ServeHTTP(rec, httptest.NewRequest("GET", "/runs?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetRunHandlerNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubRunReader{}).ServeHTTP(rec, httptest.NewRequest("GET", "/runs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRunTradesHandlerError(t *testing.T) {
	repo := &stubRunReader{err: errors.New("db down")}
	rec := httptest.NewRecorder()
	newTestRouter(repo).ServeHTTP(rec, httptest.NewRequest("GET", "/runs/r1/trades", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestStreamEquityHandler(t *testing.T) {
	repo := &stubRunReader{curve: []model.EquitySnapshot{
		{RunID: "r1", TotalEquity: 10000},
		{RunID: "r1", TotalEquity: 10100},
	}}

	server := httptest.NewServer(newTestRouter(repo))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/runs/r1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	for i, want := range []float64{10000, 10100} {
		var snap model.EquitySnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		if snap.TotalEquity != want {
			t.Fatalf("snapshot %d: want equity %.0f, got %.0f", i, want, snap.TotalEquity)
		}
	}

	// After the curve the server closes with a normal closure.
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected close after final snapshot")
	} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal closure, got %v", err)
	}
}
