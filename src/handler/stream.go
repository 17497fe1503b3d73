package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StreamEquityHandler replays a run's equity curve over a websocket, one
// snapshot per message, then closes with a normal closure. Dashboards use it
// to animate the curve without pulling the whole payload first.
func StreamEquityHandler(repo RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runID")
		curve, err := repo.EquityForRun(r.Context(), runID)
		if err != nil {
			logger.WithError(err).Error("failed to load equity curve for stream")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		for _, snap := range curve {
			if err := conn.WriteJSON(snap); err != nil {
				logger.WithError(err).WithField("run_id", runID).Debug("equity stream client gone")
				return
			}
		}

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of curve")
		if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
			logger.WithError(err).Debug("equity stream close failed")
		}
	}
}
