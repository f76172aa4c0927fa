package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"climate-tracker/internal/utils"
)

// Liveness is satisfied by *feed.Feed.
type Liveness interface {
	LastTick() (time.Time, bool)
}

// ConnectionStatus is satisfied by *mqtt.Publisher.
type ConnectionStatus interface {
	IsConnected() bool
}

type healthcheckerImpl struct {
	feed      Liveness
	maxAge    time.Duration
	db        *sql.DB
	mqtt      ConnectionStatus
	now       func() time.Time
	dbTimeout time.Duration
}

type healthResponse struct {
	Status   string    `json:"status"`
	LastTick time.Time `json:"last_tick"`
	Archive  string    `json:"archive"`
	MQTT     string    `json:"mqtt"`
}

// handleHealthz reports ok while the feed keeps ticking and the archive, if
// any, answers. MQTT state is informational: the broker being away does not
// make the dashboard unhealthy.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	last, ok := h.feed.LastTick()
	if !ok {
		utils.WriteError(w, http.StatusServiceUnavailable, "no readings yet")
		return
	}
	if age := h.now().Sub(last); age > h.maxAge {
		slog.Warn("feed stalled", "last_tick", last, "age", age)
		utils.WriteError(w, http.StatusServiceUnavailable, "feed stalled")
		return
	}

	resp := healthResponse{Status: "ok", LastTick: last, Archive: "disabled", MQTT: "disabled"}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
		defer cancel()
		var one int
		if err := h.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
			slog.Error("failed to check database connectivity", "error", err)
			utils.WriteError(w, http.StatusServiceUnavailable, "failed to check database connectivity")
			return
		}
		resp.Archive = "ok"
	}

	if h.mqtt != nil {
		resp.MQTT = "disconnected"
		if h.mqtt.IsConnected() {
			resp.MQTT = "connected"
		}
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}

func registerHealthcheck(mux *http.ServeMux, h *healthcheckerImpl) {
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
