package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/utils"
)

// Pinger reports whether a backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	pinger    Pinger
	warehouse string
}

func NewHealthchecker(pinger Pinger, warehouse string) healthchecker {
	return &healthcheckerImpl{pinger: pinger, warehouse: warehouse}
}

// handleHealthz never queries BigQuery; a nil pinger reports the process as up.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			slog.Error("failed to check database connectivity", "error", err)
			utils.WriteError(w, http.StatusServiceUnavailable, "failed to check database connectivity")
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "warehouse": h.warehouse})
}

func registerHealthcheck(mux *http.ServeMux, pinger Pinger, warehouse string) {
	healthchecker := NewHealthchecker(pinger, warehouse)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
