package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
		// Above the warehouse query timeout so a slow query still gets its fallback reply out.
		WriteTimeout: cfg.WarehouseQueryTimeout + 10*time.Second,
	}
}
