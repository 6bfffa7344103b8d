package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux returns the operational routes. Feature modules register on top.
func NewMux(pinger Pinger, warehouse string) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, pinger, warehouse)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}
