// Package sigfox exposes the sensit fulfillment webhook as a Cloud Function
// named DialogflowFirebaseFulfillment.
package sigfox

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/app"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/logging"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/utils"
)

const functionName = "DialogflowFirebaseFulfillment"

var version = "dev"

func init() {
	functions.HTTP(functionName, DialogflowFirebaseFulfillment)
}

var (
	initMu  sync.Mutex
	handler http.Handler
)

// DialogflowFirebaseFulfillment serves one webhook call. The warehouse client
// is created on the first successful call and reused by every later
// invocation of the same instance; a failed init is retried on the next call.
func DialogflowFirebaseFulfillment(w http.ResponseWriter, r *http.Request) {
	h, err := functionHandler(r.Context())
	if err != nil {
		slog.Error("fulfillment function init failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "fulfillment is not configured")
		return
	}
	h.ServeHTTP(w, r)
}

func functionHandler(ctx context.Context) (http.Handler, error) {
	initMu.Lock()
	defer initMu.Unlock()

	if handler != nil {
		return handler, nil
	}
	h, err := newFunctionHandler(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	handler = h
	return handler, nil
}

func newFunctionHandler(ctx context.Context) (http.Handler, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}

	logger := logging.NewJSON(cfg, version, functionName)
	slog.SetDefault(logger)

	warehouse, err := app.OpenWarehouse(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return sensit.NewFulfillmentHandler(cfg, warehouse.Repository, logger), nil
}
