package sensit

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/fulfillment"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/controller"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/repository"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/service"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/mqtt"
)

// NewFulfillmentHandler returns the webhook handler answering sensit intents,
// behind basic auth when a fulfillment username is configured.
func NewFulfillmentHandler(cfg config.Config, repo repository.SensitRepository, logger *slog.Logger) http.Handler {
	sensitController := controller.NewSensitController(repo, logger)
	h := fulfillment.Handler(sensitController, fulfillment.Options{
		Debug:  cfg.FulfillmentDebug,
		Logger: logger,
	})
	if cfg.FulfillmentUsername != "" {
		h = fulfillment.BasicAuth(cfg.FulfillmentUsername, cfg.FulfillmentHashedPassword, logger, h)
	}
	return h
}

// RegisterFeature mounts the webhook on mux and, when subscriber is non-nil,
// stores sensit callbacks received over MQTT.
func RegisterFeature(mux *http.ServeMux, cfg config.Config, repo repository.SensitRepository, subscriber mqtt.MQTTSubscriber, logger *slog.Logger) {
	mux.Handle(webhookPattern(cfg.WebhookPath), NewFulfillmentHandler(cfg, repo, logger))

	if subscriber != nil {
		service.NewService(repo, logger).Register(subscriber)
	}
}

// webhookPattern matches path exactly; a trailing slash would otherwise
// match the whole subtree.
func webhookPattern(path string) string {
	if strings.HasSuffix(path, "/") {
		return "POST " + path + "{$}"
	}
	return "POST " + path
}
