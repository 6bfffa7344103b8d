package controller

import (
	"context"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/fulfillment"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/service"
)

// dataTypeParameter is the entity carrying the measurement the user asked about.
const dataTypeParameter = "DataType"

// handleSigfoxIntent replies with the requested measurement of the latest
// sensit record. The content sentence always precedes the trailing prompt.
func (c *sensitControllerImpl) handleSigfoxIntent(ctx context.Context, agent *fulfillment.Agent) error {
	requested := agent.Parameter(dataTypeParameter)

	rec, err := c.repository.FetchLatestRecord(ctx)
	if err != nil {
		c.logger.Warn("sensor data unavailable",
			"dataType", requested,
			"session", agent.Session,
			"error", err,
		)
		agent.Add(service.UnavailableReply)
		agent.Add(service.TrailingPrompt)
		return nil
	}

	c.logger.Debug("answering sigfox intent", "dataType", requested, "record", rec)

	agent.Add(service.FormatReply(rec, requested))
	agent.Add(service.TrailingPrompt)
	return nil
}
