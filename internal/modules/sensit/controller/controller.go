package controller

import (
	"log/slog"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/fulfillment"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/repository"
)

// SensitController answers the conversational intents backed by the sensit table.
type SensitController interface {
	fulfillment.Resolver
}

type sensitControllerImpl struct {
	repository repository.SensitRepository
	logger     *slog.Logger
}

func NewSensitController(repository repository.SensitRepository, logger *slog.Logger) SensitController {
	return &sensitControllerImpl{repository: repository, logger: logger}
}

type intent int

const (
	intentUnknown intent = iota
	intentSigfox
)

func parseIntent(displayName string) intent {
	switch displayName {
	case "Sigfox Intent":
		return intentSigfox
	default:
		return intentUnknown
	}
}

func (c *sensitControllerImpl) Resolve(displayName string) (fulfillment.HandlerFunc, bool) {
	switch parseIntent(displayName) {
	case intentSigfox:
		return c.handleSigfoxIntent, true
	case intentUnknown:
		return nil, false
	}
	return nil, false
}
