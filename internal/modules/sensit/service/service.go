package service

import (
	"log/slog"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/repository"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/mqtt"
)

type Service struct {
	repository repository.SensitRepository
	logger     *slog.Logger
}

func NewService(repository repository.SensitRepository, logger *slog.Logger) *Service {
	return &Service{repository: repository, logger: logger}
}

// Register attaches the sensit ingest handler to the subscriber.
func (s *Service) Register(subscriber mqtt.MQTTSubscriber) {
	registerMQTTHandler(subscriber, s.repository, s.logger)
}
