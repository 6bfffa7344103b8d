package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/metrics"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/repository"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/types"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/mqtt"
)

var ErrInvalidMessage = errors.New("invalid sensit message")

// registerMQTTHandler sets up the sensit module's MQTT message handler
func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, repo repository.SensitRepository, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(ctx context.Context, topic string, payload []byte) error {
		return ingest(ctx, repo, logger, topic, payload)
	})
}

func ingest(ctx context.Context, repo repository.SensitRepository, logger *slog.Logger, topic string, payload []byte) error {
	msg, err := decodeMessage(payload)
	if err != nil {
		metrics.IngestMessages.WithLabelValues("invalid").Inc()
		logger.Warn("dropping sensit message", "topic", topic, "error", err)
		return err
	}

	rec := msg.Record()
	logger.Debug("processing sensit message", "record", rec)

	if err := repo.InsertRecord(ctx, rec); err != nil {
		metrics.IngestMessages.WithLabelValues("error").Inc()
		logger.Error("failed to insert record",
			"device", rec.Device,
			"seqNumber", rec.SeqNumber,
			"error", err,
		)
		return err
	}

	metrics.IngestMessages.WithLabelValues("ok").Inc()
	logger.Debug("successfully stored sensit record", "device", rec.Device, "seqNumber", rec.SeqNumber)
	return nil
}

func decodeMessage(payload []byte) (types.SensitMessage, error) {
	var msg types.SensitMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return types.SensitMessage{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := validateMessage(msg); err != nil {
		return types.SensitMessage{}, err
	}
	return msg, nil
}

func validateMessage(msg types.SensitMessage) error {
	switch {
	case msg.Device == "":
		return fmt.Errorf("%w: missing device", ErrInvalidMessage)
	case msg.SeqNumber == nil:
		return fmt.Errorf("%w: missing seqNumber", ErrInvalidMessage)
	case *msg.SeqNumber < 0:
		return fmt.Errorf("%w: negative seqNumber %d", ErrInvalidMessage, *msg.SeqNumber)
	case msg.Temperature == nil && msg.Humidity == nil:
		return fmt.Errorf("%w: no measurement", ErrInvalidMessage)
	case msg.Humidity != nil && (*msg.Humidity < 0 || *msg.Humidity > 100):
		return fmt.Errorf("%w: humidity %v out of range 0-100", ErrInvalidMessage, *msg.Humidity)
	}
	return nil
}
