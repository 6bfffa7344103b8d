package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher sends JSON messages to the configured topic.
type Publisher struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, clientID string, logger *slog.Logger) *Publisher {
	p := &Publisher{
		topic:  cfg.MQTTTopic,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := newClientOptions(cfg, clientID)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt publisher connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt publisher connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return errStopped
	default:
	}
	if p.client.IsConnected() {
		return nil
	}
	return waitConnect(ctx, p.client, p.stopCh)
}

// PublishJSON marshals v and publishes it with QoS 1.
func (p *Publisher) PublishJSON(ctx context.Context, v any) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("mqtt publisher not connected")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, data)
	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish timeout for topic %s", p.topic)
	}
	if err := token.Error(); err != nil {
		p.logger.Error("failed to publish message", "topic", p.topic, "error", err)
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	p.logger.Debug("published message", "topic", p.topic, "size", len(data))
	return nil
}

// Disconnect closes the connection. Safe to call more than once.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	if p.client != nil {
		p.client.Disconnect(250)
	}
	p.logger.Info("mqtt publisher disconnected")
}
