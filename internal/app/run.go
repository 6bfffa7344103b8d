package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/httpapi"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/mqtt"
)

// Run serves the webhook until ctx is cancelled, then shuts the server down
// and closes the warehouse.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"webhookPath", cfg.WebhookPath,
		"fulfillmentDebug", cfg.FulfillmentDebug,
		"basicAuth", cfg.FulfillmentUsername != "",
		"warehouseDriver", cfg.WarehouseDriver,
		"warehouseTable", cfg.WarehouseTable,
		"warehouseQueryTimeout", cfg.WarehouseQueryTimeout,
		"sqlitePath", cfg.SQLitePath,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	warehouse, err := OpenWarehouse(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := warehouse.Close(); closeErr != nil {
			logger.Error("warehouse close", "error", closeErr)
		}
	}()

	var pinger httpapi.Pinger
	if warehouse.DB != nil {
		pinger = warehouse.DB
	}
	mux := httpapi.NewMux(pinger, cfg.WarehouseDriver)

	// The handler must be set before Connect: the broker may deliver queued
	// messages right after CONNACK.
	var subscriber *mqtt.Subscriber
	if cfg.MQTTBroker != "" {
		subscriber = mqtt.NewSubscriber(cfg, logger)
		sensit.RegisterFeature(mux, cfg, warehouse.Repository, subscriber, logger)

		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			// Auto-reconnect keeps retrying; the webhook does not depend on MQTT.
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	} else {
		sensit.RegisterFeature(mux, cfg, warehouse.Repository, nil, logger)
	}

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if subscriber != nil {
			subscriber.Disconnect()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
