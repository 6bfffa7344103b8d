// Command sensit-sim publishes a Sens'it data callback to the MQTT topic the
// fulfillment server ingests from, standing in for the Sigfox backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/logging"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/types"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/mqtt"
)

const (
	appName = "sensit-sim"
	version = "dev"
)

type options struct {
	device      string
	seqNumber   int64
	temperature float64
	humidity    float64
	noHumidity  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.device, "device", "SENSIT-DEV", "Sigfox device id")
	flag.Int64Var(&opts.seqNumber, "seq", time.Now().Unix(), "message sequence number")
	flag.Float64Var(&opts.temperature, "temperature", 21.5, "temperature in °C")
	flag.Float64Var(&opts.humidity, "humidity", 60, "relative humidity in %")
	flag.BoolVar(&opts.noHumidity, "no-humidity", false, "omit the humidity measurement")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, appName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("publish failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options, logger *slog.Logger) error {
	if cfg.MQTTBroker == "" {
		return errors.New("MQTT_BROKER is not set")
	}
	msg, err := buildMessage(opts, time.Now())
	if err != nil {
		return err
	}

	publisher := mqtt.NewPublisher(cfg, cfg.MQTTClientID+"-sim", logger)
	defer publisher.Disconnect()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := publisher.Connect(connectCtx); err != nil {
		return err
	}

	if err := publisher.PublishJSON(connectCtx, msg); err != nil {
		return err
	}
	logger.Info("sensit callback published", "topic", cfg.MQTTTopic, "device", msg.Device, "seqNumber", *msg.SeqNumber)
	return nil
}

func buildMessage(opts options, now time.Time) (types.SensitMessage, error) {
	if opts.device == "" {
		return types.SensitMessage{}, errors.New("device is required")
	}
	if !opts.noHumidity && (opts.humidity < 0 || opts.humidity > 100) {
		return types.SensitMessage{}, fmt.Errorf("humidity %v out of range 0-100", opts.humidity)
	}

	seq := opts.seqNumber
	temperature := opts.temperature
	msg := types.SensitMessage{
		Device:      opts.device,
		Time:        now.Unix(),
		SeqNumber:   &seq,
		Temperature: &temperature,
	}
	if !opts.noHumidity {
		humidity := opts.humidity
		msg.Humidity = &humidity
	}
	return msg, nil
}
