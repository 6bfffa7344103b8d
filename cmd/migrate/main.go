package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/db"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/logging"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/migrate"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/repository"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/types"
)

const (
	appName = "migrate"
	version = "dev"
)

const usage = `usage: %s <command>
  migrate  apply pending schema migrations to the sqlite warehouse
  seed     apply migrations and insert a sample sensit record
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

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

	if err := run(ctx, os.Args[1], cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, cfg config.Config, logger *slog.Logger) error {
	switch command {
	case "migrate", "seed":
	default:
		return fmt.Errorf("unknown command (allowed: migrate, seed)")
	}

	conn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, conn, logger); err != nil {
		return err
	}
	fmt.Println("migrations applied")

	if command != "seed" {
		return nil
	}

	repo := repository.NewSQLiteRepository(conn, cfg.WarehouseQueryTimeout, logger)
	if err := repo.InsertRecord(ctx, sampleRecord(time.Now())); err != nil {
		return err
	}
	fmt.Println("sample record inserted")
	return nil
}

func sampleRecord(now time.Time) types.SensorRecord {
	temperature, humidity := 21.5, 60.0
	return types.SensorRecord{
		SeqNumber:   42,
		Device:      "SENSIT-DEV",
		Time:        now.UTC().Truncate(time.Second),
		Temperature: &temperature,
		Humidity:    &humidity,
	}
}
