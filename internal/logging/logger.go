package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"
)

// New builds the process logger. Dev builds get colored tint output with
// source locations; release builds emit JSON with version and env attached.
func New(cfg config.Config, version string, appName string) *slog.Logger {
	return newWithWriter(os.Stdout, cfg, version, appName)
}

// NewJSON builds a JSON logger whatever the build, for hosts that parse
// structured stdout such as Cloud Functions.
func NewJSON(cfg config.Config, version string, appName string) *slog.Logger {
	return newJSON(os.Stdout, cfg, version, appName)
}

func newWithWriter(w io.Writer, cfg config.Config, version string, appName string) *slog.Logger {
	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.AppEnv == "prod",
		})
		return slog.New(h).With("app", appName)
	}
	return newJSON(w, cfg, version, appName)
}

func newJSON(w io.Writer, cfg config.Config, version string, appName string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"warehouse", cfg.WarehouseDriver,
	)
}
