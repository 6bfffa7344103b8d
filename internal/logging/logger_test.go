package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"
)

func TestNew_ReleaseBuildWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo, WarehouseDriver: config.WarehouseBigQuery}

	logger := newWithWriter(&buf, cfg, "1.2.3", "fulfillment")
	logger.Info("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	want := map[string]string{
		"msg":       "hello",
		"app":       "fulfillment",
		"version":   "1.2.3",
		"env":       "prod",
		"warehouse": "bigquery",
		"k":         "v",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %q", k, rec[k], v)
		}
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelWarn}

	logger := newWithWriter(&buf, cfg, "1.2.3", "fulfillment")
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestNew_DevBuildUsesTint(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelDebug}

	logger := newWithWriter(&buf, cfg, "dev", "fulfillment")
	logger.Debug("tinted", "k", "v")

	out := buf.String()
	if !strings.Contains(out, "tinted") || !strings.Contains(out, "app=fulfillment") {
		t.Fatalf("unexpected dev output: %q", out)
	}
	if json.Valid(buf.Bytes()) {
		t.Fatalf("dev output should not be JSON: %q", out)
	}
}

func TestNewJSON_DevBuild(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "dev", LogLevel: slog.LevelInfo}

	logger := newJSON(&buf, cfg, "dev", "fn")
	logger.Info("structured")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "structured" || rec["version"] != "dev" || rec["app"] != "fn" {
		t.Fatalf("record = %v", rec)
	}
}
