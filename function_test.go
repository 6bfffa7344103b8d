package sigfox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/app"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/types"
)

func TestNewFunctionHandler_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sensit.db")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("WAREHOUSE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)
	t.Setenv("FULFILLMENT_DEBUG", "false")
	t.Setenv("FULFILLMENT_USERNAME", "")
	t.Setenv("WEBHOOK_PATH", "")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	ctx := context.Background()
	seed, err := app.OpenWarehouse(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		temp, hum := 21.5, 60.0
		err = seed.Repository.InsertRecord(ctx, types.SensorRecord{
			Device: "A", SeqNumber: 42, Time: time.Unix(1700000000, 0).UTC(), Temperature: &temp, Humidity: &hum,
		})
		_ = seed.Close()
	}
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	h, err := newFunctionHandler(ctx)
	if err != nil {
		t.Fatalf("newFunctionHandler: %v", err)
	}

	body := `{"queryResult":{"parameters":{"DataType":"temperature"},"intent":{"displayName":"Sigfox Intent"}}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp struct {
		FulfillmentText string `json:"fulfillmentText"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := "The latest measured temperature is 21.5°C. Would you like to know anything else ?"; resp.FulfillmentText != want {
		t.Fatalf("fulfillmentText = %q; want %q", resp.FulfillmentText, want)
	}
}

func TestNewFunctionHandler_InvalidConfig(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	if _, err := newFunctionHandler(context.Background()); err == nil {
		t.Fatal("newFunctionHandler error = nil, want error")
	}
}

func TestDialogflowFirebaseFulfillment_RetriesInit(t *testing.T) {
	t.Cleanup(func() {
		initMu.Lock()
		handler = nil
		initMu.Unlock()
	})

	body := `{"queryResult":{"parameters":{"DataType":"humidity"},"intent":{"displayName":"Sigfox Intent"}}}`
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		DialogflowFirebaseFulfillment(rec, req)
		return rec
	}

	t.Setenv("APP_ENV", "staging")
	if rec := call(); rec.Code != http.StatusInternalServerError {
		t.Fatalf("misconfigured status = %d; want %d", rec.Code, http.StatusInternalServerError)
	}

	t.Setenv("APP_ENV", "prod")
	t.Setenv("WAREHOUSE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "sensit.db"))
	t.Setenv("FULFILLMENT_DEBUG", "false")
	t.Setenv("FULFILLMENT_USERNAME", "")
	t.Setenv("WEBHOOK_PATH", "")

	rec := call()
	if rec.Code != http.StatusOK {
		t.Fatalf("status after fixing config = %d; want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp struct {
		FulfillmentText string `json:"fulfillmentText"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := "Sorry, the sensor data is temporarily unavailable. Would you like to know anything else ?"; resp.FulfillmentText != want {
		t.Fatalf("fulfillmentText = %q; want %q", resp.FulfillmentText, want)
	}
}
