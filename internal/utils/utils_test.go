package utils

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	t.Run("sets content-type and status", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})

		if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Code = %d; want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("encodes body as JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusCreated, map[string]string{"warehouse": "sqlite"})

		var got map[string]string
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got["warehouse"] != "sqlite" {
			t.Errorf("body[warehouse] = %q; want sqlite", got["warehouse"])
		}
	})

	t.Run("unencodable value becomes 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusOK, map[string]float64{"temperature": math.NaN()})

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("Code = %d; want %d", w.Code, http.StatusInternalServerError)
		}
		var got ErrorBody
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got.Error != http.StatusText(http.StatusInternalServerError) {
			t.Errorf("error = %q", got.Error)
		}
	})
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		status int
		msg    string
	}{
		{status: http.StatusBadRequest, msg: "no handler for intent Weather"},
		{status: http.StatusMethodNotAllowed, msg: "fulfillment requests must use POST"},
		{status: http.StatusServiceUnavailable, msg: "failed to check database connectivity"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.status, tt.msg)

			if w.Code != tt.status {
				t.Errorf("Code = %d; want %d", w.Code, tt.status)
			}

			var got ErrorBody
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("body is not valid JSON: %v", err)
			}
			if got.Error != http.StatusText(tt.status) {
				t.Errorf("error = %q; want %q", got.Error, http.StatusText(tt.status))
			}
			if got.Message != tt.msg {
				t.Errorf("message = %q; want %q", got.Message, tt.msg)
			}
		})
	}
}
