package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondJSON_SetsContentType(t *testing.T) {
	recorder := httptest.NewRecorder()
	data := map[string]string{"status": "ok"}

	respondJSON(recorder, http.StatusOK, data)

	contentType := recorder.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", contentType)
	}
}

func TestRespondJSON_SetsStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Created", http.StatusCreated},
		{"BadRequest", http.StatusBadRequest},
		{"NotFound", http.StatusNotFound},
		{"InternalServerError", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, nil)

			if recorder.Code != tc.statusCode {
				t.Errorf("expected status %d, got %d", tc.statusCode, recorder.Code)
			}
		})
	}
}

func TestRespondJSON_EncodesData(t *testing.T) {
	recorder := httptest.NewRecorder()
	data := map[string]any{
		"message": "hello",
		"count":   42,
		"active":  true,
	}

	respondJSON(recorder, http.StatusOK, data)

	var result map[string]any
	err := json.Unmarshal(recorder.Body.Bytes(), &result)
	if err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if result["message"] != "hello" {
		t.Errorf("expected message 'hello', got '%v'", result["message"])
	}

	if result["count"] != float64(42) { // JSON numbers are float64
		t.Errorf("expected count 42, got %v", result["count"])
	}

	if result["active"] != true {
		t.Errorf("expected active true, got %v", result["active"])
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	// Body should be empty for nil data
	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError_ContainsErrorKey(t *testing.T) {
	recorder := httptest.NewRecorder()
	errorMessage := "something went wrong"

	respondError(recorder, http.StatusBadRequest, errorMessage)

	var result map[string]string
	err := json.Unmarshal(recorder.Body.Bytes(), &result)
	if err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if result["error"] != errorMessage {
		t.Errorf("expected error '%s', got '%s'", errorMessage, result["error"])
	}
}

func TestRespondError_SetsContentType(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusBadRequest, "error")

	contentType := recorder.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", contentType)
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result["status"])
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("photo\r\n.png"); got != "photo.png" {
		t.Errorf("expected newlines stripped, got %q", got)
	}
}
