package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	e := NewRouter([]string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "dosecerta-api" {
		t.Fatalf("unexpected health payload: %s", rec.Body.String())
	}
}

func TestCORSCredentialsDisabledForWildcard(t *testing.T) {
	if corsConfig([]string{"*"}).AllowCredentials {
		t.Fatal("wildcard origins must not allow credentials")
	}
	if !corsConfig([]string{"https://dosecerta.app"}).AllowCredentials {
		t.Fatal("explicit origins should allow credentials")
	}
}
