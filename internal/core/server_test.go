package core

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spacepurchase/internal/config"
)

// testConfig returns the minimal config used by the core tests.
func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Server: config.ServerConfig{
			Port:           "8080",
			AppBaseURL:     "https://app.example.com",
			RequestTimeout: 5 * time.Second,
		},
	}
}

func TestNewServer(t *testing.T) {
	s, err := NewServer(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.Validator == nil {
		t.Error("expected a validator")
	}
	if s.Router() == nil || s.Handler() == nil {
		t.Error("expected a router")
	}
	if s.Metrics != nil {
		t.Error("expected no metrics collector by default")
	}
}

func TestNewServer_NilDependencies(t *testing.T) {
	if _, err := NewServer(nil, testLogger()); err == nil {
		t.Error("expected an error for nil config")
	}
	if _, err := NewServer(testConfig(), nil); err == nil {
		t.Error("expected an error for nil logger")
	}
}

func TestServer_HandlerServesRouter(t *testing.T) {
	s, err := NewServer(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	s.Router().Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", w.Code)
	}
}
