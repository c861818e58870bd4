package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"spacepurchase/internal/config"
	"spacepurchase/internal/types"
)

// newMountedServer builds a server with one /v1 route that echoes what the
// middleware chain put into the context.
func newMountedServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	s, err := NewServer(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	s.V1RouteRegistrars = append(s.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
			token, _ := types.GetAuthToken(r.Context())
			_, hasDeadline := r.Context().Deadline()
			Data(w, r, http.StatusOK, map[string]any{
				"requestId":   types.GetRequestID(r.Context()),
				"token":       token.Unmask(),
				"hasDeadline": hasDeadline,
				"hasLogger":   types.LoggerFromContext(r.Context()) != nil,
			})
		})
		r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})
	})
	s.MountRoutes()
	return s
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body.Data
}

func TestMountRoutes_HealthWithoutAuth(t *testing.T) {
	s := newMountedServer(t, testConfig())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestMountRoutes_V1RequiresToken(t *testing.T) {
	s := newMountedServer(t, testConfig())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/echo", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMountRoutes_ContextIsPopulated(t *testing.T) {
	s := newMountedServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/echo", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["token"] != "tok-123" {
		t.Errorf("expected token to reach the handler, got %v", data["token"])
	}
	if data["hasDeadline"] != true {
		t.Error("expected a request deadline")
	}
	if data["hasLogger"] != true {
		t.Error("expected a request logger in the context")
	}
	reqID, _ := data["requestId"].(string)
	if len(reqID) != 32 {
		t.Errorf("expected a generated 32 char request id, got %q", reqID)
	}
	if got := w.Header().Get("X-Request-Id"); got != reqID {
		t.Errorf("expected X-Request-Id header %q, got %q", reqID, got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS headers with the default origin")
	}
}

func TestMountRoutes_PropagatesIncomingRequestID(t *testing.T) {
	s := newMountedServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/echo", nil)
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("X-Request-Id", "req-from-gateway")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if data := decodeData(t, w); data["requestId"] != "req-from-gateway" {
		t.Errorf("expected incoming request id, got %v", data["requestId"])
	}
}

func TestMountRoutes_PanicBecomes500(t *testing.T) {
	s := newMountedServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/panic", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body APIErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("expected internal error code, got %s", body.Error.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("expected the request id header on the panic response")
	}
}

func TestServer_RequestTimeout(t *testing.T) {
	cfg := testConfig()
	s := &Server{Config: cfg}
	if got := s.requestTimeout(); got != 5*time.Second {
		t.Errorf("expected configured timeout, got %v", got)
	}

	cfg.Server.RequestTimeout = 0
	if got := s.requestTimeout(); got != defaultRequestTimeout {
		t.Errorf("expected default timeout, got %v", got)
	}
}

func TestServer_CorsAllowedOrigins(t *testing.T) {
	cfg := testConfig()
	s := &Server{Config: cfg}
	if got := s.corsAllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("expected wildcard default, got %v", got)
	}

	cfg.Security.CorsAllowedOrigins = []string{"https://app.example.com"}
	if got := s.corsAllowedOrigins(); got[0] != "https://app.example.com" {
		t.Errorf("expected configured origin, got %v", got)
	}
}

func TestContextTimeoutMiddleware(t *testing.T) {
	var ctxErr error
	handler := ContextTimeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		ctxErr = r.Context().Err()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if ctxErr != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", ctxErr)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateRequestID()
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}
