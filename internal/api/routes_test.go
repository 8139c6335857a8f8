package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/suryadaiv/playground-server/internal/collab"
	"github.com/suryadaiv/playground-server/internal/judge"
)

const testOrigin = "https://app.example.com"

func newTestRouter(runner *stubRunner, maxBodyBytes int64) *gin.Engine {
	r := gin.New()
	h := NewHandler(runner, judge.Options{}, zap.NewNop())
	broker := collab.NewBroker(zap.NewNop(), time.Hour, 5*time.Minute, 0)
	ws := collab.NewHandler(broker, zap.NewNop(), []string{testOrigin})
	RegisterRoutes(r, h, ws, RouterConfig{
		AllowedOrigins: []string{testOrigin},
		RateLimiter:    NewRateLimiter(1000, time.Minute),
		MaxBodyBytes:   maxBodyBytes,
	})
	return r
}

func TestRun_OversizedBodyRejected(t *testing.T) {
	runner := &stubRunner{}
	r := newTestRouter(runner, 1024)

	source := strings.Repeat("x", 4096)
	body := fmt.Sprintf(`{"language":"python","source":%q}`, source)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized body", w.Code)
	}
	if runner.calls != 0 {
		t.Errorf("judge called for oversized body")
	}

	// The same payload under the cap goes through.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(runner, 1<<20).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when body fits the cap", w.Code)
	}
}

func TestCORS_AllowedOrigin(t *testing.T) {
	r := newTestRouter(&stubRunner{}, 1<<20)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", testOrigin)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, testOrigin)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	r := newTestRouter(&stubRunner{}, 1<<20)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)

	// The request itself is served; the browser is simply given no
	// permission header to act on.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q for disallowed origin, want unset", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := newTestRouter(&stubRunner{}, 1<<20)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/run", nil)
	req.Header.Set("Origin", testOrigin)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("allowed preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Access-Control-Allow-Methods = %q, want POST included", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/api/run", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("disallowed preflight status = %d, want 403", w.Code)
	}
}
