package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/indexpulse/internal/chart"
)

func TestNewRouter_RoutesAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(seededPipeline(), chart.NoopRenderer{}, "000300")
	r := NewRouter(h)

	t.Run("scenario routes mounted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/scenarios", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("request id propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/scenarios", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Header().Get("X-Request-ID") == "" {
			t.Fatalf("X-Request-ID header missing")
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}
