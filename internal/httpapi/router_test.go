package httpapi_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rigwild/raspberry-instock-check/internal/httpapi"
	"github.com/rigwild/raspberry-instock-check/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticSource struct {
	view models.View
	ok   bool
}

func (s staticSource) Latest() (models.View, bool) { return s.view, s.ok }

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(router http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Snapshot(t *testing.T) {
	t.Parallel()

	view := models.View{
		UpdatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Available: 1,
		Items: []models.Item{
			{SKU: "CM4104032", Description: "CM4 - 4GB RAM", Vendor: "Adafruit (US)", Available: true},
			{SKU: "RPI400", Description: "Pi 400 Kit", Vendor: "Kubii (FR)"},
		},
	}

	tests := []struct {
		name       string
		source     staticSource
		wantStatus int
	}{
		{name: "before first fetch", source: staticSource{}, wantStatus: http.StatusServiceUnavailable},
		{name: "latest view", source: staticSource{view: view, ok: true}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			router := httpapi.NewRouter(silentLogger(), tt.source, httpapi.Options{})

			// Act
			rec := serve(router, http.MethodGet, "/", nil)

			// Assert
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantStatus != http.StatusOK {
				return
			}

			var got models.View
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, view.UpdatedAt, got.UpdatedAt)
			assert.Equal(t, 1, got.Available)
			assert.Len(t, got.Items, 2)
		})
	}
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	router := httpapi.NewRouter(silentLogger(), staticSource{}, httpapi.Options{})

	rec := serve(router, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_Preflight(t *testing.T) {
	t.Parallel()

	router := httpapi.NewRouter(silentLogger(), staticSource{}, httpapi.Options{})

	rec := serve(router, http.MethodOptions, "/", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()

	t.Run("same client is limited", func(t *testing.T) {
		router := httpapi.NewRouter(silentLogger(), staticSource{}, httpapi.Options{RatePerMinute: 2})

		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/healthz", nil).Code)
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/healthz", nil).Code)

		rec := serve(router, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Equal(t, "2", rec.Header().Get("RateLimit-Limit"))
	})

	t.Run("forwarded address ignored without trust proxy", func(t *testing.T) {
		router := httpapi.NewRouter(silentLogger(), staticSource{}, httpapi.Options{RatePerMinute: 1})

		first := serve(router, http.MethodGet, "/healthz", map[string]string{"X-Forwarded-For": "203.0.113.1"})
		second := serve(router, http.MethodGet, "/healthz", map[string]string{"X-Forwarded-For": "203.0.113.2"})

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})

	t.Run("forwarded address used with trust proxy", func(t *testing.T) {
		router := httpapi.NewRouter(
			silentLogger(),
			staticSource{},
			httpapi.Options{RatePerMinute: 1, TrustProxy: true},
		)

		first := serve(router, http.MethodGet, "/healthz", map[string]string{"X-Forwarded-For": "203.0.113.1"})
		second := serve(router, http.MethodGet, "/healthz", map[string]string{"X-Forwarded-For": "203.0.113.2"})

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusOK, second.Code)
	})
}

func TestServer_StartShutdown(t *testing.T) {
	t.Parallel()

	srv := httpapi.NewServer(silentLogger(), "127.0.0.1:0", http.NotFoundHandler())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	// Give the listener a moment; Shutdown before ListenAndServe is handled too.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, srv.Shutdown(t.Context()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
