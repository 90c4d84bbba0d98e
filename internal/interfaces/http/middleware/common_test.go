package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCORSWithConfig(t *testing.T) {
	newRouter := func(origins ...string) *gin.Engine {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = origins
		router := gin.New()
		router.Use(CORSWithConfig(cfg))
		router.POST("/api/generate-pdf", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("wildcard origin", func(t *testing.T) {
		router := newRouter("*")
		req := httptest.NewRequest(http.MethodPost, "/api/generate-pdf", nil)
		req.Header.Set("Origin", "http://example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Vary"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	})

	t.Run("specific origin is echoed", func(t *testing.T) {
		router := newRouter("http://localhost:5173")
		req := httptest.NewRequest(http.MethodPost, "/api/generate-pdf", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("unlisted origin gets no headers", func(t *testing.T) {
		router := newRouter("http://localhost:5173")
		req := httptest.NewRequest(http.MethodPost, "/api/generate-pdf", nil)
		req.Header.Set("Origin", "http://evil.test")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight answers 200 without reaching the handler", func(t *testing.T) {
		router := newRouter("*")
		req := httptest.NewRequest(http.MethodOptions, "/api/generate-pdf", nil)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight on unknown path is still 200", func(t *testing.T) {
		router := newRouter("*")
		req := httptest.NewRequest(http.MethodOptions, "/nowhere", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	tests := []struct {
		name     string
		header   string
		wantKeep bool
	}{
		{name: "generated when missing", header: "", wantKeep: false},
		{name: "client ID kept", header: "req-123", wantKeep: true},
		{name: "too long is replaced", header: strings.Repeat("a", MaxRequestIDLength+1), wantKeep: false},
		{name: "spaces are replaced", header: "has space", wantKeep: false},
		{name: "non ASCII is replaced", header: "ид-1", wantKeep: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			assert.Equal(t, got, w.Body.String())
			if tt.wantKeep {
				assert.Equal(t, tt.header, got)
			} else {
				assert.NotEqual(t, tt.header, got)
				assert.Len(t, got, 36)
			}
		})
	}
}
