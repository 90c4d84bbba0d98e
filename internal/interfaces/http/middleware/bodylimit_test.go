package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arvi/quotation/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyLimit(t *testing.T) {
	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(RequestID(), BodyLimit(16))
		router.POST("/test", func(c *gin.Context) {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					c.Status(http.StatusRequestEntityTooLarge)
					return
				}
				c.Status(http.StatusInternalServerError)
				return
			}
			c.String(http.StatusOK, string(body))
		})
		return router
	}

	t.Run("small body passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("tiny")))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "tiny", w.Body.String())
	})

	t.Run("declared length over limit is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("x", 64))))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodePayloadTooLarge, resp.Code)
		assert.Equal(t, "Request body too large", resp.Error)
		assert.NotEmpty(t, resp.RequestID)
	})

	t.Run("streamed body over limit fails on read", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("x", 64)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}
