package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("erp-syncbridge", "1.2.3")
	r := newTestRouter()
	r.GET("/system/info", h.GetSystemInfo)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/system/info", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "erp-syncbridge", data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("erp-syncbridge", "dev")
	r := newTestRouter()
	r.GET("/system/ping", h.Ping)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/system/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "pong", data["message"])
	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Check(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := NewHealthHandler(pingerFunc(func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			require.True(t, ok)
			return nil
		}), time.Second)
		r := newTestRouter()
		r.GET("/health", h.Check)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"healthy"`)
		assert.Contains(t, w.Body.String(), `"database":"ok"`)
	})

	t.Run("unhealthy", func(t *testing.T) {
		h := NewHealthHandler(pingerFunc(func(ctx context.Context) error {
			return errors.New("database is closed")
		}), 0)
		r := newTestRouter()
		r.GET("/health", h.Check)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"error"`)
	})
}
