package config

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func serveHealth(t *testing.T, h *HealthChecker) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealth_KVUp(t *testing.T) {
	code, body := serveHealth(t, NewHealthChecker("sqlite", pingerFunc(func(context.Context) error { return nil }), nil, nil))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "up", deps["sqlite"].(map[string]any)["status"])
	assert.NotContains(t, deps, "rabbitmq")
}

func TestHealth_KVDown(t *testing.T) {
	code, body := serveHealth(t, NewHealthChecker("redis", pingerFunc(func(context.Context) error { return errors.New("refused") }), nil, nil))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])
	dep := body["dependencies"].(map[string]any)["redis"].(map[string]any)
	assert.Equal(t, "refused", dep["error"])
}
