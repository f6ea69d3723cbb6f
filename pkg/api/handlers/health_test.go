package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	env := setupHandlerTest(t)
	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)
}

func TestHealth_Degraded(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"database": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		"skipped":  nil,
	})

	e := echo.New()
	rec := httptest.NewRecorder()
	require.NoError(t, h.Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"unhealthy"`)
	assert.NotContains(t, rec.Body.String(), "skipped")
}
