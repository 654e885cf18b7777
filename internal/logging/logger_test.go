package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")
	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "social-api", line["service"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "chatty", "json")
	log.Debug().Msg("dropped")
	assert.Zero(t, buf.Len())
	log.Info().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLogger(New(&buf, "info", "json")))
	e.GET("/tweets/:id", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tweets/1", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, float64(http.StatusNotFound), line["status"])
	assert.Equal(t, "/tweets/1", line["uri"])
	assert.Equal(t, "guest", line["user"])
}
