package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/database"
	"filevault/internal/logging"
	"filevault/internal/pkg/metrics"
	"filevault/internal/testutil"
)

func newRouter(probes map[string]Probe) *gin.Engine {
	gin.SetMode(gin.TestMode)
	collector := metrics.NewCollector()

	r := gin.New()
	r.Use(collector.Middleware())
	RegisterRoutes(r, NewHandler(probes, collector, time.Second, logging.Nop()))
	return r
}

func TestHealth_AllProbesPass(t *testing.T) {
	db := testutil.NewDB(t)
	r := newRouter(map[string]Probe{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		"storage":  func(context.Context) error { return nil },
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Status  string            `json:"status"`
			Checks  map[string]string `json:"checks"`
			Metrics metrics.Snapshot  `json:"metrics"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Data.Status)
	assert.Equal(t, map[string]string{"database": "ok", "storage": "ok"}, body.Data.Checks)
	assert.Equal(t, int64(1), body.Data.Metrics.Requests)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHealth_FailingProbeHidesCause(t *testing.T) {
	r := newRouter(map[string]Probe{
		"database": func(context.Context) error { return nil },
		"storage":  func(context.Context) error { return errors.New("dial tcp 10.0.0.7:9000: connection refused") },
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"unavailable"`)
	assert.NotContains(t, w.Body.String(), "10.0.0.7")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
