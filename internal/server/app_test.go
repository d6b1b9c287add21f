package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/config"
	"filevault/internal/logging"
	"filevault/internal/pkg/jwt"
	"filevault/internal/storage"
	"filevault/internal/testutil"
)

type harness struct {
	t      *testing.T
	app    *App
	router *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AppEnv:         "test",
		PublicURL:      "http://vault.test",
		SessionSecret:  "test-session-secret",
		StorageBackend: "disk",
		DiskRoot:       t.TempDir(),
		StorageTimeout: 5 * time.Second,
		DBTimeout:      time.Second,
		PresignTTL:     time.Minute,
		DefaultQuota:   1 << 20,
		MaxUploadSize:  1 << 16,
	}
	disk, err := storage.NewDisk(cfg.DiskRoot, cfg.PublicURL+storage.DiskMount, []byte(cfg.SessionSecret))
	require.NoError(t, err)

	app := newApp(cfg, logging.Nop(), testutil.NewDB(t), storage.WithTimeout(disk, cfg.StorageTimeout), disk)
	t.Cleanup(app.keys.Wait)
	return &harness{t: t, app: app, router: app.Router()}
}

func (h *harness) session(subject string) string {
	h.t.Helper()
	token, err := h.app.tokens.GenerateToken(subject, jwt.Claims{Email: subject + "@example.com"})
	require.NoError(h.t, err)
	return "Bearer " + token
}

func (h *harness) do(method, target, authorization string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) upload(authorization, name, content string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(h.t, err)
	_, _ = fw.Write([]byte(content))
	require.NoError(h.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", authorization)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Data
}

func TestFirstRequestRegistersUserWithWelcomeFile(t *testing.T) {
	h := newHarness(t)
	alice := h.session("user_alice")

	w := h.do(http.MethodGet, "/api/v1/me", alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "session", data(t, w)["auth_type"])

	w = h.do(http.MethodGet, "/api/v1/files?order=name", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome.txt")

	w = h.do(http.MethodGet, "/api/v1/storage", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, data(t, w)["used"].(float64), float64(0))
}

func TestUploadAndFollowPresignedLink(t *testing.T) {
	h := newHarness(t)
	alice := h.session("user_alice")

	w := h.upload(alice, "hello.txt", "hello vault")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := data(t, w)["file"].(map[string]any)["id"].(string)

	w = h.do(http.MethodGet, "/api/v1/files/"+id+"/download", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	link, err := url.Parse(data(t, w)["url"].(string))
	require.NoError(t, err)
	assert.Equal(t, "vault.test", link.Host)

	w = h.do(http.MethodGet, link.RequestURI(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello vault", w.Body.String())

	tampered := strings.Replace(link.RequestURI(), "signature=", "signature=x", 1)
	w = h.do(http.MethodGet, tampered, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Another user cannot see the file at all.
	w = h.do(http.MethodGet, "/api/v1/files/"+id, h.session("user_bob"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadOnlyAPIKey(t *testing.T) {
	h := newHarness(t)
	alice := h.session("user_alice")

	w := h.do(http.MethodPost, "/api/v1/api-keys", alice, map[string]any{"name": "backup", "permissions": []string{"read"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key := "Bearer " + data(t, w)["key"].(string)

	w = h.do(http.MethodGet, "/api/v1/files", key, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome.txt")

	w = h.upload(key, "x.txt", "x")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodGet, "/api/v1/api-keys", key, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodGet, "/api/v1/objects?delimiter=/", key, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnauthenticatedAndHealth(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/v1/files", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
