package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/domain/access"
)

func setupTestRouter(t *testing.T, p *access.Principal) (*gin.Engine, *Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l, _ := newLedger(t, 1000)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if p != nil {
			access.SetPrincipal(c, p)
		}
		c.Next()
	})
	RegisterRoutes(r.Group("/api/v1"), NewHandler(l))
	return r, l
}

func TestGetStorage(t *testing.T) {
	p := &access.Principal{Permissions: access.Full(), AuthType: access.AuthSession}
	r, l := setupTestRouter(t, p)
	u := mustUpsert(t, l, "user_h")
	p.UserID = u.ID
	require.NoError(t, l.Reserve(t.Context(), u.ID, 250))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/storage", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Data QuotaInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(250), body.Data.Used)
	assert.Equal(t, int64(750), body.Data.Available)
	assert.Equal(t, u.Prefix, body.Data.Prefix)
}

func TestGetStorage_RequiresRead(t *testing.T) {
	p := &access.Principal{UserID: "x", Permissions: access.Set{access.PermWrite}, AuthType: access.AuthAPIKey}
	r, _ := setupTestRouter(t, p)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/storage", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetMe_Unauthenticated(t *testing.T) {
	r, _ := setupTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
