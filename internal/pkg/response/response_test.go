package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/pkg/apperr"
)

type envelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/", func(c *gin.Context) { FromError(c, err) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestFromError_Kinds(t *testing.T) {
	cases := []struct {
		kind   apperr.Kind
		status int
		code   string
	}{
		{apperr.KindInvalid, http.StatusBadRequest, "VALIDATION_ERROR"},
		{apperr.KindUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
		{apperr.KindForbidden, http.StatusForbidden, "FORBIDDEN"},
		{apperr.KindNotFound, http.StatusNotFound, "NOT_FOUND"},
		{apperr.KindConflict, http.StatusConflict, "CONFLICT"},
		{apperr.KindNonEmptyFolder, http.StatusConflict, "NON_EMPTY_FOLDER"},
		{apperr.KindQuotaExceeded, http.StatusRequestEntityTooLarge, "QUOTA_EXCEEDED"},
		{apperr.KindUnsupported, http.StatusBadRequest, "UNSUPPORTED_OPERATION"},
		{apperr.KindUnavailable, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
	}

	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			w, body := serveError(t, apperr.New(tc.kind, "boom"))
			assert.Equal(t, tc.status, w.Code)
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Equal(t, "boom", body.Error.Message)
		})
	}
}

func TestFromError_UnclassifiedIsHidden(t *testing.T) {
	w, body := serveError(t, errors.New("pq: password authentication failed for user admin"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "internal error", body.Error.Message)
}
