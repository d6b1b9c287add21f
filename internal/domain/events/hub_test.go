package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/domain/access"
	"filevault/internal/logging"
)

func startServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User-ID"); userID != "" {
			access.SetPrincipal(c, &access.Principal{UserID: userID, Permissions: access.Full(), AuthType: access.AuthSession})
		}
		c.Next()
	})
	RegisterRoutes(r.Group("/api/v1"), NewHandler(hub, logging.Nop()))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events"
	header := http.Header{"X-Test-User-ID": []string{userID}}

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_DeliversOnlyToOwner(t *testing.T) {
	hub := NewHub(nil)
	srv := startServer(t, hub)

	alice1 := dial(t, srv, "alice")
	alice2 := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	require.Eventually(t, func() bool {
		return hub.Connected("alice") == 2 && hub.Connected("bob") == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Publish("alice", Event{Type: FileUploaded, FileID: "f1", Name: "a.txt"})

	for _, conn := range []*websocket.Conn{alice1, alice2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var e Event
		require.NoError(t, json.Unmarshal(msg, &e))
		assert.Equal(t, FileUploaded, e.Type)
		assert.Equal(t, "f1", e.FileID)
		assert.False(t, e.At.IsZero())
	}

	bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	srv := startServer(t, hub)

	conn := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.Connected("alice") == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Connected("alice") == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish("alice", Event{Type: FileDeleted, FileID: "f1"})
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://app.example.com"})
	srv := startServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events"
	header := http.Header{
		"X-Test-User-ID": []string{"alice"},
		"Origin":         []string{"https://evil.example.com"},
	}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHub_RequiresPrincipal(t *testing.T) {
	srv := startServer(t, NewHub(nil))

	resp, err := http.Get(srv.URL + "/api/v1/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
