package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecoxchange/internal/marketplace"
	"ecoxchange/middlewares"
	"ecoxchange/models"
	"ecoxchange/structs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedStates map[string]marketplace.State

func (f fixedStates) State(_ context.Context, id string) (marketplace.State, error) {
	s, ok := f[id]
	if !ok {
		return marketplace.State{}, assert.AnError
	}
	return s, nil
}

func render(s marketplace.State) structs.StateResponse {
	return structs.NewStateResponse(s, models.DefaultListings(), models.FromFloat(2000))
}

func newTestServer(t *testing.T, hub *Hub, states fixedStates, sessionID string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set(middlewares.SessionIDKey, sessionID)
		c.Next()
	}, hub.Handler(states))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) structs.StateMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg structs.StateMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandlerSendsSnapshotThenPushes(t *testing.T) {
	start := marketplace.New(models.FromFloat(1000))
	start.SignedIn = true
	hub := NewHub(render, zap.NewNop(), nil)
	srv := newTestServer(t, hub, fixedStates{"s1": start}, "s1")

	conn := dial(t, srv)
	first := readState(t, conn)
	assert.Equal(t, "state", first.Type)
	assert.Equal(t, "$1000.00", first.State.BalanceDisplay)

	require.Eventually(t, func() bool { return hub.ClientCount("s1") == 1 }, time.Second, 10*time.Millisecond)

	next := start
	next.Balance = models.FromFloat(1045.50)
	hub.StateChanged("s1", next)
	hub.StateChanged("other", next)

	pushed := readState(t, conn)
	assert.Equal(t, "$1045.50", pushed.State.BalanceDisplay)
}

func TestHandlerUnregistersOnClose(t *testing.T) {
	start := marketplace.New(models.FromFloat(1000))
	start.SignedIn = true
	hub := NewHub(render, zap.NewNop(), nil)
	srv := newTestServer(t, hub, fixedStates{"s1": start}, "s1")

	conn := dial(t, srv)
	readState(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount("s1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount("s1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerRejectsUnknownSession(t *testing.T) {
	hub := NewHub(render, zap.NewNop(), nil)
	srv := newTestServer(t, hub, fixedStates{}, "missing")

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub(render, zap.NewNop(), []string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, hub.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, hub.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, hub.upgrader.CheckOrigin(req))
}
