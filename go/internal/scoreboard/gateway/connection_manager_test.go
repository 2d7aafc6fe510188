package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Type string `json:"type"`
	N    int    `json:"n,omitempty"`
}

func drain(t *testing.T, c *Connection) []note {
	t.Helper()
	var out []note
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				return out
			}
			var n note
			require.NoError(t, json.Unmarshal(data, &n))
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestBroadcast_ReachesEveryConnectionInOrder(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	a := NewConnection("a", "10.0.0.1", 8)
	b := NewConnection("b", "10.0.0.2", 8)
	cm.Register(a)
	cm.Register(b)

	require.NoError(t, cm.Broadcast(note{Type: "counters", N: 1}))
	require.NoError(t, cm.Broadcast(note{Type: "counters", N: 2}))

	want := []note{{Type: "counters", N: 1}, {Type: "counters", N: 2}}
	assert.Equal(t, want, drain(t, a))
	assert.Equal(t, want, drain(t, b))
}

func TestBroadcast_PrunesFullConnections(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	healthy := NewConnection("healthy", "", 8)
	slow := NewConnection("slow", "", 1)
	cm.Register(healthy)
	cm.Register(slow)

	require.NoError(t, cm.Broadcast(note{Type: "x", N: 1}))
	require.NoError(t, cm.Broadcast(note{Type: "x", N: 2}))

	assert.Equal(t, 1, cm.Count())
	assert.Len(t, drain(t, healthy), 2)

	// the slow connection kept what fit and its queue was closed
	got := drain(t, slow)
	assert.Equal(t, []note{{Type: "x", N: 1}}, got)
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestBroadcast_SkipsClosedConnection(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	a := NewConnection("a", "", 4)
	b := NewConnection("b", "", 4)
	cm.Register(a)
	cm.Register(b)
	a.close()

	require.NoError(t, cm.Broadcast(note{Type: "x"}))

	assert.Equal(t, 1, cm.Count())
	assert.Len(t, drain(t, b), 1)
}

func TestBroadcast_MarshalError(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	err := cm.Broadcast(func() {})
	assert.Error(t, err)
}

func TestUnicast(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	a := NewConnection("a", "", 1)
	b := NewConnection("b", "", 1)
	cm.Register(a)
	cm.Register(b)

	require.NoError(t, cm.Unicast(a, note{Type: "pong"}))
	assert.Empty(t, drain(t, b))

	err := cm.Unicast(a, note{Type: "pong"})
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Equal(t, 1, cm.Count())
}

func TestUnregister_Idempotent(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	a := NewConnection("a", "", 1)
	cm.Register(a)

	cm.Unregister(a)
	cm.Unregister(a)

	assert.Zero(t, cm.Count())
	assert.ErrorIs(t, cm.Unicast(a, note{Type: "x"}), ErrSendFailed)
}

func TestStats(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	first := NewConnection("first", "10.0.0.1:5000", 1)
	second := NewConnection("second", "10.0.0.2:5000", 1)
	second.ConnectedAt = first.ConnectedAt.Add(time.Second)
	cm.Register(second)
	cm.Register(first)

	stats := cm.Stats()
	require.Equal(t, 2, stats.TotalConnections)
	assert.Equal(t, "first", stats.Connections[0].ID)
	assert.Equal(t, "10.0.0.2:5000", stats.Connections[1].RemoteAddr)
}

// echoHandler registers on join and answers every frame with a unicast
type echoHandler struct {
	cm   *ConnectionManager
	left chan string
}

func (h *echoHandler) Join(c *Connection) {
	h.cm.Register(c)
	_ = h.cm.Unicast(c, note{Type: "hello"})
}

func (h *echoHandler) Leave(c *Connection) {
	h.cm.Unregister(c)
	h.left <- c.ID
}

func (h *echoHandler) HandleMessage(c *Connection, data []byte) {
	if string(data) == "boom" {
		panic("boom")
	}
	_ = h.cm.Unicast(c, note{Type: "echo", N: len(data)})
}

func newEchoServer(t *testing.T) (*httptest.Server, *echoHandler) {
	t.Helper()
	cm := NewConnectionManager(DefaultConnectionConfig())
	h := &echoHandler{cm: cm, left: make(chan string, 4)}
	mux := http.NewServeMux()
	NewWebSocketHandler(cm, h).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNote(t *testing.T, conn *websocket.Conn) note {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var n note
	require.NoError(t, conn.ReadJSON(&n))
	return n
}

func TestWebSocket_JoinMessageLeave(t *testing.T) {
	srv, h := newEchoServer(t)
	conn := dial(t, srv)

	assert.Equal(t, note{Type: "hello"}, readNote(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("abc")))
	assert.Equal(t, note{Type: "echo", N: 3}, readNote(t, conn))

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalConnections)

	require.NoError(t, conn.Close())
	select {
	case <-h.left:
	case <-time.After(2 * time.Second):
		t.Fatal("leave was not called")
	}
	assert.Zero(t, h.cm.Count())
}

func TestWebSocket_PanicDropsOnlyThatConnection(t *testing.T) {
	srv, h := newEchoServer(t)
	bad := dial(t, srv)
	good := dial(t, srv)
	readNote(t, bad)
	readNote(t, good)

	require.NoError(t, bad.WriteMessage(websocket.TextMessage, []byte("boom")))
	select {
	case <-h.left:
	case <-time.After(2 * time.Second):
		t.Fatal("panicking connection was not dropped")
	}

	require.NoError(t, good.WriteMessage(websocket.TextMessage, []byte("ok")))
	assert.Equal(t, note{Type: "echo", N: 2}, readNote(t, good))
	assert.Equal(t, 1, h.cm.Count())
}
