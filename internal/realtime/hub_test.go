package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve upgrades every request and attaches it to hub as userID.
func serve(t *testing.T, hub *Hub, userID int64) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(userID, ws)
		hub.Attach(conn)
		go func() {
			conn.ReadLoop()
			hub.Detach(conn)
		}()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestHubNotifyUser(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	ws := dial(t, serve(t, hub, 7))

	require.Eventually(t, func() bool { return hub.Online(7) }, time.Second, 5*time.Millisecond)
	assert.False(t, hub.NotifyUser(8, []byte(`{}`)), "user 8 is offline")
	require.True(t, hub.NotifyUser(7, []byte(`{"event":"new-reply"}`)))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"new-reply"}`, string(msg))
}

func TestHubDetachOnClientClose(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	ws := dial(t, serve(t, hub, 3))

	require.Eventually(t, func() bool { return hub.Online(3) }, time.Second, 5*time.Millisecond)
	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return !hub.Online(3) }, time.Second, 5*time.Millisecond)
}

func TestHubReplacesPreviousSession(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := serve(t, hub, 5)

	first := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Online(5) }, time.Second, 5*time.Millisecond)
	second := dial(t, srv)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := first.ReadMessage()
	require.Error(t, err, "first session must be closed")

	require.Eventually(t, func() bool { return hub.NotifyUser(5, []byte(`"x"`)) }, time.Second, 5*time.Millisecond)
	require.NoError(t, second.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := second.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(msg))
}
