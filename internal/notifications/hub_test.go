package notifications

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func dialHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(userID, w, r)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, err := websocket.Dial(wsURL, "", server.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	waitForSubscribers(t, hub, userID, 1)
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Subscribers(userID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers for %s, got %d", want, userID, hub.Subscribers(userID))
}

func TestHubBroadcastReachesSubscriber(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "user-1")

	hub.Broadcast("user-1", Event{Kind: EventCreated, NotificationID: "n-1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var received Event
	require.NoError(t, websocket.JSON.Receive(conn, &received))
	require.Equal(t, EventCreated, received.Kind)
	require.Equal(t, "n-1", received.NotificationID)
	require.False(t, received.SentAt.IsZero())
}

func TestHubBroadcastScopedToUser(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "user-1")

	hub.Broadcast("user-2", Event{Kind: EventRead, NotificationID: "other"})
	hub.Broadcast("user-1", Event{Kind: EventReadAll})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var received Event
	require.NoError(t, websocket.JSON.Receive(conn, &received))
	require.Equal(t, EventReadAll, received.Kind)
}

func TestHubDetachOnDisconnect(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "user-1")

	require.NoError(t, conn.Close())
	waitForSubscribers(t, hub, "user-1", 0)

	// Broadcasting into an empty stream is a no-op.
	hub.Broadcast("user-1", Event{Kind: EventCreated})
}
