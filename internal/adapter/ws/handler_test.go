package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestHubLifecycle(t *testing.T) {
	hub := NewHub()
	if hub.ConnectionCount() != 0 {
		t.Fatalf("ConnectionCount = %d, want 0", hub.ConnectionCount())
	}

	// Broadcasting with no subscribers is a no-op.
	hub.BroadcastEvent(context.Background(), EventStatusChanged, StatusChangedEvent{TenantID: "t1"})
}

func TestHubBroadcastToClient(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitFor(t, func() bool { return hub.ConnectionCount() == 1 })

	hub.BroadcastEvent(ctx, EventHostInvalidated, HostInvalidatedEvent{Hostname: "rosascafe.com", TenantID: "t1"})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, EventHostInvalidated) || !strings.Contains(got, "rosascafe.com") {
		t.Fatalf("message = %s", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
