package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventStatusChanged   = "status.changed"
	EventHostInvalidated = "host.invalidated"
)

// StatusChangedEvent is broadcast when a tenant's status inputs change
// (emergency override, special dates, weekly hours).
type StatusChangedEvent struct {
	TenantID string `json:"tenant_id"`
}

// HostInvalidatedEvent is broadcast when a hostname's cache entries are
// purged.
type HostInvalidatedEvent struct {
	Hostname string `json:"hostname"`
	TenantID string `json:"tenant_id,omitempty"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
