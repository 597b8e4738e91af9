// Package notify delivers lifecycle events to interested observers.
// Delivery is fire-and-forget: no caller ever depends on a notification
// for correctness, and failures are logged by the sink itself rather
// than surfaced to the primary operation.
package notify

import (
	"context"
	"log/slog"
)

// Event is a lifecycle event name.
type Event string

const (
	EventQuoteQuoted     Event = "QUOTE_QUOTED"
	EventQuotePending    Event = "QUOTE_PENDING_DRIVER"
	EventQuoteExpired    Event = "QUOTE_EXPIRED"
	EventQuotePaid       Event = "QUOTE_PAID"
	EventTripStarted     Event = "TRIP_STARTED"
	EventTripCompleted   Event = "TRIP_COMPLETED"
	EventDriverAvailable Event = "DRIVER_AVAILABLE"
	EventLocationUpdated Event = "LOCATION_UPDATED"
)

// Notifier delivers one event with its payload. Implementations must
// not block the caller beyond a short network write and must swallow
// their own errors.
type Notifier interface {
	Notify(ctx context.Context, event Event, payload map[string]any)
}

// LogNotifier writes events to the structured log. It doubles as the
// observability sink for environments without Kafka or websockets.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs the event.
func (n *LogNotifier) Notify(ctx context.Context, event Event, payload map[string]any) {
	n.log.Info("lifecycle event", "event", string(event), "payload", payload)
}

// Fanout delivers each event to every sink.
type Fanout []Notifier

// Notify delivers to all sinks in order.
func (f Fanout) Notify(ctx context.Context, event Event, payload map[string]any) {
	for _, n := range f {
		n.Notify(ctx, event, payload)
	}
}
