// Package core declares the capabilities the session coordinator consumes.
// Transports and media engines live behind these interfaces; the session
// packages never import them directly.
package core

import "context"

type EventName string

// Handler receives the raw JSON payload of one inbound signaling event.
// Handlers are invoked in arrival order, one at a time per channel.
type Handler func(data []byte)

// SignalChannel is the pub/sub signaling capability. Connect/reconnect
// mechanics belong to the implementation; the coordinator only subscribes,
// publishes and asks to be told when the transport came back.
type SignalChannel interface {
	// Connect establishes the transport. Must be called after all
	// Subscribe registrations so no early event is lost.
	Connect(ctx context.Context) error
	Subscribe(event EventName, h Handler)
	Publish(event EventName, payload any) error
	// OnReconnect sets a callback fired after the transport re-established
	// a lost connection. Server-side state may have been dropped, so the
	// coordinator re-announces presence from here.
	OnReconnect(fn func())
	Close()
}

// HealthStatus is the connectivity surface consumed by presentation-layer
// indicators only.
type HealthStatus struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}
