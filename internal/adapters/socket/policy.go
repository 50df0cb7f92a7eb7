package socket

import "github.com/avidela/meetkit/internal/core"

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	Disconnect
)

// Policy decides what to do when the outbound buffer is full.
type Policy interface {
	OnBackpressure(event core.EventName) BackpressureAction
}

// DropPolicy sheds the frame and keeps the connection. Whiteboard segments
// and chat are advisory; losing one under pressure beats stalling the loop.
type DropPolicy struct{}

func (DropPolicy) OnBackpressure(core.EventName) BackpressureAction {
	return DropFrame
}
