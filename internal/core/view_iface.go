package core

import "github.com/avidela/meetkit/internal/domain"

// Canvas is the drawing surface the whiteboard replicator paints on.
// Painting is presentation; the replicator only decides what gets drawn.
type Canvas interface {
	DrawSegment(seg domain.StrokeSegment)
	Clear()
}

// Notifier receives the visible deltas the presentation layer renders.
// Calls happen on the coordinator's event loop and must not block.
type Notifier interface {
	ParticipantsChanged(total int)
	JoinRequested(name string)
	ChatAppended(msg domain.ChatMessage)
	FeedChanged(owner domain.ParticipantID, state domain.FeedState)
	SessionEnded(phase domain.Phase)
}
