package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type MessageID string

// ChatMessage is one entry of the append-only chat log. IDs are assigned
// client-side at composition time so the optimistic local copy can be
// correlated with the echo the channel may reflect back.
type ChatMessage struct {
	ID         MessageID     `json:"id"`
	Author     ParticipantID `json:"userId"`
	AuthorName string        `json:"userName"`
	Text       string        `json:"message"`
	SentAt     time.Time     `json:"timestamp"`
	LocalEcho  bool          `json:"-"`
}

// NewChatMessage composes a locally-originated message.
func NewChatMessage(author ParticipantID, authorName, text string) ChatMessage {
	return ChatMessage{
		ID:         MessageID(ulid.Make().String()),
		Author:     author,
		AuthorName: authorName,
		Text:       text,
		SentAt:     time.Now(),
		LocalEcho:  true,
	}
}
