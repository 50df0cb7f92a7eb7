package session

import (
	"sync"

	"github.com/avidela/meetkit/internal/domain"
	"github.com/rs/zerolog/log"
)

// ChatLog is the append-only message sequence, ordered by local arrival
// time. The order is client-local and may differ slightly between
// participants; chat is advisory, not authoritative.
type ChatLog struct {
	mu      sync.Mutex
	entries []domain.ChatMessage
	seen    map[domain.MessageID]struct{}
}

func NewChatLog() *ChatLog {
	return &ChatLog{seen: make(map[domain.MessageID]struct{})}
}

// AppendLocal composes and appends the optimistic local copy. The id is
// assigned here, at composition time, so the channel's echo can be matched.
func (c *ChatLog) AppendLocal(author domain.ParticipantID, authorName, text string) domain.ChatMessage {
	msg := domain.NewChatMessage(author, authorName, text)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, msg)
	c.seen[msg.ID] = struct{}{}
	return msg
}

// AppendRemote appends in arrival order unless the id is already present,
// which guards against the channel reflecting our own messages back.
func (c *ChatLog) AppendRemote(msg domain.ChatMessage) (appended bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.ID != "" {
		if _, ok := c.seen[msg.ID]; ok {
			log.Debug().Str("module", "session.chat").Str("id", string(msg.ID)).Msg("duplicate message absorbed")
			return false
		}
		c.seen[msg.ID] = struct{}{}
	}
	msg.LocalEcho = false
	c.entries = append(c.entries, msg)
	return true
}

func (c *ChatLog) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *ChatLog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
