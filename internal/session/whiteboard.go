package session

import (
	"sync"

	"github.com/avidela/meetkit/internal/core"
	"github.com/avidela/meetkit/internal/domain"
	"github.com/rs/zerolog/log"
)

// Whiteboard replicates stroke segments between the local canvas and the
// signaling channel. Local strokes apply optimistically and are queued for
// outbound publish so drawing never waits on a network round-trip. Remote
// strokes replay verbatim: no transformation, no dedup. Late joiners see a
// blank canvas; no stroke log is kept.
type Whiteboard struct {
	mu     sync.Mutex
	canvas core.Canvas
	outbox []domain.StrokeSegment
	blank  bool
}

func NewWhiteboard(canvas core.Canvas) *Whiteboard {
	return &Whiteboard{canvas: canvas, blank: true}
}

// LocalStroke draws immediately and queues the segment for publish.
func (w *Whiteboard) LocalStroke(seg domain.StrokeSegment) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.canvas.DrawSegment(seg)
	w.outbox = append(w.outbox, seg)
	w.blank = false
}

// RemoteStroke applies a received segment as-is. Replaying the same segment
// twice double-draws; that is accepted.
func (w *Whiteboard) RemoteStroke(seg domain.StrokeSegment) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.canvas.DrawSegment(seg)
	w.blank = false
}

// Clear wipes the canvas. Local and remote triggers converge here; clearing
// an already blank canvas is a no-op and reports false.
func (w *Whiteboard) Clear() (cleared bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.blank {
		return false
	}
	w.canvas.Clear()
	w.blank = true
	log.Info().Str("module", "session.whiteboard").Msg("canvas cleared")
	return true
}

// DrainOutbox hands the queued local segments to the publisher.
func (w *Whiteboard) DrainOutbox() []domain.StrokeSegment {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.outbox
	w.outbox = nil
	return out
}

// MemoryCanvas is a core.Canvas that records applied segments. It backs the
// diagnostics endpoint and tests; real painting belongs to the presentation
// layer.
type MemoryCanvas struct {
	mu       sync.Mutex
	segments []domain.StrokeSegment
	clears   int
}

func NewMemoryCanvas() *MemoryCanvas {
	return &MemoryCanvas{}
}

func (c *MemoryCanvas) DrawSegment(seg domain.StrokeSegment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments = append(c.segments, seg)
}

func (c *MemoryCanvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments = nil
	c.clears++
}

func (c *MemoryCanvas) Segments() []domain.StrokeSegment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.StrokeSegment, len(c.segments))
	copy(out, c.segments)
	return out
}

func (c *MemoryCanvas) Clears() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears
}
