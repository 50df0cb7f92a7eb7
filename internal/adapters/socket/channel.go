// Package socket implements the signaling channel over a websocket with
// JSON event envelopes. The session core never sees the connection; it only
// subscribes and publishes.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/avidela/meetkit/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("channel closed")
)

const (
	defaultSendBuffer   = 32
	defaultWriteTimeout = 5 * time.Second
	reconnectAttempts   = 5
	reconnectDelay      = time.Second
)

type Config struct {
	// URL is the ws:// or wss:// signaling endpoint.
	URL        string
	SendBuffer int
	Policy     Policy
}

// envelope is the wire frame: one event name plus its payload.
type envelope struct {
	Event core.EventName  `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Channel is a core.SignalChannel over gorilla/websocket. Inbound frames are
// dispatched to subscribed handlers in arrival order from a single read
// loop; outbound frames go through a buffered send channel drained by a
// single write loop. A lost connection is redialed with linear backoff, and
// the reconnect callback fires after every successful redial.
type Channel struct {
	cfg Config

	mu          sync.RWMutex
	conn        *websocket.Conn
	handlers    map[core.EventName][]core.Handler
	onReconnect func()
	closed      bool

	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewChannel(cfg Config) *Channel {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.Policy == nil {
		cfg.Policy = DropPolicy{}
	}
	return &Channel{
		cfg:      cfg,
		handlers: make(map[core.EventName][]core.Handler),
		send:     make(chan []byte, cfg.SendBuffer),
	}
}

func (c *Channel) Subscribe(event core.EventName, h core.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

func (c *Channel) OnReconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReconnect = fn
}

func (c *Channel) Connect(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	log.Info().Str("module", "adapters.socket").Str("url", c.cfg.URL).Msg("connected")

	c.wg.Add(2)
	go c.writePump()
	go c.readPump()
	return nil
}

func (c *Channel) Publish(event core.EventName, payload any) error {
	env := envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		env.Data = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
	}
	switch c.cfg.Policy.OnBackpressure(event) {
	case Disconnect:
		log.Warn().Str("module", "adapters.socket").Str("event", string(event)).Msg("backpressure, disconnecting")
		c.Close()
	default:
		log.Warn().Str("module", "adapters.socket").Str("event", string(event)).Msg("backpressure, frame dropped")
	}
	return ErrBackpressure
}

func (c *Channel) writePump() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			conn := c.current()
			if conn == nil {
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "adapters.socket").Msg("set write deadline")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Error().Err(err).Str("module", "adapters.socket").Msg("write error")
			}
		}
	}
}

func (c *Channel) readPump() {
	defer c.wg.Done()
	for {
		conn := c.current()
		if conn == nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil || c.isClosed() {
				return
			}
			log.Warn().Err(err).Str("module", "adapters.socket").Msg("read error, redialing")
			if !c.redial() {
				c.Close()
				return
			}
			continue
		}
		c.dispatch(data)
	}
}

func (c *Channel) dispatch(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "adapters.socket").Msg("bad frame")
		return
	}
	c.mu.RLock()
	hs := c.handlers[env.Event]
	c.mu.RUnlock()
	if len(hs) == 0 {
		log.Debug().Str("module", "adapters.socket").Str("event", string(env.Event)).Msg("unhandled event")
		return
	}
	for _, h := range hs {
		h(env.Data)
	}
}

// redial re-establishes the connection with linear backoff. Server-side
// state may be gone afterwards, so the reconnect callback is invoked for the
// consumer to re-announce itself.
func (c *Channel) redial() bool {
	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * reconnectDelay):
		}
		conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, c.cfg.URL, nil)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.socket").Int("attempt", attempt).Msg("redial failed")
			continue
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return false
		}
		c.conn = conn
		fn := c.onReconnect
		c.mu.Unlock()
		log.Info().Str("module", "adapters.socket").Int("attempt", attempt).Msg("reconnected")
		if fn != nil {
			fn()
		}
		return true
	}
	log.Error().Str("module", "adapters.socket").Msg("reconnect attempts exhausted")
	return false
}

func (c *Channel) current() *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Channel) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	log.Info().Str("module", "adapters.socket").Msg("closed")
}
