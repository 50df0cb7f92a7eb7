package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/avidela/meetkit/internal/core"
	"github.com/avidela/meetkit/internal/domain"
	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionEnded   = errors.New("session already ended")
	ErrNoVideoTrack   = errors.New("no local video track")
	ErrNotOwner       = errors.New("only the room owner may do this")
	ErrUnknownRequest = errors.New("no such pending join request")
)

// Options configure one room session.
type Options struct {
	Room      domain.RoomName
	LocalName string
	Owner     bool
	RecordDir string
}

// Coordinator is the composition root of one room session. It owns the
// lifecycle state machine, routes every inbound signaling event to exactly
// one sub-component, and exposes the outbound action surface. One instance
// per session, constructed with injected channel and media capabilities:
// sessions are isolated, nothing is process-global.
//
// All sub-component mutations execute as discrete reaction steps on a single
// event loop; inbound events and local actions alike are serialized through
// it. The only suspension points are media acquisition and the join-approval
// wait, both of which re-enter as new events.
type Coordinator struct {
	opts     Options
	channel  core.SignalChannel
	media    core.MediaEngine
	notifier core.Notifier

	dir    *Directory
	tracks *Registry
	board  *Whiteboard
	chat   *ChatLog
	rec    *Recorder

	events  chan func()
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sharing bool // loop-confined
}

func NewCoordinator(opts Options, channel core.SignalChannel, media core.MediaEngine, canvas core.Canvas, notifier core.Notifier) (*Coordinator, error) {
	role := domain.RoleGuest
	if opts.Owner {
		role = domain.RoleOwner
	}
	local, err := domain.NewLocalParticipant(opts.LocalName, role)
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	dir := NewDirectory(local)
	c := &Coordinator{
		opts:     opts,
		channel:  channel,
		media:    media,
		notifier: notifier,
		dir:      dir,
		tracks:   NewRegistry(dir.Has),
		board:    NewWhiteboard(canvas),
		chat:     NewChatLog(),
		rec:      NewRecorder(opts.RecordDir),
		events:   make(chan func(), 64),
	}
	return c, nil
}

// Start subscribes to the signaling channel, connects, acquires the initial
// microphone and camera, and announces presence. Acquisition failures do not
// fail the session; the participant simply has no track of that kind.
func (c *Coordinator) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	for event, h := range c.eventTable() {
		c.channel.Subscribe(event, h)
	}
	c.channel.OnReconnect(func() {
		c.enqueue(func() {
			log.Info().Str("module", "session.coordinator").Msg("transport reconnected, re-announcing")
			c.announce()
		})
	})
	c.media.OnRemoteTrack(func(t core.RemoteTrack) {
		c.enqueue(func() {
			res := c.tracks.OnRemoteAdded(t)
			if res.Attached && t.Kind() == domain.KindVideo {
				c.notifyFeed(t.Owner())
			}
		})
	})
	c.media.OnRemoteTrackRemoved(func(t core.RemoteTrack) {
		c.enqueue(func() {
			if removed, lastVideo := c.tracks.OnRemoteRemoved(t); removed && lastVideo {
				c.notifier.FeedChanged(t.Owner(), domain.FeedNone)
			}
		})
	})

	c.wg.Add(1)
	go c.run()

	if err := c.channel.Connect(c.ctx); err != nil {
		c.cancel()
		return err
	}

	if t, err := c.media.CreateMicrophoneTrack(ctx); err != nil {
		log.Warn().Err(err).Str("module", "session.coordinator").Msg("continuing without microphone")
	} else {
		c.adoptLocal(t)
	}
	if t, err := c.media.CreateCameraTrack(ctx); err != nil {
		log.Warn().Err(err).Str("module", "session.coordinator").Msg("continuing without camera")
	} else {
		c.adoptLocal(t)
	}

	c.do(func() {
		c.dir.BeginJoin()
		c.announce()
		c.notifier.ParticipantsChanged(c.dir.TotalCount())
	})
	return nil
}

func (c *Coordinator) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case fn := <-c.events:
			fn()
		}
	}
}

// enqueue schedules one reaction step. Steps enqueued after teardown are
// silently discarded.
func (c *Coordinator) enqueue(fn func()) {
	select {
	case <-c.ctx.Done():
	case c.events <- fn:
	}
}

// do runs fn serialized on the event loop and waits for it. Reports whether
// fn actually ran; it did not if the session ended first.
func (c *Coordinator) do(fn func()) bool {
	done := make(chan struct{})
	select {
	case <-c.ctx.Done():
		return false
	case c.events <- func() { fn(); close(done) }:
	}
	select {
	case <-done:
		return true
	case <-c.ctx.Done():
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

func (c *Coordinator) announce() {
	local := c.dir.Local()
	c.publish(EvtJoinRoom, joinPayload{
		RoomID:   c.opts.Room,
		UserID:   local.ID,
		UserName: local.DisplayName,
	})
}

func (c *Coordinator) publish(event core.EventName, payload any) {
	if err := c.channel.Publish(event, payload); err != nil {
		log.Error().Err(err).Str("module", "session.coordinator").Str("event", string(event)).Msg("publish failed")
	}
}

func (c *Coordinator) notifyFeed(owner domain.ParticipantID) {
	p, ok := c.dir.Get(owner)
	if !ok {
		return
	}
	c.notifier.FeedChanged(owner, c.tracks.FeedState(owner, p.VideoMuted))
}

func (c *Coordinator) flushPendingTracks() {
	attached, dropped := c.tracks.FlushPending()
	for _, t := range attached {
		if t.Kind() == domain.KindVideo {
			c.notifyFeed(t.Owner())
		}
	}
	if len(dropped) > 0 {
		log.Warn().Str("module", "session.coordinator").Int("count", len(dropped)).Msg("dropped tracks with unknown owner")
	}
}

// adoptLocal registers and attaches a freshly acquired local track,
// disposing whatever it displaced. If the session ended while acquisition
// was in flight, the track is disposed instead of registered.
func (c *Coordinator) adoptLocal(t core.LocalTrack) {
	ran := c.do(func() {
		if c.dir.Phase().Terminal() {
			t.Dispose()
			return
		}
		if prev := c.tracks.UnregisterLocal(t.Info().Kind); prev != nil {
			c.media.DetachLocal(prev)
			prev.Dispose()
		}
		if err := c.media.AttachLocal(t); err != nil {
			log.Error().Err(err).Str("module", "session.coordinator").Msg("attach local track")
			t.Dispose()
			return
		}
		c.tracks.RegisterLocal(t)
	})
	if !ran {
		t.Dispose()
	}
}

// ToggleMute flips the local microphone mute state and broadcasts it.
func (c *Coordinator) ToggleMute() bool {
	var muted bool
	c.do(func() {
		local := c.dir.Local()
		muted = !local.AudioMuted
		if t, ok := c.tracks.Local(domain.KindAudio); ok {
			t.SetMuted(muted)
		}
		c.dir.SetMuted(local.ID, domain.KindAudio, muted)
		c.publish(EvtTrackMuteChanged, mutePayload{UserID: local.ID, Kind: domain.KindAudio, Muted: muted})
	})
	return muted
}

// ToggleCamera flips the local video mute state. The track stays registered;
// "muted" and "no feed" are different states.
func (c *Coordinator) ToggleCamera() bool {
	var muted bool
	c.do(func() {
		local := c.dir.Local()
		muted = !local.VideoMuted
		if t, ok := c.tracks.Local(domain.KindVideo); ok {
			t.SetMuted(muted)
		}
		c.dir.SetMuted(local.ID, domain.KindVideo, muted)
		c.publish(EvtTrackMuteChanged, mutePayload{UserID: local.ID, Kind: domain.KindVideo, Muted: muted})
	})
	return muted
}

// ToggleScreenShare swaps the local video origin between camera and screen.
// The new capture is acquired first; only then is the old track detached and
// the replacement registered, so a failed acquisition leaves the previous
// track active and the participant never ends up with no video at all.
func (c *Coordinator) ToggleScreenShare(ctx context.Context) (sharing bool, err error) {
	var target bool
	if !c.do(func() { target = !c.sharing }) {
		return false, ErrSessionEnded
	}

	var t core.LocalTrack
	if target {
		t, err = c.media.CreateScreenTrack(ctx)
	} else {
		t, err = c.media.CreateCameraTrack(ctx)
	}
	if err != nil {
		log.Error().Err(err).Str("module", "session.coordinator").Bool("screen", target).Msg("capture acquisition failed")
		return !target, err
	}

	ran := c.do(func() {
		if c.dir.Phase().Terminal() {
			t.Dispose()
			return
		}
		if prev := c.tracks.UnregisterLocal(domain.KindVideo); prev != nil {
			c.media.DetachLocal(prev)
			prev.Dispose()
		}
		if attachErr := c.media.AttachLocal(t); attachErr != nil {
			err = attachErr
			t.Dispose()
			return
		}
		c.tracks.RegisterLocal(t)
		c.sharing = target
		sharing = target
	})
	if !ran {
		t.Dispose()
		return false, ErrSessionEnded
	}
	return sharing, err
}

// SendChat appends the optimistic local copy and publishes it.
func (c *Coordinator) SendChat(text string) (domain.ChatMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, false
	}
	var msg domain.ChatMessage
	sent := c.do(func() {
		local := c.dir.Local()
		msg = c.chat.AppendLocal(local.ID, local.DisplayName, text)
		c.notifier.ChatAppended(msg)
		c.publish(EvtChatMessage, chatPayload{
			ID:        msg.ID,
			UserID:    msg.Author,
			UserName:  msg.AuthorName,
			Message:   msg.Text,
			Timestamp: msg.SentAt.UnixMilli(),
		})
	})
	return msg, sent
}

// DrawStroke applies a local segment and publishes the queued outbox.
func (c *Coordinator) DrawStroke(seg domain.StrokeSegment) {
	c.do(func() {
		c.board.LocalStroke(seg)
		for _, s := range c.board.DrainOutbox() {
			c.publish(EvtWhiteboardData, s)
		}
	})
}

// ClearWhiteboard clears locally and broadcasts the clear once.
func (c *Coordinator) ClearWhiteboard() {
	c.do(func() {
		if c.board.Clear() {
			c.publish(EvtWhiteboardClear, nil)
		}
	})
}

// ApproveJoin resolves a pending request in the requester's favor.
func (c *Coordinator) ApproveJoin(name string) error {
	return c.resolveJoin(name, true, EvtAcceptJoin)
}

// RejectJoin resolves a pending request against the requester.
func (c *Coordinator) RejectJoin(name string) error {
	return c.resolveJoin(name, false, EvtRejectJoin)
}

func (c *Coordinator) resolveJoin(name string, accepted bool, event core.EventName) error {
	var err error
	ran := c.do(func() {
		if c.dir.Local().Role != domain.RoleOwner {
			err = ErrNotOwner
			return
		}
		if !c.dir.ResolveJoinRequest(name, accepted) {
			err = ErrUnknownRequest
			return
		}
		c.publish(event, resolvePayload{RoomID: c.opts.Room, User: name})
	})
	if !ran {
		return ErrSessionEnded
	}
	return err
}

// Invite asks the signaling layer to deliver an invitation.
func (c *Coordinator) Invite(invitee string) error {
	if invitee == "" {
		return errors.New("empty invitee")
	}
	if !c.do(func() {
		c.publish(EvtInvite, invitePayload{RoomID: c.opts.Room, Invitee: invitee})
	}) {
		return ErrSessionEnded
	}
	return nil
}

// DeleteRoom ends the room for everyone. Owner only.
func (c *Coordinator) DeleteRoom() error {
	var err error
	ran := c.do(func() {
		if c.dir.Local().Role != domain.RoleOwner {
			err = ErrNotOwner
			return
		}
		c.publish(EvtDeleteRoom, requestPayload{User: c.dir.Local().DisplayName})
		c.teardown(domain.PhaseRoomDeleted)
	})
	if !ran {
		return ErrSessionEnded
	}
	return err
}

// LeaveRoom tears the session down locally. Safe to call any number of
// times, concurrently with terminal remote events.
func (c *Coordinator) LeaveRoom() {
	c.do(func() { c.teardown(domain.PhaseLeft) })
}

// StartRecording begins capturing the local video feed.
func (c *Coordinator) StartRecording() error {
	var err error
	if !c.do(func() {
		if _, ok := c.tracks.Local(domain.KindVideo); !ok {
			err = ErrNoVideoTrack
			return
		}
		err = c.rec.Start()
	}) {
		return ErrSessionEnded
	}
	return err
}

// StopRecording finalizes the current recording, if any.
func (c *Coordinator) StopRecording() (RecordingSummary, bool) {
	var (
		sum RecordingSummary
		ok  bool
	)
	c.do(func() { sum, ok = c.rec.Stop() })
	return sum, ok
}

// teardown releases every local track, closes the transport and media
// collaborators, and transitions to a terminal phase. It runs exactly once:
// the directory's terminal transition is the gate, so a racing UI action and
// remote signal cannot double-release. Always executes on the event loop.
func (c *Coordinator) teardown(phase domain.Phase) {
	if !c.dir.Terminate(phase) {
		return
	}
	c.rec.Stop()
	for _, t := range c.tracks.ReleaseLocal() {
		c.media.DetachLocal(t)
		t.Dispose()
	}
	c.channel.Close()
	c.media.Close()
	c.notifier.SessionEnded(phase)
	if log.Logger.GetLevel() <= zerolog.DebugLevel {
		log.Debug().Str("module", "session.coordinator").Msg("final directory state\n" + spew.Sdump(c.dir.Snapshot()))
	}
	c.cancel()
}

// Wait blocks until the event loop has exited.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Done is closed once the session has ended.
func (c *Coordinator) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Diagnostics accessors, consumed by the status server.

func (c *Coordinator) Phase() domain.Phase { return c.dir.Phase() }

func (c *Coordinator) ParticipantCount() int { return c.dir.TotalCount() }

func (c *Coordinator) PendingRequests() []string { return c.dir.PendingRequests() }

func (c *Coordinator) ChatLen() int { return c.chat.Len() }

func (c *Coordinator) RemoteTrackCount() int { return c.tracks.RemoteCount() }

func (c *Coordinator) Recording() bool { return c.rec.Recording() }

func (c *Coordinator) Local() domain.Participant { return c.dir.Local() }

func (c *Coordinator) Recorder() *Recorder { return c.rec }

func (c *Coordinator) Participants() []domain.Participant { return c.dir.Snapshot() }

// NopNotifier discards all deltas.
type NopNotifier struct{}

func (NopNotifier) ParticipantsChanged(int) {}

func (NopNotifier) JoinRequested(string) {}

func (NopNotifier) ChatAppended(domain.ChatMessage) {}

func (NopNotifier) FeedChanged(domain.ParticipantID, domain.FeedState) {}

func (NopNotifier) SessionEnded(domain.Phase) {}
