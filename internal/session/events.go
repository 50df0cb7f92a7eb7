package session

import (
	"encoding/json"
	"time"

	"github.com/avidela/meetkit/internal/core"
	"github.com/avidela/meetkit/internal/domain"
	"github.com/rs/zerolog/log"
)

// Inbound signaling events. Transports differ in naming for the same
// semantic (user-joined vs member-joined, whiteboard-data vs drawing); the
// routing table maps every recognized variant, so supporting a new
// transport's vocabulary is a table edit.
const (
	EvtUserJoined       core.EventName = "user-joined"
	EvtMemberJoined     core.EventName = "member-joined"
	EvtUserLeft         core.EventName = "user-left"
	EvtParticipantsList core.EventName = "participants-list"
	EvtJoinRequest      core.EventName = "join-request"
	EvtJoinApproved     core.EventName = "join-approved"
	EvtJoinRejected     core.EventName = "join-rejected"
	EvtJoinPending      core.EventName = "join-pending"
	EvtRoomNotFound     core.EventName = "room-not-found"
	EvtRoomDeleted      core.EventName = "room-deleted"
	EvtChatMessage      core.EventName = "chat-message"
	EvtWhiteboardData   core.EventName = "whiteboard-data"
	EvtDrawing          core.EventName = "drawing"
	EvtWhiteboardClear  core.EventName = "whiteboard-clear"
	EvtTrackMuteChanged core.EventName = "track-mute-changed"
)

// Outbound publishes.
const (
	EvtJoinRoom   core.EventName = "join-room"
	EvtAcceptJoin core.EventName = "accept-join"
	EvtRejectJoin core.EventName = "reject-join"
	EvtDeleteRoom core.EventName = "delete-room"
	EvtInvite     core.EventName = "invite"
)

type joinPayload struct {
	RoomID   domain.RoomName      `json:"roomId"`
	UserID   domain.ParticipantID `json:"userId"`
	UserName string               `json:"userName"`
}

type memberPayload struct {
	User    domain.Participant   `json:"user"`
	Members []domain.Participant `json:"members"`
}

type leftPayload struct {
	UserID domain.ParticipantID `json:"userId"`
}

type requestPayload struct {
	User string `json:"user"`
}

type resolvePayload struct {
	RoomID domain.RoomName `json:"roomId"`
	User   string          `json:"user"`
}

type invitePayload struct {
	RoomID  domain.RoomName `json:"roomId"`
	Invitee string          `json:"invitee"`
}

type chatPayload struct {
	ID        domain.MessageID     `json:"id,omitempty"`
	UserID    domain.ParticipantID `json:"userId"`
	UserName  string               `json:"userName"`
	Message   string               `json:"message"`
	Timestamp int64                `json:"timestamp"`
}

type mutePayload struct {
	UserID domain.ParticipantID `json:"userId"`
	Kind   domain.TrackKind     `json:"kind"`
	Muted  bool                 `json:"muted"`
}

// eventTable binds every inbound event name to exactly one handler. All
// handlers run as reaction steps on the coordinator loop.
func (c *Coordinator) eventTable() map[core.EventName]core.Handler {
	return map[core.EventName]core.Handler{
		EvtUserJoined:       c.onEvent(c.handleUserJoined),
		EvtMemberJoined:     c.onEvent(c.handleMemberJoined),
		EvtUserLeft:         c.onEvent(c.handleUserLeft),
		EvtParticipantsList: c.onEvent(c.handleParticipantsList),
		EvtJoinRequest:      c.onEvent(c.handleJoinRequest),
		EvtJoinApproved:     c.onEvent(c.handleJoinApproved),
		EvtJoinRejected:     c.onEvent(c.handleJoinRejected),
		EvtJoinPending:      c.onEvent(c.handleJoinPending),
		EvtRoomNotFound:     c.onEvent(c.handleRoomGone),
		EvtRoomDeleted:      c.onEvent(c.handleRoomGone),
		EvtChatMessage:      c.onEvent(c.handleChatMessage),
		EvtWhiteboardData:   c.onEvent(c.handleStroke),
		EvtDrawing:          c.onEvent(c.handleStroke),
		EvtWhiteboardClear:  c.onEvent(c.handleClear),
		EvtTrackMuteChanged: c.onEvent(c.handleMuteChanged),
	}
}

// onEvent wraps a handler so it executes serialized on the event loop.
func (c *Coordinator) onEvent(h core.Handler) core.Handler {
	return func(data []byte) {
		c.enqueue(func() { h(data) })
	}
}

func decode[T any](data []byte, name string) (T, bool) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "session.coordinator").Str("event", name).Msg("bad payload")
		return p, false
	}
	return p, true
}

func (c *Coordinator) handleUserJoined(data []byte) {
	p, ok := decode[domain.Participant](data, "user-joined")
	if !ok {
		return
	}
	c.dir.ApplyJoin(p)
	c.flushPendingTracks()
	c.notifier.ParticipantsChanged(c.dir.TotalCount())
}

func (c *Coordinator) handleMemberJoined(data []byte) {
	p, ok := decode[memberPayload](data, "member-joined")
	if !ok {
		return
	}
	c.dir.ApplySnapshot(p.Members)
	c.flushPendingTracks()
	c.notifier.ParticipantsChanged(c.dir.TotalCount())
}

func (c *Coordinator) handleUserLeft(data []byte) {
	p, ok := decode[leftPayload](data, "user-left")
	if !ok {
		return
	}
	if c.dir.ApplyLeave(p.UserID) {
		c.tracks.RemoveOwner(p.UserID)
		c.notifier.FeedChanged(p.UserID, domain.FeedNone)
		c.notifier.ParticipantsChanged(c.dir.TotalCount())
	}
}

func (c *Coordinator) handleParticipantsList(data []byte) {
	list, ok := decode[[]domain.Participant](data, "participants-list")
	if !ok {
		return
	}
	c.dir.ApplySnapshot(list)
	c.flushPendingTracks()
	c.notifier.ParticipantsChanged(c.dir.TotalCount())
}

func (c *Coordinator) handleJoinRequest(data []byte) {
	if c.dir.Local().Role != domain.RoleOwner {
		return
	}
	p, ok := decode[requestPayload](data, "join-request")
	if !ok {
		return
	}
	c.dir.ApplyJoinRequest(p.User)
	c.notifier.JoinRequested(p.User)
}

func (c *Coordinator) handleJoinApproved(data []byte) {
	c.dir.Approve()
	if p, ok := decode[memberPayload](data, "join-approved"); ok && len(p.Members) > 0 {
		c.dir.ApplySnapshot(p.Members)
		c.flushPendingTracks()
	}
	c.notifier.ParticipantsChanged(c.dir.TotalCount())
}

func (c *Coordinator) handleJoinRejected([]byte) {
	c.teardown(domain.PhaseRejected)
}

func (c *Coordinator) handleJoinPending([]byte) {
	log.Info().Str("module", "session.coordinator").Msg("join pending owner approval")
}

func (c *Coordinator) handleRoomGone([]byte) {
	c.teardown(domain.PhaseRoomDeleted)
}

func (c *Coordinator) handleChatMessage(data []byte) {
	p, ok := decode[chatPayload](data, "chat-message")
	if !ok {
		return
	}
	msg := domain.ChatMessage{
		ID:         p.ID,
		Author:     p.UserID,
		AuthorName: p.UserName,
		Text:       p.Message,
		SentAt:     time.UnixMilli(p.Timestamp),
	}
	if c.chat.AppendRemote(msg) {
		c.notifier.ChatAppended(msg)
	}
}

func (c *Coordinator) handleStroke(data []byte) {
	seg, ok := decode[domain.StrokeSegment](data, "whiteboard-data")
	if !ok {
		return
	}
	c.board.RemoteStroke(seg)
}

func (c *Coordinator) handleClear([]byte) {
	c.board.Clear()
}

func (c *Coordinator) handleMuteChanged(data []byte) {
	p, ok := decode[mutePayload](data, "track-mute-changed")
	if !ok {
		return
	}
	if !c.dir.SetMuted(p.UserID, p.Kind, p.Muted) {
		return
	}
	if p.Kind == domain.KindVideo {
		c.notifier.FeedChanged(p.UserID, c.tracks.FeedState(p.UserID, p.Muted))
	}
}
