package core

import (
	"context"

	"github.com/avidela/meetkit/internal/domain"
)

// LocalTrack is a capture endpoint owned by the track registry once
// registered. Dispose is the caller's job after unregistering; ownership
// transfer stays explicit. Dispose must be idempotent: a teardown racing a
// late acquisition may release the same handle from both sides.
type LocalTrack interface {
	Info() domain.TrackInfo
	SetMuted(muted bool)
	Muted() bool
	Dispose()
}

// RemoteTrack is a received media endpoint. Removal is by handle identity.
type RemoteTrack interface {
	Owner() domain.ParticipantID
	Kind() domain.TrackKind
	Origin() domain.TrackOrigin
}

// MediaEngine abstracts capture acquisition and the remote track lifecycle.
// Acquisition calls block until the device is ready or fails; everything
// else is callback driven. Mute-state changes travel over the signaling
// channel, not through the engine.
type MediaEngine interface {
	// CreateCameraTrack and friends acquire a capture device. May fail
	// (permission denied, device busy); the session must stay consistent.
	CreateCameraTrack(ctx context.Context) (LocalTrack, error)
	CreateMicrophoneTrack(ctx context.Context) (LocalTrack, error)
	CreateScreenTrack(ctx context.Context) (LocalTrack, error)

	// AttachLocal announces a local track to remote peers. DetachLocal
	// withdraws it; it must complete before a replacement is attached.
	AttachLocal(t LocalTrack) error
	DetachLocal(t LocalTrack)

	OnRemoteTrack(fn func(t RemoteTrack))
	OnRemoteTrackRemoved(fn func(t RemoteTrack))

	Close()
}
