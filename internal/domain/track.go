package domain

type TrackKind string

const (
	KindAudio TrackKind = "audio"
	KindVideo TrackKind = "video"
)

type TrackOrigin string

const (
	OriginCamera     TrackOrigin = "camera"
	OriginMicrophone TrackOrigin = "microphone"
	OriginScreen     TrackOrigin = "screen"
)

// TrackInfo describes one media stream endpoint.
type TrackInfo struct {
	Owner  ParticipantID `json:"userId"`
	Kind   TrackKind     `json:"kind"`
	Origin TrackOrigin   `json:"origin"`
}

// FeedState is the render state of a participant's video slot.
// "no-feed" (no track at all) is distinct from "muted" (track present).
type FeedState string

const (
	FeedLive  FeedState = "live"
	FeedMuted FeedState = "muted"
	FeedNone  FeedState = "no-feed"
)
