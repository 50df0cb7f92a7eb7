package media

import (
	"strings"
	"sync/atomic"

	"github.com/avidela/meetkit/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// localTrack wraps a static sample track. Muting drops samples at the
// source instead of tearing the track down, so "muted" stays distinct from
// "no track".
type localTrack struct {
	info     domain.TrackInfo
	sample   *webrtc.TrackLocalStaticSample
	engine   *Engine
	muted    atomic.Bool
	disposed atomic.Bool
}

func (t *localTrack) Info() domain.TrackInfo { return t.info }

func (t *localTrack) SetMuted(muted bool) { t.muted.Store(muted) }

func (t *localTrack) Muted() bool { return t.muted.Load() }

// Dispose is idempotent; the capture pipeline may still hold the handle
// after teardown.
func (t *localTrack) Dispose() {
	t.disposed.Store(true)
}

// WriteSample feeds one captured sample. Samples are dropped while muted or
// after disposal. Video payloads are mirrored to the recording sink.
func (t *localTrack) WriteSample(s media.Sample) error {
	if t.muted.Load() || t.disposed.Load() {
		return nil
	}
	if t.info.Kind == domain.KindVideo {
		if sink := t.engine.sampleSink(); sink != nil {
			sink(s.Data)
		}
	}
	return t.sample.WriteSample(s)
}

// remoteTrack maps a pion TrackRemote onto the registry's view. By
// convention the stream id carries the owning participant id and the track
// id is "<origin>-<kind>".
type remoteTrack struct {
	owner  domain.ParticipantID
	kind   domain.TrackKind
	origin domain.TrackOrigin
}

func newRemoteTrack(t *webrtc.TrackRemote) *remoteTrack {
	rt := &remoteTrack{owner: domain.ParticipantID(t.StreamID())}
	if t.Kind() == webrtc.RTPCodecTypeAudio {
		rt.kind = domain.KindAudio
		rt.origin = domain.OriginMicrophone
	} else {
		rt.kind = domain.KindVideo
		rt.origin = domain.OriginCamera
	}
	if strings.HasPrefix(t.ID(), string(domain.OriginScreen)) {
		rt.origin = domain.OriginScreen
	}
	return rt
}

func (t *remoteTrack) Owner() domain.ParticipantID { return t.owner }

func (t *remoteTrack) Kind() domain.TrackKind { return t.kind }

func (t *remoteTrack) Origin() domain.TrackOrigin { return t.origin }
