// Package media adapts pion/webrtc to the MediaEngine capability the
// session consumes. ICE/SDP negotiation is the embedder's business; only
// the track lifecycle crosses this boundary.
package media

import (
	"context"
	"errors"
	"sync"

	"github.com/avidela/meetkit/internal/core"
	"github.com/avidela/meetkit/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ErrForeignTrack means the track was not minted by this engine.
var ErrForeignTrack = errors.New("track does not belong to this engine")

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// Engine owns one PeerConnection. Remote tracks surface through callbacks;
// local tracks are minted here and fed by the embedder's capture pipeline
// via WriteSample.
type Engine struct {
	pc      *webrtc.PeerConnection
	localID domain.ParticipantID

	mu        sync.Mutex
	onRemote  func(core.RemoteTrack)
	onRemoved func(core.RemoteTrack)
	onSample  func([]byte)
	senders   map[core.LocalTrack]*webrtc.RTPSender
	closed    bool

	cancel context.CancelFunc
}

func NewEngine(cfg webrtc.Configuration) (*Engine, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		pc:      pc,
		senders: make(map[core.LocalTrack]*webrtc.RTPSender),
	}, nil
}

// SetLocalID fixes the stream id local tracks are published under. Must be
// set before the first track is created.
func (e *Engine) SetLocalID(id domain.ParticipantID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.localID = id
}

// Start configures internal callbacks and binds the engine lifetime to ctx.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "adapters.media").Str("peer_connection_state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			cancel()
		}
	})

	e.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		rt := newRemoteTrack(track)
		log.Info().
			Str("module", "adapters.media").
			Str("owner", string(rt.Owner())).
			Str("kind", string(rt.Kind())).
			Str("origin", string(rt.Origin())).
			Msg("remote track")
		e.mu.Lock()
		fn := e.onRemote
		e.mu.Unlock()
		if fn != nil {
			fn(rt)
		}
		go e.drain(ctx, track, rt)
	})

	return nil
}

// drain keeps the remote track's read side alive. A read error is the only
// removal signal the transport gives us.
func (e *Engine) drain(ctx context.Context, track *webrtc.TrackRemote, rt core.RemoteTrack) {
	buf := make([]byte, 1500)
	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := track.Read(buf); err != nil {
			log.Info().Str("module", "adapters.media").Str("owner", string(rt.Owner())).Msg("remote track ended")
			e.mu.Lock()
			fn := e.onRemoved
			e.mu.Unlock()
			if fn != nil {
				fn(rt)
			}
			return
		}
	}
}

func (e *Engine) OnRemoteTrack(fn func(core.RemoteTrack)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRemote = fn
}

func (e *Engine) OnRemoteTrackRemoved(fn func(core.RemoteTrack)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRemoved = fn
}

// OnLocalVideoSample sets the sink receiving every local video sample
// payload, used for recording. Not part of core.MediaEngine; wired directly
// by the embedder.
func (e *Engine) OnLocalVideoSample(fn func([]byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSample = fn
}

func (e *Engine) CreateCameraTrack(ctx context.Context) (core.LocalTrack, error) {
	return e.createLocal(ctx, domain.KindVideo, domain.OriginCamera, webrtc.MimeTypeVP8)
}

func (e *Engine) CreateScreenTrack(ctx context.Context) (core.LocalTrack, error) {
	return e.createLocal(ctx, domain.KindVideo, domain.OriginScreen, webrtc.MimeTypeVP8)
}

func (e *Engine) CreateMicrophoneTrack(ctx context.Context) (core.LocalTrack, error) {
	return e.createLocal(ctx, domain.KindAudio, domain.OriginMicrophone, webrtc.MimeTypeOpus)
}

func (e *Engine) createLocal(ctx context.Context, kind domain.TrackKind, origin domain.TrackOrigin, mime string) (core.LocalTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	localID := e.localID
	e.mu.Unlock()
	sample, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mime},
		trackID(origin, kind),
		string(localID),
	)
	if err != nil {
		return nil, err
	}
	return &localTrack{
		info: domain.TrackInfo{
			Owner:  localID,
			Kind:   kind,
			Origin: origin,
		},
		sample: sample,
		engine: e,
	}, nil
}

func (e *Engine) AttachLocal(t core.LocalTrack) error {
	lt, ok := t.(*localTrack)
	if !ok {
		return ErrForeignTrack
	}
	sender, err := e.pc.AddTrack(lt.sample)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.senders[t] = sender
	e.mu.Unlock()
	log.Info().Str("module", "adapters.media").Str("origin", string(t.Info().Origin)).Msg("local track attached")
	return nil
}

func (e *Engine) DetachLocal(t core.LocalTrack) {
	e.mu.Lock()
	sender, ok := e.senders[t]
	delete(e.senders, t)
	e.mu.Unlock()
	if !ok {
		return
	}
	if err := e.pc.RemoveTrack(sender); err != nil {
		log.Error().Err(err).Str("module", "adapters.media").Msg("remove track")
	}
}

func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	if err := e.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "adapters.media").Msg("close error")
	} else {
		log.Info().Str("module", "adapters.media").Msg("closed")
	}
}

func (e *Engine) sampleSink() func([]byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.onSample
}

func trackID(origin domain.TrackOrigin, kind domain.TrackKind) string {
	return string(origin) + "-" + string(kind)
}
