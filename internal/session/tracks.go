package session

import (
	"sync"

	"github.com/avidela/meetkit/internal/core"
	"github.com/avidela/meetkit/internal/domain"
	"github.com/rs/zerolog/log"
)

type remoteKey struct {
	owner domain.ParticipantID
	kind  domain.TrackKind
}

// AddResult describes what a remote track add did.
type AddResult struct {
	Attached  bool
	Buffered  bool
	Duplicate bool
	// Replaced is the displaced handle when an origin change (screen
	// replacing camera) evicted an existing track.
	Replaced core.RemoteTrack
}

// Registry owns the mapping from participant identity to live media tracks.
// Local tracks are exclusively owned here once registered; callers receive
// displaced tracks back and are responsible for disposing them.
type Registry struct {
	mu      sync.Mutex
	local   map[domain.TrackKind]core.LocalTrack
	remote  map[remoteKey]core.RemoteTrack
	pending []core.RemoteTrack
	// known resolves whether the directory has seen an owner yet; track
	// events for unknown owners are buffered one directory-update cycle.
	known func(domain.ParticipantID) bool
}

func NewRegistry(known func(domain.ParticipantID) bool) *Registry {
	return &Registry{
		local:  make(map[domain.TrackKind]core.LocalTrack),
		remote: make(map[remoteKey]core.RemoteTrack),
		known:  known,
	}
}

// RegisterLocal enforces at most one active track per kind for the local
// user. The previous track, if any, is returned for the caller to dispose.
func (r *Registry) RegisterLocal(t core.LocalTrack) (prev core.LocalTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := t.Info()
	prev = r.local[info.Kind]
	r.local[info.Kind] = t
	log.Info().Str("module", "session.tracks").Str("kind", string(info.Kind)).Str("origin", string(info.Origin)).Msg("local track registered")
	return prev
}

func (r *Registry) UnregisterLocal(kind domain.TrackKind) (prev core.LocalTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev = r.local[kind]
	delete(r.local, kind)
	return prev
}

func (r *Registry) Local(kind domain.TrackKind) (core.LocalTrack, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.local[kind]
	return t, ok
}

// ReleaseLocal unregisters every local track and returns them for disposal.
func (r *Registry) ReleaseLocal() []core.LocalTrack {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.LocalTrack, 0, len(r.local))
	for kind, t := range r.local {
		out = append(out, t)
		delete(r.local, kind)
	}
	return out
}

// OnRemoteAdded reconciles a remote track with the per-(owner, kind) slot.
// A second track for an occupied slot replaces the holder only when its
// origin differs; a same-origin add is rejected as a duplicate so the same
// feed is never rendered twice. Tracks for owners the directory has not seen
// yet are buffered, not dropped: arrival order between directory joins and
// track events is not guaranteed.
func (r *Registry) OnRemoteAdded(t core.RemoteTrack) AddResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.known != nil && !r.known(t.Owner()) {
		r.pending = append(r.pending, t)
		log.Debug().Str("module", "session.tracks").Str("owner", string(t.Owner())).Msg("track buffered, owner unknown")
		return AddResult{Buffered: true}
	}
	return r.attachLocked(t)
}

func (r *Registry) attachLocked(t core.RemoteTrack) AddResult {
	key := remoteKey{owner: t.Owner(), kind: t.Kind()}
	existing, ok := r.remote[key]
	if ok {
		if existing.Origin() == t.Origin() {
			log.Debug().Str("module", "session.tracks").Str("owner", string(t.Owner())).Str("kind", string(t.Kind())).Msg("duplicate track rejected")
			return AddResult{Duplicate: true}
		}
		r.remote[key] = t
		log.Info().Str("module", "session.tracks").Str("owner", string(t.Owner())).Str("origin", string(t.Origin())).Msg("track replaced")
		return AddResult{Attached: true, Replaced: existing}
	}
	r.remote[key] = t
	log.Info().Str("module", "session.tracks").Str("owner", string(t.Owner())).Str("kind", string(t.Kind())).Msg("track attached")
	return AddResult{Attached: true}
}

// OnRemoteRemoved removes by handle identity. lastVideo reports that the
// owner's last VIDEO track went away, i.e. the render state is now "no feed"
// as opposed to an explicit mute.
func (r *Registry) OnRemoteRemoved(t core.RemoteTrack) (removed, lastVideo bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.pending {
		if p == t {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return true, false
		}
	}
	key := remoteKey{owner: t.Owner(), kind: t.Kind()}
	if cur, ok := r.remote[key]; !ok || cur != t {
		return false, false
	}
	delete(r.remote, key)
	if t.Kind() == domain.KindVideo {
		lastVideo = true
	}
	log.Info().Str("module", "session.tracks").Str("owner", string(t.Owner())).Str("kind", string(t.Kind())).Msg("track removed")
	return true, lastVideo
}

// RemoveOwner drops every track belonging to a departed participant.
func (r *Registry) RemoveOwner(id domain.ParticipantID) (dropped []core.RemoteTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, t := range r.remote {
		if key.owner == id {
			dropped = append(dropped, t)
			delete(r.remote, key)
		}
	}
	kept := r.pending[:0]
	for _, t := range r.pending {
		if t.Owner() == id {
			dropped = append(dropped, t)
			continue
		}
		kept = append(kept, t)
	}
	r.pending = kept
	return dropped
}

// FlushPending retries buffered tracks after a directory mutation. Tracks
// whose owner is now known attach through the usual reconciliation; the rest
// have used up their one cycle and are dropped.
func (r *Registry) FlushPending() (attached, dropped []core.RemoteTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil, nil
	}
	buffered := r.pending
	r.pending = nil
	for _, t := range buffered {
		if r.known != nil && !r.known(t.Owner()) {
			dropped = append(dropped, t)
			log.Debug().Str("module", "session.tracks").Str("owner", string(t.Owner())).Msg("buffered track dropped, owner still unknown")
			continue
		}
		if res := r.attachLocked(t); res.Attached {
			attached = append(attached, t)
		}
	}
	return attached, dropped
}

// HasVideo reports whether owner has a live video track registered.
func (r *Registry) HasVideo(owner domain.ParticipantID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.remote[remoteKey{owner: owner, kind: domain.KindVideo}]
	return ok
}

// FeedState derives the render state of owner's video slot from track
// presence and the directory's mute flag.
func (r *Registry) FeedState(owner domain.ParticipantID, videoMuted bool) domain.FeedState {
	if !r.HasVideo(owner) {
		return domain.FeedNone
	}
	if videoMuted {
		return domain.FeedMuted
	}
	return domain.FeedLive
}

func (r *Registry) RemoteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.remote)
}

func (r *Registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
