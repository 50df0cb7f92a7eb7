package session

import (
	"sync"
	"testing"

	"github.com/avidela/meetkit/internal/core"
	"github.com/avidela/meetkit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemoteTrack struct {
	owner  domain.ParticipantID
	kind   domain.TrackKind
	origin domain.TrackOrigin
}

func (t *fakeRemoteTrack) Owner() domain.ParticipantID { return t.owner }

func (t *fakeRemoteTrack) Kind() domain.TrackKind { return t.kind }

func (t *fakeRemoteTrack) Origin() domain.TrackOrigin { return t.origin }

func remoteVideo(owner domain.ParticipantID, origin domain.TrackOrigin) *fakeRemoteTrack {
	return &fakeRemoteTrack{owner: owner, kind: domain.KindVideo, origin: origin}
}

func remoteAudio(owner domain.ParticipantID) *fakeRemoteTrack {
	return &fakeRemoteTrack{owner: owner, kind: domain.KindAudio, origin: domain.OriginMicrophone}
}

type fakeLocalTrack struct {
	info     domain.TrackInfo
	mu       sync.Mutex
	muted    bool
	disposed int
}

func (t *fakeLocalTrack) Info() domain.TrackInfo { return t.info }

func (t *fakeLocalTrack) SetMuted(muted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.muted = muted
}

func (t *fakeLocalTrack) Muted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

func (t *fakeLocalTrack) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disposed++
}

func localTrackOf(kind domain.TrackKind, origin domain.TrackOrigin) *fakeLocalTrack {
	return &fakeLocalTrack{info: domain.TrackInfo{Owner: "local", Kind: kind, Origin: origin}}
}

func knownSet(ids ...domain.ParticipantID) func(domain.ParticipantID) bool {
	set := make(map[domain.ParticipantID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id domain.ParticipantID) bool { return set[id] }
}

func TestRegistryRemoteAdd(t *testing.T) {
	r := NewRegistry(knownSet("bob"))

	res := r.OnRemoteAdded(remoteVideo("bob", domain.OriginCamera))
	assert.True(t, res.Attached)
	assert.Equal(t, 1, r.RemoteCount())
	assert.True(t, r.HasVideo("bob"))
}

func TestRegistrySameOriginDuplicateRejected(t *testing.T) {
	r := NewRegistry(knownSet("bob"))
	r.OnRemoteAdded(remoteVideo("bob", domain.OriginCamera))

	res := r.OnRemoteAdded(remoteVideo("bob", domain.OriginCamera))
	assert.True(t, res.Duplicate)
	assert.False(t, res.Attached)
	assert.Equal(t, 1, r.RemoteCount(), "same feed is never held twice")
}

func TestRegistryOriginChangeReplaces(t *testing.T) {
	r := NewRegistry(knownSet("bob"))
	cam := remoteVideo("bob", domain.OriginCamera)
	r.OnRemoteAdded(cam)

	res := r.OnRemoteAdded(remoteVideo("bob", domain.OriginScreen))
	assert.True(t, res.Attached)
	assert.Same(t, cam, res.Replaced)
	assert.Equal(t, 1, r.RemoteCount(), "screen share replaces the camera slot")
}

func TestRegistryUnknownOwnerBuffered(t *testing.T) {
	r := NewRegistry(knownSet())

	res := r.OnRemoteAdded(remoteVideo("bob", domain.OriginCamera))
	assert.True(t, res.Buffered)
	assert.Equal(t, 0, r.RemoteCount())
	assert.Equal(t, 1, r.PendingCount())
}

func TestRegistryJoinThenTrackOrderIndependence(t *testing.T) {
	// Both interleavings of directory join and track arrival converge on the
	// same registry state.
	t.Run("join before track", func(t *testing.T) {
		known := map[domain.ParticipantID]bool{"bob": true}
		r := NewRegistry(func(id domain.ParticipantID) bool { return known[id] })

		res := r.OnRemoteAdded(remoteVideo("bob", domain.OriginCamera))
		assert.True(t, res.Attached)
		assert.True(t, r.HasVideo("bob"))
	})

	t.Run("track before join", func(t *testing.T) {
		known := map[domain.ParticipantID]bool{}
		r := NewRegistry(func(id domain.ParticipantID) bool { return known[id] })

		res := r.OnRemoteAdded(remoteVideo("bob", domain.OriginCamera))
		require.True(t, res.Buffered)

		known["bob"] = true
		attached, dropped := r.FlushPending()
		assert.Len(t, attached, 1)
		assert.Empty(t, dropped)
		assert.True(t, r.HasVideo("bob"))
	})
}

func TestRegistryFlushDropsStillUnknown(t *testing.T) {
	r := NewRegistry(knownSet())
	r.OnRemoteAdded(remoteVideo("ghost", domain.OriginCamera))

	attached, dropped := r.FlushPending()
	assert.Empty(t, attached)
	assert.Len(t, dropped, 1)
	assert.Equal(t, 0, r.PendingCount(), "one retry cycle, then gone")
}

func TestRegistryRemoveByHandleIdentity(t *testing.T) {
	r := NewRegistry(knownSet("bob"))
	cam := remoteVideo("bob", domain.OriginCamera)
	r.OnRemoteAdded(cam)
	r.OnRemoteAdded(remoteVideo("bob", domain.OriginScreen)) // displaces cam

	removed, _ := r.OnRemoteRemoved(cam)
	assert.False(t, removed, "stale handle must not remove the replacement")
	assert.Equal(t, 1, r.RemoteCount())
}

func TestRegistryLastVideoMeansNoFeed(t *testing.T) {
	r := NewRegistry(knownSet("bob"))
	cam := remoteVideo("bob", domain.OriginCamera)
	mic := remoteAudio("bob")
	r.OnRemoteAdded(cam)
	r.OnRemoteAdded(mic)

	removed, lastVideo := r.OnRemoteRemoved(mic)
	assert.True(t, removed)
	assert.False(t, lastVideo)

	removed, lastVideo = r.OnRemoteRemoved(cam)
	assert.True(t, removed)
	assert.True(t, lastVideo)
	assert.Equal(t, domain.FeedNone, r.FeedState("bob", false))
}

func TestRegistryFeedState(t *testing.T) {
	r := NewRegistry(knownSet("bob"))

	assert.Equal(t, domain.FeedNone, r.FeedState("bob", false))
	assert.Equal(t, domain.FeedNone, r.FeedState("bob", true), "no track beats mute flag")

	r.OnRemoteAdded(remoteVideo("bob", domain.OriginCamera))
	assert.Equal(t, domain.FeedLive, r.FeedState("bob", false))
	assert.Equal(t, domain.FeedMuted, r.FeedState("bob", true))
}

func TestRegistryRemoveOwner(t *testing.T) {
	r := NewRegistry(knownSet("bob"))
	r.OnRemoteAdded(remoteVideo("bob", domain.OriginCamera))
	r.OnRemoteAdded(remoteAudio("bob"))
	pending := remoteVideo("ghost", domain.OriginCamera)
	r.OnRemoteAdded(pending)

	dropped := r.RemoveOwner("bob")
	assert.Len(t, dropped, 2)
	assert.Equal(t, 0, r.RemoteCount())
	assert.Equal(t, 1, r.PendingCount(), "other owners' buffered tracks survive")

	dropped = r.RemoveOwner("ghost")
	assert.Len(t, dropped, 1)
	assert.Equal(t, 0, r.PendingCount())
}

func TestRegistryLocalSingleSlotPerKind(t *testing.T) {
	r := NewRegistry(nil)
	cam := localTrackOf(domain.KindVideo, domain.OriginCamera)
	screen := localTrackOf(domain.KindVideo, domain.OriginScreen)

	assert.Nil(t, r.RegisterLocal(cam))
	prev := r.RegisterLocal(screen)
	assert.Same(t, core.LocalTrack(cam), prev)

	got, ok := r.Local(domain.KindVideo)
	require.True(t, ok)
	assert.Same(t, core.LocalTrack(screen), got)
}

func TestRegistryReleaseLocal(t *testing.T) {
	r := NewRegistry(nil)
	r.RegisterLocal(localTrackOf(domain.KindVideo, domain.OriginCamera))
	r.RegisterLocal(localTrackOf(domain.KindAudio, domain.OriginMicrophone))

	out := r.ReleaseLocal()
	assert.Len(t, out, 2)
	_, ok := r.Local(domain.KindVideo)
	assert.False(t, ok)
	assert.Empty(t, r.ReleaseLocal())
}
