// Package session implements the room coordination core: membership,
// track reconciliation, whiteboard replication and chat ordering.
package session

import (
	"sync"

	"github.com/avidela/meetkit/internal/domain"
	"github.com/rs/zerolog/log"
)

// Directory owns the authoritative list of room members, the pending
// join-request queue and the room lifecycle phase. Remote entries are keyed
// by participant id; the local user entry is held apart and is never part of
// the remote-sourced set.
type Directory struct {
	mu      sync.Mutex
	local   domain.Participant
	remote  map[domain.ParticipantID]*domain.Participant
	pending []string
	phase   domain.Phase
}

func NewDirectory(local domain.Participant) *Directory {
	return &Directory{
		local:  local,
		remote: make(map[domain.ParticipantID]*domain.Participant),
	}
}

// BeginJoin moves the room out of UNINITIALIZED. The owner path bypasses
// approval entirely.
func (d *Directory) BeginJoin() domain.Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != domain.PhaseUninitialized {
		return d.phase
	}
	if d.local.Role == domain.RoleOwner {
		d.phase = domain.PhaseActive
	} else {
		d.phase = domain.PhaseRequestingJoin
	}
	log.Info().Str("module", "session.directory").Stringer("phase", d.phase).Msg("join started")
	return d.phase
}

// Approve transitions REQUESTING_JOIN to ACTIVE. Redundant approvals are
// absorbed.
func (d *Directory) Approve() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase == domain.PhaseRequestingJoin {
		d.phase = domain.PhaseActive
		log.Info().Str("module", "session.directory").Msg("join approved")
	}
}

// Terminate moves the room to a terminal phase. Returns true only for the
// transition that actually happened, so teardown runs exactly once even when
// a UI action and a remote signal race.
func (d *Directory) Terminate(phase domain.Phase) bool {
	if !phase.Terminal() {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase.Terminal() {
		return false
	}
	d.phase = phase
	log.Info().Str("module", "session.directory").Stringer("phase", phase).Msg("session terminated")
	return true
}

func (d *Directory) Phase() domain.Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// ApplyJoin inserts or updates by id. A later event may fill in a display
// name that was empty at first observation; an empty incoming name never
// erases a known one.
func (d *Directory) ApplyJoin(p domain.Participant) (added bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.ID == "" || p.ID == d.local.ID {
		return false
	}
	existing, ok := d.remote[p.ID]
	if !ok {
		cp := p
		d.remote[p.ID] = &cp
		log.Info().Str("module", "session.directory").Str("id", string(p.ID)).Str("name", p.DisplayName).Msg("participant joined")
		return true
	}
	if p.DisplayName != "" {
		existing.DisplayName = p.DisplayName
	}
	if p.Role != "" {
		existing.Role = p.Role
	}
	return false
}

// ApplyLeave removes by id. Unknown ids are a no-op, not an error: leave
// events can outrun the join they refer to.
func (d *Directory) ApplyLeave(id domain.ParticipantID) (removed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.remote[id]; !ok {
		return false
	}
	delete(d.remote, id)
	log.Info().Str("module", "session.directory").Str("id", string(id)).Msg("participant left")
	return true
}

// ApplySnapshot replaces the whole remote participant set. The local entry is
// untouched regardless of snapshot content. Mute flags already observed for a
// surviving id are carried over, since snapshots do not carry mute state.
func (d *Directory) ApplySnapshot(list []domain.Participant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := make(map[domain.ParticipantID]*domain.Participant, len(list))
	for _, p := range list {
		if p.ID == "" || p.ID == d.local.ID {
			continue
		}
		cp := p
		if prev, ok := d.remote[p.ID]; ok {
			cp.AudioMuted = prev.AudioMuted
			cp.VideoMuted = prev.VideoMuted
			if cp.DisplayName == "" {
				cp.DisplayName = prev.DisplayName
			}
		}
		next[cp.ID] = &cp
	}
	d.remote = next
	log.Info().Str("module", "session.directory").Int("remote", len(next)).Msg("snapshot applied")
}

// ApplyJoinRequest enqueues a pending approval. Requests are keyed by name
// since the requester has no room identity yet; duplicate names are allowed.
func (d *Directory) ApplyJoinRequest(name string) {
	if name == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, name)
	log.Info().Str("module", "session.directory").Str("name", name).Msg("join request queued")
}

// ResolveJoinRequest removes the first pending entry matching name.
// First-approved wins between identically named requesters.
func (d *Directory) ResolveJoinRequest(name string, accepted bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, n := range d.pending {
		if n == name {
			d.pending = append(d.pending[:i], d.pending[i+1:]...)
			log.Info().Str("module", "session.directory").Str("name", name).Bool("accepted", accepted).Msg("join request resolved")
			return true
		}
	}
	return false
}

func (d *Directory) PendingRequests() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.pending))
	copy(out, d.pending)
	return out
}

// SetMuted updates the muted flag of a known participant (local included).
// Track presence is unaffected.
func (d *Directory) SetMuted(id domain.ParticipantID, kind domain.TrackKind, muted bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	var p *domain.Participant
	if id == d.local.ID {
		p = &d.local
	} else if rp, ok := d.remote[id]; ok {
		p = rp
	} else {
		return false
	}
	switch kind {
	case domain.KindAudio:
		p.AudioMuted = muted
	case domain.KindVideo:
		p.VideoMuted = muted
	}
	return true
}

func (d *Directory) Get(id domain.ParticipantID) (domain.Participant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == d.local.ID {
		return d.local, true
	}
	if p, ok := d.remote[id]; ok {
		return *p, true
	}
	return domain.Participant{}, false
}

// Has reports whether id is known, local user included.
func (d *Directory) Has(id domain.ParticipantID) bool {
	_, ok := d.Get(id)
	return ok
}

func (d *Directory) Local() domain.Participant {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local
}

// TotalCount is the local user plus the remote directory size.
func (d *Directory) TotalCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return 1 + len(d.remote)
}

// Snapshot returns copies of the remote entries, for diagnostics.
func (d *Directory) Snapshot() []domain.Participant {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Participant, 0, len(d.remote))
	for _, p := range d.remote {
		out = append(out, *p)
	}
	return out
}
