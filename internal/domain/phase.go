package domain

// Phase is the room session lifecycle. REQUESTING_JOIN is skipped entirely
// when the local user created the room.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseRequestingJoin
	PhaseActive
	PhaseRejected
	PhaseLeft
	PhaseRoomDeleted
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseRequestingJoin:
		return "requesting-join"
	case PhaseActive:
		return "active"
	case PhaseRejected:
		return "rejected"
	case PhaseLeft:
		return "left"
	case PhaseRoomDeleted:
		return "room-deleted"
	}
	return "unknown"
}

// Terminal reports whether the phase admits no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseRejected || p == PhaseLeft || p == PhaseRoomDeleted
}
