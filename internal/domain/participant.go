// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxDisplayNameLen = 36

var (
	ErrNameEmpty   = errors.New("display name empty")
	ErrNameTooLong = errors.New("display name too long")
)

type (
	ParticipantID string
	RoomName      string
)

type Role string

const (
	RoleOwner Role = "owner"
	RoleGuest Role = "guest"
)

// Participant is one room member as observed locally. Identity is ID only;
// DisplayName may be empty at first observation and filled in later.
type Participant struct {
	ID          ParticipantID `json:"userId"`
	DisplayName string        `json:"userName"`
	Role        Role          `json:"role,omitempty"`
	AudioMuted  bool          `json:"audioMuted"`
	VideoMuted  bool          `json:"videoMuted"`
}

// NewLocalParticipant mints the local user entry with a fresh connection id.
func NewLocalParticipant(name string, role Role) (Participant, error) {
	if name == "" {
		return Participant{}, ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return Participant{}, ErrNameTooLong
	}
	return Participant{
		ID:          ParticipantID(uuid.NewString()),
		DisplayName: name,
		Role:        role,
	}, nil
}
