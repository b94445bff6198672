// Package domain contains entities without logic, just meta-data
package domain

import "errors"

const (
	MaxParticipantIDLen   = 64
	MaxParticipantNameLen = 64
)

var (
	ErrNameEmpty   = errors.New("participant name empty")
	ErrNameTooLong = errors.New("participant name too long")
)

type (
	ParticipantID   string
	ParticipantType string
)

const (
	ParticipantHost  ParticipantType = "host"
	ParticipantGuest ParticipantType = "guest"
)

func (t ParticipantType) Valid() bool {
	return t == ParticipantHost || t == ParticipantGuest
}

// Identity is the resolved result of authenticating an upgrade request.
// No connection is ever registered without one.
type Identity struct {
	ParticipantID   ParticipantID
	ParticipantName string
	ParticipantType ParticipantType
	RoomID          RoomID
}

func (i Identity) Validate() error {
	if i.ParticipantID == "" || i.RoomID == "" {
		return errors.New("incomplete identity")
	}
	if i.ParticipantName == "" {
		return ErrNameEmpty
	}
	if len(i.ParticipantName) > MaxParticipantNameLen {
		return ErrNameTooLong
	}
	if !i.ParticipantType.Valid() {
		return errors.New("unknown participant type")
	}
	return nil
}

// Participant is the read-only view sent to clients (no transport fields).
type Participant struct {
	ID   ParticipantID   `json:"id"`
	Name string          `json:"name"`
	Type ParticipantType `json:"type"`
}
