package core

import (
	"context"
	"errors"
	"net/http"

	"github.com/loopcast/studio-signaling/internal/domain"
)

// Frame is a raw wire payload (one JSON-encoded signaling message).
type Frame []byte

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// SignalConnection abstracts the messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Authenticator resolves the identity behind a connection upgrade request.
type Authenticator interface {
	Authenticate(r *http.Request) (domain.Identity, error)
}

// RoomRepository is the read-only room lookup collaborator.
type RoomRepository interface {
	FindRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
}

// PresenceNotifier records guest arrival and departure. Calls are
// best-effort and asynchronous; failures must never reach the wire path.
type PresenceNotifier interface {
	MarkGuestSeen(id domain.ParticipantID)
	MarkGuestLeft(id domain.ParticipantID)
}
