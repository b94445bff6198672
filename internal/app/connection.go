package app

import (
	"context"
	"sync"
	"time"

	"github.com/loopcast/studio-signaling/internal/core"
	"github.com/loopcast/studio-signaling/internal/domain"
)

// Connection is one live transport session bound to a verified identity.
// The registry holds these; the transport itself belongs to the signal
// adapter, which is the only place allowed to close it.
type Connection struct {
	ID              string
	RoomID          domain.RoomID
	ParticipantID   domain.ParticipantID
	ParticipantName string
	ParticipantType domain.ParticipantType

	Signal core.SignalConnection

	cancel context.CancelFunc

	mu           sync.RWMutex
	capabilities map[string]any
	lastActivity time.Time
}

func NewConnection(id string, ident domain.Identity, sig core.SignalConnection, cancel context.CancelFunc) *Connection {
	return &Connection{
		ID:              id,
		RoomID:          ident.RoomID,
		ParticipantID:   ident.ParticipantID,
		ParticipantName: ident.ParticipantName,
		ParticipantType: ident.ParticipantType,
		Signal:          sig,
		cancel:          cancel,
		lastActivity:    time.Now(),
	}
}

// Touch refreshes the activity timestamp; called on every inbound frame.
func (c *Connection) Touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *Connection) LastActivity() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

func (c *Connection) SetCapabilities(caps map[string]any) {
	c.mu.Lock()
	c.capabilities = caps
	c.mu.Unlock()
}

func (c *Connection) Capabilities() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capabilities
}

// Cancel asks the lifecycle owner to tear the connection down. It never
// touches the transport directly; the read/write loops observe the
// context and run the single teardown path.
func (c *Connection) Cancel() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Connection) Participant() domain.Participant {
	return domain.Participant{
		ID:   c.ParticipantID,
		Name: c.ParticipantName,
		Type: c.ParticipantType,
	}
}
