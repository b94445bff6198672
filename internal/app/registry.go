package app

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loopcast/studio-signaling/internal/core"
	"github.com/loopcast/studio-signaling/internal/domain"
)

var ErrRoomFull = errors.New("room full")

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []*Connection
}

// Registry is the authoritative in-memory index of live connections,
// grouped by room. Constructed once at startup and injected everywhere;
// all mutations happen under one RWMutex.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	rooms map[domain.RoomID]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		rooms: make(map[domain.RoomID]map[string]struct{}),
	}
}

// Add registers a connection and inserts it into its room's membership
// set, enforcing maxParticipants under the registry lock so two
// concurrent upgrades cannot both take the last slot. Idempotent per
// connection id. A live connection for the same participant is evicted
// first (duplicate tab policy: evict-and-replace), so a reconnect never
// fails against its own half-dead session even in a full room.
func (r *Registry) Add(c *Connection, maxParticipants int) error {
	var evicted *Connection

	r.mu.Lock()
	if _, ok := r.conns[c.ID]; ok {
		r.mu.Unlock()
		return nil
	}
	for _, old := range r.conns {
		if old.ParticipantID == c.ParticipantID {
			evicted = old
			r.detachLocked(old.ID)
			break
		}
	}
	full := maxParticipants > 0 && len(r.rooms[c.RoomID]) >= maxParticipants
	if !full {
		r.conns[c.ID] = c
		members, ok := r.rooms[c.RoomID]
		if !ok {
			members = make(map[string]struct{})
			r.rooms[c.RoomID] = members
		}
		members[c.ID] = struct{}{}
	}
	r.mu.Unlock()

	if evicted != nil {
		log.Info().Str("module", "app.registry").
			Str("participant", string(c.ParticipantID)).
			Str("old_conn", evicted.ID).Str("new_conn", c.ID).
			Msg("evicting duplicate participant connection")
		evicted.Cancel()
	}
	if full {
		log.Warn().Str("module", "app.registry").Str("conn", c.ID).
			Str("room", string(c.RoomID)).Msg("registration rejected, room full")
		return ErrRoomFull
	}
	log.Info().Str("module", "app.registry").Str("conn", c.ID).
		Str("participant", string(c.ParticipantID)).Str("room", string(c.RoomID)).
		Msg("connection registered")
	return nil
}

// detachLocked removes the connection from both indexes. Empty room
// entries are deleted so dead rooms do not accumulate.
func (r *Registry) detachLocked(id string) *Connection {
	c, ok := r.conns[id]
	if !ok {
		return nil
	}
	delete(r.conns, id)
	if members, ok := r.rooms[c.RoomID]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.rooms, c.RoomID)
		}
	}
	return c
}

// Remove deregisters a connection. Unknown ids are a no-op and return nil.
func (r *Registry) Remove(id string) *Connection {
	r.mu.Lock()
	c := r.detachLocked(id)
	r.mu.Unlock()
	if c != nil {
		log.Info().Str("module", "app.registry").Str("conn", id).
			Str("participant", string(c.ParticipantID)).Msg("connection removed")
	}
	return c
}

func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// RoomConnections returns a snapshot of the room's members, safe to
// iterate while joins and leaves proceed concurrently.
func (r *Registry) RoomConnections(roomID domain.RoomID) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.rooms[roomID]))
	for id := range r.rooms[roomID] {
		if c, ok := r.conns[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) ParticipantCount(roomID domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// FindParticipant looks a participant up within one room.
func (r *Registry) FindParticipant(roomID domain.RoomID, pid domain.ParticipantID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.rooms[roomID] {
		if c, ok := r.conns[id]; ok && c.ParticipantID == pid {
			return c, true
		}
	}
	return nil, false
}

// SendTo delivers point-to-point by participant id. Returns false when no
// open connection matches; callers treat that as "target not reachable".
func (r *Registry) SendTo(pid domain.ParticipantID, data core.Frame) bool {
	r.mu.RLock()
	var target *Connection
	for _, c := range r.conns {
		if c.ParticipantID == pid {
			target = c
			break
		}
	}
	r.mu.RUnlock()
	if target == nil {
		return false
	}
	if err := target.Signal.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "app.registry").
			Str("participant", string(pid)).Msg("point-to-point send failed")
		return false
	}
	return true
}

// Broadcast fans data out to every room member except excludeID. Each
// send is independent and best-effort; slow receivers are reported back,
// never waited on.
func (r *Registry) Broadcast(roomID domain.RoomID, data core.Frame, excludeID string) PublishResult {
	res := PublishResult{}
	for _, c := range r.RoomConnections(roomID) {
		if c.ID == excludeID {
			continue
		}
		if err := c.Signal.TrySend(data); err != nil {
			log.Warn().Err(err).Str("module", "app.registry").
				Str("conn", c.ID).Str("room", string(roomID)).Msg("broadcast send dropped")
			res.Dropped = append(res.Dropped, c)
			continue
		}
		res.SentTo++
	}
	return res
}

// CleanupInactive collects connections whose last activity predates the
// cutoff. The registry never closes transports itself: the caller cancels
// each returned connection so teardown runs through the lifecycle path.
func (r *Registry) CleanupInactive(maxIdle time.Duration) []*Connection {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.RLock()
	stale := make([]*Connection, 0)
	for _, c := range r.conns {
		if c.LastActivity().Before(cutoff) {
			stale = append(stale, c)
		}
	}
	r.mu.RUnlock()
	return stale
}
