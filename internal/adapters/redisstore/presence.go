package redisstore

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loopcast/studio-signaling/internal/domain"
)

const (
	guestKeyPrefix = "guest:"
	guestTTL       = 24 * time.Hour
	presenceBuffer = 256
)

type presenceEvent struct {
	id   domain.ParticipantID
	left bool
}

// Notifier implements core.PresenceNotifier. Events are queued onto a
// bounded channel and written by a single worker, so redis latency or
// outages never touch the signaling hot path. When the queue is full the
// event is dropped and logged, by contract best-effort.
type Notifier struct {
	store  *Store
	events chan presenceEvent
}

func NewNotifier(store *Store) *Notifier {
	return &Notifier{
		store:  store,
		events: make(chan presenceEvent, presenceBuffer),
	}
}

func (n *Notifier) MarkGuestSeen(id domain.ParticipantID) {
	n.enqueue(presenceEvent{id: id})
}

func (n *Notifier) MarkGuestLeft(id domain.ParticipantID) {
	n.enqueue(presenceEvent{id: id, left: true})
}

func (n *Notifier) enqueue(ev presenceEvent) {
	select {
	case n.events <- ev:
	default:
		log.Warn().Str("module", "redisstore.presence").
			Str("guest", string(ev.id)).Msg("presence queue full, event dropped")
	}
}

// Run drains the queue until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "redisstore.presence").Msg("presence worker stopped")
			return
		case ev := <-n.events:
			n.write(ctx, ev)
		}
	}
}

func (n *Notifier) write(ctx context.Context, ev presenceEvent) {
	opCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	key := guestKeyPrefix + string(ev.id)
	field := "last_seen"
	if ev.left {
		field = "left_at"
	}
	pipe := n.store.rdb.Pipeline()
	pipe.HSet(opCtx, key, field, time.Now().UTC().Format(time.RFC3339))
	pipe.Expire(opCtx, key, guestTTL)
	if _, err := pipe.Exec(opCtx); err != nil {
		log.Warn().Err(err).Str("module", "redisstore.presence").
			Str("guest", string(ev.id)).Str("field", field).Msg("presence update failed")
	}
}
