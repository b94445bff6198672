package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reaper periodically evicts connections that stopped sending activity.
// It is the backstop against half-open transports where the network never
// delivered a close event; without it ghost participants would hold room
// capacity indefinitely.
type Reaper struct {
	Registry *Registry
	Interval time.Duration
	MaxIdle  time.Duration
}

// Run sweeps until ctx is cancelled. Eviction goes through each
// connection's own lifecycle cancel, never through the transport directly,
// and tolerates connections closing themselves mid-sweep.
func (rp *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(rp.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.reaper").Msg("reaper stopped")
			return
		case <-ticker.C:
			stale := rp.Registry.CleanupInactive(rp.MaxIdle)
			for _, c := range stale {
				log.Info().Str("module", "app.reaper").Str("conn", c.ID).
					Str("participant", string(c.ParticipantID)).
					Time("last_activity", c.LastActivity()).
					Msg("evicting idle connection")
				c.Cancel()
			}
		}
	}
}
