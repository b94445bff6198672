package signal

import (
	"time"

	"github.com/loopcast/studio-signaling/internal/app"
)

// handleHeartbeat answers a ping with a pong carrying round-trip latency
// measured against the message's own timestamp. This is also what keeps
// lastActivity fresh for otherwise-idle participants.
func (ctl *Controller) handleHeartbeat(conn *app.Connection, msg *Message) {
	latency := time.Since(msg.Timestamp).Milliseconds()
	if latency < 0 {
		latency = 0
	}
	ctl.send(conn, TypeHeartbeat, PongPayload{Pong: true, Latency: latency})
}
