package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/loopcast/studio-signaling/internal/app"
)

// route dispatches one validated message. The identity gate runs first,
// centrally: a frame claiming someone else's participantId or roomId is
// rejected before any type-specific logic sees it.
func (ctl *Controller) route(ctx context.Context, conn *app.Connection, msg *Message) {
	if msg.ParticipantID != conn.ParticipantID || msg.RoomID != conn.RoomID {
		log.Warn().Str("module", "signal").Str("conn", conn.ID).
			Str("claimed", string(msg.ParticipantID)).
			Str("bound", string(conn.ParticipantID)).
			Msg("identity mismatch")
		ctl.sendError(conn, CodeAuthenticationFailed, "message identity does not match connection")
		return
	}

	switch msg.Type {
	case TypeJoin:
		ctl.handleJoin(ctx, conn, msg)
	case TypeLeave:
		ctl.handleLeave(conn, msg)
	case TypeOffer, TypeAnswer:
		ctl.handleSDPRelay(conn, msg)
	case TypeICECandidate:
		ctl.handleCandidateRelay(conn, msg)
	case TypeRecordingStatus:
		ctl.handleRecordingStatus(conn, msg)
	case TypeHeartbeat:
		ctl.handleHeartbeat(conn, msg)
	case TypeMediaStatus, TypeConnectionStatus:
		ctl.handleStatusRelay(conn, msg)
	case TypeParticipantUpdate, TypeError:
		// Server-to-client only; the validator already rejects these.
		ctl.sendError(conn, CodeInvalidMessage, "server-only message type")
	default:
		ctl.sendError(conn, CodeInternalError, "unhandled message type")
	}
}
