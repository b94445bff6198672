package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/loopcast/studio-signaling/internal/app"
	"github.com/loopcast/studio-signaling/internal/domain"
)

// handleRecordingStatus is authorization-gated: only hosts control the
// recording state other participants see.
func (ctl *Controller) handleRecordingStatus(conn *app.Connection, msg *Message) {
	if conn.ParticipantType != domain.ParticipantHost {
		log.Warn().Str("module", "signal").Str("conn", conn.ID).
			Str("participant", string(conn.ParticipantID)).
			Msg("recording-status from non-host")
		ctl.sendError(conn, CodeAuthenticationFailed, "only the host may change recording status")
		return
	}
	frame, err := Encode(TypeRecordingStatus, conn.RoomID, conn.ParticipantID, msg.Recording)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode recording-status")
		return
	}
	ctl.broadcastFrame(conn, frame)
}

// handleStatusRelay fans media-status and connection-status updates out
// verbatim; identity matching at the router entry is the only gate.
func (ctl *Controller) handleStatusRelay(conn *app.Connection, msg *Message) {
	frame, err := Encode(msg.Type, conn.RoomID, conn.ParticipantID, msg.Status)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode status relay")
		return
	}
	ctl.broadcastFrame(conn, frame)
}
