package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/loopcast/studio-signaling/internal/app"
	"github.com/loopcast/studio-signaling/internal/domain"
)

// handleSDPRelay forwards an offer or answer point-to-point. The sender's
// verified identity is stamped into from/fromName; whatever the client
// put there is discarded.
func (ctl *Controller) handleSDPRelay(conn *app.Connection, msg *Message) {
	p := *msg.SDP
	target, ok := ctl.relayTarget(conn, p.To)
	if !ok {
		return
	}
	p.From = conn.ParticipantID
	p.FromName = conn.ParticipantName
	ctl.deliver(conn, target, msg.Type, p)
}

func (ctl *Controller) handleCandidateRelay(conn *app.Connection, msg *Message) {
	p := *msg.Candidate
	target, ok := ctl.relayTarget(conn, p.To)
	if !ok {
		return
	}
	p.From = conn.ParticipantID
	p.FromName = conn.ParticipantName
	ctl.deliver(conn, target, msg.Type, p)
}

// relayTarget confirms the target participant is a live member of the
// sender's own room. A miss is answered, never silently dropped.
func (ctl *Controller) relayTarget(conn *app.Connection, to domain.ParticipantID) (*app.Connection, bool) {
	target, ok := ctl.Registry.FindParticipant(conn.RoomID, to)
	if !ok {
		ctl.sendError(conn, CodeParticipantNotFound, "target participant not found in room")
		return nil, false
	}
	return target, true
}

// deliver pushes the stamped payload to the target through the
// registry's point-to-point path. A failed send is a NETWORK_ERROR for
// the *sender*; the failing peer is left to its own close path unless
// the backpressure policy kicks it.
func (ctl *Controller) deliver(conn, target *app.Connection, t MessageType, payload any) {
	frame, err := Encode(t, conn.RoomID, conn.ParticipantID, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode relay frame")
		ctl.sendError(conn, CodeInternalError, "failed to encode message")
		return
	}
	if !ctl.Registry.SendTo(target.ParticipantID, frame) {
		log.Warn().Str("module", "signal").
			Str("from", string(conn.ParticipantID)).
			Str("to", string(target.ParticipantID)).Msg("relay delivery failed")
		ctl.sendError(conn, CodeNetworkError, "failed to deliver message to target")
		if ctl.Policy != nil && ctl.Policy.OnBackpressure(target) == app.KickConnection {
			target.Cancel()
		}
		return
	}
	log.Debug().Str("module", "signal").Str("type", string(t)).
		Str("from", string(conn.ParticipantID)).
		Str("to", string(target.ParticipantID)).Msg("relayed")
}
