package signal

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loopcast/studio-signaling/internal/app"
	"github.com/loopcast/studio-signaling/internal/core"
	"github.com/loopcast/studio-signaling/internal/domain"
)

// handleJoin completes room entry. Capacity and the active flag are
// re-checked here: both may have changed between the upgrade and this
// message.
func (ctl *Controller) handleJoin(ctx context.Context, conn *app.Connection, msg *Message) {
	room, err := ctl.Rooms.FindRoom(ctx, conn.RoomID)
	if errors.Is(err, core.ErrRoomNotFound) {
		ctl.rejectJoin(conn, CodeRoomNotFound, "room not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("room", string(conn.RoomID)).Msg("join room lookup")
		ctl.sendError(conn, CodeInternalError, "room lookup failed")
		return
	}
	if !room.IsActive {
		ctl.rejectJoin(conn, CodeRoomNotFound, "room is not active")
		return
	}
	// The joiner is already registered, so the count includes it.
	if ctl.Registry.ParticipantCount(conn.RoomID) > room.MaxParticipants {
		ctl.rejectJoin(conn, CodeRoomFull, "room is full")
		return
	}

	conn.SetCapabilities(msg.Join.Capabilities)

	ctl.broadcastUpdate(conn, ParticipantUpdatePayload{
		Action:      ActionJoined,
		Participant: ptr(conn.Participant()),
	})

	// Late joiners get the current membership without polling.
	others := make([]domain.Participant, 0)
	for _, c := range ctl.Registry.RoomConnections(conn.RoomID) {
		if c.ID == conn.ID {
			continue
		}
		others = append(others, c.Participant())
	}
	ctl.sendUpdate(conn, ParticipantUpdatePayload{
		Action:       ActionParticipantsList,
		Participants: others,
	})

	if room.IsRecording {
		ctl.send(conn, TypeRecordingStatus, RecordingStatusPayload{
			IsRecording: true,
			RecordingID: room.RecordingID,
			StartedAt:   room.RecordingStartedAt,
		})
	}

	if conn.ParticipantType == domain.ParticipantGuest {
		ctl.Presence.MarkGuestSeen(conn.ParticipantID)
	}

	log.Info().Str("module", "signal").Str("conn", conn.ID).
		Str("participant", string(conn.ParticipantID)).
		Str("room", string(conn.RoomID)).Int("members", len(others)+1).Msg("joined")
}

// handleLeave broadcasts the departure, then closes the transport after a
// short delay so the broadcast can flush; never synchronously.
func (ctl *Controller) handleLeave(conn *app.Connection, msg *Message) {
	ctl.broadcastUpdate(conn, ParticipantUpdatePayload{
		Action:      ActionLeft,
		Participant: ptr(conn.Participant()),
		Reason:      msg.Leave.Reason,
	})
	log.Info().Str("module", "signal").Str("conn", conn.ID).
		Str("participant", string(conn.ParticipantID)).
		Str("reason", msg.Leave.Reason).Msg("leaving")

	ctl.scheduleClose(conn)
}

// rejectJoin answers the join with an error and tears the connection
// down. A connection that cannot join must not keep holding a room slot
// or receiving that room's broadcasts.
func (ctl *Controller) rejectJoin(conn *app.Connection, code ErrorCode, msg string) {
	ctl.sendError(conn, code, msg)
	ctl.scheduleClose(conn)
}

// scheduleClose cancels the connection after a short delay so the final
// frame can flush first; teardown then runs through the standard path.
func (ctl *Controller) scheduleClose(conn *app.Connection) {
	delay := ctl.Cfg.LeaveFlushDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	time.AfterFunc(delay, conn.Cancel)
}
