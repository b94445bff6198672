package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/loopcast/studio-signaling/internal/app"
	"github.com/loopcast/studio-signaling/internal/config"
	"github.com/loopcast/studio-signaling/internal/core"
	"github.com/loopcast/studio-signaling/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// Controller owns the per-connection lifecycle: authenticate, capacity
// check, upgrade, register, pump frames, and the single teardown path.
type Controller struct {
	Cfg      *config.Config
	Auth     core.Authenticator
	Rooms    core.RoomRepository
	Presence core.PresenceNotifier
	Registry *app.Registry
	Limiter  *app.RateLimiter
	Policy   app.Policy
}

// HandleSignal upgrades an authenticated request into a live signaling
// connection. Authentication and the room capacity check happen before
// the upgrade, so rejected clients get plain HTTP errors and no
// Connection is ever created for them.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ct := c.GetString("client_token")

	ident, err := ctl.Auth.Authenticate(c.Request)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("ct", ct).Msg("upgrade auth failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	room, err := ctl.Rooms.FindRoom(c.Request.Context(), ident.RoomID)
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Str("room", string(ident.RoomID)).Msg("room lookup")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "room lookup failed"})
		return
	}
	if !room.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "room is not active"})
		return
	}
	if ctl.Registry.ParticipantCount(room.ID) >= room.MaxParticipants {
		c.JSON(http.StatusConflict, gin.H{"error": "room is full"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	sc := newWSSignalConn(ws, ctl.Cfg.SendBuffer)
	connCtx, cancel := context.WithCancel(ctx)
	conn := app.NewConnection(uuid.NewString(), ident, sc, cancel)

	// The registry re-checks capacity under its own lock; the pre-upgrade
	// check above can race a concurrent upgrade into the same room.
	if err := ctl.Registry.Add(conn, room.MaxParticipants); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("ct", ct).
			Str("room", string(ident.RoomID)).Msg("registration rejected")
		cancel()
		sc.Close()
		return
	}
	go sc.writePump(connCtx)

	log.Info().Str("module", "signal").Str("conn", conn.ID).Str("ct", ct).
		Str("participant", string(ident.ParticipantID)).
		Str("room", string(ident.RoomID)).Msg("connection open")

	ctl.sendUpdate(conn, ParticipantUpdatePayload{
		Action:      ActionConnected,
		Participant: ptr(conn.Participant()),
	})

	go ctl.readLoop(connCtx, conn, sc)
}

// readLoop reads frames sequentially: activity bump, rate limit, schema
// validation, then routing. Any transport error ends the loop and runs
// teardown exactly once.
func (ctl *Controller) readLoop(ctx context.Context, conn *app.Connection, sc *wsSignalConn) {
	defer ctl.teardown(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := sc.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", conn.ID).Msg("read error")
				}
				return
			}
			conn.Touch()

			if !ctl.Limiter.Allow(conn.ParticipantID) {
				ctl.sendError(conn, CodeNetworkError, "rate limit exceeded")
				continue
			}

			msg, errs := DecodeMessage(data)
			if len(errs) > 0 {
				ctl.sendError(conn, CodeInvalidMessage, strings.Join(errs, "; "))
				continue
			}

			ctl.route(ctx, conn, msg)
		}
	}
}

// teardown is the single close path for every trigger: voluntary leave,
// transport error, duplicate eviction, reaper sweep, shutdown.
func (ctl *Controller) teardown(conn *app.Connection) {
	removed := ctl.Registry.Remove(conn.ID)
	if removed != nil {
		ctl.broadcastUpdate(conn, ParticipantUpdatePayload{
			Action:      ActionDisconnected,
			Participant: ptr(conn.Participant()),
		})
		if conn.ParticipantType == domain.ParticipantGuest {
			ctl.Presence.MarkGuestLeft(conn.ParticipantID)
		}
	}
	conn.Cancel()
	conn.Signal.Close()
	log.Info().Str("module", "signal").Str("conn", conn.ID).
		Str("participant", string(conn.ParticipantID)).Msg("connection closed")
}

// sendError replies to the sender with a typed error frame. Protocol and
// business failures always resolve here; they never tear the connection.
func (ctl *Controller) sendError(conn *app.Connection, code ErrorCode, msg string) {
	frame, err := Encode(TypeError, conn.RoomID, conn.ParticipantID, ErrorPayload{Code: code, Message: msg})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode error frame")
		return
	}
	if err := conn.Signal.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", conn.ID).Msg("error frame dropped")
	}
}

func (ctl *Controller) send(conn *app.Connection, t MessageType, data any) {
	frame, err := Encode(t, conn.RoomID, conn.ParticipantID, data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode frame")
		return
	}
	if err := conn.Signal.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", conn.ID).Msg("frame dropped")
	}
}

func (ctl *Controller) sendUpdate(conn *app.Connection, p ParticipantUpdatePayload) {
	ctl.send(conn, TypeParticipantUpdate, p)
}

// broadcastUpdate fans a participant-update out to the rest of the
// sender's room and applies the backpressure policy to lagging peers.
func (ctl *Controller) broadcastUpdate(conn *app.Connection, p ParticipantUpdatePayload) {
	frame, err := Encode(TypeParticipantUpdate, conn.RoomID, conn.ParticipantID, p)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode participant-update")
		return
	}
	ctl.broadcastFrame(conn, frame)
}

func (ctl *Controller) broadcastFrame(conn *app.Connection, frame core.Frame) {
	res := ctl.Registry.Broadcast(conn.RoomID, frame, conn.ID)
	for _, slow := range res.Dropped {
		if ctl.Policy != nil && ctl.Policy.OnBackpressure(slow) == app.KickConnection {
			log.Warn().Str("module", "signal").Str("conn", slow.ID).Msg("kicking slow connection")
			slow.Cancel()
		}
	}
}

func ptr[T any](v T) *T { return &v }
