package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/loopcast/studio-signaling/internal/adapters/signal"
	"github.com/loopcast/studio-signaling/internal/config"
	"github.com/loopcast/studio-signaling/internal/core"
	"github.com/loopcast/studio-signaling/internal/domain"
)

// ClientTokenMiddleware issues a stable per-client token cookie, used as
// a log correlation id across reconnects of the same browser.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("StudioSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").
			Str("ct", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	api.GET("/rooms/:id", func(c *gin.Context) {
		id := domain.RoomID(c.Param("id"))
		room, err := ctl.Rooms.FindRoom(c.Request.Context(), id)
		if errors.Is(err, core.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "room lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":               room.ID,
			"name":             room.Name,
			"isActive":         room.IsActive,
			"maxParticipants":  room.MaxParticipants,
			"isRecording":      room.IsRecording,
			"participantCount": ctl.Registry.ParticipantCount(id),
		})
	})

	return r
}
