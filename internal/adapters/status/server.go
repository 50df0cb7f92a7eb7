// Package status serves local diagnostics: signaling reachability and a
// snapshot of the live session. Presentation-layer indicators poll it; the
// coordination core does not depend on it.
package status

import (
	"net/http"

	"github.com/avidela/meetkit/internal/core"
	"github.com/avidela/meetkit/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SessionInfo is the read-only slice of the coordinator the endpoints need.
type SessionInfo interface {
	Phase() domain.Phase
	Local() domain.Participant
	Participants() []domain.Participant
	ParticipantCount() int
	PendingRequests() []string
	ChatLen() int
	RemoteTrackCount() int
	Recording() bool
}

func SetupRouter(mode string, info SessionInfo, probe core.HealthChecker) *gin.Engine {
	if mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		st := probe.Check(c.Request.Context())
		code := http.StatusOK
		if !st.OK {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, st)
	})

	api := r.Group("/api")
	api.GET("/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"phase":        info.Phase().String(),
			"local":        info.Local(),
			"participants": info.Participants(),
			"count":        info.ParticipantCount(),
			"pending":      info.PendingRequests(),
			"chatLen":      info.ChatLen(),
			"remoteTracks": info.RemoteTrackCount(),
			"recording":    info.Recording(),
		})
	})

	log.Info().Str("module", "adapters.status").Msg("router setup")
	return r
}
