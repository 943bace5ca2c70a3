package handlers

import (
	"net/http"

	"imposter-game-backend/internal/middleware"
	"imposter-game-backend/internal/services"
	"imposter-game-backend/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	SessionService *services.SessionService
	AuthService    *services.AuthService
	Hub            *ws.Hub
	CORSOrigins    []string
	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	sessionHandler := NewSessionHandler(cfg.SessionService, cfg.AuthService)
	participantHandler := NewParticipantHandler(cfg.SessionService, cfg.AuthService)
	wsHandler := NewWSHandler(cfg.Hub, cfg.SessionService)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, MessageResponse{Message: "ok"})
	})
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/ws/session/:id", wsHandler.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("/code/:code", sessionHandler.GetSessionByCode)
			sessions.GET("/:id/state", sessionHandler.GetState)
			sessions.POST("/:id/join", participantHandler.JoinSession)
		}

		host := api.Group("/sessions/:id")
		host.Use(middleware.HostAuth(cfg.AuthService))
		{
			host.POST("/start", sessionHandler.StartSession)
			host.POST("/voting", sessionHandler.OpenVoting)
			host.POST("/eliminate", sessionHandler.Eliminate)
			host.POST("/rounds", sessionHandler.NextRound)
			host.POST("/end", sessionHandler.ForceEnd)
			host.POST("/timer/pause", sessionHandler.PauseTimer)
			host.POST("/timer/resume", sessionHandler.ResumeTimer)
			host.GET("/tally", sessionHandler.Tally)
		}

		player := api.Group("/sessions/:id")
		player.Use(middleware.PlayerAuth(cfg.AuthService))
		{
			player.GET("/role", participantHandler.GetRole)
			player.POST("/votes", participantHandler.CastVote)
		}
	}

	return r
}
