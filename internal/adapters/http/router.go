package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dkeye/Pairline/internal/adapters/signal"
	"github.com/dkeye/Pairline/internal/app/orch"
	"github.com/dkeye/Pairline/internal/config"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	healthTimeout     = 2 * time.Second
	defaultOnlineList = 20
)

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctrl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		stats := o.Stats()
		body := gin.H{
			"sessions":    stats.Sessions,
			"activeRooms": stats.ActiveRooms,
			"inFlight":    stats.InFlight,
			"uptime":      stats.Uptime,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		}
		if err := o.Health(hctx); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("health check failed")
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			c.JSON(http.StatusInternalServerError, body)
			return
		}
		body["status"] = "healthy"
		c.JSON(http.StatusOK, body)
	})

	r.GET("/stats", func(c *gin.Context) {
		stats := o.Stats()
		online := -1
		if list, err := o.OnlineUsers(c.Request.Context(), 0); err == nil {
			online = list.Total
		}
		c.JSON(http.StatusOK, gin.H{
			"connections": stats.Sessions,
			"activeRooms": stats.ActiveRooms,
			"inFlight":    stats.InFlight,
			"online":      online,
			"uptime":      stats.Uptime,
			"serverTime":  time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	api.GET("/online-users", func(c *gin.Context) {
		limit := defaultOnlineList
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = n
		}
		list, err := o.OnlineUsers(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	api.POST("/force-match", func(c *gin.Context) {
		res, err := o.ForceMatch(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("force match failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": res})
			return
		}
		c.JSON(http.StatusOK, res)
	})

	api.POST("/sweep", func(c *gin.Context) {
		rep, err := o.Sweep(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": rep})
			return
		}
		c.JSON(http.StatusOK, rep)
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.List()})
	})

	api.DELETE("/rooms/:id", func(c *gin.Context) {
		ended, err := o.EndRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !ended {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
