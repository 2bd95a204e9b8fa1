/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/HamedShams/platform-ops-hub/internal/config"
)

func NewRouter(cfg config.Config, log zerolog.Logger, h *Handlers) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).
			Dur("took", time.Since(start)).Msg("http")
	})

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.GET("/dashboard", h.Dashboard)
	api.GET("/code-quality", h.CodeQuality)
	api.GET("/epics", h.Epics)
	api.GET("/epics/:id", h.Epic)
	api.GET("/activities", h.Activities)
	api.GET("/activities/:id", h.Activity)
	api.GET("/dba", h.Dba)
	api.POST("/dba/:id/complete", h.CompleteDba)
	api.GET("/leaderboard", h.Leaderboard)
	api.GET("/teams", h.Teams)
	api.GET("/cost-optimization", h.CostOptimization)
	api.GET("/newsletters", h.Newsletters)
	api.POST("/newsletters", h.GenerateNewsletter)

	admin := r.Group("/admin")
	admin.GET("/last-run", h.LastRun)
	admin.POST("/sync", h.RunSync)
	admin.POST("/newsletter", h.RunNewsletter)

	return r
}
