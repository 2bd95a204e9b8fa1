/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
	"github.com/HamedShams/platform-ops-hub/internal/services"
)

type dashboardService interface {
	Stats(ctx context.Context) (services.DashboardStats, error)
}

type catalogService interface {
	ListEpics(ctx context.Context) ([]services.EpicDTO, error)
	EpicDetail(ctx context.Context, id int64) (*services.EpicDetail, error)
	ListActivities(ctx context.Context) ([]services.ActivityDTO, error)
	ActivityDetail(ctx context.Context, id int64) (*services.ActivityDTO, error)
	ListDbaMaintenance(ctx context.Context) ([]services.DbaMaintenanceDTO, error)
	CompleteDbaMaintenance(ctx context.Context, id int64) error
	Leaderboard(ctx context.Context) ([]services.LeaderboardEntryDTO, error)
	WhoWeAre(ctx context.Context) ([]services.TeamDTO, error)
	CostOptimizationWork(ctx context.Context) ([]services.CostOptimizationDTO, error)
	LastSyncRun(ctx context.Context) (*domain.SyncRun, error)
}

type newsletterService interface {
	Generate(ctx context.Context, period domain.NewsletterPeriod, prompt string) (services.NewsletterDTO, error)
	List(ctx context.Context) ([]services.NewsletterDTO, error)
	PublishWeekly(ctx context.Context) (services.NewsletterDTO, error)
}

type syncService interface {
	Run(ctx context.Context) (*domain.SyncRun, error)
}

// Deps are the services behind the API.
type Deps struct {
	Dashboard   dashboardService
	Quality     services.QualityStore
	Catalog     catalogService
	Newsletters newsletterService
	Sync        syncService
}

type Handlers struct {
	cfg  config.Config
	log  zerolog.Logger
	deps Deps

	syncing    atomic.Bool
	publishing atomic.Bool
	bg         sync.WaitGroup
}

func NewHandlers(cfg config.Config, log zerolog.Logger, deps Deps) *Handlers {
	return &Handlers{cfg: cfg, log: log, deps: deps}
}

// Wait blocks until background jobs started by the admin endpoints return.
func (h *Handlers) Wait() { h.bg.Wait() }

func (h *Handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPeriod):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// respond writes v, or 500 when err is set.
func respond[T any](h *Handlers, c *gin.Context, v T, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// found writes v, or 404 when it is nil.
func found[T any](h *Handlers, c *gin.Context, v *T, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	if v == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) Dashboard(c *gin.Context) {
	stats, err := h.deps.Dashboard.Stats(c.Request.Context())
	respond(h, c, stats, err)
}

func (h *Handlers) CodeQuality(c *gin.Context) {
	out, err := services.CodeQualitySummaries(c.Request.Context(), h.deps.Quality)
	respond(h, c, out, err)
}

func (h *Handlers) Epics(c *gin.Context) {
	out, err := h.deps.Catalog.ListEpics(c.Request.Context())
	respond(h, c, out, err)
}

func (h *Handlers) Epic(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	v, err := h.deps.Catalog.EpicDetail(c.Request.Context(), id)
	found(h, c, v, err)
}

func (h *Handlers) Activities(c *gin.Context) {
	out, err := h.deps.Catalog.ListActivities(c.Request.Context())
	respond(h, c, out, err)
}

func (h *Handlers) Activity(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	v, err := h.deps.Catalog.ActivityDetail(c.Request.Context(), id)
	found(h, c, v, err)
}

func (h *Handlers) Dba(c *gin.Context) {
	out, err := h.deps.Catalog.ListDbaMaintenance(c.Request.Context())
	respond(h, c, out, err)
}

func (h *Handlers) CompleteDba(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.deps.Catalog.CompleteDbaMaintenance(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) Leaderboard(c *gin.Context) {
	out, err := h.deps.Catalog.Leaderboard(c.Request.Context())
	respond(h, c, out, err)
}

func (h *Handlers) Teams(c *gin.Context) {
	out, err := h.deps.Catalog.WhoWeAre(c.Request.Context())
	respond(h, c, out, err)
}

func (h *Handlers) CostOptimization(c *gin.Context) {
	out, err := h.deps.Catalog.CostOptimizationWork(c.Request.Context())
	respond(h, c, out, err)
}

func (h *Handlers) Newsletters(c *gin.Context) {
	out, err := h.deps.Newsletters.List(c.Request.Context())
	respond(h, c, out, err)
}

type generateRequest struct {
	Period string `json:"period" binding:"required"`
	Prompt string `json:"prompt"`
}

func (h *Handlers) GenerateNewsletter(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	period, err := domain.ParsePeriod(req.Period)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto, err := h.deps.Newsletters.Generate(c.Request.Context(), period, req.Prompt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

func (h *Handlers) LastRun(c *gin.Context) {
	run, err := h.deps.Catalog.LastSyncRun(c.Request.Context())
	found(h, c, run, err)
}

func (h *Handlers) jobTimeout() time.Duration {
	if h.cfg.JobTimeout > 0 {
		return h.cfg.JobTimeout
	}
	return 10 * time.Minute
}

// background runs fn detached from the request. flag guards against a second
// trigger in this process while fn is running.
func (h *Handlers) background(c *gin.Context, flag *atomic.Bool, name string, fn func(ctx context.Context) error) {
	if !flag.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": name + " already running"})
		return
	}
	h.bg.Add(1)
	go func() {
		defer h.bg.Done()
		defer flag.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), h.jobTimeout())
		defer cancel()
		if err := fn(ctx); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("admin job failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handlers) RunSync(c *gin.Context) {
	h.background(c, &h.syncing, "sync", func(ctx context.Context) error {
		_, err := h.deps.Sync.Run(ctx)
		return err
	})
}

func (h *Handlers) RunNewsletter(c *gin.Context) {
	h.background(c, &h.publishing, "newsletter", func(ctx context.Context) error {
		_, err := h.deps.Newsletters.PublishWeekly(ctx)
		return err
	})
}
