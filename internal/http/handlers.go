/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "net/http"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/HamedShams/ticket-pulse/internal/analytics"
    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/HamedShams/ticket-pulse/internal/domain"
    "github.com/HamedShams/ticket-pulse/internal/services"
    "github.com/HamedShams/ticket-pulse/internal/store"
    "github.com/rs/zerolog"
)

type service interface {
    Snapshot() *store.Snapshot
    List(snap *store.Snapshot, c analytics.Criteria) []domain.Ticket
    Metrics(snap *store.Snapshot, c analytics.Criteria) services.MetricsResult
    Forecast(snap *store.Snapshot, c analytics.Criteria) domain.ForecastResult
    Refresh(ctx context.Context) error
    RunDigest(ctx context.Context) error
    Health() services.Health
}

// background jobs started from admin endpoints outlive the request
const adminJobTimeout = 5 * time.Minute

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc service) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc}
}

type filterQuery struct {
    Project  string `form:"project" binding:"omitempty,max=128"`
    Assignee string `form:"assignee" binding:"omitempty,max=128"`
}

func (h *Handlers) criteria(c *gin.Context) (analytics.Criteria, bool) {
    var q filterQuery
    if err := c.ShouldBindQuery(&q); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return analytics.Criteria{}, false
    }
    return analytics.Criteria{Project: q.Project, Assignee: q.Assignee}, true
}

// seriesJSON keys each bucket by the timestamp field it was built from, the
// shape the dashboard charts read.
func seriesJSON(s domain.Series, field analytics.Field) []gin.H {
    out := make([]gin.H, 0, len(s))
    for _, b := range s {
        out = append(out, gin.H{
            field.String():  b.Key.Format("2006-01-02"),
            "bucket_start":  b.Start.Format(time.RFC3339),
            "count":         b.Count,
        })
    }
    return out
}

func (h *Handlers) Root(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"message": "Jira Performance Dashboard API"})
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, h.svc.Health())
}

func (h *Handlers) Tickets(c *gin.Context) {
    crit, ok := h.criteria(c)
    if !ok { return }
    tickets := h.svc.List(h.svc.Snapshot(), crit)
    if tickets == nil { tickets = []domain.Ticket{} }
    c.JSON(http.StatusOK, tickets)
}

func (h *Handlers) Metrics(c *gin.Context) {
    crit, ok := h.criteria(c)
    if !ok { return }
    m := h.svc.Metrics(h.svc.Snapshot(), crit)
    c.JSON(http.StatusOK, gin.H{
        "created_per_day":  seriesJSON(m.CreatedPerDay, analytics.CreatedAt),
        "resolved_per_day": seriesJSON(m.ResolvedPerDay, analytics.ResolvedAt),
        "total_tickets":    m.TotalTickets,
    })
}

func (h *Handlers) Forecast(c *gin.Context) {
    crit, ok := h.criteria(c)
    if !ok { return }
    res := h.svc.Forecast(h.svc.Snapshot(), crit)
    c.JSON(http.StatusOK, gin.H{
        "next_4_weeks_velocity_forecast": res.Forecast,
        "historical_weekly_throughput":   seriesJSON(res.Historical, analytics.ResolvedAt),
    })
}

func (h *Handlers) Refresh(c *gin.Context) {
    // detached from the request so the client hanging up does not cancel the load
    go func(){
        ctx, cancel := context.WithTimeout(context.Background(), adminJobTimeout); defer cancel()
        _ = h.svc.Refresh(ctx)
    }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handlers) Digest(c *gin.Context) {
    go func(){
        ctx, cancel := context.WithTimeout(context.Background(), adminJobTimeout); defer cancel()
        if err := h.svc.RunDigest(ctx); err != nil { h.log.Error().Err(err).Msg("digest failed") }
    }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
