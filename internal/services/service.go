/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/analytics"
    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/HamedShams/ticket-pulse/internal/domain"
    "github.com/HamedShams/ticket-pulse/internal/metrics"
    "github.com/HamedShams/ticket-pulse/internal/store"
    "github.com/rs/zerolog"
)

type LLM interface {
    Enabled() bool
    Commentary(ctx context.Context, facts any) (string, error)
}

type Notifier interface {
    Enabled() bool
    SendMarkdownV2(ctx context.Context, chatID int64, text string) error
    SendMessagePlain(ctx context.Context, chatID int64, text string) error
}

type Service struct {
    cfg   config.Config
    log   zerolog.Logger
    store *store.Store
    llm   LLM
    tg    Notifier
}

func New(cfg config.Config, log zerolog.Logger, st *store.Store, llm LLM, tg Notifier) *Service {
    return &Service{cfg: cfg, log: log, store: st, llm: llm, tg: tg}
}

// Snapshot is the ticket set a request should work on. Callers take it once
// and pass it to every operation of that request.
func (s *Service) Snapshot() *store.Snapshot { return s.store.Snapshot() }

// List returns the matching tickets verbatim.
func (s *Service) List(snap *store.Snapshot, c analytics.Criteria) []domain.Ticket {
    return analytics.Filter(snap.Tickets(), c)
}

type MetricsResult struct {
    CreatedPerDay  domain.Series
    ResolvedPerDay domain.Series
    TotalTickets   int
}

// Metrics builds the dense daily creation and resolution timelines.
func (s *Service) Metrics(snap *store.Snapshot, c analytics.Criteria) MetricsResult {
    tickets := analytics.Filter(snap.Tickets(), c)
    return MetricsResult{
        CreatedPerDay:  analytics.Bucketize(tickets, analytics.CreatedAt, analytics.Day),
        ResolvedPerDay: analytics.Bucketize(tickets, analytics.ResolvedAt, analytics.Day),
        TotalTickets:   len(tickets),
    }
}

// Forecast projects weekly throughput from the resolved-per-week history.
func (s *Service) Forecast(snap *store.Snapshot, c analytics.Criteria) domain.ForecastResult {
    weekly := analytics.Bucketize(analytics.Filter(snap.Tickets(), c), analytics.ResolvedAt, analytics.Week)
    res := analytics.Forecast(weekly)
    // filtered views come from free-form query strings and stay out of the gauge
    if c.IsZero() { metrics.ForecastVelocity.Set(res.Forecast[0]) }
    return res
}

// Refresh reloads the ticket snapshot from the configured source.
func (s *Service) Refresh(ctx context.Context) error {
    _, err := s.store.Refresh(ctx)
    if err != nil { s.log.Error().Err(err).Msg("snapshot refresh failed; serving previous snapshot") }
    return err
}

type Health struct {
    OK       bool       `json:"ok"`
    Source   string     `json:"source"`
    Tickets  int        `json:"tickets"`
    LoadedAt *time.Time `json:"loaded_at"`
}

func (s *Service) Health() Health {
    snap := s.Snapshot()
    h := Health{OK: true, Source: s.store.SourceName(), Tickets: snap.Len()}
    if !snap.LoadedAt.IsZero() { t := snap.LoadedAt; h.LoadedAt = &t }
    return h
}
