/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/adapters/openai"
    "github.com/HamedShams/ticket-pulse/internal/adapters/telegram"
    "github.com/HamedShams/ticket-pulse/internal/config"
    httpapi "github.com/HamedShams/ticket-pulse/internal/http"
    "github.com/HamedShams/ticket-pulse/internal/jobs"
    "github.com/HamedShams/ticket-pulse/internal/logger"
    "github.com/HamedShams/ticket-pulse/internal/services"
    "github.com/HamedShams/ticket-pulse/internal/store"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer cancel()

    // Ticket source
    openCtx, cancelOpen := context.WithTimeout(ctx, 30*time.Second)
    src, closeSrc, err := store.NewSource(openCtx, cfg, log)
    cancelOpen()
    if err != nil { log.Fatal().Err(err).Str("source", cfg.TicketSource).Msg("ticket source init failed") }
    defer closeSrc()

    st := store.New(src, log)
    loadCtx, cancelLoad := context.WithTimeout(ctx, 2*time.Minute)
    if _, err := st.Refresh(loadCtx); err != nil {
        log.Error().Err(err).Msg("initial load failed; starting with an empty snapshot")
    }
    cancelLoad()

    // Adapters
    llm := openai.NewClient(cfg, log)
    tg  := telegram.NewClient(cfg, log)

    svc := services.New(cfg, log, st, llm, tg)

    // Cron; Postgres deployments share advisory locks across replicas
    var lock jobs.Locker
    if ps, ok := src.(*store.PostgresSource); ok { lock = ps.Repository() }
    cron, err := jobs.NewCron(cfg, log, svc, lock)
    if err != nil { log.Fatal().Err(err).Msg("cron setup failed") }
    cron.Start()
    defer cron.Stop()

    // HTTP server (Gin)
    srv := &http.Server{
        Addr:              cfg.HTTPAddr,
        Handler:           httpapi.NewRouter(cfg, log, svc),
        ReadHeaderTimeout: 10 * time.Second,
    }
    errCh := make(chan error, 1)
    go func() {
        log.Info().Str("addr", cfg.HTTPAddr).Str("source", src.Name()).Int("tickets", st.Snapshot().Len()).Msg("listening")
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) { errCh <- err }
    }()

    select {
    case <-ctx.Done():
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        log.Error().Err(err).Msg("http server error")
    }

    shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancelShut()
    if err := srv.Shutdown(shutCtx); err != nil { log.Error().Err(err).Msg("http shutdown") }
}
