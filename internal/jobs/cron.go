/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
    "context"
    "fmt"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

type service interface {
    Refresh(ctx context.Context) error
    RunDigest(ctx context.Context) error
}

// Locker keeps replicas sharing one database from running the same job twice.
type Locker interface {
    TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
    AdvisoryUnlock(ctx context.Context, key int64) error
}

const (
    refreshLockKey int64 = 424241
    digestLockKey  int64 = 424242
)

type Cron struct {
    cfg  config.Config
    log  zerolog.Logger
    svc  service
    lock Locker
    c    *cron.Cron
}

// NewCron schedules the snapshot refresh and the weekly digest. lock may be nil
// when the ticket source has no shared database.
func NewCron(cfg config.Config, log zerolog.Logger, svc service, lock Locker) (*Cron, error) {
    loc, err := time.LoadLocation(cfg.TZ)
    if err != nil { return nil, fmt.Errorf("cron location %q: %w", cfg.TZ, err) }
    c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)))
    cr := &Cron{cfg: cfg, log: log, svc: svc, lock: lock, c: c}
    if cfg.RefreshCron != "" {
        if _, err := c.AddFunc(cfg.RefreshCron, cr.refresh); err != nil { return nil, fmt.Errorf("refresh schedule %q: %w", cfg.RefreshCron, err) }
    }
    if cfg.DigestCron != "" {
        if _, err := c.AddFunc(cfg.DigestCron, cr.digest); err != nil { return nil, fmt.Errorf("digest schedule %q: %w", cfg.DigestCron, err) }
    }
    return cr, nil
}

func (cr *Cron) Start(){ cr.c.Start() }

// Stop waits for running jobs to finish.
func (cr *Cron) Stop(){ <-cr.c.Stop().Done() }

func (cr *Cron) Entries() int { return len(cr.c.Entries()) }

func (cr *Cron) refresh(){
    cr.run("refresh", refreshLockKey, 2*time.Minute, cr.svc.Refresh)
}

func (cr *Cron) digest(){
    cr.run("digest", digestLockKey, 5*time.Minute, cr.svc.RunDigest)
}

func (cr *Cron) run(name string, key int64, timeout time.Duration, fn func(context.Context) error){
    ctx, cancel := context.WithTimeout(context.Background(), timeout); defer cancel()
    if cr.lock != nil {
        ok, err := cr.lock.TryAdvisoryLock(ctx, key)
        if err != nil { cr.log.Error().Err(err).Str("job", name).Msg("cron: lock error"); return }
        if !ok { cr.log.Info().Str("job", name).Msg("cron: already running elsewhere"); return }
        defer func(){ _ = cr.lock.AdvisoryUnlock(context.Background(), key) }()
    }
    cr.log.Info().Str("job", name).Msg("cron: start")
    if err := fn(ctx); err != nil { cr.log.Error().Err(err).Str("job", name).Msg("cron: job failed") }
}
