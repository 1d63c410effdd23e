/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/HamedShams/ticket-pulse/internal/domain"
    "github.com/HamedShams/ticket-pulse/internal/logger"
    "github.com/HamedShams/ticket-pulse/internal/repo"
    "github.com/HamedShams/ticket-pulse/internal/store"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"
    "github.com/spf13/cobra"
)

type seedOptions struct {
    count  int
    days   int
    seed   int64
    target string
    out    string
}

func newRootCmd() *cobra.Command {
    opts := seedOptions{}
    cmd := &cobra.Command{
        Use:   "seed",
        Short: "Generate mock tickets into postgres, redis or a JSON file",
        Long: `seed generates a synthetic ticket dataset and stores it where the API
can load it with TICKET_SOURCE=postgres or TICKET_SOURCE=redis.

Connection settings come from the same environment as the API (DB_DSN,
REDIS_ADDR, REDIS_KEY, ...).

Example usage:
  seed --target postgres --count 2000 --days 180
  seed --target redis --seed 42
  seed --target json --out tickets.json`,
        SilenceUsage:  true,
        SilenceErrors: true,
        RunE: func(cmd *cobra.Command, args []string) error {
            cfg := config.Load()
            // stdout may carry the dataset, so logs go to stderr
            log := logger.NewWriter(cfg, cmd.ErrOrStderr())
            return runSeed(cmd.Context(), cfg, log, opts, cmd.OutOrStdout())
        },
    }
    cmd.Flags().IntVarP(&opts.count, "count", "n", 500, "number of tickets")
    cmd.Flags().IntVar(&opts.days, "days", 90, "spread creation dates over this many days")
    cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed (0 = time based)")
    cmd.Flags().StringVarP(&opts.target, "target", "t", "json", "postgres, redis or json")
    cmd.Flags().StringVarP(&opts.out, "out", "o", "-", "output file for the json target (- for stdout)")
    return cmd
}

func runSeed(ctx context.Context, cfg config.Config, log zerolog.Logger, opts seedOptions, stdout io.Writer) error {
    if ctx == nil { ctx = context.Background() }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
    defer cancel()

    tickets, err := store.NewMockSource(store.MockOptions{Tickets: opts.count, Days: opts.days, Seed: opts.seed}).Load(ctx)
    if err != nil { return err }

    switch opts.target {
    case "postgres":
        db, err := repo.Open(ctx, cfg.DBDSN, log)
        if err != nil { return err }
        defer db.Close()
        r := repo.NewRepository(db, log)
        if err := r.EnsureSchema(ctx); err != nil { return fmt.Errorf("ensure schema: %w", err) }
        if err := r.UpsertTickets(ctx, tickets); err != nil { return fmt.Errorf("upsert tickets: %w", err) }
    case "redis":
        rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
        defer rdb.Close()
        if err := store.NewRedisSource(rdb, cfg.RedisKey).Save(ctx, tickets); err != nil { return fmt.Errorf("redis save: %w", err) }
    case "json":
        if err := writeJSON(opts.out, stdout, tickets); err != nil { return err }
    default:
        return fmt.Errorf("unknown target %q", opts.target)
    }
    log.Info().Str("target", opts.target).Int("tickets", len(tickets)).Msg("seeded")
    return nil
}

func writeJSON(path string, stdout io.Writer, tickets []domain.Ticket) error {
    w := stdout
    if path != "" && path != "-" {
        f, err := os.Create(path)
        if err != nil { return err }
        defer f.Close()
        w = f
    }
    enc := json.NewEncoder(w)
    enc.SetIndent("", "  ")
    return enc.Encode(tickets)
}
