/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package store

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"

    "github.com/HamedShams/ticket-pulse/internal/adapters/jira"
    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/HamedShams/ticket-pulse/internal/domain"
    "github.com/HamedShams/ticket-pulse/internal/repo"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"
    "golang.org/x/sync/errgroup"
)

var ErrUnknownSource = errors.New("unknown ticket source")

// PostgresSource reads the tickets table.
type PostgresSource struct{ repo *repo.Repository }

func NewPostgresSource(r *repo.Repository) *PostgresSource { return &PostgresSource{repo: r} }

func (p *PostgresSource) Name() string { return "postgres" }

func (p *PostgresSource) Load(ctx context.Context) ([]domain.Ticket, error) { return p.repo.LoadTickets(ctx) }

// Repository exposes the underlying repo so jobs can take advisory locks on it.
func (p *PostgresSource) Repository() *repo.Repository { return p.repo }

// RedisSource keeps the whole ticket set as one JSON array under a single key.
type RedisSource struct {
    rdb redis.Cmdable
    key string
}

func NewRedisSource(rdb redis.Cmdable, key string) *RedisSource { return &RedisSource{rdb: rdb, key: key} }

func (r *RedisSource) Name() string { return "redis" }

// Load treats a missing key as an empty dataset.
func (r *RedisSource) Load(ctx context.Context) ([]domain.Ticket, error) {
    b, err := r.rdb.Get(ctx, r.key).Bytes()
    if errors.Is(err, redis.Nil) { return []domain.Ticket{}, nil }
    if err != nil { return nil, fmt.Errorf("redis get %s: %w", r.key, err) }
    var out []domain.Ticket
    if err := json.Unmarshal(b, &out); err != nil { return nil, fmt.Errorf("redis decode %s: %w", r.key, err) }
    return out, nil
}

func (r *RedisSource) Save(ctx context.Context, tickets []domain.Ticket) error {
    b, err := json.Marshal(tickets)
    if err != nil { return err }
    if err := r.rdb.Set(ctx, r.key, b, 0).Err(); err != nil { return fmt.Errorf("redis set %s: %w", r.key, err) }
    return nil
}

type jiraSearcher interface {
    SearchTickets(ctx context.Context, jql string) ([]domain.Ticket, error)
}

// JiraSource pulls issues per project concurrently and concatenates them.
type JiraSource struct {
    client   jiraSearcher
    projects []string
    jql      string
}

func NewJiraSource(c jiraSearcher, projects []string, jql string) *JiraSource {
    return &JiraSource{client: c, projects: projects, jql: jql}
}

func (j *JiraSource) Name() string { return "jira" }

func (j *JiraSource) Load(ctx context.Context) ([]domain.Ticket, error) {
    if len(j.projects) == 0 { return j.client.SearchTickets(ctx, j.query("")) }
    results := make([][]domain.Ticket, len(j.projects))
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(4)
    for i, p := range j.projects {
        g.Go(func() error {
            ts, err := j.client.SearchTickets(gctx, j.query(p))
            if err != nil { return fmt.Errorf("jira project %s: %w", p, err) }
            results[i] = ts
            return nil
        })
    }
    if err := g.Wait(); err != nil { return nil, err }
    var out []domain.Ticket
    for _, r := range results { out = append(out, r...) }
    return out, nil
}

func (j *JiraSource) query(project string) string {
    parts := []string{}
    if project != "" { parts = append(parts, fmt.Sprintf("project = %q", project)) }
    if s := strings.TrimSpace(j.jql); s != "" { parts = append(parts, "("+s+")") }
    return strings.Join(parts, " AND ") + " ORDER BY created ASC"
}

// NewSource builds the source selected by TICKET_SOURCE. The returned closer
// releases any connection the source opened.
func NewSource(ctx context.Context, cfg config.Config, log zerolog.Logger) (Source, func(), error) {
    noop := func() {}
    switch cfg.TicketSource {
    case "", "mock":
        return NewMockSource(MockOptions{Tickets: cfg.MockTickets, Days: cfg.MockDays, Seed: cfg.MockSeed}), noop, nil
    case "postgres":
        db, err := repo.Open(ctx, cfg.DBDSN, log)
        if err != nil { return nil, noop, err }
        r := repo.NewRepository(db, log)
        if err := r.EnsureSchema(ctx); err != nil { db.Close(); return nil, noop, err }
        return NewPostgresSource(r), db.Close, nil
    case "redis":
        rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
        if err := rdb.Ping(ctx).Err(); err != nil { _ = rdb.Close(); return nil, noop, fmt.Errorf("redis ping: %w", err) }
        return NewRedisSource(rdb, cfg.RedisKey), func() { _ = rdb.Close() }, nil
    case "jira":
        return NewJiraSource(jira.NewClient(cfg, log), cfg.JiraProjects, cfg.JiraJQL), noop, nil
    }
    return nil, noop, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.TicketSource)
}
