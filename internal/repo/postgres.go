/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/domain"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
)

// pgxPool is the subset of *pgxpool.Pool the repository needs; pgxmock satisfies it in tests.
type pgxPool interface {
    Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
    Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
    QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
    SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
    Close()
}

type DB struct {
    Pool pgxPool
    log  zerolog.Logger
}

func Open(ctx context.Context, dsn string, log zerolog.Logger) (*DB, error) {
    pool, err := pgxpool.New(ctx, dsn)
    if err != nil { return nil, fmt.Errorf("db connect: %w", err) }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { pool.Close(); return nil, fmt.Errorf("db ping: %w", err) }
    return &DB{Pool: pool, log: log}, nil
}

// NewDB wraps an existing pool.
func NewDB(pool pgxPool, log zerolog.Logger) *DB { return &DB{Pool: pool, log: log} }

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

const schema = `
CREATE TABLE IF NOT EXISTS tickets (
    key          TEXT PRIMARY KEY,
    project      TEXT NOT NULL,
    assignee     TEXT NOT NULL,
    issue_type   TEXT NOT NULL,
    status       TEXT NOT NULL,
    story_points INT  NOT NULL CHECK (story_points > 0),
    created_at   TIMESTAMPTZ NOT NULL,
    resolved_at  TIMESTAMPTZ,
    due_date     TIMESTAMPTZ NOT NULL,
    commits      INT  NOT NULL DEFAULT 0,
    CHECK (resolved_at IS NULL OR (status = 'Done' AND resolved_at >= created_at))
);
CREATE INDEX IF NOT EXISTS tickets_project_idx ON tickets(project);
CREATE INDEX IF NOT EXISTS tickets_assignee_idx ON tickets(assignee)`

func (r *Repository) EnsureSchema(ctx context.Context) error {
    if _, err := r.db.Pool.Exec(ctx, schema); err != nil { return fmt.Errorf("ensure schema: %w", err) }
    return nil
}

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
    return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
    if !ok && err == nil { return errors.New("advisory unlock returned false") }
    return err
}

const upsertTicket = `
    INSERT INTO tickets(key, project, assignee, issue_type, status, story_points,
        created_at, resolved_at, due_date, commits)
    VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    ON CONFLICT(key) DO UPDATE SET
        project=EXCLUDED.project,
        assignee=EXCLUDED.assignee,
        issue_type=EXCLUDED.issue_type,
        status=EXCLUDED.status,
        story_points=EXCLUDED.story_points,
        created_at=EXCLUDED.created_at,
        resolved_at=EXCLUDED.resolved_at,
        due_date=EXCLUDED.due_date,
        commits=EXCLUDED.commits`

func (r *Repository) UpsertTickets(ctx context.Context, ts []domain.Ticket) error {
    if len(ts) == 0 { return nil }
    batch := &pgx.Batch{}
    for _, t := range ts {
        batch.Queue(upsertTicket, t.Key, t.Project, t.Assignee, string(t.IssueType), string(t.Status), t.StoryPoints,
            t.CreatedAt, t.ResolvedAt, t.DueDate, t.Commits)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for _, t := range ts {
        if _, err := br.Exec(); err != nil { return fmt.Errorf("upsert ticket %s: %w", t.Key, err) }
    }
    return nil
}

func (r *Repository) CountTickets(ctx context.Context) (int, error) {
    var n int
    err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n)
    return n, err
}

// LoadTickets reads every ticket ordered by creation. Rows that break the
// ticket invariants are skipped with a warning.
func (r *Repository) LoadTickets(ctx context.Context) ([]domain.Ticket, error) {
    rows, err := r.db.Pool.Query(ctx, `SELECT key, project, assignee, issue_type, status, story_points,
        created_at, resolved_at, due_date, commits FROM tickets ORDER BY created_at, key`)
    if err != nil { return nil, fmt.Errorf("load tickets: %w", err) }
    defer rows.Close()
    var out []domain.Ticket
    for rows.Next() {
        var t domain.Ticket
        var typ, status string
        var resolved *time.Time
        if err := rows.Scan(&t.Key, &t.Project, &t.Assignee, &typ, &status, &t.StoryPoints,
            &t.CreatedAt, &resolved, &t.DueDate, &t.Commits); err != nil {
            return nil, fmt.Errorf("scan ticket: %w", err)
        }
        t.IssueType = domain.ParseIssueType(typ)
        st, err := domain.ParseStatus(status)
        if err != nil { r.log.Warn().Err(err).Str("key", t.Key).Msg("skip ticket"); continue }
        t.Status = st
        if resolved != nil { rt := resolved.UTC(); t.ResolvedAt = &rt }
        if err := t.Validate(); err != nil { r.log.Warn().Err(err).Msg("skip ticket"); continue }
        out = append(out, t)
    }
    if err := rows.Err(); err != nil { return nil, fmt.Errorf("load tickets: %w", err) }
    return out, nil
}
