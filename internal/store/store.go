/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package store keeps the ticket snapshot the API reads from. A snapshot is
// never modified after it is published; refreshing builds a new one and swaps
// the pointer, so readers need no locking.
package store

import (
    "context"
    "fmt"
    "slices"
    "sync/atomic"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/domain"
    "github.com/HamedShams/ticket-pulse/internal/metrics"
    "github.com/rs/zerolog"
)

// Source loads the full ticket set from somewhere.
type Source interface {
    Name() string
    Load(ctx context.Context) ([]domain.Ticket, error)
}

type Snapshot struct {
    tickets  []domain.Ticket
    LoadedAt time.Time
    Source   string
}

func NewSnapshot(source string, tickets []domain.Ticket, loadedAt time.Time) *Snapshot {
    return &Snapshot{tickets: slices.Clone(tickets), LoadedAt: loadedAt, Source: source}
}

// Tickets returns a copy of the snapshot contents.
func (s *Snapshot) Tickets() []domain.Ticket { return slices.Clone(s.tickets) }

func (s *Snapshot) Len() int { return len(s.tickets) }

type Store struct {
    src Source
    log zerolog.Logger
    cur atomic.Pointer[Snapshot]
    now func() time.Time
}

func New(src Source, log zerolog.Logger) *Store {
    st := &Store{src: src, log: log, now: time.Now}
    st.cur.Store(NewSnapshot(src.Name(), nil, time.Time{}))
    return st
}

func (st *Store) Snapshot() *Snapshot { return st.cur.Load() }

func (st *Store) SourceName() string { return st.src.Name() }

// Refresh reloads from the source. On failure the previous snapshot stays in place.
func (st *Store) Refresh(ctx context.Context) (*Snapshot, error) {
    start := st.now()
    tickets, err := st.src.Load(ctx)
    elapsed := time.Since(start)
    if err != nil {
        metrics.RecordRefresh(st.src.Name(), false, 0, elapsed)
        return st.Snapshot(), fmt.Errorf("refresh from %s: %w", st.src.Name(), err)
    }
    kept := make([]domain.Ticket, 0, len(tickets))
    for _, t := range tickets {
        if err := t.Validate(); err != nil { st.log.Warn().Err(err).Str("source", st.src.Name()).Msg("drop ticket"); continue }
        kept = append(kept, t)
    }
    snap := NewSnapshot(st.src.Name(), kept, st.now().UTC())
    st.cur.Store(snap)
    metrics.RecordRefresh(st.src.Name(), true, snap.Len(), elapsed)
    st.log.Info().Str("source", snap.Source).Int("tickets", snap.Len()).Dur("took", elapsed).Msg("snapshot refreshed")
    return snap, nil
}
