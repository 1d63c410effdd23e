/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package store

import (
    "context"
    "fmt"
    "math/rand/v2"
    "slices"
    "sync"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/domain"
)

var (
    mockProjects   = []string{"PROJ1", "PROJ2", "SUPPORT"}
    mockDevelopers = []string{"Alice", "Bob", "Charlie", "David", "Eve"}
    // cumulative weights for To Do / In Progress / Done
    mockStatusCDF = []float64{0.1, 0.3, 1.0}
)

type MockOptions struct {
    Tickets int
    Days    int
    // Seed 0 picks a time based seed once, at construction.
    Seed int64
}

// MockSource generates a synthetic dataset on first load and serves the same
// set on every later load, so refreshes do not reshuffle ticket contents.
type MockSource struct {
    opts MockOptions
    now  func() time.Time

    mu      sync.Mutex
    tickets []domain.Ticket
}

func NewMockSource(opts MockOptions) *MockSource {
    if opts.Tickets <= 0 { opts.Tickets = 500 }
    if opts.Days <= 0 { opts.Days = 90 }
    if opts.Seed == 0 { opts.Seed = time.Now().UnixNano() }
    return &MockSource{opts: opts, now: time.Now}
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Load(ctx context.Context) ([]domain.Ticket, error) {
    if err := ctx.Err(); err != nil { return nil, err }
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.tickets == nil {
        seed := uint64(m.opts.Seed)
        rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
        m.tickets = Generate(rng, m.opts.Tickets, m.opts.Days, m.now())
    }
    return slices.Clone(m.tickets), nil
}

// Generate builds n tickets created uniformly over the days before end.
// Done tickets resolve 1-9 days after creation; a resolution that would land
// after end is left unset. Keys use an independently drawn project prefix.
func Generate(rng *rand.Rand, n, days int, end time.Time) []domain.Ticket {
    end = end.UTC().Truncate(time.Second)
    start := end.AddDate(0, 0, -days)
    window := int64(end.Sub(start) / time.Second)
    pick := func(xs []string) string { return xs[rng.IntN(len(xs))] }

    out := make([]domain.Ticket, 0, n)
    for i := 0; i < n; i++ {
        created := start.Add(time.Duration(rng.Int64N(window)) * time.Second)
        status := weightedStatus(rng.Float64())
        var resolved *time.Time
        if status == domain.StatusDone {
            r := created.AddDate(0, 0, 1+rng.IntN(9))
            if !r.After(end) { resolved = &r }
        }
        out = append(out, domain.Ticket{
            Key:         fmt.Sprintf("%s-%d", pick(mockProjects), i+1),
            Project:     pick(mockProjects),
            Assignee:    pick(mockDevelopers),
            IssueType:   domain.IssueTypes[rng.IntN(len(domain.IssueTypes))],
            Status:      status,
            StoryPoints: domain.StoryPointScale[rng.IntN(len(domain.StoryPointScale))],
            CreatedAt:   created,
            ResolvedAt:  resolved,
            DueDate:     created.AddDate(0, 0, 5+rng.IntN(15)),
            Commits:     1 + rng.IntN(9),
        })
    }
    return out
}

func weightedStatus(u float64) domain.Status {
    for i, c := range mockStatusCDF {
        if u < c { return domain.Statuses[i] }
    }
    return domain.StatusDone
}
