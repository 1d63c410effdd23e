/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package analytics holds the pure aggregation engine: filtering, calendar
// bucketing and the flat-line velocity forecast. Nothing here does I/O or
// keeps state between calls.
package analytics

import "github.com/HamedShams/ticket-pulse/internal/domain"

// Criteria are exact, case-sensitive equality constraints. Empty fields impose
// no restriction.
type Criteria struct {
    Project  string `form:"project"`
    Assignee string `form:"assignee"`
}

func (c Criteria) IsZero() bool { return c.Project == "" && c.Assignee == "" }

func (c Criteria) Match(t domain.Ticket) bool {
    if c.Project != "" && t.Project != c.Project { return false }
    if c.Assignee != "" && t.Assignee != c.Assignee { return false }
    return true
}

// Filter returns the tickets matching every supplied constraint. With no
// constraints the input is returned as is.
func Filter(tickets []domain.Ticket, c Criteria) []domain.Ticket {
    if c.IsZero() { return tickets }
    out := make([]domain.Ticket, 0, len(tickets)/4)
    for _, t := range tickets {
        if c.Match(t) { out = append(out, t) }
    }
    return out
}
