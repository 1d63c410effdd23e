/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "time"

    "github.com/HamedShams/ticket-pulse/internal/domain"
)

type Field int

const (
    CreatedAt Field = iota
    ResolvedAt
)

func (f Field) String() string {
    if f == ResolvedAt { return "resolved_at" }
    return "created_at"
}

// value returns the selected timestamp, false when the ticket has none.
func (f Field) value(t domain.Ticket) (time.Time, bool) {
    if f == ResolvedAt {
        if t.ResolvedAt == nil { return time.Time{}, false }
        return *t.ResolvedAt, true
    }
    return t.CreatedAt, !t.CreatedAt.IsZero()
}

type Granularity int

const (
    Day Granularity = iota
    Week
)

func (g Granularity) step() time.Duration {
    if g == Week { return 7 * 24 * time.Hour }
    return 24 * time.Hour
}

func truncateDay(t time.Time) time.Time {
    t = t.UTC()
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BucketKey maps a timestamp to its bucket. Days are UTC dates. Weeks run
// Monday through Sunday and are keyed by the closing Sunday, so every instant
// of a week shares one key.
func BucketKey(t time.Time, g Granularity) (key, start time.Time) {
    day := truncateDay(t)
    if g == Day { return day, day }
    toSunday := (7 - int(day.Weekday())) % 7
    key = day.AddDate(0, 0, toSunday)
    return key, key.AddDate(0, 0, -6)
}

// Bucketize counts tickets per bucket of the selected timestamp. Tickets
// without that timestamp are skipped. The result spans the first through the
// last occupied bucket and includes zero-count buckets in between.
func Bucketize(tickets []domain.Ticket, f Field, g Granularity) domain.Series {
    counts := map[time.Time]int{}
    var first, last time.Time
    for _, t := range tickets {
        ts, ok := f.value(t)
        if !ok { continue }
        key, _ := BucketKey(ts, g)
        if len(counts) == 0 || key.Before(first) { first = key }
        if len(counts) == 0 || key.After(last) { last = key }
        counts[key]++
    }
    if len(counts) == 0 { return domain.Series{} }

    // Keys are UTC midnights, so stepping by whole days never drifts.
    n := int(last.Sub(first)/g.step()) + 1
    out := make(domain.Series, 0, n)
    for key := first; !key.After(last); key = key.Add(g.step()) {
        _, start := BucketKey(key, g)
        out = append(out, domain.Bucket{Key: key, Start: start, Count: counts[key]})
    }
    return out
}
