/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "math"

    "github.com/HamedShams/ticket-pulse/internal/domain"
)

const (
    // ForecastHorizon is the number of future weeks projected.
    ForecastHorizon = 4
    // trailingWindow is how many of the most recent weeks feed the rounded average.
    trailingWindow = 4
)

// Forecast projects weekly throughput as a flat line. With at least
// trailingWindow weeks of history it repeats the rounded (half-up) mean of the
// last trailingWindow weeks; with less it repeats the unrounded mean of what
// there is; with nothing it projects zeros.
func Forecast(history domain.Series) domain.ForecastResult {
    value := 0.0
    switch n := len(history); {
    case n >= trailingWindow:
        value = roundHalfUp(mean(history[n-trailingWindow:]))
    case n > 0:
        value = mean(history)
    }
    out := make([]float64, ForecastHorizon)
    for i := range out { out[i] = value }
    return domain.ForecastResult{Forecast: out, Historical: history}
}

func mean(s domain.Series) float64 {
    return float64(s.Total()) / float64(len(s))
}

func roundHalfUp(v float64) float64 { return math.Floor(v + 0.5) }
