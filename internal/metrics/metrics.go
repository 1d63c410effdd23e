// Package metrics provides Prometheus metrics for ticket-pulse.
package metrics

import (
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    // HTTPRequests counts served requests.
    HTTPRequests = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "ticketpulse",
            Name:      "http_requests_total",
            Help:      "Total number of HTTP requests",
        },
        []string{"method", "path", "status"},
    )

    HTTPDuration = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "ticketpulse",
            Name:      "http_request_duration_seconds",
            Help:      "Duration of HTTP requests in seconds",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"path"},
    )

    // SnapshotTickets is the size of the snapshot currently served.
    SnapshotTickets = promauto.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "ticketpulse",
            Name:      "snapshot_tickets",
            Help:      "Number of tickets in the active snapshot",
        },
    )

    SnapshotRefreshTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "ticketpulse",
            Name:      "snapshot_refresh_total",
            Help:      "Total number of snapshot refreshes",
        },
        []string{"source", "status"},
    )

    SnapshotRefreshDuration = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "ticketpulse",
            Name:      "snapshot_refresh_duration_seconds",
            Help:      "Duration of snapshot loads in seconds",
            Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
        },
        []string{"source"},
    )

    // ForecastVelocity is the last projected weekly throughput over all tickets.
    ForecastVelocity = promauto.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "ticketpulse",
            Name:      "forecast_velocity",
            Help:      "Last computed weekly velocity forecast",
        },
    )
)

// RecordRequest records one served HTTP request.
func RecordRequest(method, path string, status int, d time.Duration) {
    HTTPRequests.WithLabelValues(method, path, statusClass(status)).Inc()
    HTTPDuration.WithLabelValues(path).Observe(d.Seconds())
}

// RecordRefresh records a snapshot load attempt.
func RecordRefresh(source string, ok bool, size int, d time.Duration) {
    status := "ok"
    if !ok { status = "error" }
    SnapshotRefreshTotal.WithLabelValues(source, status).Inc()
    SnapshotRefreshDuration.WithLabelValues(source).Observe(d.Seconds())
    if ok { SnapshotTickets.Set(float64(size)) }
}

func statusClass(code int) string {
    switch {
    case code >= 500: return "5xx"
    case code >= 400: return "4xx"
    case code >= 300: return "3xx"
    default: return "2xx"
    }
}
