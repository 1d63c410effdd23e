/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "time"

    "github.com/gin-contrib/cors"
    "github.com/gin-gonic/gin"
    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/HamedShams/ticket-pulse/internal/metrics"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc service) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context){
        start := time.Now()
        c.Next()
        path := c.FullPath()
        if path == "" { path = "unmatched" }
        metrics.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
        log.Info().Str("m", c.Request.Method).Str("p", path).Int("s", c.Writer.Status()).Dur("took", time.Since(start)).Msg("http")
    })
    if len(cfg.CORSOrigins) > 0 {
        r.Use(cors.New(cors.Config{
            AllowOrigins:     cfg.CORSOrigins,
            AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
            AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Requested-With"},
            AllowCredentials: true,
            MaxAge:           12 * time.Hour,
        }))
    }

    h := NewHandlers(cfg, log, svc)

    r.GET("/", h.Root)
    r.GET("/healthz", h.Healthz)
    r.GET("/metrics", gin.WrapH(promhttp.Handler()))

    api := r.Group("/api")
    api.GET("/tickets", h.Tickets)
    api.GET("/metrics", h.Metrics)
    api.GET("/forecast", h.Forecast)

    r.POST("/admin/refresh", h.Refresh)
    r.POST("/admin/digest", h.Digest)

    return r
}
