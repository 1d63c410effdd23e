/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "errors"
    "fmt"
    "strconv"
    "strings"

    "github.com/HamedShams/ticket-pulse/internal/adapters/telegram"
    "github.com/HamedShams/ticket-pulse/internal/analytics"
    "github.com/HamedShams/ticket-pulse/internal/domain"
)

// telegram caps messages at 4096 characters; leave room for escaping
const digestChunk = 3800

// digestWeeks is how much history the digest prints.
const digestWeeks = 6

// RunDigest computes the forecast over the current snapshot and pushes a
// summary to every configured Telegram chat.
func (s *Service) RunDigest(ctx context.Context) error {
    if s.tg == nil || !s.tg.Enabled() || len(s.cfg.TelegramChatIDs) == 0 {
        s.log.Info().Msg("digest: telegram not configured, skipping")
        return nil
    }
    snap := s.Snapshot()
    res := s.Forecast(snap, analytics.Criteria{})
    commentary := ""
    if s.llm != nil && s.llm.Enabled() && len(res.Historical) > 0 {
        facts := map[string]any{"weekly_resolved": res.Historical.Counts(), "forecast": res.Forecast, "tickets": snap.Len()}
        c, err := s.llm.Commentary(ctx, facts)
        if err != nil { s.log.Error().Err(err).Msg("digest: commentary failed") } else { commentary = c }
    }
    text := renderDigest(snap.Len(), res, commentary, true)
    var errs []error
    for _, chat := range s.cfg.TelegramChatIDs {
        err := s.sendChunks(ctx, chat, text, s.tg.SendMarkdownV2)
        if err != nil {
            // telegram rejects the whole message on a single bad entity; resend unformatted
            s.log.Warn().Err(err).Int64("chat", chat).Msg("digest: markdown send failed, retrying as plain text")
            err = s.sendChunks(ctx, chat, renderDigest(snap.Len(), res, commentary, false), s.tg.SendMessagePlain)
        }
        if err != nil {
            s.log.Error().Err(err).Int64("chat", chat).Msg("digest: telegram send failed")
            errs = append(errs, fmt.Errorf("chat %d: %w", chat, err))
        }
    }
    s.log.Info().Int("tickets", snap.Len()).Float64("forecast", res.Forecast[0]).Int("chats", len(s.cfg.TelegramChatIDs)).Msg("digest: done")
    return errors.Join(errs...)
}

func (s *Service) sendChunks(ctx context.Context, chat int64, text string, send func(context.Context, int64, string) error) error {
    for _, part := range telegram.ChunkText(text, digestChunk) {
        if err := send(ctx, chat, part); err != nil { return err }
    }
    return nil
}

// renderDigest formats the digest as MarkdownV2 or, with markdown off, as plain text.
func renderDigest(total int, res domain.ForecastResult, commentary string, markdown bool) string {
    esc, bold := telegram.EscapeMarkdownV2, func(s string) string { return "*" + s + "*" }
    if !markdown {
        esc = func(s string) string { return s }
        bold = esc
    }
    b := &strings.Builder{}
    fmt.Fprintf(b, "%s\n", bold("Ticket Pulse"))
    fmt.Fprintf(b, "%s\n\n", esc("Weekly velocity forecast"))
    fmt.Fprintf(b, "%s %d\n", bold("Tickets:"), total)
    fmt.Fprintf(b, "%s %d\n", bold("Resolved:"), res.Historical.Total())
    fmt.Fprintf(b, "%s %s per week\n", bold(fmt.Sprintf("Next %d weeks:", len(res.Forecast))), esc(formatCount(res.Forecast[0])))
    if len(res.Historical) > 0 {
        fmt.Fprintf(b, "\n%s\n", bold("Recent weeks:"))
        hist := res.Historical
        if len(hist) > digestWeeks { hist = hist[len(hist)-digestWeeks:] }
        for _, w := range hist {
            fmt.Fprintf(b, "%s: %d\n", esc("week ending "+w.Key.Format("2006-01-02")), w.Count)
        }
    } else {
        fmt.Fprintf(b, "%s\n", esc("No resolved tickets yet."))
    }
    if commentary != "" { fmt.Fprintf(b, "\n%s\n", esc(commentary)) }
    return b.String()
}

func formatCount(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
