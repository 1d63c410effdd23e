/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package telegram

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/rs/zerolog"
)

const defaultAPI = "https://api.telegram.org"

type Client struct {
    token string
    api   string
    http  *http.Client
    log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{ token: cfg.TelegramToken, api: defaultAPI, http: &http.Client{ Timeout: 10 * time.Second }, log: log }
}

// Enabled reports whether a bot token is configured.
func (c *Client) Enabled() bool { return c.token != "" }

// SendMarkdownV2 sends a message using MarkdownV2 parse mode.
func (c *Client) SendMarkdownV2(ctx context.Context, chatID int64, text string) error {
    return c.send(ctx, map[string]any{"chat_id": chatID, "text": text, "parse_mode": "MarkdownV2", "disable_web_page_preview": true})
}

// SendMessagePlain sends without parse_mode to avoid markdown parsing errors
func (c *Client) SendMessagePlain(ctx context.Context, chatID int64, text string) error {
    return c.send(ctx, map[string]any{"chat_id": chatID, "text": text, "disable_web_page_preview": true})
}

func (c *Client) send(ctx context.Context, body map[string]any) error {
    if c.token == "" || body["chat_id"] == int64(0) { return fmt.Errorf("telegram: missing token or chat id") }
    url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(c.api, "/"), c.token)
    b, _ := json.Marshal(body)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
    if err != nil { return err }
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(req)
    if err != nil { return err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        bodyBytes, _ := io.ReadAll(resp.Body)
        return fmt.Errorf("telegram sendMessage status=%d body=%s", resp.StatusCode, string(bodyBytes))
    }
    return nil
}

var mdV2Replacer = strings.NewReplacer(
    "_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`",
    ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}",
    ".", "\\.", "!", "\\!",
)

// EscapeMarkdownV2 escapes every character MarkdownV2 treats as markup.
func EscapeMarkdownV2(s string) string { return mdV2Replacer.Replace(s) }

// ChunkText splits text into chunks of up to max runes, breaking on line boundaries
// where it can. Telegram rejects messages over 4096 characters.
func ChunkText(s string, max int) []string {
    if max <= 0 { return []string{s} }
    var chunks []string
    cur := ""
    curlen := 0
    for _, ln := range strings.Split(s, "\n") {
        r := []rune(ln)
        rl := len(r)
        if rl > max {
            if curlen > 0 { chunks = append(chunks, cur); cur = ""; curlen = 0 }
            for i := 0; i < rl; i += max {
                j := min(i+max, rl)
                chunks = append(chunks, string(r[i:j]))
            }
            continue
        }
        extra := rl
        if curlen > 0 { extra++ }
        if curlen+extra > max {
            chunks = append(chunks, cur)
            cur, curlen = ln, rl
        } else if curlen == 0 {
            cur, curlen = ln, rl
        } else {
            cur += "\n" + ln
            curlen += extra
        }
    }
    if curlen > 0 { chunks = append(chunks, cur) }
    if len(chunks) == 0 { chunks = []string{""} }
    return chunks
}
