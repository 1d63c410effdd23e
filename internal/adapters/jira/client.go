/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/rs/zerolog"
)

var ErrEmptyBaseURL = errors.New("jira: empty baseURL")

type Client struct {
    baseURL     string
    token       string
    user        string
    pass        string
    http        *http.Client
    log         zerolog.Logger
    apiVer      string
    pointsField string
    backoff     time.Duration
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        baseURL:     cfg.JiraBaseURL,
        token:       cfg.JiraPAT,
        user:        cfg.JiraUsername,
        pass:        cfg.JiraPassword,
        http:        &http.Client{ Timeout: cfg.HTTPTimeout },
        log:         log,
        apiVer:      cfg.JiraAPIVersion,
        pointsField: cfg.JiraPointsField,
        backoff:     300 * time.Millisecond,
    }
}

func (c *Client) apiURL(path string, q url.Values) string {
    base := strings.TrimRight(c.baseURL, "/")
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := base + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) doJSON(ctx context.Context, method, u string, body any) (map[string]any, error) {
    if c.baseURL == "" { return nil, ErrEmptyBaseURL }
    var payload []byte
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return nil, err }
        payload = b
    }
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        var r io.Reader
        if payload != nil { r = strings.NewReader(string(payload)) }
        req, err := http.NewRequestWithContext(ctx, method, u, r)
        if err != nil { return nil, err }
        req.Header.Set("Accept", "application/json")
        if body != nil { req.Header.Set("Content-Type", "application/json") }
        if c.token != "" {
            req.Header.Set("Authorization", "Bearer "+c.token)
        } else if c.user != "" && c.pass != "" {
            req.SetBasicAuth(c.user, c.pass)
        }
        out, retry, err := c.do(req)
        if err == nil { return out, nil }
        if !retry { return nil, err }
        lastErr = err
        c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("jira: retrying")
        select {
        case <-ctx.Done(): return nil, ctx.Err()
        case <-time.After(c.backoff * time.Duration(1<<attempt)):
        }
    }
    return nil, lastErr
}

// do runs one request. retry reports whether the failure is worth another attempt (429/5xx or transport).
func (c *Client) do(req *http.Request) (out map[string]any, retry bool, err error) {
    resp, err := c.http.Do(req)
    if err != nil { return nil, true, err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(resp.Body)
        err = fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
        return nil, resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
    }
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil { return nil, false, err }
    return out, false, nil
}

func (c *Client) fields() string {
    f := []string{"project", "assignee", "issuetype", "status", "created", "resolutiondate", "duedate"}
    if c.pointsField != "" { f = append(f, c.pointsField) }
    return strings.Join(f, ",")
}

func (c *Client) Search(ctx context.Context, jql string, startAt, max int) (map[string]any, error) {
    if jql == "" { return nil, errors.New("jira: empty jql") }
    if c.apiVer == "2" {
        q := url.Values{}
        q.Set("jql", jql)
        if startAt > 0 { q.Set("startAt", fmt.Sprint(startAt)) }
        if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
        q.Set("fields", c.fields())
        return c.doJSON(ctx, http.MethodGet, c.apiURL("/rest/api/2/search", q), nil)
    }
    // default to v3
    body := map[string]any{"jql": jql, "startAt": startAt, "maxResults": max, "fields": strings.Split(c.fields(), ",")}
    return c.doJSON(ctx, http.MethodPost, c.apiURL("/rest/api/3/search", nil), body)
}
