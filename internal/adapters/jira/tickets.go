package jira

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/domain"
)

const pageSize = 50

// SearchTickets pages through a JQL search and maps every issue to a Ticket.
// Issues that cannot be mapped are logged and skipped.
func (c *Client) SearchTickets(ctx context.Context, jql string) ([]domain.Ticket, error) {
    var out []domain.Ticket
    startAt := 0
    for {
        page, err := c.Search(ctx, jql, startAt, pageSize)
        if err != nil { return nil, err }
        arr, _ := page["issues"].([]any)
        for _, it := range arr {
            im, _ := it.(map[string]any)
            if im == nil { continue }
            t, err := c.toTicket(im)
            if err != nil { c.log.Warn().Err(err).Msg("jira: skip issue"); continue }
            out = append(out, t)
        }
        startAt += len(arr)
        if len(arr) == 0 { break }
        // servers may cap maxResults below pageSize, so a short page only ends
        // the scan when the response carries no paging hints
        if last, ok := page["isLast"].(bool); ok {
            if last { break }
            continue
        }
        if total, ok := page["total"].(float64); ok {
            if startAt >= int(total) { break }
            continue
        }
        if len(arr) < pageSize { break }
    }
    c.log.Info().Int("tickets", len(out)).Str("jql", jql).Msg("jira: search done")
    return out, nil
}

func (c *Client) toTicket(im map[string]any) (domain.Ticket, error) {
    key := toStrAny(im["key"])
    if key == "" { return domain.Ticket{}, fmt.Errorf("jira: issue without key") }
    fields, _ := im["fields"].(map[string]any)
    if fields == nil { return domain.Ticket{}, fmt.Errorf("jira: %s has no fields", key) }

    t := domain.Ticket{Key: key}
    if pj, ok := fields["project"].(map[string]any); ok { t.Project = toStrAny(pj["key"]) }
    if t.Project == "" { t.Project, _, _ = strings.Cut(key, "-") }
    t.Assignee = "Unassigned"
    if as, ok := fields["assignee"].(map[string]any); ok {
        if n := toStrAny(as["displayName"]); n != "" { t.Assignee = n }
    }
    if tp, ok := fields["issuetype"].(map[string]any); ok { t.IssueType = domain.ParseIssueType(toStrAny(tp["name"])) } else { t.IssueType = domain.IssueTask }

    st, err := statusOf(fields["status"])
    if err != nil { return domain.Ticket{}, fmt.Errorf("jira: %s: %w", key, err) }
    t.Status = st

    created := parseTimeUTC(fields["created"])
    if created == nil { return domain.Ticket{}, fmt.Errorf("jira: %s has no created date", key) }
    t.CreatedAt = *created
    if st == domain.StatusDone {
        if r := parseTimeUTC(fields["resolutiondate"]); r != nil && !r.Before(t.CreatedAt) { t.ResolvedAt = r }
    }
    t.DueDate = t.CreatedAt
    if d := parseTimeUTC(fields["duedate"]); d != nil { t.DueDate = *d }

    points := 0.0
    if v, ok := fields[c.pointsField].(float64); ok { points = v }
    t.StoryPoints = domain.NearestStoryPoints(points)
    return t, nil
}

// statusOf prefers the status category, which is stable across workflows.
func statusOf(v any) (domain.Status, error) {
    sm, _ := v.(map[string]any)
    if sm == nil { return "", fmt.Errorf("missing status") }
    if cat, ok := sm["statusCategory"].(map[string]any); ok {
        if s, err := domain.ParseStatus(toStrAny(cat["key"])); err == nil { return s, nil }
    }
    return domain.ParseStatus(toStrAny(sm["name"]))
}

func parseTimeUTC(v any) *time.Time {
    s := toStrAny(v)
    if s == "" { return nil }
    for _, layout := range []string{"2006-01-02T15:04:05.000-0700", time.RFC3339Nano, "2006-01-02"} {
        if t, err := time.Parse(layout, s); err == nil { u := t.UTC(); return &u }
    }
    return nil
}

func toStrAny(v any) string {
    switch x := v.(type) {
    case string: return x
    case float64: return fmt.Sprintf("%.0f", x)
    case nil: return ""
    default: return fmt.Sprint(x)
    }
}
