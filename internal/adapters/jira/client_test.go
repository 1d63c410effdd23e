package jira

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strconv"
    "sync/atomic"
    "testing"
    "time"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/HamedShams/ticket-pulse/internal/domain"
)

func issue(key, status, created string, resolved any) map[string]any {
    return map[string]any{
        "key": key,
        "fields": map[string]any{
            "project":           map[string]any{"key": "PROJ1"},
            "assignee":          map[string]any{"displayName": "Alice"},
            "issuetype":         map[string]any{"name": "Bug"},
            "status":            map[string]any{"name": "whatever", "statusCategory": map[string]any{"key": status}},
            "created":           created,
            "resolutiondate":    resolved,
            "duedate":           "2025-03-20",
            "customfield_10016": 6.0,
        },
    }
}

func newTestClient(url string) *Client {
    c := NewClient(config.Config{JiraBaseURL: url, JiraPAT: "pat", JiraAPIVersion: "2", JiraPointsField: "customfield_10016", HTTPTimeout: time.Second}, zerolog.Nop())
    c.backoff = time.Millisecond
    return c
}

func TestSearchTickets_PagesAndMaps(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        assert.Equal(t, "/rest/api/2/search", r.URL.Path)
        assert.Equal(t, "Bearer pat", r.Header.Get("Authorization"))
        start, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
        var issues []any
        if start == 0 {
            for i := 0; i < pageSize; i++ {
                issues = append(issues, issue(fmt.Sprintf("PROJ1-%d", i+1), "done", "2025-03-03T09:00:00.000+0000", "2025-03-05T10:00:00.000+0000"))
            }
        } else {
            issues = append(issues, issue("PROJ1-99", "indeterminate", "2025-03-04T09:00:00.000+0000", nil))
            issues = append(issues, map[string]any{"key": "BROKEN-1"})
        }
        _ = json.NewEncoder(w).Encode(map[string]any{"issues": issues, "total": pageSize + 2})
    }))
    defer srv.Close()

    got, err := newTestClient(srv.URL).SearchTickets(context.Background(), "project = PROJ1")
    require.NoError(t, err)
    assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
    require.Len(t, got, pageSize+1)

    first := got[0]
    assert.Equal(t, "PROJ1", first.Project)
    assert.Equal(t, "Alice", first.Assignee)
    assert.Equal(t, domain.IssueBug, first.IssueType)
    assert.Equal(t, domain.StatusDone, first.Status)
    assert.Equal(t, 5, first.StoryPoints)
    require.NotNil(t, first.ResolvedAt)
    assert.Equal(t, time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC), *first.ResolvedAt)
    assert.Equal(t, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), first.DueDate)
    assert.NoError(t, first.Validate())

    last := got[len(got)-1]
    assert.Equal(t, domain.StatusInProgress, last.Status)
    assert.Nil(t, last.ResolvedAt)
}

// cappedServer serves n issues in pages of at most limit, whatever maxResults asks for.
func cappedServer(t *testing.T, n, limit int, hints func(start, served int) map[string]any) (*httptest.Server, *int32) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        start, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
        var issues []any
        for i := start; i < n && i < start+limit; i++ {
            issues = append(issues, issue(fmt.Sprintf("PROJ1-%d", i+1), "new", "2025-03-03T09:00:00.000+0000", nil))
        }
        body := hints(start, len(issues))
        body["issues"] = issues
        _ = json.NewEncoder(w).Encode(body)
    }))
    t.Cleanup(srv.Close)
    return srv, &calls
}

func TestSearchTickets_ServerCapsPageSize(t *testing.T) {
    tests := []struct {
        name  string
        hints func(start, served int) map[string]any
        want  int
        calls int32
    }{
        {"total", func(int, int) map[string]any { return map[string]any{"total": 45} }, 45, 3},
        {"isLast", func(start, served int) map[string]any { return map[string]any{"isLast": start+served >= 45} }, 45, 3},
        {"no hints stops on short page", func(int, int) map[string]any { return map[string]any{} }, 20, 1},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            srv, calls := cappedServer(t, 45, 20, tt.hints)
            got, err := newTestClient(srv.URL).SearchTickets(context.Background(), "project = PROJ1")
            require.NoError(t, err)
            assert.Len(t, got, tt.want)
            assert.Equal(t, tt.calls, atomic.LoadInt32(calls))
        })
    }
}

func TestDoJSON_RetriesOn5xx(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if atomic.AddInt32(&calls, 1) < 3 { w.WriteHeader(http.StatusBadGateway); return }
        _ = json.NewEncoder(w).Encode(map[string]any{"issues": []any{}})
    }))
    defer srv.Close()

    got, err := newTestClient(srv.URL).SearchTickets(context.Background(), "project = X")
    require.NoError(t, err)
    assert.Empty(t, got)
    assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestDoJSON_NoRetryOn4xx(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        http.Error(w, "bad jql", http.StatusBadRequest)
    }))
    defer srv.Close()

    _, err := newTestClient(srv.URL).SearchTickets(context.Background(), "nonsense")
    require.Error(t, err)
    assert.Contains(t, err.Error(), "status=400")
    assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDoJSON_EmptyBaseURL(t *testing.T) {
    _, err := newTestClient("").Search(context.Background(), "x", 0, 1)
    assert.ErrorIs(t, err, ErrEmptyBaseURL)
}

func TestToTicket_Fallbacks(t *testing.T) {
    c := newTestClient("http://unused")
    tk, err := c.toTicket(map[string]any{
        "key": "OPS-7",
        "fields": map[string]any{
            "issuetype": map[string]any{"name": "Epic"},
            "status":    map[string]any{"name": "To Do"},
            "created":   "2025-03-03T09:00:00Z",
        },
    })
    require.NoError(t, err)
    assert.Equal(t, "OPS", tk.Project)
    assert.Equal(t, "Unassigned", tk.Assignee)
    assert.Equal(t, domain.IssueTask, tk.IssueType)
    assert.Equal(t, domain.StatusToDo, tk.Status)
    assert.Equal(t, 1, tk.StoryPoints)
    assert.Equal(t, tk.CreatedAt, tk.DueDate)
}
