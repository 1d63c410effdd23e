/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"
)

type IssueType string

const (
    IssueStory IssueType = "Story"
    IssueTask  IssueType = "Task"
    IssueBug   IssueType = "Bug"
)

var IssueTypes = []IssueType{IssueStory, IssueTask, IssueBug}

// ParseIssueType maps a tracker issue type name onto the three supported kinds.
// Anything that is not a story or a bug is counted as a task.
func ParseIssueType(s string) IssueType {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "story", "user story": return IssueStory
    case "bug", "defect": return IssueBug
    default: return IssueTask
    }
}

type Status string

const (
    StatusToDo       Status = "To Do"
    StatusInProgress Status = "In Progress"
    StatusDone       Status = "Done"
)

var Statuses = []Status{StatusToDo, StatusInProgress, StatusDone}

// ParseStatus accepts display names ("In Progress"), compact names ("InProgress")
// and Jira status category keys ("new", "indeterminate", "done").
func ParseStatus(s string) (Status, error) {
    key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
    switch key {
    case "todo", "new", "open", "backlog": return StatusToDo, nil
    case "inprogress", "indeterminate", "doing": return StatusInProgress, nil
    case "done", "resolved", "closed": return StatusDone, nil
    }
    return "", fmt.Errorf("unknown status %q", s)
}

func (s *Status) UnmarshalJSON(b []byte) error {
    var raw string
    if err := json.Unmarshal(b, &raw); err != nil { return err }
    st, err := ParseStatus(raw)
    if err != nil { return err }
    *s = st
    return nil
}

// StoryPointScale is the fixed estimation scale tickets are pointed on.
var StoryPointScale = []int{1, 2, 3, 5, 8, 13}

// NearestStoryPoints snaps an arbitrary estimate onto StoryPointScale.
// Ties go to the smaller value.
func NearestStoryPoints(v float64) int {
    best := StoryPointScale[0]
    for _, p := range StoryPointScale[1:] {
        if abs(float64(p)-v) < abs(float64(best)-v) { best = p }
    }
    return best
}

func abs(f float64) float64 { if f < 0 { return -f }; return f }

type Ticket struct {
    Key         string     `json:"key"`
    Project     string     `json:"project"`
    Assignee    string     `json:"assignee"`
    IssueType   IssueType  `json:"issue_type"`
    Status      Status     `json:"status"`
    StoryPoints int        `json:"story_points"`
    CreatedAt   time.Time  `json:"created_at"`
    ResolvedAt  *time.Time `json:"resolved_at"`
    DueDate     time.Time  `json:"due_date"`
    Commits     int        `json:"commits"`
}

var (
    ErrResolvedNotDone   = errors.New("resolved_at set on a ticket that is not done")
    ErrResolvedBeforeNew = errors.New("resolved_at precedes created_at")
)

// Validate checks the record-level invariants. Sources use it to drop bad rows;
// the analytics engine assumes it has already passed.
func (t Ticket) Validate() error {
    if strings.TrimSpace(t.Key) == "" { return errors.New("ticket: empty key") }
    if t.Project == "" || t.Assignee == "" { return fmt.Errorf("ticket %s: missing project or assignee", t.Key) }
    if t.CreatedAt.IsZero() { return fmt.Errorf("ticket %s: missing created_at", t.Key) }
    if t.ResolvedAt != nil {
        if t.Status != StatusDone { return fmt.Errorf("ticket %s: %w", t.Key, ErrResolvedNotDone) }
        if t.ResolvedAt.Before(t.CreatedAt) { return fmt.Errorf("ticket %s: %w", t.Key, ErrResolvedBeforeNew) }
    }
    if t.StoryPoints <= 0 { return fmt.Errorf("ticket %s: story_points must be positive", t.Key) }
    if t.Commits < 0 { return fmt.Errorf("ticket %s: negative commits", t.Key) }
    return nil
}

// Bucket is one calendar interval of a series. Key is the day itself for daily
// buckets and the closing Sunday for weekly ones; Start is the first instant.
type Bucket struct {
    Key   time.Time
    Start time.Time
    Count int
}

type Series []Bucket

func (s Series) Total() int {
    n := 0
    for _, b := range s { n += b.Count }
    return n
}

func (s Series) Counts() []int {
    out := make([]int, len(s))
    for i, b := range s { out[i] = b.Count }
    return out
}

type ForecastResult struct {
    Forecast   []float64
    Historical Series
}
