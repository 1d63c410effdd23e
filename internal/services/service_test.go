package services

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "testing"
    "time"

    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/HamedShams/ticket-pulse/internal/analytics"
    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/HamedShams/ticket-pulse/internal/domain"
    "github.com/HamedShams/ticket-pulse/internal/metrics"
    "github.com/HamedShams/ticket-pulse/internal/store"
)

type fakeSource struct {
    tickets []domain.Ticket
    err     error
}

func (f *fakeSource) Name() string { return "fake" }
func (f *fakeSource) Load(context.Context) ([]domain.Ticket, error) { return f.tickets, f.err }

type fakeTG struct {
    enabled  bool
    sent     map[int64][]string
    plain    map[int64][]string
    failFor  int64
    rejectMD bool
}

func (f *fakeTG) Enabled() bool { return f.enabled }
func (f *fakeTG) SendMarkdownV2(_ context.Context, chat int64, text string) error {
    if chat == f.failFor { return errors.New("boom") }
    if f.rejectMD { return errors.New("telegram sendMessage status=400 body=can't parse entities") }
    if f.sent == nil { f.sent = map[int64][]string{} }
    f.sent[chat] = append(f.sent[chat], text)
    return nil
}
func (f *fakeTG) SendMessagePlain(_ context.Context, chat int64, text string) error {
    if chat == f.failFor { return errors.New("boom") }
    if f.plain == nil { f.plain = map[int64][]string{} }
    f.plain[chat] = append(f.plain[chat], text)
    return nil
}

type fakeLLM struct {
    called bool
    out    string
    err    error
}

func (f *fakeLLM) Enabled() bool { return true }
func (f *fakeLLM) Commentary(context.Context, any) (string, error) { f.called = true; return f.out, f.err }

func day(d int) time.Time { return time.Date(2025, 3, d, 9, 0, 0, 0, time.UTC) }

func ticket(key, project, assignee string, created int, resolved int) domain.Ticket {
    t := domain.Ticket{
        Key: key, Project: project, Assignee: assignee, IssueType: domain.IssueTask,
        Status: domain.StatusToDo, StoryPoints: 3, CreatedAt: day(created), DueDate: day(created + 7),
    }
    if resolved > 0 {
        r := day(resolved)
        t.Status = domain.StatusDone
        t.ResolvedAt = &r
    }
    return t
}

func fixture() []domain.Ticket {
    return []domain.Ticket{
        ticket("A-1", "A", "alice", 3, 4),
        ticket("A-2", "A", "bob", 3, 0),
        ticket("A-3", "A", "alice", 5, 12),
        ticket("B-1", "B", "alice", 10, 11),
        ticket("B-2", "B", "carol", 10, 0),
    }
}

func newService(t *testing.T, src store.Source, cfg config.Config, llm LLM, tg Notifier) *Service {
    t.Helper()
    st := store.New(src, zerolog.Nop())
    _, err := st.Refresh(context.Background())
    require.NoError(t, err)
    return New(cfg, zerolog.Nop(), st, llm, tg)
}

func TestList(t *testing.T) {
    svc := newService(t, &fakeSource{tickets: fixture()}, config.Config{}, nil, nil)
    snap := svc.Snapshot()

    assert.Len(t, svc.List(snap, analytics.Criteria{}), 5)
    got := svc.List(snap, analytics.Criteria{Project: "A", Assignee: "alice"})
    require.Len(t, got, 2)
    assert.Equal(t, "A-1", got[0].Key)
    assert.Equal(t, "A-3", got[1].Key)
    assert.Empty(t, svc.List(snap, analytics.Criteria{Project: "Z"}))
}

func TestMetrics(t *testing.T) {
    svc := newService(t, &fakeSource{tickets: fixture()}, config.Config{}, nil, nil)
    m := svc.Metrics(svc.Snapshot(), analytics.Criteria{})

    assert.Equal(t, 5, m.TotalTickets)
    require.Len(t, m.CreatedPerDay, 8)
    assert.Equal(t, []int{2, 0, 1, 0, 0, 0, 0, 2}, m.CreatedPerDay.Counts())
    require.Len(t, m.ResolvedPerDay, 9)
    assert.Equal(t, 3, m.ResolvedPerDay.Total())

    mb := svc.Metrics(svc.Snapshot(), analytics.Criteria{Project: "B"})
    assert.Equal(t, 2, mb.TotalTickets)
    assert.Equal(t, []int{2}, mb.CreatedPerDay.Counts())
    assert.Equal(t, []int{1}, mb.ResolvedPerDay.Counts())
}

func TestMetrics_EmptySnapshot(t *testing.T) {
    svc := newService(t, &fakeSource{}, config.Config{}, nil, nil)
    m := svc.Metrics(svc.Snapshot(), analytics.Criteria{})
    assert.Zero(t, m.TotalTickets)
    assert.Empty(t, m.CreatedPerDay)
    assert.Empty(t, m.ResolvedPerDay)
}

func TestForecast(t *testing.T) {
    svc := newService(t, &fakeSource{tickets: fixture()}, config.Config{}, nil, nil)
    res := svc.Forecast(svc.Snapshot(), analytics.Criteria{})

    // resolved on Tue 4th, Tue 11th and Wed 12th: weeks ending 9th and 16th
    require.Len(t, res.Historical, 2)
    assert.Equal(t, []int{1, 2}, res.Historical.Counts())
    assert.Equal(t, []float64{1.5, 1.5, 1.5, 1.5}, res.Forecast)

    empty := svc.Forecast(svc.Snapshot(), analytics.Criteria{Assignee: "carol"})
    assert.Empty(t, empty.Historical)
    assert.Equal(t, []float64{0, 0, 0, 0}, empty.Forecast)
}

func TestRefresh_KeepsPreviousOnError(t *testing.T) {
    src := &fakeSource{tickets: fixture()}
    svc := newService(t, src, config.Config{}, nil, nil)
    before := svc.Snapshot()

    src.err = errors.New("db down")
    assert.Error(t, svc.Refresh(context.Background()))
    assert.Same(t, before, svc.Snapshot())

    src.err = nil
    src.tickets = fixture()[:1]
    require.NoError(t, svc.Refresh(context.Background()))
    assert.Equal(t, 1, svc.Snapshot().Len())
}

func TestHealth(t *testing.T) {
    svc := New(config.Config{}, zerolog.Nop(), store.New(&fakeSource{}, zerolog.Nop()), nil, nil)
    h := svc.Health()
    assert.True(t, h.OK)
    assert.Nil(t, h.LoadedAt)
    assert.Equal(t, "fake", h.Source)
    assert.Zero(t, h.Tickets)

    require.NoError(t, svc.Refresh(context.Background()))
    assert.NotNil(t, svc.Health().LoadedAt)
}

func TestRunDigest_SkipsWhenDisabled(t *testing.T) {
    tg := &fakeTG{}
    svc := newService(t, &fakeSource{tickets: fixture()}, config.Config{TelegramChatIDs: []int64{1}}, nil, tg)
    require.NoError(t, svc.RunDigest(context.Background()))
    assert.Empty(t, tg.sent)
}

func TestRunDigest_SendsToEveryChat(t *testing.T) {
    tg := &fakeTG{enabled: true}
    llm := &fakeLLM{out: "Velocity is picking up."}
    cfg := config.Config{TelegramChatIDs: []int64{1, 2}}
    svc := newService(t, &fakeSource{tickets: fixture()}, cfg, llm, tg)

    require.NoError(t, svc.RunDigest(context.Background()))
    assert.True(t, llm.called)
    require.Len(t, tg.sent[1], 1)
    require.Len(t, tg.sent[2], 1)
    msg := tg.sent[1][0]
    assert.Contains(t, msg, "*Tickets:* 5")
    assert.Contains(t, msg, `1\.5 per week`)
    assert.Contains(t, msg, `week ending 2025\-03\-16: 2`)
    assert.Contains(t, msg, `Velocity is picking up\.`)
}

func TestRunDigest_CommentaryFailureStillSends(t *testing.T) {
    tg := &fakeTG{enabled: true, failFor: 2}
    llm := &fakeLLM{err: errors.New("quota")}
    cfg := config.Config{TelegramChatIDs: []int64{1, 2}}
    svc := newService(t, &fakeSource{tickets: fixture()}, cfg, llm, tg)

    err := svc.RunDigest(context.Background())
    assert.ErrorContains(t, err, "chat 2")
    require.Len(t, tg.sent[1], 1)
    assert.False(t, strings.Contains(tg.sent[1][0], "quota"))
}

func TestRenderDigest_NoHistory(t *testing.T) {
    out := renderDigest(0, analytics.Forecast(nil), "", true)
    assert.Contains(t, out, `No resolved tickets yet\.`)
    assert.Contains(t, out, "*Next 4 weeks:* 0 per week")
}

func TestForecast_FilteredQueriesDoNotGrowGauge(t *testing.T) {
    svc := newService(t, &fakeSource{tickets: fixture()}, config.Config{}, nil, nil)
    snap := svc.Snapshot()

    svc.Forecast(snap, analytics.Criteria{})
    assert.Equal(t, 1.5, testutil.ToFloat64(metrics.ForecastVelocity))

    for i := 0; i < 200; i++ {
        svc.Forecast(snap, analytics.Criteria{Project: fmt.Sprintf("junk-%d", i)})
        svc.Forecast(snap, analytics.Criteria{Assignee: fmt.Sprintf("nobody-%d", i)})
    }
    assert.Equal(t, 1, testutil.CollectAndCount(metrics.ForecastVelocity))
    assert.Equal(t, 1.5, testutil.ToFloat64(metrics.ForecastVelocity), "filtered forecasts leave the gauge alone")
}

func TestRunDigest_FallsBackToPlainText(t *testing.T) {
    tg := &fakeTG{enabled: true, rejectMD: true}
    cfg := config.Config{TelegramChatIDs: []int64{7}}
    svc := newService(t, &fakeSource{tickets: fixture()}, cfg, nil, tg)

    require.NoError(t, svc.RunDigest(context.Background()))
    assert.Empty(t, tg.sent)
    require.Len(t, tg.plain[7], 1)
    msg := tg.plain[7][0]
    assert.Contains(t, msg, "Tickets: 5")
    assert.Contains(t, msg, "Next 4 weeks: 1.5 per week")
    assert.Contains(t, msg, "week ending 2025-03-16: 2")
    assert.NotContains(t, msg, `\`)
    assert.NotContains(t, msg, "*")
}

func TestRenderDigest_Plain(t *testing.T) {
    out := renderDigest(3, analytics.Forecast(nil), "Quiet (for now).", false)
    assert.Contains(t, out, "Ticket Pulse\n")
    assert.Contains(t, out, "No resolved tickets yet.")
    assert.Contains(t, out, "Quiet (for now).")
}
