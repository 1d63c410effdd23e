package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
    t.Chdir(t.TempDir())
    for _, k := range []string{"APP_ENV", "TICKET_SOURCE", "MOCK_TICKETS", "CORS_ORIGINS", "TELEGRAM_CHAT_IDS", "HTTP_TIMEOUT"} {
        t.Setenv(k, "")
    }
    cfg := Load()

    assert.Equal(t, "dev", cfg.AppEnv)
    assert.Equal(t, "mock", cfg.TicketSource)
    assert.Equal(t, 500, cfg.MockTickets)
    assert.Equal(t, 90, cfg.MockDays)
    assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
    assert.Nil(t, cfg.TelegramChatIDs)
    assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
}

func TestLoad_Overrides(t *testing.T) {
    t.Chdir(t.TempDir())
    t.Setenv("TICKET_SOURCE", "Postgres")
    t.Setenv("MOCK_SEED", "42")
    t.Setenv("MOCK_TICKETS", "not-a-number")
    t.Setenv("TELEGRAM_CHAT_IDS", "10, -20,,x")
    t.Setenv("JIRA_PROJECTS", " PROJ1 ,SUPPORT")
    t.Setenv("OPENAI_TIMEOUT", "3s")
    cfg := Load()

    assert.Equal(t, "postgres", cfg.TicketSource)
    assert.Equal(t, int64(42), cfg.MockSeed)
    assert.Equal(t, 500, cfg.MockTickets)
    assert.Equal(t, []int64{10, -20}, cfg.TelegramChatIDs)
    assert.Equal(t, []string{"PROJ1", "SUPPORT"}, cfg.JiraProjects)
    assert.Equal(t, 3*time.Second, cfg.OpenAITimeout)
}
