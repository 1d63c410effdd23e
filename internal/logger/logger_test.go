package logger

import (
    "bytes"
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/HamedShams/ticket-pulse/internal/config"
)

func TestNewWriter_ProdJSON(t *testing.T) {
    var buf bytes.Buffer
    l := NewWriter(config.Config{AppEnv: "prod", LogLevel: "warn"}, &buf)
    l.Info().Msg("dropped")
    l.Warn().Int("tickets", 3).Msg("kept")

    var line map[string]any
    require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
    assert.Equal(t, "kept", line["message"])
    assert.Equal(t, "ticket-pulse", line["svc"])
    assert.EqualValues(t, 3, line["tickets"])
}

func TestNewWriter_UnknownLevelFallsBackToInfo(t *testing.T) {
    var buf bytes.Buffer
    l := NewWriter(config.Config{AppEnv: "prod", LogLevel: "chatty"}, &buf)
    l.Debug().Msg("hidden")
    assert.Zero(t, buf.Len())
    l.Info().Msg("shown")
    assert.Contains(t, buf.String(), "shown")
}

func TestNewWriter_DevConsole(t *testing.T) {
    var buf bytes.Buffer
    NewWriter(config.Config{AppEnv: "dev"}, &buf).Info().Str("source", "mock").Msg("hello")
    assert.Contains(t, buf.String(), "hello")
    assert.Contains(t, buf.String(), "source=")
    assert.NotContains(t, buf.String(), `"svc"`)
}
