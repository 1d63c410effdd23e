package openai

import (
    "context"
    "encoding/json"
    "errors"
    "strings"

    "github.com/HamedShams/ticket-pulse/internal/config"
    openai "github.com/openai/openai-go/v2"
    "github.com/openai/openai-go/v2/option"
    "github.com/openai/openai-go/v2/shared"
    "github.com/rs/zerolog"
)

const commentaryPrompt = "You are a senior agile coach. You receive weekly ticket throughput history and a flat 4-week velocity forecast. " +
    "In at most four short sentences, point out the trend, any unusual weeks, and whether the forecast looks optimistic or pessimistic. Plain text, no markdown."

type Client struct {
    key   string
    model string
    cli   openai.Client
    log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger, opts ...option.RequestOption) *Client {
    model := cfg.OpenAIModel
    if strings.TrimSpace(model) == "" { model = "gpt-4.1-mini" }
    base := []option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}
    if cfg.OpenAITimeout > 0 { base = append(base, option.WithRequestTimeout(cfg.OpenAITimeout)) }
    cli := openai.NewClient(append(base, opts...)...)
    return &Client{ key: cfg.OpenAIKey, model: model, cli: cli, log: log }
}

func (c *Client) Enabled() bool { return strings.TrimSpace(c.key) != "" }

// Commentary asks the model for a short narrative over the digest facts.
func (c *Client) Commentary(ctx context.Context, facts any) (string, error) {
    if !c.Enabled() { return "", errors.New("openai: missing key") }
    c.log.Info().Str("model", c.model).Msg("openai Commentary call")
    b, err := json.Marshal(facts)
    if err != nil { return "", err }
    params := openai.ChatCompletionNewParams{
        Model: shared.ChatModel(c.model),
        Messages: []openai.ChatCompletionMessageParamUnion{
            openai.SystemMessage(commentaryPrompt),
            openai.UserMessage(string(b)),
        },
    }
    resp, err := c.cli.Chat.Completions.New(ctx, params)
    if err != nil { return "", err }
    if len(resp.Choices) == 0 { return "", errors.New("openai: no choices") }
    return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
