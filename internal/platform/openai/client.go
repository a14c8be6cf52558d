package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/studydeck-backend/internal/observability"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

// Usage is the token count reported for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u Usage) Total() int { return u.PromptTokens + u.CompletionTokens }

type Request struct {
	System string
	Prompt string
	// Model overrides the client default when set.
	Model string
}

type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Client is the narrow inference surface the generation pipeline depends on.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

type client struct {
	log   *logger.Logger
	api   oai.Client
	model string
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing openai api key")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &client{
		log:   log.With("client", "OpenAIClient"),
		api:   oai.NewClient(opts...),
		model: cfg.Model,
	}, nil
}

func (c *client) Complete(ctx context.Context, req Request) (Response, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	ctx, span := otel.Tracer("studydeck/openai").Start(ctx, "openai.chat_completion")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", model))

	messages := []oai.ChatCompletionMessageParamUnion{}
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, oai.SystemMessage(req.System))
	}
	messages = append(messages, oai.UserMessage(req.Prompt))

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(model),
		Messages: messages,
	})
	if err != nil {
		observability.Current().ObserveLLMRequest(model, "error", time.Since(start), 0, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return Response{}, fmt.Errorf("openai chat completion (status %d): %w", apiErr.StatusCode, err)
		}
		return Response{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("openai chat completion returned no choices")
	}

	out := Response{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}
	if out.Model == "" {
		out.Model = model
	}
	observability.Current().ObserveLLMRequest(out.Model, "ok", time.Since(start), out.Usage.PromptTokens, out.Usage.CompletionTokens)
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", out.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", out.Usage.CompletionTokens),
	)
	c.log.Debug("chat completion", "model", out.Model, "prompt_tokens", out.Usage.PromptTokens, "completion_tokens", out.Usage.CompletionTokens, "latency_ms", time.Since(start).Milliseconds())
	return out, nil
}
