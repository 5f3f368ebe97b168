package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration options for the OpenAI-compatible
// generator. BaseURL may point at any chat-completions compatible service,
// including DashScope's compatible mode.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	TextModel       string
	MultimodalModel string
	Temperature     float32
	Logger          zerolog.Logger
}

// OpenAIGenerator implements Generator against a chat-completions API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingCredential
	}

	if cfg.TextModel == "" {
		cfg.TextModel = "gpt-4o-mini"
	}
	if cfg.MultimodalModel == "" {
		cfg.MultimodalModel = "gpt-4o"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/yikao-labs/shenlun-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_generator").Logger(),
	}, nil
}

// Generate sends the prompt as a chat completion and returns the reply text.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	var (
		model    string
		messages []openai.ChatCompletionMessage
	)

	switch p := prompt.(type) {
	case TextPrompt:
		model = g.cfg.TextModel
		messages = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		}
	case MultimodalPrompt:
		model = g.cfg.MultimodalModel
		messages = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, MultiContent: chatParts(p.Parts)},
		}
	default:
		return "", fmt.Errorf("unsupported prompt variant %T", prompt)
	}

	ctx, span := g.tracer.Start(ctx, "openai.generate", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: g.cfg.Temperature,
		Messages:    messages,
	})
	generateDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		generateFailures.WithLabelValues(model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if apiErr, ok := err.(*openai.APIError); ok {
			return "", &GatewayError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		return "", fmt.Errorf("openai generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}

func chatParts(parts []Part) []openai.ChatMessagePart {
	content := make([]openai.ChatMessagePart, 0, len(parts))
	for _, part := range parts {
		if part.Image != "" {
			content = append(content, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: part.Image},
			})
			continue
		}
		content = append(content, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: part.Text,
		})
	}
	return content
}
