package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultGenerationURL is the DashScope text generation endpoint.
	DefaultGenerationURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"
	// DefaultMultimodalURL is the DashScope multimodal generation endpoint.
	DefaultMultimodalURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"

	defaultTextModel       = "qwen-max"
	defaultMultimodalModel = "qwen-vl-max"
)

var (
	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shenlun",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of model generation requests",
	}, []string{"model"})

	generateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shenlun",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of failed model generation requests",
	}, []string{"model"})
)

// DashScopeConfig defines configuration options for the DashScope generator.
type DashScopeConfig struct {
	APIKey          string
	TextModel       string
	MultimodalModel string
	GenerationURL   string
	MultimodalURL   string
	HTTPClient      *http.Client
	Logger          zerolog.Logger
}

// DashScopeGenerator implements Generator against the native DashScope
// generation API. The text and multimodal services are separate endpoints
// with separate models; the prompt variant selects between them.
type DashScopeGenerator struct {
	cfg    DashScopeConfig
	httpc  *http.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewDashScopeGenerator builds a generator using the provided configuration.
// The credential is required; nothing else is, every other field has a
// working default.
func NewDashScopeGenerator(cfg DashScopeConfig) (*DashScopeGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingCredential
	}

	if cfg.TextModel == "" {
		cfg.TextModel = defaultTextModel
	}
	if cfg.MultimodalModel == "" {
		cfg.MultimodalModel = defaultMultimodalModel
	}
	if cfg.GenerationURL == "" {
		cfg.GenerationURL = DefaultGenerationURL
	}
	if cfg.MultimodalURL == "" {
		cfg.MultimodalURL = DefaultMultimodalURL
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				// Grading responses can take well over a minute to start.
				ResponseHeaderTimeout: 120 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &DashScopeGenerator{
		cfg:    cfg,
		httpc:  httpc,
		tracer: otel.Tracer("github.com/yikao-labs/shenlun-api/pkg/ai/dashscope"),
		logger: logger.With().Str("component", "dashscope_generator").Logger(),
	}, nil
}

type dashScopeMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type dashScopeRequest struct {
	Model      string         `json:"model"`
	Input      dashScopeInput `json:"input"`
	Parameters map[string]any `json:"parameters"`
}

type dashScopeInput struct {
	Messages []dashScopeMessage `json:"messages"`
}

type dashScopeResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Text string `json:"text"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Generate dispatches the prompt to the endpoint matching its variant and
// returns the normalized model text. A transport or HTTP failure surfaces
// as *GatewayError; an empty body is returned as an empty string so the
// caller's extraction step owns the failure.
func (g *DashScopeGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	var (
		url     string
		model   string
		request dashScopeRequest
	)

	switch p := prompt.(type) {
	case TextPrompt:
		url = g.cfg.GenerationURL
		model = g.cfg.TextModel
		request = dashScopeRequest{
			Model: model,
			Input: dashScopeInput{Messages: []dashScopeMessage{
				{Role: "system", Content: p.System},
				{Role: "user", Content: p.User},
			}},
			Parameters: map[string]any{"temperature": 0.2},
		}
	case MultimodalPrompt:
		url = g.cfg.MultimodalURL
		model = g.cfg.MultimodalModel
		request = dashScopeRequest{
			Model: model,
			Input: dashScopeInput{Messages: []dashScopeMessage{
				{Role: "system", Content: []map[string]string{{"text": p.System}}},
				{Role: "user", Content: multimodalContent(p.Parts)},
			}},
			Parameters: map[string]any{"result_format": "message"},
		}
	default:
		return "", fmt.Errorf("unsupported prompt variant %T", prompt)
	}

	ctx, span := g.tracer.Start(ctx, "dashscope.generate", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	start := time.Now()
	raw, err := g.post(ctx, url, request)
	generateDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		generateFailures.WithLabelValues(model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	var decoded dashScopeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		generateFailures.WithLabelValues(model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "undecodable response envelope")
		return "", &GatewayError{StatusCode: http.StatusOK, Body: truncate(string(raw), 2048)}
	}

	return normalizeOutput(decoded), nil
}

func multimodalContent(parts []Part) []map[string]string {
	content := make([]map[string]string, 0, len(parts))
	for _, part := range parts {
		if part.Image != "" {
			content = append(content, map[string]string{"image": part.Image})
			continue
		}
		content = append(content, map[string]string{"text": part.Text})
	}
	return content
}

func (g *DashScopeGenerator) post(ctx context.Context, url string, payload dashScopeRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call generation backend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generation response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var envelope dashScopeResponse
		_ = json.Unmarshal(raw, &envelope)

		g.logger.Warn().
			Int("status", resp.StatusCode).
			Str("url", url).
			Str("code", envelope.Code).
			Str("message", envelope.Message).
			Msg("generation backend returned error status")

		body := truncate(string(raw), 2048)
		if envelope.Code != "" {
			body = envelope.Code + ": " + envelope.Message
		}
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: body}
	}

	return raw, nil
}

// normalizeOutput picks the model text out of either response shape the
// generation services produce: a chat-style choices[0].message.content that
// is a plain string or an array of parts, or the legacy output.text field.
// Absence of any textual content yields an empty string, deferring the
// failure to the extraction step.
func normalizeOutput(decoded dashScopeResponse) string {
	if len(decoded.Output.Choices) > 0 {
		content := decoded.Output.Choices[0].Message.Content
		if len(content) > 0 {
			var plain string
			if err := json.Unmarshal(content, &plain); err == nil {
				return plain
			}

			var parts []struct {
				Text *string `json:"text"`
			}
			if err := json.Unmarshal(content, &parts); err == nil {
				for _, part := range parts {
					if part.Text != nil {
						return *part.Text
					}
				}
			}
		}
	}
	return decoded.Output.Text
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
