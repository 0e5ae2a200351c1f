// Package llm talks to the text-completion and embedding providers.
package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/errs"
)

// Request is one completion call. JSON forces structured JSON output.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float64
	MaxTokens   int
	JSON        bool
}

// Completer returns the raw text of the first choice.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type ClientConfig struct {
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// OpenAIClient is a Completer backed by an OpenAI-compatible API (OpenAI, OpenRouter).
type OpenAIClient struct {
	client    *openai.Client
	breaker   *Breaker
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

var _ Completer = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg ClientConfig, breaker *Breaker, logger *zap.Logger) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client:    openai.NewClientWithConfig(oc),
		breaker:   breaker,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logger.Named("llm"),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if chatReq.MaxTokens == 0 {
		chatReq.MaxTokens = c.maxTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = chatTemperature(*req.Temperature)
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var resp openai.ChatCompletionResponse
	err := c.breaker.Do(func() error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, chatReq)
		return callErr
	})
	if err != nil {
		c.logger.Warn("Chat completion failed", zap.String("model", req.Model), zap.Error(err))
		return "", fmt.Errorf("%w: chat completion: %w", errs.ErrProvider, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", errs.ErrSchema)
	}

	return resp.Choices[0].Message.Content, nil
}

// chatTemperature maps an explicit zero to the smallest positive float32,
// since go-openai omits a zero temperature from the request.
func chatTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
