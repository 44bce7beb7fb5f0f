package vlllm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"image-recognition-go/internal/domain/recognition"
	"image-recognition-go/internal/platform/logging"
)

// OpenAIConfig configures the OpenAI-compatible adapter.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
}

// OpenAIProvider talks to any chat completions endpoint that accepts
// image_url content parts (OpenAI, Qwen, Doubao, vLLM, ...).
type OpenAIProvider struct {
	client    *openai.Client
	maxTokens int
	logger    *logging.Logger
}

// NewOpenAIProvider returns an error when no API key is configured.
func NewOpenAIProvider(cfg OpenAIConfig, logger *logging.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	logger.DebugTag("VISION", "OpenAI compatible adapter ready: base_url=%s", clientConfig.BaseURL)

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

// Describe sends the prompt and the image as a data URL in one user message.
func (p *OpenAIProvider) Describe(ctx context.Context, req recognition.BackendRequest) (string, error) {
	message := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: req.Prompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: req.Payload.DataURL(),
				},
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  []openai.ChatCompletionMessage{message},
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		p.logger.ErrorTag("VISION", "OpenAI compatible call failed: model=%s err=%v", req.Model, err)
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return NoResponseContent, nil
	}
	return cleanResponse(resp.Choices[0].Message.Content), nil
}
