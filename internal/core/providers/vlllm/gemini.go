package vlllm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"image-recognition-go/internal/domain/recognition"
	"image-recognition-go/internal/platform/logging"
)

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Temperature     float32
	MaxOutputTokens int32
	HTTPClient      *http.Client
}

// GeminiProvider calls generateContent with the image as inline data.
type GeminiProvider struct {
	client          *genai.Client
	temperature     float32
	maxOutputTokens int32
	logger          *logging.Logger
}

// NewGeminiProvider returns an error when no API key is configured.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, logger *logging.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.4
	}
	maxOutputTokens := cfg.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = 2048
	}

	logger.DebugTag("VISION", "Gemini adapter ready: temperature=%.2f max_output_tokens=%d", temperature, maxOutputTokens)

	return &GeminiProvider{
		client:          client,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		logger:          logger,
	}, nil
}

// Describe sends [prompt, image] as a single user turn.
func (p *GeminiProvider) Describe(ctx context.Context, req recognition.BackendRequest) (string, error) {
	data, err := base64.StdEncoding.DecodeString(req.Payload.Data)
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt),
		genai.NewPartFromBytes(data, req.Payload.MimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxOutputTokens,
	})
	if err != nil {
		p.logger.ErrorTag("VISION", "Gemini call failed: model=%s err=%v", req.Model, err)
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return NoResponseContent, nil
	}
	return cleanResponse(text), nil
}
