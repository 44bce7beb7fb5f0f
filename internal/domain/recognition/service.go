package recognition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	domainimage "image-recognition-go/internal/domain/image"
	platformerrors "image-recognition-go/internal/platform/errors"
	"image-recognition-go/internal/platform/logging"
	"image-recognition-go/internal/platform/observability"
)

// DefaultPrompt replaces an omitted, empty or whitespace-only prompt.
const DefaultPrompt = "Describe this image"

// Request is one recognize_image call.
type Request struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt,omitempty"`
	Model  string `json:"model,omitempty"`
}

// ImageProcessor turns an image input string into a backend payload.
type ImageProcessor interface {
	Process(ctx context.Context, input string) (domainimage.Payload, error)
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Pipeline     ImageProcessor
	Router       *Router
	DefaultModel string
	Logger       *logging.Logger
}

// Service implements the recognize_image operation.
type Service struct {
	pipeline     ImageProcessor
	router       *Router
	defaultModel string
	logger       *logging.Logger
}

func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Pipeline == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "recognition.new", "image pipeline is required")
	}
	if opts.Router == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "recognition.new", "router is required")
	}
	if strings.TrimSpace(opts.DefaultModel) == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "recognition.new", "default model is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Service{
		pipeline:     opts.Pipeline,
		router:       opts.Router,
		defaultModel: opts.DefaultModel,
		logger:       opts.Logger,
	}, nil
}

// DefaultModel returns the model used when a request names none.
func (s *Service) DefaultModel() string {
	return s.defaultModel
}

// Recognize runs the pipeline and the selected backend, returning typed errors.
func (s *Service) Recognize(ctx context.Context, req Request) (string, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.defaultModel
	}
	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}

	payload, err := s.pipeline.Process(ctx, req.Image)
	if err != nil {
		return "", err
	}
	return s.router.Dispatch(ctx, model, prompt, payload)
}

// RecognizeImage is the tool boundary: every outcome, including panics in
// the pipeline or a backend, is returned as text.
func (s *Service) RecognizeImage(ctx context.Context, req Request) (result string) {
	requestID := observability.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = observability.WithRequestID(ctx, requestID)
	}
	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = s.defaultModel
	}
	s.logger.InfoTag("VISION", "recognize request=%s model=%s backend=%s prompt_len=%d",
		requestID, model, Route(model), len(req.Prompt))

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorTag("VISION", "recognize request=%s panicked: %v", requestID, r)
			result = fmt.Sprintf("Error: internal failure: %v", r)
		}
	}()

	text, err := s.Recognize(ctx, req)
	if err != nil {
		s.logger.WarnTag("VISION", "recognize request=%s failed: %v", requestID, err)
		return FormatError(err)
	}
	s.logger.InfoTag("VISION", "recognize request=%s done: %d chars", requestID, len(text))
	return text
}

// FormatError flattens a pipeline or backend error into the tool's text form.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var typed *platformerrors.Error
	if !errors.As(err, &typed) {
		return fmt.Sprintf("Error: %v", err)
	}

	switch typed.Kind {
	case platformerrors.KindDecode:
		return fmt.Sprintf("Error processing image: failed to decode image input (%s): %s", typed.Reason, typed.Detail())
	case platformerrors.KindNormalize:
		return fmt.Sprintf("Error processing image: failed to process image data: %s", typed.Detail())
	case platformerrors.KindBackend:
		label := BackendOpenAICompatible.Label()
		if typed.Reason == platformerrors.ReasonGemini {
			label = BackendGemini.Label()
		}
		detail := typed.Message
		if typed.Cause != nil {
			detail = typed.Cause.Error()
		}
		return fmt.Sprintf("%s API Error: %s", label, detail)
	default:
		return fmt.Sprintf("Error: %s", typed.Detail())
	}
}
