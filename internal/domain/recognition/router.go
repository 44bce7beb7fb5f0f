package recognition

import (
	"context"
	"fmt"
	"strings"

	domainimage "image-recognition-go/internal/domain/image"
	platformerrors "image-recognition-go/internal/platform/errors"
	"image-recognition-go/internal/platform/logging"
	"image-recognition-go/internal/platform/observability"
)

// BackendKind is the closed set of vision backend families.
type BackendKind int

const (
	BackendOpenAICompatible BackendKind = iota
	BackendGemini
)

func (k BackendKind) String() string {
	if k == BackendGemini {
		return "gemini"
	}
	return "openai_compatible"
}

// Label is the human readable backend name used in error strings.
func (k BackendKind) Label() string {
	if k == BackendGemini {
		return "Gemini"
	}
	return "OpenAI Compatible"
}

func (k BackendKind) reason() platformerrors.Reason {
	if k == BackendGemini {
		return platformerrors.ReasonGemini
	}
	return platformerrors.ReasonOpenAICompatible
}

func (k BackendKind) credential() string {
	if k == BackendGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// Route picks the backend family for a model name. Anything that does not
// mention gemini is assumed to speak the OpenAI chat completions protocol.
func Route(model string) BackendKind {
	if strings.Contains(strings.ToLower(model), "gemini") {
		return BackendGemini
	}
	return BackendOpenAICompatible
}

// BackendRequest is what every backend adapter receives.
type BackendRequest struct {
	Model   string
	Prompt  string
	Payload domainimage.Payload
}

// Backend describes an image with a remote vision model.
type Backend interface {
	Describe(ctx context.Context, req BackendRequest) (string, error)
}

// Router dispatches requests to the backend registered for their kind. A
// kind without a backend means its credential was not configured.
type Router struct {
	backends map[BackendKind]Backend
	logger   *logging.Logger
}

// NewRouter builds a router. Nil backends are ignored.
func NewRouter(backends map[BackendKind]Backend, logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.Discard()
	}
	registered := make(map[BackendKind]Backend, len(backends))
	for kind, backend := range backends {
		if backend != nil {
			registered[kind] = backend
		}
	}
	return &Router{backends: registered, logger: logger}
}

// Has reports whether a backend is registered for kind.
func (r *Router) Has(kind BackendKind) bool {
	_, ok := r.backends[kind]
	return ok
}

// Dispatch routes model to its backend and returns the model's text. All
// failures are KindBackend errors tagged with the backend's reason.
func (r *Router) Dispatch(ctx context.Context, model, prompt string, payload domainimage.Payload) (string, error) {
	kind := Route(model)
	backend, ok := r.backends[kind]
	if !ok {
		return "", platformerrors.WithReason(platformerrors.KindBackend, kind.reason(),
			"dispatch", fmt.Sprintf("%s is not set", kind.credential()), nil)
	}

	r.logger.DebugTag("VISION", "dispatch model=%s backend=%s mime=%s data_len=%d",
		model, kind, payload.MimeType, len(payload.Data))

	spanCtx, end := observability.StartSpan(ctx, "vision", kind.String())
	text, err := backend.Describe(spanCtx, BackendRequest{
		Model:   model,
		Prompt:  prompt,
		Payload: payload,
	})
	end(err)
	if err != nil {
		return "", &platformerrors.Error{
			Kind:    platformerrors.KindBackend,
			Reason:  kind.reason(),
			Op:      "dispatch",
			Message: "backend call failed",
			Cause:   err,
		}
	}
	return text, nil
}
