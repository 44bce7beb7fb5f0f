package image

import (
	"context"
	"fmt"
	"strings"

	platformerrors "image-recognition-go/internal/platform/errors"
	"image-recognition-go/internal/platform/logging"
	"image-recognition-go/internal/platform/observability"
)

// Pipeline chains decoding, normalization and payload encoding.
type Pipeline struct {
	decoder   *Decoder
	normalize NormalizeOptions
	fallback  FallbackPolicy
	logger    *logging.Logger
}

// Options configures the pipeline behaviour.
type Options struct {
	Decoder   *Decoder
	Normalize NormalizeOptions
	Fallback  FallbackPolicy
	Logger    *logging.Logger
}

// ParseFallback maps a configuration value onto a policy.
func ParseFallback(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FallbackFail:
		return FallbackFail, nil
	case FallbackPassthrough:
		return FallbackPassthrough, nil
	default:
		return "", fmt.Errorf("unknown fallback policy %q", s)
	}
}

// NewPipeline constructs a pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Normalize.MaxEdge <= 0 {
		return nil, platformerrors.New(platformerrors.KindConfig, "image.pipeline", "max edge must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Decoder == nil {
		opts.Decoder = NewDecoder(DecoderOptions{Logger: opts.Logger})
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackFail
	}
	if opts.Fallback != FallbackFail && opts.Fallback != FallbackPassthrough {
		return nil, platformerrors.New(platformerrors.KindConfig, "image.pipeline",
			fmt.Sprintf("unknown fallback policy %q", opts.Fallback))
	}

	return &Pipeline{
		decoder:   opts.Decoder,
		normalize: opts.Normalize,
		fallback:  opts.Fallback,
		logger:    opts.Logger,
	}, nil
}

// Process turns an image input string into the canonical payload. Decode
// failures are always terminal; normalize failures follow the fallback policy.
func (p *Pipeline) Process(ctx context.Context, input string) (Payload, error) {
	spanCtx, endDecode := observability.StartSpan(ctx, "image", "decode")
	raw, err := p.decoder.Decode(spanCtx, input)
	endDecode(err)
	if err != nil {
		return Payload{}, err
	}

	_, endNormalize := observability.StartSpan(ctx, "image", "normalize")
	normalized, err := Normalize(raw.Bytes, p.normalize)
	endNormalize(err)
	if err != nil {
		if p.fallback != FallbackPassthrough {
			return Payload{}, err
		}
		mimeType := raw.MimeHint
		if !strings.HasPrefix(strings.ToLower(mimeType), "image/") {
			if sniffed := SniffMime(raw.Bytes); sniffed != "" {
				mimeType = sniffed
			}
		}
		p.logger.WarnTag("IMAGE", "normalize failed, forwarding original bytes: source=%s mime=%s err=%v",
			raw.Source, mimeType, err)
		return EncodeRaw(raw.Bytes, mimeType), nil
	}

	p.logger.DebugTag("IMAGE", "normalized %s input: format=%s %dx%d in=%d out=%d",
		raw.Source, normalized.SourceFormat, normalized.Width, normalized.Height, len(raw.Bytes), len(normalized.Bytes))
	observability.RecordMetric(ctx, "image.normalized_bytes", float64(len(normalized.Bytes)),
		map[string]string{"source": raw.Source.String(), "format": normalized.SourceFormat})

	return Encode(normalized), nil
}
