package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	platformerrors "image-recognition-go/internal/platform/errors"
	"image-recognition-go/internal/platform/logging"
)

// Clean trims surrounding whitespace and removes every CR/LF, which commonly
// sneak into base64 blobs pasted from terminals or emails.
func Clean(input string) string {
	cleaned := strings.TrimSpace(input)
	cleaned = strings.ReplaceAll(cleaned, "\n", "")
	return strings.ReplaceAll(cleaned, "\r", "")
}

// Classify returns the source kind of an already cleaned input. Every string
// maps to exactly one kind.
func Classify(input string) SourceKind {
	switch {
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		return SourceURL
	case strings.HasPrefix(input, "data:"):
		return SourceDataURI
	default:
		return SourceBase64
	}
}

// ParseDataURI splits "data:<mime>;base64,<body>" into its MIME type and body.
func ParseDataURI(input string) (mimeType, body string, err error) {
	header, body, ok := strings.Cut(input, ",")
	if !ok {
		return "", "", fmt.Errorf("data URI has no comma separator")
	}
	header = strings.TrimPrefix(header, "data:")
	mimeType, _, _ = strings.Cut(header, ";")
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = MimeJPEG
	}
	return mimeType, body, nil
}

// PadBase64 appends '=' until the length is a multiple of four.
func PadBase64(s string) string {
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return s
}

// DecodeBase64 strips embedded spaces, repairs padding and decodes.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(PadBase64(s))
}

// DecoderOptions configures a Decoder.
type DecoderOptions struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxBytes caps URL downloads. Zero means unbounded.
	MaxBytes int64
	Logger   *logging.Logger
}

// Decoder turns an image input string into raw image bytes.
type Decoder struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *logging.Logger
}

// NewDecoder constructs a decoder. A nil client falls back to http.DefaultClient.
func NewDecoder(opts DecoderOptions) *Decoder {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Decoder{
		client:    client,
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
		logger:    logger,
	}
}

// Decode resolves input into bytes. Errors are KindDecode with either
// ReasonNetwork or ReasonMalformed.
func (d *Decoder) Decode(ctx context.Context, input string) (*RawImage, error) {
	cleaned := Clean(input)
	if cleaned == "" {
		return nil, platformerrors.WithReason(platformerrors.KindDecode, platformerrors.ReasonMalformed,
			"decode", "empty image input", nil)
	}

	kind := Classify(cleaned)
	switch kind {
	case SourceURL:
		return d.fetch(ctx, cleaned)
	case SourceDataURI:
		mimeType, body, err := ParseDataURI(cleaned)
		if err != nil {
			return nil, platformerrors.WithReason(platformerrors.KindDecode, platformerrors.ReasonMalformed,
				"decode.data_uri", "malformed data URI", err)
		}
		raw, err := DecodeBase64(body)
		if err != nil {
			return nil, platformerrors.WithReason(platformerrors.KindDecode, platformerrors.ReasonMalformed,
				"decode.data_uri", "invalid base64 payload", err)
		}
		return &RawImage{Bytes: raw, MimeHint: mimeType, Source: kind}, nil
	default:
		raw, err := DecodeBase64(cleaned)
		if err != nil {
			return nil, platformerrors.WithReason(platformerrors.KindDecode, platformerrors.ReasonMalformed,
				"decode.base64", "invalid base64 payload", err)
		}
		return &RawImage{Bytes: raw, MimeHint: MimeJPEG, Source: kind}, nil
	}
}

func (d *Decoder) fetch(ctx context.Context, url string) (*RawImage, error) {
	const op = "decode.fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, platformerrors.WithReason(platformerrors.KindDecode, platformerrors.ReasonNetwork,
			op, "create request", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, platformerrors.WithReason(platformerrors.KindDecode, platformerrors.ReasonNetwork,
			op, "fetch image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, platformerrors.WithReason(platformerrors.KindDecode, platformerrors.ReasonNetwork,
			op, fmt.Sprintf("unexpected status: %s", resp.Status), nil)
	}

	var body io.Reader = resp.Body
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, platformerrors.WithReason(platformerrors.KindDecode, platformerrors.ReasonNetwork,
			op, "read response body", err)
	}
	if d.maxBytes > 0 && int64(len(raw)) > d.maxBytes {
		return nil, platformerrors.WithReason(platformerrors.KindDecode, platformerrors.ReasonNetwork,
			op, fmt.Sprintf("remote image exceeds max size of %d bytes", d.maxBytes), nil)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = MimeJPEG
	}

	d.logger.DebugTag("IMAGE", "fetched %s: status=%d content_type=%s bytes=%d", url, resp.StatusCode, mimeType, len(raw))

	return &RawImage{Bytes: raw, MimeHint: mimeType, Source: SourceURL}, nil
}
