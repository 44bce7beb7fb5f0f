package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainimage "image-recognition-go/internal/domain/image"
	platformerrors "image-recognition-go/internal/platform/errors"
	"image-recognition-go/internal/platform/observability"
)

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 200, B: 30, A: uint8(x % 256)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestService(t *testing.T, backends map[BackendKind]Backend) *Service {
	t.Helper()
	pipeline, err := domainimage.NewPipeline(domainimage.Options{
		Normalize: domainimage.NormalizeOptions{MaxEdge: 64, Quality: 85},
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceOptions{
		Pipeline:     pipeline,
		Router:       NewRouter(backends, nil),
		DefaultModel: "gemini-1.5-flash",
	})
	require.NoError(t, err)
	return svc
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(ServiceOptions{})
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindConfig))

	pipeline, err := domainimage.NewPipeline(domainimage.Options{Normalize: domainimage.NormalizeOptions{MaxEdge: 10}})
	require.NoError(t, err)
	_, err = NewService(ServiceOptions{Pipeline: pipeline, Router: NewRouter(nil, nil)})
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindConfig))
}

func TestService_RecognizeImage_DefaultsAndNormalizedPayload(t *testing.T) {
	gemini := &fakeBackend{reply: "a green gradient"}
	svc := newTestService(t, map[BackendKind]Backend{BackendGemini: gemini})

	out := svc.RecognizeImage(context.Background(), Request{Image: pngBase64(t, 200, 100)})
	assert.Equal(t, "a green gradient", out)
	assert.Equal(t, "gemini-1.5-flash", svc.DefaultModel())

	require.Len(t, gemini.calls, 1)
	call := gemini.calls[0]
	assert.Equal(t, "gemini-1.5-flash", call.Model)
	assert.Equal(t, DefaultPrompt, call.Prompt)
	assert.Equal(t, domainimage.MimeJPEG, call.Payload.MimeType)

	raw, err := base64.StdEncoding.DecodeString(call.Payload.Data)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}

func TestService_RecognizeImage_ExplicitModelRoutesToOpenAI(t *testing.T) {
	gemini := &fakeBackend{reply: "gemini"}
	openai := &fakeBackend{reply: "qwen says hi"}
	svc := newTestService(t, map[BackendKind]Backend{
		BackendGemini:           gemini,
		BackendOpenAICompatible: openai,
	})

	out := svc.RecognizeImage(context.Background(), Request{
		Image:  "data:image/png;base64," + pngBase64(t, 10, 10),
		Prompt: "What colour is it?",
		Model:  "qwen-vl-max",
	})
	assert.Equal(t, "qwen says hi", out)
	assert.Empty(t, gemini.calls)
	require.Len(t, openai.calls, 1)
	assert.Equal(t, "What colour is it?", openai.calls[0].Prompt)
}

func TestService_RecognizeImage_DecodeFailure(t *testing.T) {
	backend := &fakeBackend{reply: "never"}
	svc := newTestService(t, map[BackendKind]Backend{BackendGemini: backend})

	var out string
	require.NotPanics(t, func() {
		out = svc.RecognizeImage(context.Background(), Request{Image: "not-an-image-and-not-base64!!"})
	})
	assert.Contains(t, out, "Error processing image")
	assert.Contains(t, out, "failed to decode")
	assert.Contains(t, out, "malformed")
	assert.Empty(t, backend.calls)

	_, err := svc.Recognize(context.Background(), Request{Image: "not-an-image-and-not-base64!!"})
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindDecode))
}

func TestService_RecognizeImage_InvalidImage(t *testing.T) {
	svc := newTestService(t, map[BackendKind]Backend{BackendGemini: &fakeBackend{}})

	out := svc.RecognizeImage(context.Background(), Request{
		Image: base64.StdEncoding.EncodeToString([]byte("plain text, not pixels")),
	})
	assert.Contains(t, out, "Error processing image: failed to process image data")
}

func TestService_RecognizeImage_BackendErrors(t *testing.T) {
	svc := newTestService(t, map[BackendKind]Backend{
		BackendOpenAICompatible: &fakeBackend{err: errors.New("rate limited")},
	})
	img := pngBase64(t, 8, 8)

	out := svc.RecognizeImage(context.Background(), Request{Image: img})
	assert.Equal(t, "Gemini API Error: GEMINI_API_KEY is not set", out)

	out = svc.RecognizeImage(context.Background(), Request{Image: img, Model: "gpt-4o"})
	assert.Equal(t, "OpenAI Compatible API Error: rate limited", out)
}

func TestService_RecognizeImage_RecoversPanics(t *testing.T) {
	svc := newTestService(t, map[BackendKind]Backend{BackendGemini: &fakeBackend{explode: true}})

	var out string
	require.NotPanics(t, func() {
		out = svc.RecognizeImage(context.Background(), Request{Image: pngBase64(t, 4, 4)})
	})
	assert.Contains(t, out, "backend exploded")
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), "Error: boom"},
		{
			"network",
			platformerrors.WithReason(platformerrors.KindDecode, platformerrors.ReasonNetwork, "fetch", "unexpected status: 404 Not Found", nil),
			"Error processing image: failed to decode image input (network): unexpected status: 404 Not Found",
		},
		{
			"gemini backend",
			platformerrors.WithReason(platformerrors.KindBackend, platformerrors.ReasonGemini, "dispatch", "backend call failed", errors.New("quota")),
			"Gemini API Error: quota",
		},
		{
			"config",
			platformerrors.New(platformerrors.KindConfig, "x", "bad"),
			"Error: bad",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatError(tt.err))
		})
	}
}

func TestService_RecognizeImage_RequestID(t *testing.T) {
	gemini := &fakeBackend{reply: "ok"}
	svc := newTestService(t, map[BackendKind]Backend{BackendGemini: gemini})

	ctx := observability.WithRequestID(context.Background(), "caller-1")
	svc.RecognizeImage(ctx, Request{Image: pngBase64(t, 4, 4)})
	svc.RecognizeImage(context.Background(), Request{Image: pngBase64(t, 4, 4)})

	require.Len(t, gemini.requestIDs, 2)
	assert.Equal(t, "caller-1", gemini.requestIDs[0])
	assert.NotEmpty(t, gemini.requestIDs[1])
	assert.NotEqual(t, "caller-1", gemini.requestIDs[1])
}

func TestService_RecognizeImage_BlankPromptUsesDefault(t *testing.T) {
	gemini := &fakeBackend{reply: "ok"}
	svc := newTestService(t, map[BackendKind]Backend{BackendGemini: gemini})

	for _, prompt := range []string{"", "   ", "\n\t"} {
		svc.RecognizeImage(context.Background(), Request{Image: pngBase64(t, 4, 4), Prompt: prompt})
	}
	svc.RecognizeImage(context.Background(), Request{Image: pngBase64(t, 4, 4), Prompt: " Count the dots "})

	require.Len(t, gemini.calls, 4)
	for _, call := range gemini.calls[:3] {
		assert.Equal(t, DefaultPrompt, call.Prompt)
	}
	assert.Equal(t, " Count the dots ", gemini.calls[3].Prompt)
}
