package image

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformerrors "image-recognition-go/internal/platform/errors"
)

func newTestPipeline(t *testing.T, fallback FallbackPolicy, client *http.Client) *Pipeline {
	t.Helper()
	p, err := NewPipeline(Options{
		Decoder:   NewDecoder(DecoderOptions{HTTPClient: client}),
		Normalize: NormalizeOptions{MaxEdge: 1536, Quality: 85},
		Fallback:  fallback,
	})
	require.NoError(t, err)
	return p
}

func TestParseFallback(t *testing.T) {
	p, err := ParseFallback("")
	require.NoError(t, err)
	assert.Equal(t, FallbackFail, p)

	p, err = ParseFallback(" Passthrough ")
	require.NoError(t, err)
	assert.Equal(t, FallbackPassthrough, p)

	_, err = ParseFallback("retry")
	assert.Error(t, err)
}

func TestNewPipeline_Validation(t *testing.T) {
	_, err := NewPipeline(Options{})
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindConfig))

	_, err = NewPipeline(Options{Normalize: NormalizeOptions{MaxEdge: 10}, Fallback: "sometimes"})
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindConfig))
}

func TestPipeline_EndToEndLargeAlphaPNG(t *testing.T) {
	raw := makePNG(t, 3000, 2000, true)
	p := newTestPipeline(t, FallbackFail, nil)

	payload, err := p.Process(context.Background(), "data:image/png;base64,"+base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, MimeJPEG, payload.MimeType)

	decoded, err := base64.StdEncoding.DecodeString(payload.Data)
	require.NoError(t, err)
	img := decodeJPEG(t, decoded)
	assert.Equal(t, 1536, img.Bounds().Dx())
	assert.Equal(t, 1024, img.Bounds().Dy())
}

func TestPipeline_URLInput(t *testing.T) {
	raw := makeTransparentGIF(t, 50, 40)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	payload, err := newTestPipeline(t, FallbackFail, srv.Client()).Process(context.Background(), srv.URL+"/cat.gif")
	require.NoError(t, err)
	assert.Equal(t, MimeJPEG, payload.MimeType)
	assert.Equal(t, "data:image/jpeg;base64,"+payload.Data, payload.DataURL())
}

func TestPipeline_DecodeFailureIsTerminal(t *testing.T) {
	for _, policy := range []FallbackPolicy{FallbackFail, FallbackPassthrough} {
		_, err := newTestPipeline(t, policy, nil).Process(context.Background(), "not-an-image-and-not-base64!!")
		require.Error(t, err)
		assert.True(t, platformerrors.IsKind(err, platformerrors.KindDecode), "policy %s", policy)
	}
}

func TestPipeline_NormalizeFailurePolicy(t *testing.T) {
	garbage := []byte("this is not an image at all")
	input := "data:image/png;base64," + base64.StdEncoding.EncodeToString(garbage)

	_, err := newTestPipeline(t, FallbackFail, nil).Process(context.Background(), input)
	require.Error(t, err)
	assert.True(t, platformerrors.HasReason(err, platformerrors.ReasonInvalidImage))

	payload, err := newTestPipeline(t, FallbackPassthrough, nil).Process(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "image/png", payload.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(garbage), payload.Data)
}

func TestPipeline_PassthroughSniffsNonImageHint(t *testing.T) {
	truncated := makePNG(t, 20, 20, false)[:30]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(truncated)
	}))
	defer srv.Close()

	payload, err := newTestPipeline(t, FallbackPassthrough, srv.Client()).Process(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/png", payload.MimeType)
}
