package testing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"testing"

	"image-recognition-go/internal/platform/config"
	"image-recognition-go/internal/platform/logging"
)

// Loader returns a config loader that only sees env. The process
// environment, .env and config.yaml are ignored.
func Loader(t *testing.T, env map[string]string) *config.Loader {
	t.Helper()
	return config.NewLoader().
		WithDotEnv(false).
		WithFile(filepath.Join(t.TempDir(), "missing.yaml")).
		WithLookup(func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		})
}

func SetupTestConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	result, err := Loader(t, env).Load()
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}
	return result.Config
}

// SetupTestLogger writes JSON to a temp file and drops console output.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	logger, err := logging.New(logging.Config{
		Level:    "DEBUG",
		Dir:      t.TempDir(),
		Filename: "test.log",
		Console:  io.Discard,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

// PNG renders an opaque gradient of the given size.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 96, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func Base64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
