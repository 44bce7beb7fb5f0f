package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	platformerrors "image-recognition-go/internal/platform/errors"
)

// SniffMime guesses an image MIME type from magic bytes. It returns an empty
// string when the content is not an image.
func SniffMime(raw []byte) string {
	detected := mimetype.Detect(raw).String()
	if !strings.HasPrefix(detected, "image/") {
		return ""
	}
	return detected
}

// Inspect reads the image header and enforces the pixel budget. maxPixels of
// zero disables the check.
func Inspect(raw []byte, maxPixels int64) (Info, error) {
	const op = "normalize.inspect"

	if len(raw) == 0 {
		return Info{}, platformerrors.WithReason(platformerrors.KindNormalize, platformerrors.ReasonInvalidImage,
			op, "empty image payload", nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		header := fmt.Sprintf("%x", raw[:min(len(raw), 8)])
		return Info{}, platformerrors.WithReason(platformerrors.KindNormalize, platformerrors.ReasonInvalidImage,
			op, fmt.Sprintf("unrecognized image data (header %s)", header), err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, platformerrors.WithReason(platformerrors.KindNormalize, platformerrors.ReasonInvalidImage,
			op, fmt.Sprintf("invalid dimensions %dx%d", cfg.Width, cfg.Height), nil)
	}

	if maxPixels > 0 {
		if total := int64(cfg.Width) * int64(cfg.Height); total > maxPixels {
			return Info{}, platformerrors.WithReason(platformerrors.KindNormalize, platformerrors.ReasonInvalidImage,
				op, fmt.Sprintf("pixel count exceeds limit: %d (max %d)", total, maxPixels), nil)
		}
	}

	return Info{
		Format: strings.ToLower(format),
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
