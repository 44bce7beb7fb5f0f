package image

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"

	platformerrors "image-recognition-go/internal/platform/errors"
)

// NormalizeOptions bounds the normalized output.
type NormalizeOptions struct {
	MaxEdge   int
	Quality   int
	MaxPixels int64
}

// FitWithin returns the dimensions of a w x h image scaled uniformly so that
// neither side exceeds maxEdge. Images already within bounds are returned
// unchanged; results are floored and never below one pixel.
func FitWithin(w, h, maxEdge int) (int, int) {
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return w, h
	}
	long := w
	if h > long {
		long = h
	}
	nw := int(int64(w) * int64(maxEdge) / int64(long))
	nh := int(int64(h) * int64(maxEdge) / int64(long))
	return max(nw, 1), max(nh, 1)
}

// Normalize decodes raw, flattens any transparency onto white, downsizes to
// fit opts.MaxEdge and re-encodes as JPEG at opts.Quality.
func Normalize(raw []byte, opts NormalizeOptions) (*NormalizedImage, error) {
	const op = "normalize"

	info, err := Inspect(raw, opts.MaxPixels)
	if err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, platformerrors.WithReason(platformerrors.KindNormalize, platformerrors.ReasonInvalidImage,
			op, "decode image", err)
	}

	bounds := src.Bounds()
	w, h := FitWithin(bounds.Dx(), bounds.Dy(), opts.MaxEdge)

	// JPEG carries no alpha; compositing over an opaque canvas keeps
	// transparent regions from turning black.
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), src, bounds, draw.Over, nil)
	}

	quality := opts.Quality
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, platformerrors.WithReason(platformerrors.KindNormalize, platformerrors.ReasonInvalidImage,
			op, "encode jpeg", err)
	}

	return &NormalizedImage{
		Bytes:        buf.Bytes(),
		Width:        w,
		Height:       h,
		SourceFormat: info.Format,
	}, nil
}
