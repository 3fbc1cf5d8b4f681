// Package artwork decodes album artwork and turns it into color samples.
package artwork

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/justestif/go-spotify-radio-dj/internal/palette"
)

const (
	// DefaultMaxBytes caps the encoded image size accepted by Decode.
	DefaultMaxBytes = 10 << 20

	// DefaultMaxSide is the longest thumbnail side used for sampling.
	// Spotify artwork is 640px; 64px keeps k-means input at 4096 samples.
	DefaultMaxSide = 64
)

// Sentinel errors.
var (
	// ErrUnsupportedImage is returned when the data is not a decodable image.
	ErrUnsupportedImage = errors.New("unsupported image format")

	// ErrTooLarge is returned when the encoded image exceeds the byte limit.
	ErrTooLarge = errors.New("image too large")

	// ErrNoPixels is returned when an image has no opaque pixels to sample.
	ErrNoPixels = errors.New("image has no opaque pixels")
)

// Decode reads at most maxBytes (DefaultMaxBytes when <= 0) and decodes a
// JPEG, PNG, GIF or WebP image. It returns the format name alongside the image.
func Decode(r io.Reader, maxBytes int64) (image.Image, string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading image data: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, format, nil
}

// Thumbnail scales img so its longest side is at most maxSide, preserving the
// aspect ratio. Images already small enough are copied unscaled.
func Thumbnail(img image.Image, maxSide int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			h = max(1, h*maxSide/w)
			w = maxSide
		} else {
			w = max(1, w*maxSide/h)
			h = maxSide
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Samples thumbnails img to maxSide (DefaultMaxSide when <= 0) and returns one
// [0,255] sample per pixel in row-major order. Fully transparent pixels are
// skipped; partially transparent pixels are un-premultiplied.
func Samples(img image.Image, maxSide int) ([]palette.Color, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	thumb := Thumbnail(img, maxSide)

	b := thumb.Bounds()
	samples := make([]palette.Color, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := thumb.RGBAAt(x, y)
			if c.A == 0 {
				continue
			}
			if c.A == 0xff {
				samples = append(samples, palette.FromRGB8(c.R, c.G, c.B))
				continue
			}
			a := float64(c.A) / 0xff
			samples = append(samples, palette.Color{
				R: float64(c.R) / a,
				G: float64(c.G) / a,
				B: float64(c.B) / a,
			})
		}
	}

	if len(samples) == 0 {
		return nil, ErrNoPixels
	}
	return samples, nil
}

// DecodeSamples decodes r and samples it in one step.
func DecodeSamples(r io.Reader, maxBytes int64, maxSide int) ([]palette.Color, error) {
	img, _, err := Decode(r, maxBytes)
	if err != nil {
		return nil, err
	}
	return Samples(img, maxSide)
}
