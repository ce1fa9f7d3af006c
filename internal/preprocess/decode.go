package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Decode defaults.
const (
	// DefaultDecodeTarget is the short-side size the fast decode aims for.
	DefaultDecodeTarget = 256

	// MinDecodeSide is the smallest side the fast decode downscales to.
	MinDecodeSide = 32

	// DefaultMaxBytes caps how much of a source is read.
	DefaultMaxBytes int64 = 32 << 20

	// DefaultMaxPixels caps width*height as reported by the image header.
	// A 50 MP phone photo still passes.
	DefaultMaxPixels int64 = 50_000_000
)

// Options configures Decode.
type Options struct {
	// TargetSize is the short-side size the decoder downscales toward
	// using power-of-two factors. Zero or negative disables downscaling.
	TargetSize int

	// MaxBytes limits how many bytes are read from the source.
	// Zero or negative disables the limit.
	MaxBytes int64

	// MaxPixels limits width*height before any pixel data is decoded.
	// Zero or negative disables the limit.
	MaxPixels int64

	// AutoOrient applies the EXIF orientation after decoding.
	AutoOrient bool
}

// DefaultOptions returns the default decode options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultDecodeTarget,
		MaxBytes:   DefaultMaxBytes,
		MaxPixels:  DefaultMaxPixels,
		AutoOrient: true,
	}
}

// Decoded is the result of Decode.
type Decoded struct {
	// Image is the decoded, oriented and possibly downscaled image.
	Image image.Image

	// Format is the registered format name, e.g. "jpeg".
	Format string

	// Width and Height are the dimensions reported by the encoded image.
	Width  int
	Height int

	// SampleSize is the power-of-two downscale factor that was applied.
	SampleSize int

	// Fingerprint is the BLAKE2b-256 digest of the source bytes.
	Fingerprint string

	// Metadata is the EXIF information found in the source.
	Metadata Metadata
}

// Decode reads src once and decodes it into an image.
//
// The dimensions reported by the image header are checked first; a
// non-positive width or height, or more than MaxPixels pixels, fails with
// a DecodeError before any pixel data is decoded. Any read or decode failure is also returned as a
// DecodeError.
func Decode(ctx context.Context, src Source, opts Options) (*Decoded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := readSource(src, opts.MaxBytes)
	if err != nil {
		return nil, newDecodeError(src, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, newDecodeError(src, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, newDecodeError(src, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cfg.Width, cfg.Height))
	}
	if opts.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > opts.MaxPixels {
		return nil, newDecodeError(src, fmt.Errorf("%w: %dx%d exceeds %d pixels",
			ErrTooManyPixels, cfg.Width, cfg.Height, opts.MaxPixels))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newDecodeError(src, err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, newDecodeError(src, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, b.Dx(), b.Dy()))
	}

	sample := SampleSize(cfg.Width, cfg.Height, opts.TargetSize)
	if sample > 1 {
		w, h := sampledSize(cfg.Width, sample), sampledSize(cfg.Height, sample)
		img = downscale(img, w, h)
	}

	md := ReadMetadata(data)
	if opts.AutoOrient {
		img = applyOrientation(img, md.Orientation)
	}

	return &Decoded{
		Image:       img,
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		SampleSize:  sample,
		Fingerprint: fingerprintBytes(data),
		Metadata:    md,
	}, nil
}

// SampleSize returns the largest power-of-two factor that keeps the short
// side of a width x height image at or above target. It returns 1 when
// target is not positive or the image is already small.
func SampleSize(width, height, target int) int {
	if target <= 0 || width <= 0 || height <= 0 {
		return 1
	}
	short := min(width, height)
	sample := 1
	for short/(sample*2) >= target {
		sample *= 2
	}
	return sample
}

// sampledSize divides side by sample, never going below MinDecodeSide
// unless side itself is smaller.
func sampledSize(side, sample int) int {
	return max(side/sample, min(MinDecodeSide, side))
}

// downscale resamples img to w x h with an approximate bilinear filter.
func downscale(img image.Image, w, h int) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
