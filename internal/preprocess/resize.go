package preprocess

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// Resize scales img to exactly width x height with bilinear filtering.
// The aspect ratio is not preserved.
func Resize(img image.Image, width, height int) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidDimensions)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidDimensions, width, height)
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img, nil
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear), nil //nolint:gosec // checked positive above
}
