package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Normalization defaults: channels are scaled to [0, 1].
const (
	DefaultMean float32 = 0
	DefaultStd  float32 = 255
)

// Channels is the number of values written per pixel (R, G, B).
const Channels = 3

// ToTensor converts img into a flat float32 buffer of length
// width*height*3. Pixels are visited row-major, top-to-bottom and
// left-to-right, and for each pixel R, G, B are written in that order as
// (channel - mean) / std, where channel is the non-premultiplied 8-bit
// value. Alpha is ignored.
func ToTensor(img image.Image, mean, std float32) ([]float32, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidDimensions)
	}
	if std == 0 || math.IsNaN(float64(std)) || math.IsInf(float64(std), 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStd, std)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}

	out := make([]float32, w*h*Channels)
	norm := func(c uint8) float32 {
		return (float32(c) - mean) / std
	}

	i := 0
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := nrgba.PixOffset(b.Min.X, y)
			for x := 0; x < w; x++ {
				p := nrgba.Pix[off+x*4 : off+x*4+4 : off+x*4+4]
				out[i] = norm(p[0])
				out[i+1] = norm(p[1])
				out[i+2] = norm(p[2])
				i += Channels
			}
		}
		return out, nil
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, _ := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out[i] = norm(c.R)
			out[i+1] = norm(c.G)
			out[i+2] = norm(c.B)
			i += Channels
		}
	}
	return out, nil
}
