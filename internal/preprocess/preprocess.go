package preprocess

import (
	"context"
	"fmt"
)

// Params holds everything needed to go from a source to a model tensor.
type Params struct {
	// Width and Height are the model input size.
	Width  int
	Height int

	// Mean and Std normalize every channel value.
	Mean float32
	Std  float32

	// Decode configures the decode step.
	Decode Options
}

// DefaultParams returns params for a width x height model with the default
// normalization and decode options.
func DefaultParams(width, height int) Params {
	return Params{
		Width:  width,
		Height: height,
		Mean:   DefaultMean,
		Std:    DefaultStd,
		Decode: DefaultOptions(),
	}
}

// Result is the output of Preprocess.
type Result struct {
	// Tensor has length Width*Height*3.
	Tensor []float32

	// Decoded describes the decoded source image.
	Decoded *Decoded
}

// Preprocess decodes src, resizes it to the model size and converts it to
// a normalized tensor.
func Preprocess(ctx context.Context, src Source, p Params) (*Result, error) {
	decoded, err := Decode(ctx, src, p.Decode)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resized, err := Resize(decoded.Image, p.Width, p.Height)
	if err != nil {
		return nil, fmt.Errorf("resize %s: %w", src.Name(), err)
	}

	tensor, err := ToTensor(resized, p.Mean, p.Std)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", src.Name(), err)
	}

	return &Result{Tensor: tensor, Decoded: decoded}, nil
}
