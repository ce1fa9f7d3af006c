package inference

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFormatForPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		path     string
		expected string
		wantErr  bool
	}{
		{"model.onnx", FormatONNX, false},
		{"MODEL.ONNX", FormatONNX, false},
		{"/data/ulcer.tflite", FormatTFLite, false},
		{"model.pt", "", true},
		{"model", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()

			got, err := FormatForPath(tc.path)
			if tc.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestLoaderForPath(t *testing.T) {
	t.Parallel()

	t.Run("missing model", func(t *testing.T) {
		t.Parallel()

		loader, err := LoaderForPath(filepath.Join(t.TempDir(), "missing.onnx"), EngineOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := loader(context.Background()); !errors.Is(err, ErrModelNotFound) {
			t.Errorf("expected ErrModelNotFound, got %v", err)
		}
	})

	t.Run("directory is not a model", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "model.onnx")
		if err := os.Mkdir(dir, 0o750); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		loader, err := LoaderForPath(dir, EngineOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := loader(context.Background()); !errors.Is(err, ErrModelNotFound) {
			t.Errorf("expected ErrModelNotFound, got %v", err)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()

		if _, err := LoaderForPath("weights.h5", EngineOptions{}); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})
}

func TestShapeFromDims(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		in, out  []int64
		expected Shape
		wantErr  bool
	}{
		{"static", []int64{1, 224, 224, 3}, []int64{1, 5}, Shape{224, 224, 5}, false},
		{"dynamic spatial dims default to 224", []int64{1, -1, -1, 3}, []int64{1, 5}, Shape{224, 224, 5}, false},
		{"dynamic classes", []int64{1, 128, 96, 3}, []int64{1, -1}, Shape{128, 96, 0}, false},
		{"channels first is rejected", []int64{1, 3, 224, 224}, []int64{1, 5}, Shape{}, true},
		{"3D input is rejected", []int64{224, 224, 3}, []int64{1, 5}, Shape{}, true},
		{"1D output is rejected", []int64{1, 224, 224, 3}, []int64{5}, Shape{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := shapeFromDims(tc.in, tc.out)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidModel) {
					t.Errorf("expected ErrInvalidModel, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("expected %+v, got %+v", tc.expected, got)
			}
		})
	}
}

func TestShapeString(t *testing.T) {
	t.Parallel()

	if got := (Shape{Height: 224, Width: 224, Classes: 5}).String(); got != "[1,224,224,3] -> [1,5]" {
		t.Errorf("unexpected shape string %q", got)
	}
	if got := (Shape{Height: 8, Width: 8}).InputLen(); got != 192 {
		t.Errorf("expected 192, got %d", got)
	}
}

func TestDefaultThreads(t *testing.T) {
	t.Parallel()

	if DefaultThreads() < 1 {
		t.Error("expected at least one thread")
	}
	if (EngineOptions{Threads: 3}).threads() != 3 {
		t.Error("expected explicit thread count to win")
	}
}

func TestONNXEngineWithoutSession(t *testing.T) {
	t.Parallel()

	e := &ONNXEngine{shape: Shape{Height: 2, Width: 2, Classes: 5}}

	if _, err := e.Run(make([]float32, e.shape.InputLen())); !errors.Is(err, ErrReleased) {
		t.Errorf("expected ErrReleased, got %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("expected closing an unopened engine to succeed, got %v", err)
	}
	if got := e.Shape(); got != (Shape{Height: 2, Width: 2, Classes: 5}) {
		t.Errorf("unexpected shape %v", got)
	}
}
