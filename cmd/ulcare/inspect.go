package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hildanuzulul/Ulcare/internal/config"
	"github.com/hildanuzulul/Ulcare/internal/inference"
	"github.com/hildanuzulul/Ulcare/internal/model"
	"github.com/hildanuzulul/Ulcare/internal/preprocess"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the inputs and outputs of a model",
		Long: `Inspect loads a model and prints the tensors it declares, so you can
check that it accepts a [1,H,W,3] float32 photo and returns at least five
class scores before classifying with it.

Examples:
  ulcare inspect
  ulcare inspect --model ./dfu.tflite
  ulcare inspect --json
  ulcare inspect --photo ./left-foot.jpg`,
		Args: cobra.NoArgs,
		RunE: runInspectCmd,
	}

	cmd.Flags().StringP("model", "M", config.DefaultModelPath(),
		"Path to the .onnx or .tflite model")
	cmd.Flags().String("onnx-lib", "",
		"Path to the ONNX Runtime shared library (default: search system locations)")
	cmd.Flags().IntP("threads", "t", 0,
		"Inference threads (0: half the CPUs)")
	cmd.Flags().BoolP("json", "j", false, "Output the description as JSON")
	cmd.Flags().String("photo", "",
		"Also check that a photo decodes into an input tensor for the model")

	return cmd
}

// inspectOutput is the JSON form of the inspect command.
type inspectOutput struct {
	inference.Description
	Shape      string `json:"shape"`
	Compatible bool   `json:"compatible"`

	Photo *photoCheck `json:"photo,omitempty"`
}

// photoCheck describes a photo prepared for the model without running it.
type photoCheck struct {
	Image        string `json:"image"`
	Format       string `json:"format"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SampleSize   int    `json:"sample_size"`
	Orientation  int    `json:"orientation"`
	HasGPS       bool   `json:"has_gps"`
	Camera       string `json:"camera,omitempty"`
	TensorLength int    `json:"tensor_length"`
}

// checkPhoto decodes and converts the photo at path for a model of the
// given shape.
func checkPhoto(ctx context.Context, path string, shape inference.Shape) (*photoCheck, error) {
	prepared, err := preprocess.Preprocess(ctx, preprocess.NewFileSource(path),
		preprocess.DefaultParams(shape.Width, shape.Height))
	if err != nil {
		return nil, err
	}

	d := prepared.Decoded
	return &photoCheck{
		Image:        path,
		Format:       d.Format,
		Width:        d.Width,
		Height:       d.Height,
		SampleSize:   d.SampleSize,
		Orientation:  d.Metadata.Orientation,
		HasGPS:       d.Metadata.HasGPS,
		Camera:       d.Metadata.Camera,
		TensorLength: len(prepared.Tensor),
	}, nil
}

// runInspectCmd loads the model and prints its description.
func runInspectCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	modelPath, err := flags.GetString("model")
	if err != nil {
		return err
	}
	onnxLib, err := flags.GetString("onnx-lib")
	if err != nil {
		return err
	}
	threads, err := flags.GetInt("threads")
	if err != nil {
		return err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	photo, err := flags.GetString("photo")
	if err != nil {
		return err
	}

	loader, err := inference.LoaderForPath(modelPath, inference.EngineOptions{
		Threads:     threads,
		ONNXLibrary: onnxLib,
	})
	if err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	runner := inference.NewRunner(loader, inference.WithRunnerLogger(logger))
	defer runner.Release() //nolint:errcheck // process is exiting

	ctx := cmd.Context()
	desc, err := runner.Describe(ctx)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	shape, err := runner.InputShape(ctx)
	if err != nil {
		return err
	}

	out := inspectOutput{
		Description: desc,
		Shape:       shape.String(),
		Compatible:  shape.Classes == 0 || shape.Classes >= model.ClassCount,
	}

	if asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}
	writeInspect(cmd.OutOrStdout(), out)
	return nil
}

// writeInspect prints the description as text.
func writeInspect(w io.Writer, out inspectOutput) {
	fmt.Fprintf(w, "Model:   %s\n", out.Path)
	fmt.Fprintf(w, "Format:  %s\n", out.Format)
	fmt.Fprintf(w, "Threads: %d\n", out.Threads)
	fmt.Fprintf(w, "Shape:   %s\n", out.Shape)

	fmt.Fprintln(w, "\nInputs:")
	for _, t := range out.Inputs {
		fmt.Fprintf(w, "  %-20s %v\n", t.Name, t.Dimensions)
	}
	fmt.Fprintln(w, "\nOutputs:")
	for _, t := range out.Outputs {
		fmt.Fprintf(w, "  %-20s %v\n", t.Name, t.Dimensions)
	}

	if p := out.Photo; p != nil {
		fmt.Fprintf(w, "\nPhoto:   %s (%s, %dx%d)\n", p.Image, p.Format, p.Width, p.Height)
		fmt.Fprintf(w, "  orientation %d, sample size %d, tensor %d values\n",
			p.Orientation, p.SampleSize, p.TensorLength)
		if p.HasGPS {
			fmt.Fprintln(w, "  note: the photo embeds GPS coordinates")
		}
	}

	if !out.Compatible {
		fmt.Fprintf(w, "\nWarning: the model declares fewer than %d output classes.\n", model.ClassCount)
	}
}
