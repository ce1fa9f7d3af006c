package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hildanuzulul/Ulcare/internal/config"
	"github.com/hildanuzulul/Ulcare/internal/database"
	"github.com/hildanuzulul/Ulcare/internal/inference"
	ulog "github.com/hildanuzulul/Ulcare/internal/log"
	"github.com/hildanuzulul/Ulcare/internal/model"
	"github.com/hildanuzulul/Ulcare/internal/pipeline"
	"github.com/hildanuzulul/Ulcare/internal/preprocess"
	"github.com/hildanuzulul/Ulcare/internal/report"
)

// errClassificationFailed is returned when at least one photo could not be
// classified. The report already describes each failure.
var errClassificationFailed = errors.New("classification failed for one or more photos")

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [image...]",
		Short: "Classify the severity of a diabetic foot ulcer photo",
		Long: `Classify decodes each photo, runs the on-device model, and reports one
of five severity labels with its clinical detail and recommended action:

  Light, Light - Medium, Medium, Medium - Urgent, Urgent

The stored patient identity is attached to every result. Store it first
with "ulcare identity set", or pass --anonymous.

Examples:
  # Classify one photo
  ulcare classify foot.jpg

  # Classify several photos, two at a time
  ulcare classify --batch 2 day1.jpg day2.jpg day3.jpg

  # Use a specific model and write a Markdown report
  ulcare classify --model ./dfu.onnx --markdown -o report.md foot.jpg

  # Override the guidance shown with the result
  ulcare classify --action "Control to the clinic tomorrow" foot.jpg

Configuration file (.ulcare) example:
  model:
    path: models/dfu_classifier.onnx
    threads: 2
  preprocess:
    mean: 0
    std: 255
  batch:
    size: 4
    timeout: 60s`,
		Args: cobra.ArbitraryArgs,
		RunE: runClassifyCmd,
	}

	// Model flags
	cmd.Flags().StringP("model", "M", config.DefaultModelPath(),
		"Path to the .onnx or .tflite model")
	cmd.Flags().String("onnx-lib", "",
		"Path to the ONNX Runtime shared library (default: search system locations)")
	cmd.Flags().IntP("threads", "t", 0,
		"Inference threads (0: half the CPUs)")

	// Preprocessing flags
	cmd.Flags().Float32("mean", preprocess.DefaultMean,
		"Channel mean subtracted before inference")
	cmd.Flags().Float32("std", preprocess.DefaultStd,
		"Channel std dividing each value before inference")
	cmd.Flags().Int("decode-size", config.DefaultDecodeSize,
		"Short-side size the decoder downscales toward (0: full resolution)")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of photos classified concurrently")
	cmd.Flags().DurationP("timeout", "T", config.DefaultTimeout,
		"Timeout for each photo (0: none)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ulcare in current or home directory)")

	// Guidance and identity flags
	cmd.Flags().String("detail", "", "Override the clinical detail shown with the result")
	cmd.Flags().String("action", "", "Override the recommended action shown with the result")
	cmd.Flags().Bool("anonymous", false, "Classify without a stored patient identity")
	cmd.Flags().Bool("hide-patient", false, "Omit the patient name and gender from the report")
	cmd.Flags().String("data-dir", config.XDGDataDir(), "Directory holding the identity database")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runClassifyCmd executes the classify command.
func runClassifyCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	hidePatient, err := cmd.Flags().GetBool("hide-patient")
	if err != nil {
		return err
	}

	return runClassify(ctx, cmd, cfg, hidePatient, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the configuration file, and
// the flags the user actually set, in that order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit config path must exist; otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("model") {
		if cfg.ModelPath, err = flags.GetString("model"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("onnx-lib") {
		if cfg.ONNXLibrary, err = flags.GetString("onnx-lib"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("threads") {
		if cfg.Threads, err = flags.GetInt("threads"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("mean") {
		if cfg.Mean, err = flags.GetFloat32("mean"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("std") {
		if cfg.Std, err = flags.GetFloat32("std"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("decode-size") {
		if cfg.DecodeSize, err = flags.GetInt("decode-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("batch") {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}

	if cfg.Detail, err = flags.GetString("detail"); err != nil {
		return nil, err
	}
	if cfg.Action, err = flags.GetString("action"); err != nil {
		return nil, err
	}
	if cfg.Anonymous, err = flags.GetBool("anonymous"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("data-dir"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Images = args

	return cfg, nil
}

// setupLogger creates a structured logger that masks patient data.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return ulog.NewSecureLogger(w, verbose)
}

// loadIdentity returns the stored identity, or nil in anonymous mode.
func loadIdentity(ctx context.Context, cfg *config.Config) (*model.Identity, error) {
	if cfg.Anonymous {
		return nil, nil
	}

	store, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open identity database: %w", err)
	}
	defer store.Close()

	id, err := store.GetIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, errNoIdentity
	}
	return id, nil
}

// runClassify loads the model once and classifies every photo.
func runClassify(ctx context.Context, cmd *cobra.Command, cfg *config.Config, hidePatient bool, logger *slog.Logger) error {
	identity, err := loadIdentity(ctx, cfg)
	if err != nil {
		return err
	}

	logger.Info("starting classification",
		"images", len(cfg.Images),
		"model", cfg.ModelPath,
		"batchSize", cfg.BatchSize,
	)

	loader, err := inference.LoaderForPath(cfg.ModelPath, inference.EngineOptions{
		Threads:     cfg.Threads,
		ONNXLibrary: cfg.ONNXLibrary,
	})
	if err != nil {
		return fmt.Errorf("failed to prepare model: %w", err)
	}

	runner := inference.NewRunner(loader, inference.WithRunnerLogger(logger))
	defer func() {
		if err := runner.Release(); err != nil {
			logger.Error("failed to release model", "error", err)
		}
	}()

	// Load up front so a missing or broken model fails before any photo.
	if _, err := runner.Acquire(ctx); err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	settings := pipeline.Settings{
		Decode: cfg.DecodeOptions(),
		Mean:   cfg.Mean,
		Std:    cfg.Std,
	}
	newPipeline := func() *pipeline.Pipeline {
		return pipeline.NewClassifyPipeline(runner, settings,
			pipeline.WithLogger(logger),
			pipeline.WithTimeout(cfg.Timeout),
		)
	}

	requests := make([]pipeline.Request, len(cfg.Images))
	for i, image := range cfg.Images {
		requests[i] = pipeline.Request{
			Source:   preprocess.NewFileSource(image),
			Identity: identity,
			Detail:   cfg.Detail,
			Action:   cfg.Action,
		}
	}

	out, err := openReport(cfg, cmd.OutOrStdout(), hidePatient)
	if err != nil {
		return err
	}
	defer out.close()

	if len(requests) == 1 {
		return runSingle(ctx, cmd.ErrOrStderr(), newPipeline(), requests[0], out)
	}
	return runBatch(ctx, cmd.ErrOrStderr(), cfg, newPipeline, requests, out, logger)
}

// runSingle classifies one photo as a background task and reports it.
func runSingle(ctx context.Context, progress io.Writer, p *pipeline.Pipeline, req pipeline.Request, out *reportOutput) error {
	fmt.Fprintf(progress, "Classifying %s...\n", req.Source.Name())
	startTime := time.Now()

	task := pipeline.Submit(ctx, p, req.NewJob(), nil)
	result, err := task.Wait(ctx)
	if result == nil {
		return err
	}

	fmt.Fprintf(progress, "Completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

	if _, werr := out.perResult.Write(result); werr != nil {
		return fmt.Errorf("failed to write report: %w", werr)
	}
	if !result.Succeeded() {
		return errClassificationFailed
	}
	return nil
}

// runBatch classifies photos, concurrently unless the batch size is one,
// then reports them in order followed by a summary.
func runBatch(
	ctx context.Context,
	progress io.Writer,
	cfg *config.Config,
	newPipeline func() *pipeline.Pipeline,
	requests []pipeline.Request,
	out *reportOutput,
	logger *slog.Logger,
) error {
	fmt.Fprintf(progress, "Classifying %d photos (concurrency: %d)...\n\n", len(requests), cfg.BatchSize)
	startTime := time.Now()

	var (
		mu        sync.Mutex
		completed int
	)
	onResult := func(result *model.Classification, _ int) {
		mu.Lock()
		defer mu.Unlock()

		completed++
		status := result.DisplayLabel
		if !result.Succeeded() {
			status = "failed"
		}
		fmt.Fprintf(progress, "[%d/%d] %s: %s\n", completed, len(requests), result.Image, status)
	}

	var (
		results  []*model.Classification
		batchErr error
	)
	if cfg.BatchSize > 1 {
		bp := pipeline.NewBatchProcessor(newPipeline,
			pipeline.WithConcurrency(cfg.BatchSize),
			pipeline.WithBatchLogger(logger),
			pipeline.WithProgress(onResult),
		)
		results, batchErr = bp.ProcessBatch(ctx, requests)
	} else {
		results, batchErr = classifySequential(ctx, newPipeline, requests, onResult, logger)
	}

	fmt.Fprintf(progress, "\nBatch completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

	for _, result := range results {
		if result == nil {
			continue
		}
		if _, err := out.perResult.Write(result); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	summary := report.NewSummary(results)
	if _, err := out.summary.WriteSummary(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if batchErr != nil {
		return batchErr
	}
	if summary.Failed > 0 {
		return errClassificationFailed
	}
	return nil
}

// classifySequential classifies photos one at a time in request order.
// Entries after a cancellation are nil.
func classifySequential(
	ctx context.Context,
	newPipeline func() *pipeline.Pipeline,
	requests []pipeline.Request,
	onResult func(result *model.Classification, index int),
	logger *slog.Logger,
) ([]*model.Classification, error) {
	results := make([]*model.Classification, len(requests))
	for i, req := range requests {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result, err := pipeline.Classify(ctx, newPipeline(), req)
		if err != nil {
			logger.Warn("classification failed", "image", result.Image, "error", err)
		}
		results[i] = result
		onResult(result, i)
	}
	return results, nil
}

// reportOutput routes results to the selected report writers.
//
// Design decision: In batch mode a JSON report holds a single document, the
// summary, which already carries every result. Other formats print each
// result and then the summary.
type reportOutput struct {
	perResult report.Writer
	summary   report.Writer
	file      *os.File
}

func (o *reportOutput) close() {
	if o.file != nil {
		_ = o.file.Close() //nolint:errcheck // best effort after writes were checked
	}
}

// openReport creates the writers for cfg. When a report file is set, a
// plain-text copy is also printed to stdout.
func openReport(cfg *config.Config, stdout io.Writer, hidePatient bool) (*reportOutput, error) {
	out := &reportOutput{}

	dest := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports carry patient data; keep them owner-readable only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		out.file = f
		dest = f
	}

	var (
		formatted       report.Writer
		summaryOnlyJSON bool
	)
	switch {
	case cfg.JSONReport:
		formatted = report.NewJSONWriter(dest,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
			report.WithJSONHidePatient(hidePatient),
		)
		summaryOnlyJSON = len(cfg.Images) > 1
	case cfg.MarkdownReport:
		formatted = report.NewMarkdownWriter(dest, report.WithMarkdownHidePatient(hidePatient))
	default:
		formatted = report.NewSimpleWriter(dest,
			report.WithVerbose(cfg.Verbose),
			report.WithHidePatient(hidePatient),
		)
	}

	perResult := []report.Writer{}
	if !summaryOnlyJSON {
		perResult = append(perResult, formatted)
	}
	all := []report.Writer{formatted}

	if out.file != nil {
		echo := report.NewSimpleWriter(stdout,
			report.WithVerbose(cfg.Verbose),
			report.WithHidePatient(hidePatient),
		)
		perResult = append(perResult, echo)
		all = append(all, echo)
	}

	out.perResult = report.NewMultiWriter(perResult...)
	out.summary = report.NewMultiWriter(all...)
	return out, nil
}
