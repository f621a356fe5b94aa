package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/kerbaras/towebp/pkg/config"
	"github.com/kerbaras/towebp/pkg/converter"
)

// ErrDirectoryNotFound is returned when the target directory is missing or
// is not a directory. No file is touched in that case.
var ErrDirectoryNotFound = errors.New("directory does not exist")

// ImageConverter converts a single file
type ImageConverter interface {
	Convert(ctx context.Context, req converter.Request) converter.Result
}

// Reporter receives progress from a batch run. All calls are made from the
// aggregating goroutine, one at a time.
type Reporter interface {
	Start(cfg config.Config, files int)
	Skipped(path string)
	File(outcome FileOutcome)
	NoFiles(dir string)
	Finish(summary *BatchSummary)
}

// BatchConverter converts every eligible image in a directory
type BatchConverter struct {
	converter ImageConverter
	reporter  Reporter
	log       *slog.Logger
	remove    func(path string) error
}

// NewBatchConverter creates a new BatchConverter instance
func NewBatchConverter(conv ImageConverter, reporter Reporter, log *slog.Logger) *BatchConverter {
	if log == nil {
		log = slog.Default()
	}
	return &BatchConverter{
		converter: conv,
		reporter:  reporter,
		log:       log,
		remove:    os.Remove,
	}
}

// Run converts the images in cfg.Directory and returns the aggregated
// summary. Per-file failures are recorded in the summary; the only errors
// returned are a missing directory or an unreadable listing.
//
// Files are handed to at most cfg.Workers() concurrent conversions. A single
// goroutine owns the summary and the reporter. Cancelling ctx stops new files
// from being started and marks the summary as canceled.
func (b *BatchConverter) Run(ctx context.Context, cfg config.Config) (*BatchSummary, error) {
	info, err := os.Stat(cfg.Directory)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, cfg.Directory)
	}

	scan, err := Scan(cfg.Directory)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{
		Discovered: scan.Discovered(),
		Skipped:    len(scan.Skipped),
	}

	if len(scan.Eligible) == 0 {
		for _, path := range scan.Skipped {
			b.reporter.Skipped(path)
		}
		b.reporter.NoFiles(cfg.Directory)
		return summary, nil
	}

	for out, sources := range scan.Overwrites {
		b.log.Warn("output will be overwritten", "output", out, "sources", sources)
	}

	b.reporter.Start(cfg, len(scan.Eligible))
	for _, path := range scan.Skipped {
		b.reporter.Skipped(path)
	}

	workers := cfg.Workers()
	b.log.Debug("starting batch",
		"directory", cfg.Directory,
		"files", len(scan.Eligible),
		"workers", workers,
	)

	outcomes := make(chan FileOutcome)
	go func() {
		defer close(outcomes)

		var g errgroup.Group
		g.SetLimit(workers)
		for _, path := range scan.Eligible {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				outcomes <- b.process(ctx, cfg, path)
				return nil
			})
		}
		g.Wait()
	}()

	for outcome := range outcomes {
		// Files the converter refused because of cancellation were not attempted.
		if err := ctx.Err(); err != nil && errors.Is(outcome.Result.Err, err) {
			continue
		}
		summary.Add(outcome)
		b.reporter.File(outcome)
	}

	if ctx.Err() != nil && summary.Processed() < summary.Eligible() {
		summary.Canceled = true
		b.log.Warn("batch interrupted",
			"processed", summary.Processed(),
			"eligible", summary.Eligible(),
		)
	}

	b.reporter.Finish(summary)
	return summary, nil
}

// process converts one file and, when asked to, removes its source
func (b *BatchConverter) process(ctx context.Context, cfg config.Config, path string) FileOutcome {
	res := b.converter.Convert(ctx, converter.Request{
		InputPath: path,
		Quality:   cfg.Quality,
		Lossless:  cfg.Lossless,
	})
	outcome := FileOutcome{Result: res}

	if !res.Success() {
		b.log.Debug("conversion failed", "input", path, "error", res.Err)
		return outcome
	}
	if cfg.KeepOriginal {
		return outcome
	}

	if err := b.remove(path); err != nil {
		outcome.RemoveErr = fmt.Errorf("failed to remove original: %w", err)
		b.log.Debug("remove failed", "input", path, "error", err)
		return outcome
	}
	outcome.Removed = true
	return outcome
}
