package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kerbaras/towebp/pkg/app/components"
	"github.com/kerbaras/towebp/pkg/config"
	"github.com/kerbaras/towebp/pkg/converter"
	"github.com/kerbaras/towebp/pkg/logger"
	"github.com/kerbaras/towebp/pkg/services"
)

// Exit codes
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// ErrInterrupted is returned when a signal stops the batch before every file
// was processed.
var ErrInterrupted = errors.New("interrupted")

// UsageError marks an invalid command line.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	var usage *UsageError
	switch {
	case errors.As(err, &usage):
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.CommandPath())
		return ExitUsage
	case errors.Is(err, ErrInterrupted):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cfg := config.Default()
	var removeOriginal bool

	cmd := &cobra.Command{
		Use:   "towebp",
		Short: "Batch-convert images in a directory to WebP",
		Long: `Convert every JPEG, PNG, BMP, GIF and TIFF image in a directory to WebP.

Each image is written next to its source as <name>.webp, overwriting any
existing file. Subdirectories are not scanned and files that are already
WebP are skipped. A failed file is reported and the batch carries on.

Examples:
  towebp
  towebp -d ./photos -q 75
  towebp -d ./icons --lossless --remove-original`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &UsageError{Err: err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.KeepOriginal = !removeOriginal
			if err := cfg.Validate(); err != nil {
				return &UsageError{Err: err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New(stderr, cfg.Verbose)
			batch := services.NewBatchConverter(
				converter.New(log),
				components.NewReport(stdout),
				log,
			)

			summary, err := batch.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if summary.Canceled {
				return ErrInterrupted
			}
			return nil
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	flags := cmd.Flags()
	flags.StringVarP(&cfg.Directory, "directory", "d", config.DefaultDirectory, "target directory")
	flags.IntVarP(&cfg.Quality, "quality", "q", config.DefaultQuality, "compression quality 1-100 (ignored with --lossless)")
	flags.BoolVarP(&cfg.Lossless, "lossless", "l", false, "use lossless compression")
	flags.BoolVar(&removeOriginal, "remove-original", false, "delete source files that were converted successfully")
	flags.IntVarP(&cfg.Jobs, "jobs", "j", config.DefaultJobs, "number of files converted in parallel (0 = one per CPU)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log debug details to stderr")

	return cmd
}
