package components

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kerbaras/towebp/pkg/app/styles"
	"github.com/kerbaras/towebp/pkg/config"
	"github.com/kerbaras/towebp/pkg/converter"
	"github.com/kerbaras/towebp/pkg/services"
)

const (
	ruleWidth = 50
	barWidth  = 30
)

var _ services.Reporter = (*Report)(nil)

// Report prints batch progress as human-readable lines. It is not a stable
// machine-readable format.
type Report struct {
	out     io.Writer
	printer *message.Printer
	bar     progress.Model
	ruled   bool // last line printed was a rule
}

func NewReport(out io.Writer) *Report {
	return &Report{
		out:     out,
		printer: message.NewPrinter(language.English),
		bar: progress.New(
			progress.WithSolidFill(string(styles.Success)),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
	}
}

func (r *Report) Start(cfg config.Config, files int) {
	r.println(styles.TitleStyle.Render("🖼️  Converting images to WebP"))
	r.rule()

	quality := fmt.Sprintf("%d%%", cfg.Quality)
	if cfg.Lossless {
		quality = "lossless"
	}

	r.printf("📁 Found %d image file(s) in %s\n", files, cfg.Directory)
	r.printf("🎯 %s %s\n", styles.LabelStyle.Render("Quality:"), quality)
	r.printf("📋 %s %s\n", styles.LabelStyle.Render("Keep originals:"), yesNo(cfg.KeepOriginal))
	if workers := cfg.Workers(); workers > 1 {
		r.printf("⚙️  %s %d\n", styles.LabelStyle.Render("Workers:"), workers)
	}
	r.rule()
}

func (r *Report) Skipped(path string) {
	r.printf("%s %s\n", styles.StatusStyle("skipped").Render("⏭️  skipped (already WebP):"), filepath.Base(path))
}

func (r *Report) File(outcome services.FileOutcome) {
	res := outcome.Result
	name := filepath.Base(res.InputPath)

	if !res.Success() {
		r.printf("%s %s: %s\n", styles.StatusStyle("failed").Render("✗ failed to convert"), name, res.Error())
		return
	}

	r.printf("%s %s -> %s\n", styles.StatusStyle("converted").Render("✓"), name, filepath.Base(res.OutputPath))
	r.printf("  original: %s bytes\n", r.bytes(res.OriginalSize))
	r.printf("  encoded:  %s bytes\n", r.bytes(res.EncodedSize))
	if pct, ok := res.Ratio(); ok {
		r.printf("  saved:    %s\n", styles.RatioStyle(pct).Render(fmt.Sprintf("%.1f%%", pct)))
	}

	switch {
	case outcome.Removed:
		r.printf("%s %s\n", styles.StatusStyle("removed").Render("🗑️  removed original:"), name)
	case outcome.RemoveErr != nil:
		r.printf("%s %s: %v\n", styles.StatusStyle("remove_failed").Render("⚠️  could not remove original"), name, outcome.RemoveErr)
	}
	r.println("")
}

func (r *Report) NoFiles(dir string) {
	exts := make([]string, len(converter.SupportedExtensions))
	for i, ext := range converter.SupportedExtensions {
		exts[i] = "." + ext
	}

	r.printf("%s %s\n", styles.StatusStyle("failed").Render("❌ No supported image files found in"), dir)
	r.printf("%s %s\n", styles.MutedStyle.Render("Supported formats:"), strings.Join(exts, ", "))
}

func (r *Report) Finish(summary *services.BatchSummary) {
	if !r.ruled {
		r.rule()
	}
	r.println(styles.TitleStyle.Render("📊 Summary"))
	r.printf("   converted: %d/%d file(s)\n", summary.Succeeded, summary.Eligible())
	r.printf("   failed:    %d\n", summary.Failed)
	if summary.Skipped > 0 {
		r.printf("   skipped:   %d\n", summary.Skipped)
	}
	if summary.Removed > 0 || summary.RemoveFailed > 0 {
		r.printf("   removed:   %d (%d failed)\n", summary.Removed, summary.RemoveFailed)
	}

	if pct, ok := summary.Ratio(); ok {
		r.printf("   original total: %s bytes (%.1f MB)\n", r.bytes(summary.OriginalBytes), megabytes(summary.OriginalBytes))
		r.printf("   encoded total:  %s bytes (%.1f MB)\n", r.bytes(summary.EncodedBytes), megabytes(summary.EncodedBytes))
		r.printf("   total saved:    %s %s\n",
			styles.RatioStyle(pct).Render(fmt.Sprintf("%.1f%%", pct)),
			r.bar.ViewAs(clamp(pct/100)),
		)
	}

	if summary.Canceled {
		r.printf("%s %d file(s) not processed\n",
			styles.StatusStyle("interrupted").Render("⚠️  interrupted:"),
			summary.Eligible()-summary.Processed(),
		)
	}
}

func (r *Report) rule() {
	r.println(styles.RuleStyle.Render(strings.Repeat("=", ruleWidth)))
	r.ruled = true
}

func (r *Report) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
	r.ruled = false
}

func (r *Report) println(s string) {
	fmt.Fprintln(r.out, s)
	r.ruled = false
}

// bytes formats n with thousands separators
func (r *Report) bytes(n int64) string {
	return r.printer.Sprintf("%d", n)
}

func megabytes(n int64) float64 {
	return float64(n) / 1024 / 1024
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
