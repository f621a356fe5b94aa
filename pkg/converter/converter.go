package converter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepteams/webp"
	"github.com/natefinch/atomic"
)

// MaxMethod is the slowest, best-compressing encoder effort level.
const MaxMethod = 6

// SupportedExtensions lists the source formats that can be decoded, lowercase
// and without the leading dot.
var SupportedExtensions = []string{"jpg", "jpeg", "png", "bmp", "gif", "tiff", "tif"}

// WebPExtension is the extension written for every converted file.
const WebPExtension = "webp"

// Request describes a single file conversion.
type Request struct {
	InputPath  string
	OutputPath string // defaults to DefaultOutputPath(InputPath)
	Quality    int
	Lossless   bool
}

// Result is the outcome of a single conversion. A nil Err means the output
// file was written.
type Result struct {
	InputPath    string
	OutputPath   string
	Mode         ColorMode
	OriginalSize int64
	EncodedSize  int64
	Err          error
}

// Success reports whether the output file was written.
func (r Result) Success() bool {
	return r.Err == nil
}

// Error returns the failure text, or "" on success.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Ratio returns the size reduction as a percentage of the original size.
// ok is false when the conversion failed or the original was empty.
func (r Result) Ratio() (pct float64, ok bool) {
	if !r.Success() || r.OriginalSize == 0 {
		return 0, false
	}
	return CompressionRatio(r.OriginalSize, r.EncodedSize), true
}

// CompressionRatio computes (1 - encoded/original) * 100. Callers guard
// against a zero original.
func CompressionRatio(original, encoded int64) float64 {
	return (1 - float64(encoded)/float64(original)) * 100
}

// DefaultOutputPath returns path with its extension replaced by .webp.
func DefaultOutputPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + WebPExtension
}

// IsSupported reports whether name has a convertible extension.
func IsSupported(name string) bool {
	ext := extension(name)
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// IsWebP reports whether name already carries the .webp extension.
func IsWebP(name string) bool {
	return extension(name) == WebPExtension
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Converter turns raster images into WebP files.
type Converter struct {
	log *slog.Logger
}

// New creates a converter that logs diagnostics to log.
func New(log *slog.Logger) *Converter {
	if log == nil {
		log = slog.Default()
	}
	return &Converter{log: log}
}

// Convert decodes req.InputPath, encodes it as WebP and writes the result to
// req.OutputPath. Failures are returned inside the Result, never as a panic,
// and never leave a partial output file behind.
func (c *Converter) Convert(ctx context.Context, req Request) Result {
	if req.OutputPath == "" {
		req.OutputPath = DefaultOutputPath(req.InputPath)
	}
	res := Result{
		InputPath:  req.InputPath,
		OutputPath: req.OutputPath,
	}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	info, err := os.Stat(req.InputPath)
	if err != nil {
		res.Err = fmt.Errorf("failed to stat input: %w", err)
		return res
	}
	res.OriginalSize = info.Size()

	img, mode, err := c.load(req.InputPath)
	if err != nil {
		res.Err = err
		return res
	}
	res.Mode = mode

	data, err := encode(img, req)
	if err != nil {
		res.Err = err
		return res
	}

	if err := writeAtomic(req.OutputPath, data); err != nil {
		res.Err = err
		return res
	}

	out, err := os.Stat(req.OutputPath)
	if err != nil {
		res.Err = fmt.Errorf("failed to stat output: %w", err)
		return res
	}
	res.EncodedSize = out.Size()

	c.log.Debug("converted image",
		"input", req.InputPath,
		"output", req.OutputPath,
		"mode", mode,
		"lossless", req.Lossless,
		"original", res.OriginalSize,
		"encoded", res.EncodedSize,
	)
	return res
}

// load opens and decodes the source, then normalizes its pixel layout
func (c *Converter) load(path string) (image.Image, ColorMode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	img, format, err := decodeImage(f)
	if err != nil {
		return nil, "", err
	}

	normalized, mode := normalize(img)
	c.log.Debug("decoded image",
		"input", path,
		"format", format,
		"width", normalized.Bounds().Dx(),
		"height", normalized.Bounds().Dy(),
		"mode", mode,
	)
	return normalized, mode, nil
}

// encode produces the WebP byte stream for img
func encode(img image.Image, req Request) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, EncoderOptions(req.Quality, req.Lossless)); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// EncoderOptions maps the CLI settings onto encoder options. Lossless output
// ignores quality and keeps RGB values under transparent pixels; lossy
// output always uses the highest effort method.
func EncoderOptions(quality int, lossless bool) *webp.EncoderOptions {
	opts := webp.DefaultOptions()
	if lossless {
		opts.Lossless = true
		opts.Exact = true
		return opts
	}
	opts.Quality = float32(quality)
	opts.Method = MaxMethod
	return opts
}

// writeAtomic replaces path with data through a temp file in the same
// directory, so a failed write never leaves a partial output behind.
func writeAtomic(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Chmod(path, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
