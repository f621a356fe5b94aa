package converter

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/deepteams/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	return img
}

func translucent(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 7), uint8(y * 5), uint8(x ^ y), uint8(1 + (x+y)%255)})
		}
	}
	return img
}

func writeFixture(t *testing.T, path string, img image.Image) {
	t.Helper()

	var buf bytes.Buffer
	var err error
	switch filepath.Ext(path) {
	case ".png":
		err = png.Encode(&buf, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case ".gif":
		err = gif.Encode(&buf, img, nil)
	case ".bmp":
		err = bmp.Encode(&buf, img)
	case ".tif", ".tiff":
		err = tiff.Encode(&buf, img, nil)
	default:
		t.Fatalf("no encoder for %s", path)
	}
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func decodeWebP(t *testing.T, path string) image.Image {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := webp.Decode(f)
	require.NoError(t, err)
	return img
}

func features(t *testing.T, path string) *webp.Features {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	feat, err := webp.GetFeatures(bytes.NewReader(data))
	require.NoError(t, err)
	return feat
}

func TestConvert_SupportedFormats(t *testing.T) {
	for _, name := range []string{"a.png", "b.jpg", "c.jpeg", "d.gif", "e.bmp", "f.tiff", "g.tif"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			input := filepath.Join(dir, name)
			writeFixture(t, input, gradient(48, 32))

			res := New(nil).Convert(context.Background(), Request{InputPath: input, Quality: 85})

			require.NoError(t, res.Err)
			assert.True(t, res.Success())
			assert.Empty(t, res.Error())
			assert.Equal(t, DefaultOutputPath(input), res.OutputPath)

			in, err := os.Stat(input)
			require.NoError(t, err)
			out, err := os.Stat(res.OutputPath)
			require.NoError(t, err)
			assert.Equal(t, in.Size(), res.OriginalSize)
			assert.Equal(t, out.Size(), res.EncodedSize)
			assert.Positive(t, res.EncodedSize)

			feat := features(t, res.OutputPath)
			assert.Equal(t, 48, feat.Width)
			assert.Equal(t, 32, feat.Height)
			assert.Equal(t, "lossy", feat.Format)
		})
	}
}

func TestConvert_LosslessRoundTripRGB(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "opaque.png")
	src := gradient(40, 30)
	writeFixture(t, input, src)

	res := New(nil).Convert(context.Background(), Request{InputPath: input, Quality: 1, Lossless: true})
	require.NoError(t, res.Err)
	assert.Equal(t, ModeRGB, res.Mode)
	assert.Equal(t, "lossless", features(t, res.OutputPath).Format)

	got := decodeWebP(t, res.OutputPath)
	require.Equal(t, src.Bounds().Size(), got.Bounds().Size())
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			want := color.NRGBAModel.Convert(src.At(x, y))
			have := color.NRGBAModel.Convert(got.At(got.Bounds().Min.X+x, got.Bounds().Min.Y+y))
			require.Equal(t, want, have, "pixel (%d,%d)", x, y)
		}
	}
}

func TestConvert_LosslessRoundTripRGBA(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "alpha.png")
	src := translucent(33, 17)
	writeFixture(t, input, src)

	res := New(nil).Convert(context.Background(), Request{InputPath: input, Quality: 85, Lossless: true})
	require.NoError(t, res.Err)
	assert.Equal(t, ModeRGBA, res.Mode)

	got := decodeWebP(t, res.OutputPath)
	require.Equal(t, src.Bounds().Size(), got.Bounds().Size())
	for y := 0; y < 17; y++ {
		for x := 0; x < 33; x++ {
			have := color.NRGBAModel.Convert(got.At(got.Bounds().Min.X+x, got.Bounds().Min.Y+y))
			require.Equal(t, src.NRGBAAt(x, y), have, "pixel (%d,%d)", x, y)
		}
	}
}

func TestConvert_LossyKeepsAlpha(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "alpha.png")
	writeFixture(t, input, translucent(32, 32))

	res := New(nil).Convert(context.Background(), Request{InputPath: input, Quality: 75})
	require.NoError(t, res.Err)
	assert.Equal(t, ModeRGBA, res.Mode)
	assert.True(t, features(t, res.OutputPath).HasAlpha)
}

func TestConvert_ExplicitOutputOverwrites(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "src.png")
	output := filepath.Join(dir, "custom.webp")
	writeFixture(t, input, gradient(16, 16))
	require.NoError(t, os.WriteFile(output, []byte("stale"), 0o644))

	res := New(nil).Convert(context.Background(), Request{InputPath: input, OutputPath: output, Quality: 50})
	require.NoError(t, res.Err)
	assert.Equal(t, output, res.OutputPath)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("stale"), data)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.NoFileExists(t, filepath.Join(dir, "src.webp"))
}

func TestConvert_OutputIsWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "a.png")
	writeFixture(t, input, gradient(8, 8))

	conv := New(nil)
	for i := 0; i < 2; i++ {
		res := conv.Convert(context.Background(), Request{InputPath: input, Quality: 85})
		require.NoError(t, res.Err)

		info, err := os.Stat(res.OutputPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestConvert_CorruptInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "corrupt.jpg")
	require.NoError(t, os.WriteFile(input, []byte{0xff, 0xd8, 0xff, 0xe0, 'b', 'r', 'o', 'k', 'e', 'n'}, 0o644))

	res := New(nil).Convert(context.Background(), Request{InputPath: input, Quality: 85})

	require.Error(t, res.Err)
	assert.False(t, res.Success())
	assert.Contains(t, res.Error(), "failed to decode image")
	assert.Equal(t, int64(10), res.OriginalSize)
	assert.Zero(t, res.EncodedSize)
	assert.NoFileExists(t, filepath.Join(dir, "corrupt.webp"))

	_, ok := res.Ratio()
	assert.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConvert_MissingInput(t *testing.T) {
	dir := t.TempDir()

	res := New(nil).Convert(context.Background(), Request{InputPath: filepath.Join(dir, "nope.png"), Quality: 85})

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, os.ErrNotExist)
	assert.Zero(t, res.OriginalSize)
}

func TestConvert_UnwritableOutputLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "a.png")
	writeFixture(t, input, gradient(8, 8))

	output := filepath.Join(dir, "missing", "a.webp")
	res := New(nil).Convert(context.Background(), Request{InputPath: input, OutputPath: output, Quality: 85})

	require.Error(t, res.Err)
	assert.Contains(t, res.Error(), "failed to write output")
	assert.NoFileExists(t, output)
}

func TestConvert_Canceled(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "a.png")
	writeFixture(t, input, gradient(8, 8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(nil).Convert(ctx, Request{InputPath: input, Quality: 85})

	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.NoFileExists(t, DefaultOutputPath(input))
}

func TestResult_Ratio(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   float64
		wantOK bool
	}{
		{"half size", Result{OriginalSize: 1000, EncodedSize: 500}, 50, true},
		{"grew", Result{OriginalSize: 100, EncodedSize: 150}, -50, true},
		{"empty original", Result{OriginalSize: 0, EncodedSize: 10}, 0, false},
		{"failed", Result{OriginalSize: 100, Err: os.ErrNotExist}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.result.Ratio()
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a.png", "a.webp"},
		{filepath.Join("dir", "photo.JPEG"), filepath.Join("dir", "photo.webp")},
		{"archive.tar.gif", "archive.tar.webp"},
		{"noext", "noext.webp"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultOutputPath(tt.input), tt.input)
	}
}

func TestExtensions(t *testing.T) {
	for _, name := range []string{"a.jpg", "a.JPG", "a.Jpeg", "a.png", "a.bmp", "a.gif", "a.TIFF", "a.tif"} {
		assert.True(t, IsSupported(name), name)
	}
	for _, name := range []string{"a.webp", "a.txt", "a", ".png.bak", "jpg"} {
		assert.False(t, IsSupported(name), name)
	}

	assert.True(t, IsWebP("x.webp"))
	assert.True(t, IsWebP("x.WebP"))
	assert.False(t, IsWebP("x.png"))
}

func TestEncoderOptions(t *testing.T) {
	lossy := EncoderOptions(42, false)
	assert.False(t, lossy.Lossless)
	assert.Equal(t, float32(42), lossy.Quality)
	assert.Equal(t, MaxMethod, lossy.Method)

	lossless := EncoderOptions(42, true)
	assert.True(t, lossless.Lossless)
	assert.True(t, lossless.Exact)
	assert.Equal(t, webp.DefaultOptions().Quality, lossless.Quality)
}
