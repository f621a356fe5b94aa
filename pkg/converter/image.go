package converter

import (
	"fmt"
	"image"
	"io"

	// Decoders for every supported source extension.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// ColorMode is the pixel layout an image is normalized to before encoding.
type ColorMode string

const (
	ModeRGB  ColorMode = "RGB"
	ModeRGBA ColorMode = "RGBA"
)

// decodeImage decodes any registered raster format
func decodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// normalize converts img into one of exactly two layouts: *image.NRGBA when
// it carries transparency, an opaque *image.RGBA otherwise. The result is
// always anchored at the origin.
func normalize(img image.Image) (image.Image, ColorMode) {
	bounds := img.Bounds()
	rect := image.Rect(0, 0, bounds.Dx(), bounds.Dy())

	if hasAlpha(img) {
		if nrgba, ok := img.(*image.NRGBA); ok {
			return originNRGBA(nrgba), ModeRGBA
		}
		dst := image.NewNRGBA(rect)
		draw.Draw(dst, rect, img, bounds.Min, draw.Src)
		return dst, ModeRGBA
	}

	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) {
		return rgba, ModeRGB
	}
	dst := image.NewRGBA(rect)
	draw.Draw(dst, rect, img, bounds.Min, draw.Src)
	return dst, ModeRGB
}

// originNRGBA copies rows verbatim; going through draw would premultiply
// and lose precision at low alpha.
func originNRGBA(src *image.NRGBA) *image.NRGBA {
	bounds := src.Bounds()
	if bounds.Min == (image.Point{}) {
		return src
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+bounds.Dx()*4]
		copy(row, src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):])
	}
	return dst
}

// hasAlpha reports whether any pixel of img is not fully opaque. The
// standard image types answer through Opaque; anything else is scanned.
func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
