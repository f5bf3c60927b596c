package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
)

// Canvas describes the fixed raster the device displays.
type Canvas struct {
	Width  int
	Height int
	// CropMargin shrinks the extent the source is scaled into, leaving a
	// border of canvas background on every edge.
	CropMargin int
}

// DefaultCanvas is the nominal device screen.
var DefaultCanvas = Canvas{Width: 320, Height: 240}

// Decode reads a source image in any registered format.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Letterbox scales src proportionally to fit the canvas extent, centers it,
// and fills the remaining area with black.
func (c Canvas) Letterbox(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	extentW := c.Width - 2*c.CropMargin
	extentH := c.Height - 2*c.CropMargin
	if extentW <= 0 || extentH <= 0 {
		return dst
	}

	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	if srcW == 0 || srcH == 0 {
		return dst
	}

	scaledW := extentW
	scaledH := srcH * extentW / srcW
	if scaledH > extentH {
		scaledH = extentH
		scaledW = srcW * extentH / srcH
	}
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}

	x := (c.Width - scaledW) / 2
	y := (c.Height - scaledH) / 2
	target := image.Rect(x, y, x+scaledW, y+scaledH)

	draw.CatmullRom.Scale(dst, target, src, src.Bounds(), draw.Src, nil)
	return dst
}

// EncodePNG renders img as PNG bytes. The stdlib encoder is deterministic for
// a given pixel buffer, which keeps image digests stable across runs.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// CanonicalPNG decodes raw source bytes and produces the canonical
// letterboxed raster as PNG bytes.
func (c Canvas) CanonicalPNG(raw []byte) ([]byte, error) {
	img, err := Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return EncodePNG(c.Letterbox(img))
}
