// Package layout computes per-page scaling and centering geometry for
// images placed one per page. All coordinates are CSS pixels at 96 DPI,
// origin at the top-left of the page.
package layout

import (
	"errors"
	"fmt"
)

// A4 page size in CSS pixels at 96 DPI.
const (
	A4WidthPx  = 794.0
	A4HeightPx = 1123.0
)

// ErrInvalidDimensions is returned when an image or page dimension is zero
// or negative. Geometry is undefined for degenerate input, so it is rejected
// before any computation instead of producing NaN or Inf offsets.
var ErrInvalidDimensions = errors.New("dimensions must be positive")

// PageSpec is the fixed size of every page in a document.
type PageSpec struct {
	Width  float64
	Height float64
}

// A4 returns the default page specification (A4 portrait at 96 DPI).
func A4() PageSpec {
	return PageSpec{Width: A4WidthPx, Height: A4HeightPx}
}

// Geometry places a scaled image on a page. RenderW and RenderH never
// exceed the page, the aspect ratio of the source is preserved exactly,
// and the offsets center the remaining space on both axes.
type Geometry struct {
	RenderW float64
	RenderH float64
	OffsetX float64
	OffsetY float64
}

// Fit maximizes an image within a page while preserving its aspect ratio.
// The width-constrained candidate (render width equals page width) wins
// whenever its height fits the page; otherwise the image is scaled to the
// page height and letterboxed left and right.
func Fit(imgW, imgH, pageW, pageH float64) (Geometry, error) {
	if imgW <= 0 || imgH <= 0 {
		return Geometry{}, fmt.Errorf("%w: image %gx%g", ErrInvalidDimensions, imgW, imgH)
	}
	if pageW <= 0 || pageH <= 0 {
		return Geometry{}, fmt.Errorf("%w: page %gx%g", ErrInvalidDimensions, pageW, pageH)
	}

	ratio := imgW / imgH
	renderW := pageW
	renderH := pageW / ratio
	if renderH > pageH {
		renderH = pageH
		renderW = pageH * ratio
	}

	return Geometry{
		RenderW: renderW,
		RenderH: renderH,
		OffsetX: (pageW - renderW) / 2,
		OffsetY: (pageH - renderH) / 2,
	}, nil
}

// FitPixels fits an image given in integer pixel dimensions onto a page.
func FitPixels(width, height int, page PageSpec) (Geometry, error) {
	return Fit(float64(width), float64(height), page.Width, page.Height)
}
