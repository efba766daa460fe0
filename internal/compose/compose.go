// Package compose builds the page-by-page document description and renders
// it as the HTML markup consumed by the render backend.
package compose

import (
	"fmt"

	"github.com/picpress/picpress/internal/encode"
	"github.com/picpress/picpress/internal/layout"
)

// Entry pairs an encoded payload with the source image's pixel dimensions.
type Entry struct {
	Payload encode.Payload
	Width   int
	Height  int
}

// Page is one self-contained page description: a payload, its placement
// geometry, and whether a page break follows.
type Page struct {
	Payload    encode.Payload
	Geometry   layout.Geometry
	BreakAfter bool
}

// Document is the ordered sequence of pages for one generation run. It is
// consumed once by the render backend and then discarded.
type Document struct {
	Spec  layout.PageSpec
	Pages []Page
}

// Compose produces one page per entry, in entry order. BreakAfter is set on
// every page except the last. Composition is a pure function of its inputs:
// the same entries and page spec always yield the same document.
func Compose(entries []Entry, spec layout.PageSpec) (Document, error) {
	pages := make([]Page, len(entries))
	for i, e := range entries {
		geom, err := layout.FitPixels(e.Width, e.Height, spec)
		if err != nil {
			return Document{}, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages[i] = Page{
			Payload:    e.Payload,
			Geometry:   geom,
			BreakAfter: i < len(entries)-1,
		}
	}
	return Document{Spec: spec, Pages: pages}, nil
}
