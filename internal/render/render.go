// Package render drives the backend that turns page markup into a finished
// document.
package render

import "context"

// Renderer turns HTML page markup into document bytes. Implementations own
// their backend lifecycle; a failed render is reported as an error, never a
// partial document.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}
