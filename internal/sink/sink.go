// Package sink presents finished documents to the user. Which sink runs is
// a capability of the environment: the CLI saves to a file, the web surface
// captures the document for the HTTP response.
package sink

import "context"

// Document is a finished render handed to a save/share capability.
type Document struct {
	Title string
	Data  []byte
}

// Sink presents a finished document. Presentation is best effort from the
// pipeline's perspective: the document exists once rendered, and a failed
// Present does not fail the run.
type Sink interface {
	Present(ctx context.Context, doc Document) error
}
