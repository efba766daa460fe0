// Package encode turns raw image bytes into base64 payloads ready for
// inline embedding in page markup.
package encode

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// Supported content-type tags for encoded payloads.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

// Payload is a base64-encoded image plus its content-type tag. Its lifetime
// is scoped to a single generation run; payloads are never cached.
type Payload struct {
	MimeType string
	Data     string
}

// DataURI returns the payload as an inline-embeddable data URI.
func (p Payload) DataURI() string {
	return "data:" + p.MimeType + ";base64," + p.Data
}

// ByteReader retrieves the raw bytes behind an image locator.
type ByteReader interface {
	Read(ctx context.Context, locator string) ([]byte, error)
}

// FileReader reads locators as filesystem paths.
type FileReader struct{}

func (FileReader) Read(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(locator)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", locator, err)
	}
	return data, nil
}

// MimeFromLocator classifies a locator by its textual content: any
// case-insensitive match of "png" selects image/png, everything else
// defaults to image/jpeg. This is a heuristic, not content sniffing; a
// mislabeled extension yields a mislabeled payload tag.
func MimeFromLocator(locator string) string {
	if strings.Contains(strings.ToLower(locator), "png") {
		return MimePNG
	}
	return MimeJPEG
}

// Encoder converts image locators into payloads using an injected reader.
type Encoder struct {
	reader ByteReader
}

// NewEncoder creates an encoder backed by the given byte reader.
func NewEncoder(reader ByteReader) *Encoder {
	return &Encoder{reader: reader}
}

// Encode reads the bytes behind locator and returns the tagged payload.
func (e *Encoder) Encode(ctx context.Context, locator string) (Payload, error) {
	data, err := e.reader.Read(ctx, locator)
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		MimeType: MimeFromLocator(locator),
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}
