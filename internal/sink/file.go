package sink

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FileSink writes the document to an exact path.
type FileSink struct {
	Path string
}

func (s FileSink) Present(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(s.Path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	log.Printf("document saved to %s", s.Path)
	return nil
}

// DirSink writes the document into a directory, deriving the file name from
// the document title.
type DirSink struct {
	Dir string
}

func (s DirSink) Present(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(s.Dir, SafeFileName(doc.Title)+".pdf")
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	log.Printf("document saved to %s", path)
	return nil
}

// SafeFileName turns a document title into a portable file name: diacritics
// removed (e.g. "Jiří" -> "Jiri"), spaces collapsed to dashes, anything
// outside [A-Za-z0-9._-] dropped.
func SafeFileName(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	name, _, _ := transform.String(t, title)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, name)
	name = strings.Trim(name, ".")
	if name == "" {
		name = "document"
	}
	return name
}
