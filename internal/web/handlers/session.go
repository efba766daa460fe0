package handlers

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/picpress/picpress/internal/encode"
	"github.com/picpress/picpress/internal/layout"
	"github.com/picpress/picpress/internal/pipeline"
	"github.com/picpress/picpress/internal/registry"
	"github.com/picpress/picpress/internal/render"
	"github.com/picpress/picpress/internal/sink"
)

// CaptureSink stores the most recent rendered document so the HTTP layer
// can stream it back to the client.
type CaptureSink struct {
	mu  sync.Mutex
	doc sink.Document
	ok  bool
}

func (c *CaptureSink) Present(ctx context.Context, doc sink.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = doc
	c.ok = true
	return nil
}

// Last returns the most recently presented document, if any.
func (c *CaptureSink) Last() (sink.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc, c.ok
}

// Session owns the interactive image list and its generation pipeline.
// Uploaded images are spooled to a session-scoped temp directory that acts
// as the raw byte store behind the encoder.
type Session struct {
	Registry  *registry.Registry
	Pipeline  *pipeline.Pipeline
	Capture   *CaptureSink
	uploadDir string
}

// SessionOptions configure a new editing session.
type SessionOptions struct {
	Page        layout.PageSpec
	Title       string
	Concurrency int
}

// NewSession creates an empty session wired to the given render backend.
func NewSession(renderer render.Renderer, opts SessionOptions) (*Session, error) {
	uploadDir, err := os.MkdirTemp("", "picpress-session-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	reg := registry.New()
	capture := &CaptureSink{}
	pipe := pipeline.New(reg, encode.NewEncoder(encode.FileReader{}), renderer, capture, pipeline.Options{
		Page:        opts.Page,
		Title:       opts.Title,
		Concurrency: opts.Concurrency,
	})

	return &Session{
		Registry:  reg,
		Pipeline:  pipe,
		Capture:   capture,
		uploadDir: uploadDir,
	}, nil
}

// UploadDir is where this session spools raw image bytes.
func (s *Session) UploadDir() string {
	return s.uploadDir
}

// Close removes the session's spooled images.
func (s *Session) Close() error {
	return os.RemoveAll(s.uploadDir)
}
