package handlers

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/picpress/picpress/internal/registry"
)

// stubRenderer returns canned PDF bytes without a browser.
type stubRenderer struct {
	mu    sync.Mutex
	err   error
	block chan struct{}
}

func (s *stubRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	s.mu.Lock()
	block := s.block
	err := s.err
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return []byte("%PDF-stub"), nil
}

func newTestSession(t *testing.T, renderer *stubRenderer) *Session {
	t.Helper()
	session, err := NewSession(renderer, SessionOptions{Title: "test-album"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// newTestRouter mounts the handlers the same way the server does.
func newTestRouter(session *Session) chi.Router {
	images := NewImagesHandler(session)
	generate := NewGenerateHandler(session)

	r := chi.NewRouter()
	r.Get("/api/v1/health", HealthCheck)
	r.Get("/api/v1/images", images.List)
	r.Post("/api/v1/images", images.Upload)
	r.Delete("/api/v1/images/{id}", images.Delete)
	r.Post("/api/v1/images/{id}/move-up", images.MoveUp)
	r.Post("/api/v1/images/{id}/move-down", images.MoveDown)
	r.Post("/api/v1/generate", generate.Generate)
	r.Get("/api/v1/status", generate.Status)
	return r
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type uploadFile struct {
	name string
	data []byte
}

// multipartBody builds an image upload request body.
func multipartBody(t *testing.T, files ...uploadFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		part, err := writer.CreateFormFile("images", f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return body, writer.FormDataContentType()
}

func doRequest(router chi.Router, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// seedImage spools image bytes into the session directory and registers the
// asset directly, bypassing the upload endpoint.
func seedImage(t *testing.T, session *Session, name string, width, height int) registry.ImageAsset {
	t.Helper()
	id := registry.NewAssetID()
	path := filepath.Join(session.UploadDir(), id+"-"+name)
	if err := os.WriteFile(path, pngBytes(t, max(width, 1), max(height, 1)), 0o600); err != nil {
		t.Fatal(err)
	}
	asset := registry.ImageAsset{ID: id, SourceRef: path, Width: width, Height: height}
	session.Registry.Append(asset)
	return asset
}
