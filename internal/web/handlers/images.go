package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/picpress/picpress/internal/encode"
	"github.com/picpress/picpress/internal/registry"
)

// ImagesHandler manages the session's ordered image list.
type ImagesHandler struct {
	session *Session
}

// NewImagesHandler creates an images handler for the session.
func NewImagesHandler(session *Session) *ImagesHandler {
	return &ImagesHandler{session: session}
}

type imageResponse struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Position int    `json:"position"`
}

func (h *ImagesHandler) listResponse() []imageResponse {
	assets := h.session.Registry.Snapshot()
	result := make([]imageResponse, len(assets))
	for i, a := range assets {
		result[i] = imageResponse{
			ID:       a.ID,
			Source:   filepath.Base(a.SourceRef),
			Width:    a.Width,
			Height:   a.Height,
			Position: i,
		}
	}
	return result
}

// saveUploadedImage spools one multipart file into the session directory
// and probes its intrinsic pixel dimensions.
func saveUploadedImage(fileHeader *multipart.FileHeader, dir, id string) (registry.ImageAsset, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return registry.ImageAsset{}, fmt.Errorf("failed to open upload %s: %w", fileHeader.Filename, err)
	}
	defer file.Close()

	// Keep the original name in the stored path so the content-type
	// heuristic can see the extension.
	safeName := id + "-" + filepath.Base(fileHeader.Filename)
	path := filepath.Join(dir, safeName)
	out, err := os.Create(path) //nolint:gosec // name sanitized via filepath.Base
	if err != nil {
		return registry.ImageAsset{}, fmt.Errorf("failed to create spool file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return registry.ImageAsset{}, fmt.Errorf("failed to save upload: %w", err)
	}
	out.Close()

	width, height, err := encode.Probe(path)
	if err != nil {
		return registry.ImageAsset{}, fmt.Errorf("unreadable image %s: %w", fileHeader.Filename, err)
	}

	return registry.ImageAsset{
		ID:        id,
		SourceRef: path,
		Width:     width,
		Height:    height,
	}, nil
}

// Upload appends a batch of images to the end of the list, preserving the
// batch order. An empty batch (user cancelled the picker) is a no-op, not
// an error.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{"added": 0, "images": h.listResponse()})
		return
	}

	batch := make([]registry.ImageAsset, 0, len(files))
	for _, fh := range files {
		asset, err := saveUploadedImage(fh, h.session.UploadDir(), registry.NewAssetID())
		if err != nil {
			log.Printf("upload rejected: %v", sanitizeForLog(err.Error()))
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		batch = append(batch, asset)
	}
	h.session.Registry.Append(batch...)

	respondJSON(w, http.StatusOK, map[string]any{"added": len(batch), "images": h.listResponse()})
}

// List returns the current image list in page order.
func (h *ImagesHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.listResponse())
}

// Delete removes an image by id. Unknown ids are a no-op.
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.session.Registry.Remove(id)
	respondJSON(w, http.StatusOK, map[string]any{"images": h.listResponse()})
}

// MoveUp exchanges an image with its predecessor. Boundary calls leave the
// list unchanged.
func (h *ImagesHandler) MoveUp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if idx := h.session.Registry.IndexOf(id); idx >= 0 {
		h.session.Registry.MoveUp(idx)
	}
	respondJSON(w, http.StatusOK, map[string]any{"images": h.listResponse()})
}

// MoveDown exchanges an image with its successor. Boundary calls leave the
// list unchanged.
func (h *ImagesHandler) MoveDown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if idx := h.session.Registry.IndexOf(id); idx >= 0 {
		h.session.Registry.MoveDown(idx)
	}
	respondJSON(w, http.StatusOK, map[string]any{"images": h.listResponse()})
}
