package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/picpress/picpress/internal/layout"
	"github.com/picpress/picpress/internal/pipeline"
	"github.com/picpress/picpress/internal/sink"
)

// GenerateHandler runs the document pipeline for the session.
type GenerateHandler struct {
	session *Session
}

// NewGenerateHandler creates a generate handler for the session.
func NewGenerateHandler(session *Session) *GenerateHandler {
	return &GenerateHandler{session: session}
}

// Generate runs one generation and streams the resulting document back.
// A second request while a run is in flight gets 409; an empty list gets
// 400 before the run starts.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	err := h.session.Pipeline.Generate(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrGenerationInProgress):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, pipeline.ErrEmptyRegistry):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	default:
		var encErr *pipeline.EncodeError
		if errors.As(err, &encErr) {
			respondError(w, http.StatusUnprocessableEntity, encErr.Error())
			return
		}
		if errors.Is(err, layout.ErrInvalidDimensions) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("generation failed: %v", err))
		return
	}

	doc, ok := h.session.Capture.Last()
	if !ok {
		respondError(w, http.StatusInternalServerError, "generation produced no document")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, sink.SafeFileName(doc.Title)))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.Write(doc.Data)
}

// Status reports the pipeline state, page count, and last error.
func (h *GenerateHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Pipeline.Status())
}
