package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/render"
	"trainingportal-backend/internal/security"
	"trainingportal-backend/internal/service"
)

type DocumentHandler struct {
	applications service.ApplicationService
}

func NewDocumentHandler(applications service.ApplicationService) *DocumentHandler {
	return &DocumentHandler{applications: applications}
}

// Preview handles GET /templates/{applicationId}/{template}. The document is
// rendered from current data and never stored.
func (h *DocumentHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "applicationId")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Application not found"})
		return
	}
	tmpl, err := render.ParseTemplate(mux.Vars(r)["template"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Template not found"})
		return
	}

	pdf, err := h.applications.PreviewDocument(r.Context(), security.ActorFromContext(r.Context()), id, tmpl)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", fmt.Sprintf("%d-%s.pdf", id, tmpl)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// Download handles GET /files/{key}, serving documents kept by the
// filesystem-backed store to administrators and the application owner.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	reader, err := h.applications.OpenDocument(r.Context(), security.ActorFromContext(r.Context()), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		logger.ErrorContext(r.Context(), "Failed to stream stored document", "key", key, "error", err)
	}
}
