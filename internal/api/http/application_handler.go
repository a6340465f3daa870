package http

import (
	"net/http"
	"strings"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/security"
	"trainingportal-backend/internal/service"
)

type ApplicationHandler struct {
	approvals    service.ApprovalService
	applications service.ApplicationService
}

func NewApplicationHandler(approvals service.ApprovalService, applications service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{approvals: approvals, applications: applications}
}

type approveBody struct {
	FeeCents int64  `json:"fee_cents"`
	Message  string `json:"message"`
}

type approveResponse struct {
	Success     bool                `json:"success"`
	Application *domain.Application `json:"application"`
	Invoice     *domain.Invoice     `json:"invoice"`
	Documents   []*domain.Document  `json:"documents"`
	EmailSent   bool                `json:"email_sent"`
	Warning     string              `json:"warning,omitempty"`
}

// Approve handles POST /api/admin/applications/{id}/approve.
func (h *ApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Application not found"})
		return
	}
	var body approveBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	res, err := h.approvals.Approve(r.Context(), security.ActorFromContext(r.Context()), &service.ApproveRequest{
		ApplicationID: id,
		FeeCents:      body.FeeCents,
		Message:       body.Message,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := approveResponse{
		Success:     true,
		Application: res.Application,
		Invoice:     res.Invoice,
		Documents:   res.Documents,
		EmailSent:   res.EmailSent,
	}
	if !res.EmailSent {
		resp.Warning = "Application approved but the notification email could not be sent"
	}
	writeJSON(w, http.StatusOK, resp)
}

type rejectBody struct {
	Reason string `json:"reason"`
}

// Reject handles POST /api/admin/applications/{id}/reject.
func (h *ApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Application not found"})
		return
	}
	var body rejectBody
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
			return
		}
	}

	app, err := h.applications.RejectApplication(r.Context(), security.ActorFromContext(r.Context()), id, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "application": app})
}

type listResponse struct {
	Applications []domain.Application `json:"applications"`
	Total        int32                `json:"total"`
	Page         int32                `json:"page"`
	PageSize     int32                `json:"page_size"`
}

// List handles GET /api/admin/applications.
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.ApplicationStatus(strings.ToUpper(r.URL.Query().Get("status")))
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	apps, total, err := h.applications.ListApplications(r.Context(), security.ActorFromContext(r.Context()), status, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if apps == nil {
		apps = []domain.Application{}
	}
	writeJSON(w, http.StatusOK, listResponse{Applications: apps, Total: total, Page: page, PageSize: pageSize})
}

// Get handles GET /api/applications/{id}.
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Application not found"})
		return
	}
	details, err := h.applications.GetApplication(r.Context(), security.ActorFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// Delete handles DELETE /api/admin/applications/{id}.
func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Application not found"})
		return
	}
	if err := h.applications.DeleteApplication(r.Context(), security.ActorFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RemoveParticipant handles DELETE /api/applications/{id}/participants/{participantId}.
func (h *ApplicationHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Application not found"})
		return
	}
	participantID, ok := pathID(r, "participantId")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Participant not found"})
		return
	}
	if err := h.applications.RemoveParticipant(r.Context(), security.ActorFromContext(r.Context()), id, participantID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
