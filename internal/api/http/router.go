package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"trainingportal-backend/internal/config"
	"trainingportal-backend/internal/security"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers groups the route handlers mounted by NewRouter. Documents.Download
// is only mounted when ServeFiles is set.
type Handlers struct {
	Applications  *ApplicationHandler
	Payments      *PaymentHandler
	Documents     *DocumentHandler
	Notifications *NotificationHandler
	ServeFiles    bool
}

func NewRouter(h Handlers, tm security.TokenManager, db Pinger) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger)
	r.Use(NewAuthMiddleware(tm).Handler)

	r.HandleFunc("/health", healthHandler(db)).Methods(http.MethodGet).Name(config.RouteHealth)

	r.HandleFunc("/api/payments/{applicationId}", h.Payments.Callback).
		Methods(http.MethodPost).Name(config.RoutePaymentCallback)
	r.HandleFunc("/api/payments/{applicationId}/dev", h.Payments.Callback).
		Methods(http.MethodPost).Name(config.RoutePaymentCallbackDev)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.HandleFunc("/applications", h.Applications.List).
		Methods(http.MethodGet).Name(config.RouteListApplications)
	admin.HandleFunc("/applications/{id}/approve", h.Applications.Approve).
		Methods(http.MethodPost).Name(config.RouteApproveApplication)
	admin.HandleFunc("/applications/{id}/reject", h.Applications.Reject).
		Methods(http.MethodPost).Name(config.RouteRejectApplication)
	admin.HandleFunc("/applications/{id}", h.Applications.Delete).
		Methods(http.MethodDelete).Name(config.RouteDeleteApplication)

	r.HandleFunc("/api/applications/{id}", h.Applications.Get).
		Methods(http.MethodGet).Name(config.RouteGetApplication)
	r.HandleFunc("/api/applications/{id}/participants/{participantId}", h.Applications.RemoveParticipant).
		Methods(http.MethodDelete).Name(config.RouteRemoveParticipant)

	r.HandleFunc("/api/notifications", h.Notifications.List).
		Methods(http.MethodGet).Name(config.RouteListNotifications)
	r.HandleFunc("/api/notifications/{id}/read", h.Notifications.MarkRead).
		Methods(http.MethodPost).Name(config.RouteMarkNotificationRead)

	r.HandleFunc("/templates/{applicationId}/{template}", h.Documents.Preview).
		Methods(http.MethodGet).Name(config.RoutePreviewDocument)
	if h.ServeFiles {
		r.HandleFunc("/files/{key}", h.Documents.Download).
			Methods(http.MethodGet).Name(config.RouteStorageDownload)
	}

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
