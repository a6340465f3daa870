package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/service"
)

// PaymentHandler receives settlement callbacks from the payment gateway.
// Responses are plain text because the gateway only inspects the status code.
type PaymentHandler struct {
	settlements service.SettlementService
}

func NewPaymentHandler(settlements service.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlements: settlements}
}

// Callback handles POST /api/payments/{applicationId} and its /dev variant.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	id, ok := pathID(r, "applicationId")
	if !ok {
		writeText(w, http.StatusNotFound, "Application not found")
		return
	}

	var payload service.SettlementPayload
	if err := decodeCallback(w, r, &payload); err != nil {
		log.Warn("Malformed payment callback", "application_id", id, "error", err)
		writeText(w, http.StatusInternalServerError, "Invalid payment payload")
		return
	}

	res, err := h.settlements.RecordSettlement(r.Context(), id, &payload)
	switch {
	case err == nil && res.Duplicate:
		log.Info("Payment callback replayed", "application_id", id, "invoice_number", payload.InvoiceNumber)
		writeText(w, http.StatusOK, "Payment already recorded")
	case err == nil:
		writeText(w, http.StatusOK, "Payment recorded")
	case errors.Is(err, service.ErrNotFound):
		writeText(w, http.StatusNotFound, service.UserMessage(err))
	case errors.Is(err, service.ErrValidation):
		log.Warn("Rejected payment callback", "application_id", id, "error", err)
		writeText(w, http.StatusInternalServerError, service.UserMessage(err))
	default:
		logger.ErrorContext(r.Context(), "Payment callback failed", "application_id", id, "error", err)
		writeText(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeCallback accepts unknown fields since the gateway adds them freely.
func decodeCallback(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, text)
}
