package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingportal-backend/internal/config"
)

func gatewayConfig(baseURL, env string) config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:         baseURL,
		ClientID:        "client-1",
		Secret:          "s3cret",
		Key:             "k3y",
		Environment:     env,
		CallbackBaseURL: "https://portal.test",
		TimeoutMs:       2000,
	}
}

func invoiceRequest() *InvoiceRequest {
	return &InvoiceRequest{
		ApplicationID: 12,
		AmountCents:   15000050,
		ServiceID:     "svc-kes",
		PayerIDNumber: "12345678",
		PayerName:     "Wanjiru Kamau",
		PayerEmail:    "wanjiru@test.com",
		Currency:      "KES",
		Description:   "Public Finance Management",
	}
}

func TestSecureHash(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("key"))
	mac.Write([]byte("abc"))
	want := base64.StdEncoding.EncodeToString([]byte(hex.EncodeToString(mac.Sum(nil))))

	assert.Equal(t, want, SecureHash("key", "a", "b", "c"))
	assert.NotEqual(t, want, SecureHash("key", "a", "c", "b"))
}

func TestBillReference(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 123, time.UTC)
	ref := BillReference(now, 12, "abc")
	assert.Equal(t, "2025-05-01T10:00:00.000000123Z_12_abc", ref)

	assert.NotEqual(t, BillReference(now, 12, "abc"), BillReference(now, 12, "abd"))
}

func TestCallbackURL(t *testing.T) {
	assert.Equal(t, "https://portal.test/api/payments/12", CallbackURL(gatewayConfig("", "production"), 12))
	assert.Equal(t, "https://portal.test/api/payments/12/dev", CallbackURL(gatewayConfig("", "staging"), 12))
}

func TestPaymentGatewayClient_RequestInvoice(t *testing.T) {
	ctx := context.Background()

	var received invoicePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, invoicePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"invoice_link":"https://pay.test/i/INV-9","invoice_number":"INV-9"}`))
	}))
	defer server.Close()

	t.Run("ProductionBillsRealFee", func(t *testing.T) {
		c := NewPaymentGatewayClient(gatewayConfig(server.URL, "production"))
		c.now = func() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) }
		c.newID = func() string { return "d1" }

		resp, err := c.RequestInvoice(ctx, invoiceRequest())
		require.NoError(t, err)
		assert.Equal(t, "INV-9", resp.InvoiceNumber)
		assert.Equal(t, "https://pay.test/i/INV-9", resp.InvoiceLink)
		assert.Equal(t, "2025-05-01T10:00:00Z_12_d1", resp.BillReference)
		assert.Equal(t, int64(15000050), resp.AmountCents)

		assert.Equal(t, "150000.50", received.AmountExpected)
		assert.Equal(t, "https://portal.test/api/payments/12", received.NotificationURL)
		wantHash := SecureHash("k3y", "client-1", "150000.50", "svc-kes", "12345678", "KES",
			"2025-05-01T10:00:00Z_12_d1", "Public Finance Management", "Wanjiru Kamau", "s3cret")
		assert.Equal(t, wantHash, received.SecureHash)
	})

	t.Run("NonProductionBillsNominalAmount", func(t *testing.T) {
		c := NewPaymentGatewayClient(gatewayConfig(server.URL, "development"))

		resp, err := c.RequestInvoice(ctx, invoiceRequest())
		require.NoError(t, err)
		assert.Equal(t, "1", received.AmountExpected)
		assert.Equal(t, int64(100), resp.AmountCents)
		assert.True(t, strings.HasSuffix(received.CallBackURLOnSuccess, "/api/payments/12/dev"))
	})

	t.Run("UniqueBillReferences", func(t *testing.T) {
		c := NewPaymentGatewayClient(gatewayConfig(server.URL, "production"))
		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			resp, err := c.RequestInvoice(ctx, invoiceRequest())
			require.NoError(t, err)
			assert.False(t, seen[resp.BillReference], resp.BillReference)
			seen[resp.BillReference] = true
		}
	})
}

func TestPaymentGatewayClient_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("Non2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad hash", http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := NewPaymentGatewayClient(gatewayConfig(server.URL, "production")).RequestInvoice(ctx, invoiceRequest())
		assert.True(t, errors.Is(err, ErrGateway))
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("MissingInvoiceNumber", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"invoice_link":"https://pay.test/i/1"}`))
		}))
		defer server.Close()

		_, err := NewPaymentGatewayClient(gatewayConfig(server.URL, "production")).RequestInvoice(ctx, invoiceRequest())
		assert.ErrorIs(t, err, ErrGateway)
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		req := invoiceRequest()
		req.PayerEmail = "not-an-email"
		_, err := NewPaymentGatewayClient(gatewayConfig("http://127.0.0.1:1", "production")).RequestInvoice(ctx, req)
		assert.ErrorIs(t, err, ErrGateway)
		assert.Contains(t, err.Error(), "invalid invoice payload")
	})

	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		}))
		defer server.Close()

		cfg := gatewayConfig(server.URL, "production")
		cfg.TimeoutMs = 50
		_, err := NewPaymentGatewayClient(cfg).RequestInvoice(ctx, invoiceRequest())
		assert.ErrorIs(t, err, ErrGateway)
	})
}
