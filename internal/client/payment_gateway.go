package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"trainingportal-backend/internal/config"
	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/utils"
)

// ErrGateway wraps every failure of an invoice request.
var ErrGateway = errors.New("payment gateway request failed")

// nominalAmount is billed outside production so that test payments cost one unit.
const nominalAmount = "1"

const invoicePath = "/PaymentAPI/iframev2.1.php"

// PaymentGateway issues invoices for approved applications
type PaymentGateway interface {
	RequestInvoice(ctx context.Context, req *InvoiceRequest) (*InvoiceResponse, error)
}

// InvoiceRequest holds the billing fields for one application
type InvoiceRequest struct {
	ApplicationID int32
	AmountCents   int64
	ServiceID     string
	PayerIDNumber string
	PayerName     string
	PayerEmail    string
	PayerPhone    string
	Currency      string
	Description   string
}

// InvoiceResponse is what the gateway issued, plus the values we sent that
// must be persisted with the invoice.
type InvoiceResponse struct {
	InvoiceNumber string
	InvoiceLink   string
	BillReference string
	AmountCents   int64 // amount actually requested
}

// invoicePayload is the JSON body sent to the gateway
type invoicePayload struct {
	APIClientID          string `json:"apiClientID" validate:"required"`
	ServiceID            string `json:"serviceID" validate:"required"`
	BillRefNumber        string `json:"billRefNumber" validate:"required"`
	BillDesc             string `json:"billDesc" validate:"required,max=255"`
	ClientMSISDN         string `json:"clientMSISDN,omitempty"`
	ClientName           string `json:"clientName" validate:"required"`
	ClientIDNumber       string `json:"clientIDNumber" validate:"required"`
	ClientEmail          string `json:"clientEmail" validate:"required,email"`
	Currency             string `json:"currency" validate:"required,len=3,alpha"`
	AmountExpected       string `json:"amountExpected" validate:"required,numeric"`
	CallBackURLOnSuccess string `json:"callBackURLOnSuccess" validate:"required,url"`
	NotificationURL      string `json:"notificationURL" validate:"required,url"`
	Format               string `json:"format"`
	SendSTK              string `json:"sendSTK"`
	SecureHash           string `json:"secureHash" validate:"required"`
}

type invoiceReply struct {
	InvoiceLink   string `json:"invoice_link"`
	InvoiceNumber string `json:"invoice_number"`
}

// PaymentGatewayClient talks to the hosted-checkout invoice API. All settings
// come from the injected GatewayConfig.
type PaymentGatewayClient struct {
	cfg        config.GatewayConfig
	httpClient *http.Client
	validate   *validator.Validate
	now        func() time.Time
	newID      func() string
}

// NewPaymentGatewayClient creates a gateway client with the configured timeout
func NewPaymentGatewayClient(cfg config.GatewayConfig) *PaymentGatewayClient {
	return &PaymentGatewayClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		validate:   validator.New(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// RequestInvoice signs and submits an invoice request
func (c *PaymentGatewayClient) RequestInvoice(ctx context.Context, req *InvoiceRequest) (*InvoiceResponse, error) {
	billRef := BillReference(c.now(), req.ApplicationID, c.newID())

	amount := utils.FormatCents(req.AmountCents)
	requested := req.AmountCents
	if !c.cfg.IsProduction() {
		amount = nominalAmount
		requested = 100
	}

	callbackURL := CallbackURL(c.cfg, req.ApplicationID)
	payload := &invoicePayload{
		APIClientID:          c.cfg.ClientID,
		ServiceID:            req.ServiceID,
		BillRefNumber:        billRef,
		BillDesc:             req.Description,
		ClientMSISDN:         req.PayerPhone,
		ClientName:           req.PayerName,
		ClientIDNumber:       req.PayerIDNumber,
		ClientEmail:          req.PayerEmail,
		Currency:             req.Currency,
		AmountExpected:       amount,
		CallBackURLOnSuccess: callbackURL,
		NotificationURL:      callbackURL,
		Format:               "json",
		SendSTK:              "false",
	}
	payload.SecureHash = SecureHash(c.cfg.Key, c.cfg.ClientID, amount, req.ServiceID, req.PayerIDNumber,
		req.Currency, billRef, req.Description, req.PayerName, c.cfg.Secret)

	if err := c.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: invalid invoice payload: %v", ErrGateway, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	logger.ExternalServiceCall("payment-gateway", "RequestInvoice", "applicationID", req.ApplicationID, "billRef", billRef, "amount", amount)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+invoicePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrGateway, err)
		logger.ExternalServiceResult("payment-gateway", "RequestInvoice", err, "applicationID", req.ApplicationID)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, strings.TrimSpace(string(respBody)))
		logger.ExternalServiceResult("payment-gateway", "RequestInvoice", err, "applicationID", req.ApplicationID)
		return nil, err
	}

	var reply invoiceReply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		err = fmt.Errorf("%w: malformed response: %v", ErrGateway, err)
		logger.ExternalServiceResult("payment-gateway", "RequestInvoice", err, "applicationID", req.ApplicationID)
		return nil, err
	}
	if reply.InvoiceLink == "" || reply.InvoiceNumber == "" {
		err = fmt.Errorf("%w: response missing invoice link or number", ErrGateway)
		logger.ExternalServiceResult("payment-gateway", "RequestInvoice", err, "applicationID", req.ApplicationID)
		return nil, err
	}

	logger.ExternalServiceResult("payment-gateway", "RequestInvoice", nil, "applicationID", req.ApplicationID, "invoiceNumber", reply.InvoiceNumber)
	return &InvoiceResponse{
		InvoiceNumber: reply.InvoiceNumber,
		InvoiceLink:   reply.InvoiceLink,
		BillReference: billRef,
		AmountCents:   requested,
	}, nil
}

// BillReference builds the per-attempt reference {timestamp}_{applicationId}_{discriminator}.
func BillReference(now time.Time, applicationID int32, discriminator string) string {
	return fmt.Sprintf("%s_%d_%s", now.UTC().Format(time.RFC3339Nano), applicationID, discriminator)
}

// SecureHash signs the ordered billing fields: HMAC-SHA256 keyed by key over
// the concatenated fields, hex encoded, then base64 encoded.
func SecureHash(key string, fields ...string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(strings.Join(fields, "")))
	digest := hex.EncodeToString(mac.Sum(nil))
	return base64.StdEncoding.EncodeToString([]byte(digest))
}

// CallbackURL is where the gateway posts settlements for an application.
// Non-production deployments receive them on the /dev variant.
func CallbackURL(cfg config.GatewayConfig, applicationID int32) string {
	u := strings.TrimRight(cfg.CallbackBaseURL, "/") + "/api/payments/" + strconv.Itoa(int(applicationID))
	if !cfg.IsProduction() {
		u += "/dev"
	}
	return u
}
