// Package gateway is the HTTP client for the SHKeeper crypto payment gateway.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"

	apperrors "cryptotopup/internal/errors"
)

const (
	apiKeyHeader   = "X-Shkeeper-API-Key"
	defaultTimeout = 15 * time.Second
)

var hundred = decimal.NewFromInt(100)

// Config holds gateway connection settings.
type Config struct {
	BaseURL        string
	APIKey         string
	CallbackAPIKey string
	Timeout        time.Duration
	Crypto         string
	Currency       string
}

// GatewayError is returned for every failed gateway call. It matches
// apperrors.ErrGateway and whatever cause it wraps.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := "shkeeper " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status=%d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{apperrors.ErrGateway}
	}
	return []error{apperrors.ErrGateway, e.Err}
}

// InvoiceRequest describes an invoice to create.
type InvoiceRequest struct {
	AmountMinor int64
	OrderID     string
	Description string
	CallbackURL string
	SuccessURL  string
	FailURL     string
}

type createInvoiceBody struct {
	Amount         json.Number `json:"amount"`
	Currency       string      `json:"currency"`
	ExternalID     string      `json:"external_id"`
	Cryptocurrency string      `json:"cryptocurrency"`
	Description    string      `json:"description"`
	CallbackURL    string      `json:"callback_url,omitempty"`
	Webhook        string      `json:"webhook,omitempty"`
	SuccessURL     string      `json:"success_url,omitempty"`
	FailURL        string      `json:"fail_url,omitempty"`
}

// Client talks to the gateway API.
type Client struct {
	cfg  Config
	http *fasthttp.Client
}

// New creates a gateway client. CallbackAPIKey falls back to APIKey.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.CallbackAPIKey == "" {
		cfg.CallbackAPIKey = cfg.APIKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:         "cryptotopup",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
	}
}

// IsConfigured reports whether base URL and API key are set.
func (c *Client) IsConfigured() bool {
	return c != nil && c.cfg.BaseURL != "" && c.cfg.APIKey != ""
}

// MajorAmount converts minor units to the gateway's decimal major units.
func MajorAmount(amountMinor int64) decimal.Decimal {
	return decimal.NewFromInt(amountMinor).Div(hundred).Round(2)
}

// CreateInvoice creates an invoice carrying OrderID as the external reference.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	amount := MajorAmount(req.AmountMinor)
	body := createInvoiceBody{
		Amount:         json.Number(amount.StringFixed(2)),
		Currency:       c.cfg.Currency,
		ExternalID:     req.OrderID,
		Cryptocurrency: c.cfg.Crypto,
		Description:    req.Description,
		CallbackURL:    req.CallbackURL,
		Webhook:        req.CallbackURL,
		SuccessURL:     req.SuccessURL,
		FailURL:        req.FailURL,
	}

	slog.InfoContext(ctx, "creating shkeeper invoice", "order_id", req.OrderID, "amount", amount.StringFixed(2), "crypto", c.cfg.Crypto)
	raw, err := c.do(ctx, "create_invoice", fasthttp.MethodPost, "/api/v1/invoice", body)
	if err != nil {
		return nil, err
	}

	invoice := ParseInvoice(raw)
	if invoice.ExternalID == "" {
		invoice.ExternalID = req.OrderID
	}
	if invoice.Status == "" {
		invoice.Status = "new"
	}
	if invoice.Crypto == "" {
		invoice.Crypto = c.cfg.Crypto
	}
	return invoice, nil
}

// GetInvoiceStatus looks an invoice up by invoice ID, or by external ID when
// the invoice ID is empty.
func (c *Client) GetInvoiceStatus(ctx context.Context, invoiceID, externalID string) (*Invoice, error) {
	var path string
	switch {
	case invoiceID != "":
		path = "/api/v1/invoice/" + url.PathEscape(invoiceID)
	case externalID != "":
		path = "/api/v1/invoice/external/" + url.PathEscape(externalID)
	default:
		return nil, &GatewayError{Op: "get_invoice_status", Err: fmt.Errorf("invoice_id or external_id is required")}
	}

	raw, err := c.do(ctx, "get_invoice_status", fasthttp.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return ParseInvoice(raw), nil
}

// VerifyCallback compares the presented header value with the callback key.
func (c *Client) VerifyCallback(presented string) bool {
	if c == nil {
		return false
	}
	expected := strings.TrimSpace(c.cfg.CallbackAPIKey)
	actual := strings.TrimSpace(presented)
	if expected == "" || actual == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}

func (c *Client) do(ctx context.Context, op, method, path string, payload interface{}) (map[string]interface{}, error) {
	if !c.IsConfigured() {
		return nil, &GatewayError{Op: op, Err: apperrors.ErrNotConfigured}
	}

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, &GatewayError{Op: op, Err: context.DeadlineExceeded}
		}
		if left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &GatewayError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		req.Header.SetContentType("application/json")
		req.SetBody(data)
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		slog.ErrorContext(ctx, "shkeeper request failed", "op", op, "error", err)
		return nil, &GatewayError{Op: op, Err: err}
	}

	body := string(resp.Body())
	if status := resp.StatusCode(); status >= 300 {
		slog.ErrorContext(ctx, "shkeeper returned error status", "op", op, "status", status, "body", body)
		return nil, &GatewayError{Op: op, StatusCode: status, Body: body}
	}
	if strings.TrimSpace(body) == "" {
		return map[string]interface{}{}, nil
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		slog.ErrorContext(ctx, "shkeeper returned non-JSON body", "op", op, "body", body)
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode(), Body: body, Err: fmt.Errorf("decode response: %w", err)}
	}
	object, ok := decoded.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}, nil
	}
	return object, nil
}
