// Package backend is the HTTP client for the POS backend. Every response is
// wrapped in the {success, message, data} envelope.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sangkips/investify-till/internal/domain/entity"
	domainRepo "github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
	"github.com/sangkips/investify-till/pkg/apperror"
	"go.uber.org/zap"
)

// Config defines the HTTP client settings for the POS backend.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements every backend contract the till depends on.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

var (
	_ domainRepo.PaymentModeCatalog = (*Client)(nil)
	_ domainRepo.ProductCatalog     = (*Client)(nil)
	_ domainRepo.CustomerDirectory  = (*Client)(nil)
	_ domainRepo.DraftGateway       = (*Client)(nil)
	_ domainRepo.SalesGateway       = (*Client)(nil)
	_ domainRepo.MobileMoneyGateway = (*Client)(nil)
)

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

// NewClient constructs a client with sane defaults.
func NewClient(cfg Config, m *metrics.Metrics, logger *zap.Logger) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("backend: base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: m,
		logger:  logger.Named("backend"),
	}, nil
}

// response is a decoded envelope plus the HTTP status it arrived with.
type response struct {
	status int
	env    envelope
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300 && !r.env.failed()
}

// do performs one request. It only fails for transport or decoding problems;
// callers decide what a non-2xx status means.
func (c *Client) do(ctx context.Context, method, path, endpoint string, body any) (*response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode %s: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend: request %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveBackend(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("backend: call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveBackend(endpoint, resp.StatusCode, time.Since(start))

	out := &response{status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", endpoint, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out.env); err != nil {
		// Gateways in front of the backend answer errors with plain text.
		if out.status >= 300 {
			out.env.Message = strings.TrimSpace(string(raw))
			return out, nil
		}
		return nil, fmt.Errorf("backend: decode %s: %w", endpoint, err)
	}
	return out, nil
}

// call runs a request and maps any failure onto an AppError the cashier can
// read. data, when non-nil, receives the envelope's data field.
func (c *Client) call(ctx context.Context, method, path, endpoint string, body, data any) error {
	resp, err := c.do(ctx, method, path, endpoint, body)
	if err != nil {
		c.logger.Warn("backend call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return apperror.NewBackendError("")
	}
	if !resp.ok() {
		c.logger.Info("backend rejected request",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.status),
			zap.String("message", resp.env.Message),
		)
		if resp.status == http.StatusNotFound {
			err := apperror.NewNotFoundError(resourceName(endpoint))
			if resp.env.Message != "" {
				err.Message = resp.env.Message
			}
			return err
		}
		return apperror.NewBackendError(resp.env.Message)
	}
	if data == nil || len(resp.env.Data) == 0 || string(resp.env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.env.Data, data); err != nil {
		c.logger.Warn("backend returned malformed data", zap.String("endpoint", endpoint), zap.Error(err))
		return apperror.NewBackendError("")
	}
	return nil
}

func resourceName(endpoint string) string {
	switch {
	case strings.Contains(endpoint, "/customers"):
		return "Customer"
	case strings.Contains(endpoint, "/products"):
		return "Product"
	case strings.Contains(endpoint, "/invoices"):
		return "Invoice"
	case strings.Contains(endpoint, "/drafts"):
		return "Draft"
	case strings.Contains(endpoint, "/sales"):
		return "Sale"
	}
	return "Resource"
}

func (c *Client) ListPaymentModes(ctx context.Context) ([]entity.PaymentMode, error) {
	var modes []entity.PaymentMode
	if err := c.call(ctx, http.MethodGet, "/payment-modes", "GET /payment-modes", nil, &modes); err != nil {
		return nil, err
	}
	return modes, nil
}

func (c *Client) GetProduct(ctx context.Context, code string) (*entity.Product, error) {
	var product entity.Product
	path := "/products/" + url.PathEscape(code)
	if err := c.call(ctx, http.MethodGet, path, "GET /products/:code", nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) ListCustomers(ctx context.Context, search string) ([]entity.Customer, error) {
	path := "/customers"
	if s := strings.TrimSpace(search); s != "" {
		path += "?" + url.Values{"search": {s}}.Encode()
	}
	var customers []entity.Customer
	if err := c.call(ctx, http.MethodGet, path, "GET /customers", nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*entity.Customer, error) {
	var customer entity.Customer
	path := "/customers/" + url.PathEscape(id)
	if err := c.call(ctx, http.MethodGet, path, "GET /customers/:id", nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) CreateDraft(ctx context.Context, req *entity.DraftRequest) (*entity.SaleResult, error) {
	var result entity.SaleResult
	if err := c.call(ctx, http.MethodPost, "/drafts", "POST /drafts", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListDrafts(ctx context.Context, warehouse, tillID string) ([]entity.Draft, error) {
	q := url.Values{"warehouse": {warehouse}, "till": {tillID}}
	var drafts []entity.Draft
	if err := c.call(ctx, http.MethodGet, "/drafts?"+q.Encode(), "GET /drafts", nil, &drafts); err != nil {
		return nil, err
	}
	return drafts, nil
}

func (c *Client) DeleteDraft(ctx context.Context, salesID string) error {
	return c.call(ctx, http.MethodDelete, "/drafts/"+url.PathEscape(salesID), "DELETE /drafts/:id", nil, nil)
}

func (c *Client) CreateSale(ctx context.Context, req *entity.SaleRequest) (*entity.SaleResult, error) {
	var result entity.SaleResult
	if err := c.call(ctx, http.MethodPost, "/sales", "POST /sales", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetInvoice(ctx context.Context, salesID string) (*entity.Invoice, error) {
	var invoice entity.Invoice
	path := "/invoices/" + url.PathEscape(salesID)
	if err := c.call(ctx, http.MethodGet, path, "GET /invoices/:id", nil, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *Client) PayInvoice(ctx context.Context, req *entity.InvoicePaymentRequest) (*entity.SaleResult, error) {
	var result entity.SaleResult
	if err := c.call(ctx, http.MethodPost, "/invoices/payments", "POST /invoices/payments", req, &result); err != nil {
		return nil, err
	}
	if result.SalesID == "" {
		result.SalesID = req.SalesID
	}
	return &result, nil
}

func (c *Client) SendReceipt(ctx context.Context, salesID string, req *entity.SendReceiptRequest) error {
	path := "/sales/" + url.PathEscape(salesID) + "/send"
	return c.call(ctx, http.MethodPost, path, "POST /sales/:id/send", req, nil)
}

// Push sends one mobile money prompt. Rejections come back as a result with
// a non-2xx status code so the caller can surface them on the payment line.
func (c *Client) Push(ctx context.Context, req *entity.MobilePushRequest) (*entity.MobilePushResult, error) {
	const endpoint = "POST /mobile-money/push"
	resp, err := c.do(ctx, http.MethodPost, "/mobile-money/push", endpoint, req)
	if err != nil {
		c.logger.Warn("mobile money push failed", zap.Error(err))
		return nil, err
	}

	result := &entity.MobilePushResult{StatusCode: resp.status, Message: resp.env.Message}
	if resp.env.failed() && result.Accepted() {
		// declined in-band with a 2xx
		result.StatusCode = http.StatusUnprocessableEntity
	}
	if len(resp.env.Data) > 0 && string(resp.env.Data) != "null" {
		var data entity.MobilePushResult
		if err := json.Unmarshal(resp.env.Data, &data); err == nil {
			result.Reference = data.Reference
			result.CheckoutRequestID = data.CheckoutRequestID
			if result.Message == "" {
				result.Message = data.Message
			}
		}
	}
	return result, nil
}
