package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/enum"
	"github.com/sangkips/investify-till/internal/infrastructure/backend"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
	"github.com/sangkips/investify-till/pkg/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := backend.NewClient(backend.Config{BaseURL: srv.URL + "/", APIKey: "secret"}, metrics.New(), zap.NewNop())
	require.NoError(t, err)
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"message": message,
		"data":    data,
	})
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := backend.NewClient(backend.Config{BaseURL: " "}, nil, nil)
	require.Error(t, err)
}

func TestListPaymentModes(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payment-modes", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, true, "ok", []map[string]any{
			{"mode_of_payment": "Cash"},
			{"mode_of_payment": "M-Pesa"},
		})
	})

	modes, err := c.ListPaymentModes(context.Background())

	require.NoError(t, err)
	require.Len(t, modes, 2)
	assert.Equal(t, "Cash", modes[0].Name)
	assert.Equal(t, "M-Pesa", modes[1].Name)
}

func TestCreateSalePostsPayload(t *testing.T) {
	var got map[string]any
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sales", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		writeEnvelope(w, http.StatusCreated, true, "Sale created", map[string]any{"sales_id": "SAL-0042"})
	})

	result, err := c.CreateSale(context.Background(), &entity.SaleRequest{
		InvoiceItems:    []entity.SaleItem{{ItemCode: "SKU-1", Qty: decimal.NewFromInt(2), Rate: decimal.NewFromInt(100), Amount: decimal.NewFromInt(200)}},
		Warehouse:       "Main",
		CustomerName:    "Walk-in Customer",
		TotalSalesPrice: decimal.NewFromInt(200),
		SalesID:         "SAL-0009",
	})

	require.NoError(t, err)
	assert.Equal(t, "SAL-0042", result.SalesID)
	assert.Equal(t, "SAL-0009", got["sales_id"])
	assert.Equal(t, "Main", got["warehouse"])
	_, hasDetails := got["payment_details"]
	assert.False(t, hasDetails)
}

func TestBackendErrorsCarryMessage(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, false, "Till is closed for the day", nil)
	})

	_, err := c.CreateSale(context.Background(), &entity.SaleRequest{})

	require.Error(t, err)
	assert.True(t, apperror.HasReason(err, apperror.ReasonBackend))
	assert.Equal(t, "Till is closed for the day", err.Error())
}

func TestBackendErrorFallsBackToGenericMessage(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.DeleteDraft(context.Background(), "SAL-1")

	require.Error(t, err)
	appErr := apperror.GetAppError(err)
	assert.Equal(t, http.StatusBadGateway, appErr.Code)
	assert.NotEmpty(t, appErr.Message)
}

func TestSuccessFalseWith200IsAnError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, "Invoice already settled", nil)
	})

	_, err := c.PayInvoice(context.Background(), &entity.InvoicePaymentRequest{SalesID: "SAL-7"})

	assert.True(t, apperror.HasReason(err, apperror.ReasonBackend))
	assert.Equal(t, "Invoice already settled", err.Error())
}

func TestNotFoundMapsToNotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/SKU 9", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.GetProduct(context.Background(), "SKU 9")

	assert.True(t, apperror.HasReason(err, apperror.ReasonNotFound))
	assert.Equal(t, "Product not found", err.Error())
}

func TestListDraftsSendsTillAndWarehouse(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Main", r.URL.Query().Get("warehouse"))
		assert.Equal(t, "T1", r.URL.Query().Get("till"))
		writeEnvelope(w, http.StatusOK, true, "", []map[string]any{
			{"sales_id": "SAL-1", "customer": "Jane", "total_amount": 150.5, "status": "Draft", "items": []any{}},
			{"sales_id": "SAL-2", "customer": "Joe", "total_amount": "20", "status": "Paid"},
		})
	})

	drafts, err := c.ListDrafts(context.Background(), "Main", "T1")

	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.True(t, drafts[0].TotalAmount.Equal(decimal.RequireFromString("150.5")))
	assert.Equal(t, enum.DraftStatusPending, drafts[0].Status)
	assert.True(t, drafts[1].IsPaid())
}

func TestPushReportsAcceptance(t *testing.T) {
	var got entity.MobilePushRequest
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeEnvelope(w, http.StatusOK, true, "Prompt sent", map[string]any{"checkout_request_id": "ws_CO_123"})
	})

	result, err := c.Push(context.Background(), &entity.MobilePushRequest{
		MobileNumber:   "0712345678",
		PaymentDetails: []entity.PaymentDetail{{ModeOfPayment: "M-Pesa", Amount: decimal.NewFromInt(50)}},
	})

	require.NoError(t, err)
	assert.True(t, result.Accepted())
	assert.Equal(t, "ws_CO_123", result.TransactionReference())
	assert.Equal(t, "0712345678", got.MobileNumber)
	require.Len(t, got.PaymentDetails, 1)
	assert.Equal(t, "M-Pesa", got.PaymentDetails[0].ModeOfPayment)
}

func TestPushRejection(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		success bool
	}{
		{name: "http error", status: http.StatusBadRequest, success: false},
		{name: "declined in band", status: http.StatusOK, success: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, tt.success, "Insufficient funds", nil)
			})

			result, err := c.Push(context.Background(), &entity.MobilePushRequest{MobileNumber: "0712345678"})

			require.NoError(t, err)
			assert.False(t, result.Accepted())
			assert.Equal(t, "Insufficient funds", result.Message)
		})
	}
}

func TestPushTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	c, err := backend.NewClient(backend.Config{BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)

	_, err = c.Push(context.Background(), &entity.MobilePushRequest{MobileNumber: "0712345678"})

	assert.Error(t, err)
}
