package repository

import (
	"context"

	"github.com/sangkips/investify-till/internal/domain/entity"
)

// PaymentModeCatalog returns the payment modes configured for the till, in
// display order.
type PaymentModeCatalog interface {
	ListPaymentModes(ctx context.Context) ([]entity.PaymentMode, error)
}

// ProductCatalog resolves a scanned or typed code to a product.
type ProductCatalog interface {
	GetProduct(ctx context.Context, code string) (*entity.Product, error)
}

// DraftGateway stores parked sales on the backend.
type DraftGateway interface {
	CreateDraft(ctx context.Context, req *entity.DraftRequest) (*entity.SaleResult, error)
	ListDrafts(ctx context.Context, warehouse, tillID string) ([]entity.Draft, error)
	DeleteDraft(ctx context.Context, salesID string) error
}

// SalesGateway posts sales and invoice payments.
type SalesGateway interface {
	CreateSale(ctx context.Context, req *entity.SaleRequest) (*entity.SaleResult, error)
	GetInvoice(ctx context.Context, salesID string) (*entity.Invoice, error)
	PayInvoice(ctx context.Context, req *entity.InvoicePaymentRequest) (*entity.SaleResult, error)
	SendReceipt(ctx context.Context, salesID string, req *entity.SendReceiptRequest) error
}

// MobileMoneyGateway pushes a wallet payment prompt to a phone. A rejected
// push is reported through the result's status code; err is reserved for
// transport failures.
type MobileMoneyGateway interface {
	Push(ctx context.Context, req *entity.MobilePushRequest) (*entity.MobilePushResult, error)
}
