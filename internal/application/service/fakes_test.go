package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/investify-till/internal/config"
	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/events"
	"github.com/sangkips/investify-till/pkg/apperror"
	"github.com/sangkips/investify-till/pkg/printer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeBackend stands in for the POS backend behind every gateway interface.
type fakeBackend struct {
	mu sync.Mutex

	modes     []entity.PaymentMode
	products  map[string]*entity.Product
	customers []entity.Customer
	listErr   error

	drafts         []entity.Draft
	draftRequests  []entity.DraftRequest
	draftErr       error
	deletedDrafts  []string
	listDraftCalls int
	nextDraft      int

	sales      []entity.SaleRequest
	saleErr    error
	saleHook   func()
	nextSale   int
	invoices   map[string]*entity.Invoice
	payments   []entity.InvoicePaymentRequest
	receipts   []string
	receiptErr error

	pushes     []entity.MobilePushRequest
	pushResult *entity.MobilePushResult
	pushErr    error
	pushHook   func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		modes: []entity.PaymentMode{{Name: "Cash"}, {Name: "M-Pesa"}, {Name: "Card"}},
		products: map[string]*entity.Product{
			"RICE": {ItemCode: "RICE", Name: "Rice 1kg", BasePrice: dec("100"), TrackInventory: true, OnHand: dec("5")},
			"SVC":  {ItemCode: "SVC", Name: "Delivery", BasePrice: dec("50")},
			"SUGAR": {ItemCode: "SUGAR", Name: "Sugar", BasePrice: dec("110"), PriceTiers: []entity.PriceTier{
				{Unit: "kg", Price: dec("120")},
				{Unit: "bag", Price: dec("5000")},
			}},
		},
		customers: []entity.Customer{
			{ID: "CUST-0000", Name: "Walk-in Customer"},
			{ID: "CUST-0001", Name: "Jane Wanjiku", Mobile: "0711000111", Email: "jane@example.com",
				Credit: dec("30"), LoyaltyPoints: dec("100")},
		},
		invoices:   map[string]*entity.Invoice{},
		pushResult: &entity.MobilePushResult{StatusCode: 200, Reference: "QK12345"},
	}
}

func (b *fakeBackend) ListPaymentModes(ctx context.Context) ([]entity.PaymentMode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]entity.PaymentMode(nil), b.modes...), nil
}

func (b *fakeBackend) GetProduct(ctx context.Context, code string) (*entity.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[code]
	if !ok {
		return nil, apperror.NewNotFoundError("Product")
	}
	out := *p
	return &out, nil
}

func (b *fakeBackend) ListCustomers(ctx context.Context, search string) ([]entity.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]entity.Customer(nil), b.customers...), nil
}

func (b *fakeBackend) GetCustomer(ctx context.Context, id string) (*entity.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.customers {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, apperror.NewNotFoundError("Customer")
}

func (b *fakeBackend) CreateDraft(ctx context.Context, req *entity.DraftRequest) (*entity.SaleResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.draftErr != nil {
		return nil, b.draftErr
	}
	b.draftRequests = append(b.draftRequests, *req)

	id := req.SalesID
	if id == "" {
		b.nextDraft++
		id = fmt.Sprintf("DRAFT-%03d", b.nextDraft)
	}
	draft := entity.Draft{
		SalesID:     id,
		Customer:    req.Customer,
		CustomerID:  req.CustomerID,
		Mobile:      req.Mobile,
		Items:       append([]entity.SaleItem(nil), req.Items...),
		TotalAmount: req.Total,
	}
	for i := range b.drafts {
		if b.drafts[i].SalesID == id {
			b.drafts[i] = draft
			return &entity.SaleResult{SalesID: id}, nil
		}
	}
	b.drafts = append(b.drafts, draft)
	return &entity.SaleResult{SalesID: id}, nil
}

func (b *fakeBackend) ListDrafts(ctx context.Context, warehouse, tillID string) ([]entity.Draft, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listDraftCalls++
	return append([]entity.Draft(nil), b.drafts...), nil
}

func (b *fakeBackend) DeleteDraft(ctx context.Context, salesID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletedDrafts = append(b.deletedDrafts, salesID)
	b.removeDraftLocked(salesID)
	return nil
}

func (b *fakeBackend) removeDraftLocked(salesID string) {
	kept := b.drafts[:0]
	for _, d := range b.drafts {
		if d.SalesID != salesID {
			kept = append(kept, d)
		}
	}
	b.drafts = kept
}

func (b *fakeBackend) CreateSale(ctx context.Context, req *entity.SaleRequest) (*entity.SaleResult, error) {
	b.mu.Lock()
	hook := b.saleHook
	b.mu.Unlock()
	if hook != nil {
		hook()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sales = append(b.sales, *req)
	if b.saleErr != nil {
		return nil, b.saleErr
	}
	if req.SalesID != "" {
		b.removeDraftLocked(req.SalesID)
		return &entity.SaleResult{SalesID: req.SalesID}, nil
	}
	b.nextSale++
	return &entity.SaleResult{SalesID: fmt.Sprintf("SAL-%03d", b.nextSale)}, nil
}

func (b *fakeBackend) GetInvoice(ctx context.Context, salesID string) (*entity.Invoice, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	inv, ok := b.invoices[salesID]
	if !ok {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	out := *inv
	return &out, nil
}

func (b *fakeBackend) PayInvoice(ctx context.Context, req *entity.InvoicePaymentRequest) (*entity.SaleResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payments = append(b.payments, *req)
	return &entity.SaleResult{SalesID: req.SalesID}, nil
}

func (b *fakeBackend) SendReceipt(ctx context.Context, salesID string, req *entity.SendReceiptRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.receiptErr != nil {
		return b.receiptErr
	}
	b.receipts = append(b.receipts, salesID+":"+req.MobileNumber)
	return nil
}

func (b *fakeBackend) Push(ctx context.Context, req *entity.MobilePushRequest) (*entity.MobilePushResult, error) {
	b.mu.Lock()
	hook := b.pushHook
	b.mu.Unlock()
	if hook != nil {
		hook()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushes = append(b.pushes, *req)
	if b.pushErr != nil {
		return nil, b.pushErr
	}
	out := *b.pushResult
	return &out, nil
}

func (b *fakeBackend) saleCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sales)
}

func (b *fakeBackend) pushCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pushes)
}

func (b *fakeBackend) draftListCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listDraftCalls
}

// memCartRepo is an in-memory cart store that can be told to fail.
type memCartRepo struct {
	mu    sync.Mutex
	carts map[string]entity.Cart
	fail  bool
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[string]entity.Cart)}
}

func (r *memCartRepo) Save(ctx context.Context, cart *entity.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	r.carts[cart.TillID] = *cart.Clone()
	return nil
}

func (r *memCartRepo) Load(ctx context.Context, tillID string) (*entity.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[tillID]
	if !ok {
		return nil, nil
	}
	return cart.Clone(), nil
}

func (r *memCartRepo) Delete(ctx context.Context, tillID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	delete(r.carts, tillID)
	return nil
}

func (r *memCartRepo) Close() error { return nil }

func (r *memCartRepo) stored(tillID string) (entity.Cart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[tillID]
	return cart, ok
}

// memJournal keeps settlement records in memory.
type memJournal struct {
	mu      sync.Mutex
	records []entity.SettlementRecord
}

func (j *memJournal) Create(ctx context.Context, record *entity.SettlementRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()
	j.records = append(j.records, *record)
	return nil
}

func (j *memJournal) GetBySalesID(ctx context.Context, salesID string) (*entity.SettlementRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.records) - 1; i >= 0; i-- {
		if j.records[i].SalesID == salesID {
			out := j.records[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (j *memJournal) List(ctx context.Context, params *repository.SettlementFilterParams) ([]entity.SettlementRecord, int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]entity.SettlementRecord(nil), j.records...), int64(len(j.records)), nil
}

func (j *memJournal) ListWithCursor(ctx context.Context, params *repository.SettlementCursorFilterParams) ([]entity.SettlementRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]entity.SettlementRecord(nil), j.records...), nil
}

func (j *memJournal) all() []entity.SettlementRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]entity.SettlementRecord(nil), j.records...)
}

type harness struct {
	backend     *fakeBackend
	cartRepo    *memCartRepo
	journal     *memJournal
	printer     *printer.MemoryPrinter
	bus         *events.Bus
	tills       *TillService
	carts       *CartService
	customers   *CustomerService
	drafts      *DraftService
	receipts    *ReceiptService
	settlements *SettlementService
	mobile      *MobileMoneyService
}

func testTillConfig() config.TillConfig {
	return config.TillConfig{
		WalkInCustomer:      "Walk-in Customer",
		DefaultUnit:         "Nos",
		CreditMode:          "credit",
		PointValue:          decimal.NewFromInt(1),
		MobileModePatterns:  []string{"mpesa", "m-pesa", "mobile"},
		DraftReconcileDelay: 20 * time.Millisecond,
	}
}

func newHarness(t testing.TB) *harness {
	t.Helper()
	logger := zap.NewNop()
	cfg := testTillConfig()

	h := &harness{
		backend:  newFakeBackend(),
		cartRepo: newMemCartRepo(),
		journal:  &memJournal{},
		printer:  printer.NewMemoryPrinter(),
		bus:      events.NewBus(logger),
	}
	h.tills = NewTillService(h.bus, nil, logger)
	h.carts = NewCartService(h.cartRepo, h.backend, cfg.DefaultUnit, nil, logger)
	h.customers = NewCustomerService(h.backend, cfg.WalkInCustomer, h.bus, logger)
	h.drafts = NewDraftService(h.backend, h.carts, h.customers, h.tills, h.bus, cfg.DraftReconcileDelay, logger)
	h.receipts = NewReceiptService(h.printer, h.journal, h.backend, nil, ReceiptOptions{PrinterType: "memory", StoreName: "Corner Shop"}, logger)
	h.settlements = NewSettlementService(h.carts, h.customers, h.tills, h.drafts, h.receipts,
		h.backend, h.backend, h.journal, h.bus, cfg, nil, logger)
	h.mobile = NewMobileMoneyService(h.settlements, h.backend, nil, logger)

	teardowns := []func(){
		h.customers.Start(h.bus),
		h.drafts.Start(h.bus),
		h.settlements.Start(h.bus),
	}
	t.Cleanup(func() {
		for _, teardown := range teardowns {
			teardown()
		}
		h.drafts.Close()
		h.carts.Close()
	})
	return h
}

func (h *harness) openTill(t testing.TB, tillID string) {
	t.Helper()
	_, err := h.tills.Open(tillID, "Main Store", uuid.New())
	require.NoError(t, err)
}

func (h *harness) add(t testing.TB, tillID, code string, times int) *entity.Cart {
	t.Helper()
	var cart *entity.Cart
	var err error
	for i := 0; i < times; i++ {
		cart, err = h.carts.AddByCode(context.Background(), tillID, code)
		require.NoError(t, err)
	}
	return cart
}

func requireReason(t testing.TB, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperror.HasReason(err, reason), "want reason %q, got %v", reason, err)
}
