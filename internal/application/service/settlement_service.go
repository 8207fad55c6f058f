package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/investify-till/internal/config"
	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/enum"
	"github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/domain/settlement"
	"github.com/sangkips/investify-till/internal/events"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
	"github.com/sangkips/investify-till/pkg/apperror"
	"github.com/sangkips/investify-till/pkg/money"
	"github.com/sangkips/investify-till/pkg/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const autoOpenTimeout = 15 * time.Second

// session is one open settlement on a till. id changes every time a session
// is opened so late network responses can tell they are stale.
type session struct {
	id         uuid.UUID
	tillID     string
	invoice    *entity.Invoice
	alloc      *settlement.Allocator
	customer   *entity.Customer
	mobile     string
	modes      []entity.PaymentMode
	processing bool
	openedAt   time.Time
}

// SettlementService drives the split-payment allocator for each till and
// posts the result to the backend.
type SettlementService struct {
	mu       sync.Mutex
	sessions map[string]*session

	carts     *CartService
	customers *CustomerService
	tills     *TillService
	drafts    *DraftService
	receipts  *ReceiptService
	sales     repository.SalesGateway
	modes     repository.PaymentModeCatalog
	journal   repository.SettlementRepository
	bus       events.Publisher
	cfg       config.TillConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	carts *CartService,
	customers *CustomerService,
	tills *TillService,
	drafts *DraftService,
	receipts *ReceiptService,
	sales repository.SalesGateway,
	modes repository.PaymentModeCatalog,
	journal repository.SettlementRepository,
	bus events.Publisher,
	cfg config.TillConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SettlementService {
	if bus == nil {
		bus = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CreditMode == "" {
		cfg.CreditMode = "credit"
	}
	return &SettlementService{
		sessions:  make(map[string]*session),
		carts:     carts,
		customers: customers,
		tills:     tills,
		drafts:    drafts,
		receipts:  receipts,
		sales:     sales,
		modes:     modes,
		journal:   journal,
		bus:       bus,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
	}
}

// OpenInput represents the open settlement input. With InvoiceID set the
// session collects that invoice's outstanding amount instead of the cart.
type OpenInput struct {
	InvoiceID string
	Mobile    string
}

// SettlementView is the cashier-facing state of a till's settlement.
type SettlementView struct {
	ID             uuid.UUID             `json:"id"`
	TillID         string                `json:"till_id"`
	Kind           enum.SubmissionKind   `json:"kind"`
	InvoiceID      string                `json:"invoice_id,omitempty"`
	Target         decimal.Decimal       `json:"target"`
	Splits         []entity.PaymentSplit `json:"splits"`
	CreditUsed     decimal.Decimal       `json:"credit_used"`
	CreditLimit    decimal.Decimal       `json:"credit_limit"`
	PointsRedeemed decimal.Decimal       `json:"loyalty_points_redeemed"`
	PointsLimit    decimal.Decimal       `json:"loyalty_points_limit"`
	PointsValue    decimal.Decimal       `json:"points_value"`
	Paid           decimal.Decimal       `json:"paid"`
	Remaining      decimal.Decimal       `json:"remaining"`
	Complete       bool                  `json:"complete"`
	Processing     bool                  `json:"processing"`
	Mobile         string                `json:"mobile,omitempty"`
	Customer       *entity.Customer      `json:"customer"`
	Modes          []entity.PaymentMode  `json:"modes"`
	OpenedAt       time.Time             `json:"opened_at"`
}

// PartialPayment is attached to the partial-payment gate so the cashier can
// see what they are confirming.
type PartialPayment struct {
	Target    decimal.Decimal `json:"target"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
}

// SubmitInput represents the submit settlement input. An empty Kind is
// inferred from the session.
type SubmitInput struct {
	Kind           enum.SubmissionKind
	ConfirmPartial bool
	Print          bool
	Send           bool
	CashierID      uuid.UUID
}

// SubmitResult is the outcome of a posted settlement. Print and send
// problems are reported as warnings; the settlement itself succeeded.
type SubmitResult struct {
	SalesID  string                   `json:"sales_id"`
	Kind     enum.SubmissionKind      `json:"kind"`
	Status   enum.SettlementStatus    `json:"status"`
	Total    decimal.Decimal          `json:"total"`
	Paid     decimal.Decimal          `json:"paid"`
	Due      decimal.Decimal          `json:"due"`
	Printed  bool                     `json:"printed"`
	Sent     bool                     `json:"sent"`
	Warnings []string                 `json:"warnings,omitempty"`
	Record   *entity.SettlementRecord `json:"record,omitempty"`
}

// Open starts a settlement on the till, replacing any previous one.
func (s *SettlementService) Open(ctx context.Context, tillID string, input OpenInput) (*SettlementView, error) {
	if err := requireTill(tillID); err != nil {
		return nil, err
	}

	modes, err := s.paymentModes(ctx)
	if err != nil {
		return nil, err
	}

	var invoice *entity.Invoice
	var target decimal.Decimal
	mobile := strings.TrimSpace(input.Mobile)

	if invoiceID := strings.TrimSpace(input.InvoiceID); invoiceID != "" {
		invoice, err = s.sales.GetInvoice(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
		if invoice == nil {
			return nil, apperror.NewNotFoundError("Invoice")
		}
		if !invoice.OutstandingAmount.IsPositive() {
			return nil, apperror.NewFieldError("invoice_id", "Invoice has no outstanding balance")
		}
		target = invoice.OutstandingAmount
		mobile = firstNonEmpty(mobile, invoice.Mobile)
	} else {
		cart, err := s.carts.Get(ctx, tillID)
		if err != nil {
			return nil, err
		}
		if cart.IsEmpty() {
			return nil, apperror.NewFieldError("cart", "Add items to the cart before taking payment")
		}
		if cart.ViewOnly() {
			return nil, apperror.NewConflictError(apperror.ReasonDraftPaid,
				"Draft "+cart.PaidDraftID+" is already paid and can only be viewed or printed")
		}
		target = cart.Total
		mobile = firstNonEmpty(mobile, cart.Mobile)
	}

	customer := s.customers.Current(ctx, tillID)
	mobile = firstNonEmpty(mobile, customer.Mobile)

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.sessions[tillID]; ok && (current.processing || current.alloc.AnyProcessing()) {
		return nil, apperror.NewConflictError(apperror.ReasonInFlight, "A payment is still being processed on this till")
	}

	sess := &session{
		id:       uuid.New(),
		tillID:   tillID,
		invoice:  invoice,
		customer: customer,
		mobile:   mobile,
		modes:    modes,
		openedAt: time.Now(),
	}
	sess.alloc = settlement.NewAllocator(target, modes[0].Name, s.cfg.CreditMode, s.limitsFor(customer))
	s.sessions[tillID] = sess

	s.logger.Debug("settlement opened",
		zap.String("till_id", tillID),
		zap.String("session_id", sess.id.String()),
		zap.String("target", target.String()),
	)
	return s.viewLocked(ctx, sess), nil
}

// Get returns the till's open settlement.
func (s *SettlementService) Get(ctx context.Context, tillID string) (*SettlementView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.sessionLocked(ctx, tillID)
	if err != nil {
		return nil, err
	}
	return s.viewLocked(ctx, sess), nil
}

// Close abandons the till's settlement. Late mobile-money responses for it
// are discarded; a settlement that is being submitted cannot be closed.
func (s *SettlementService) Close(tillID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[tillID]; ok && sess.processing {
		return apperror.NewConflictError(apperror.ReasonInFlight, "The settlement is being submitted and cannot be closed")
	}
	delete(s.sessions, tillID)
	return nil
}

// AddSplit appends a payment line carrying whatever is unallocated.
func (s *SettlementService) AddSplit(ctx context.Context, tillID string) (*SettlementView, error) {
	return s.edit(ctx, tillID, func(sess *session) error {
		sess.alloc.AddSplit()
		return nil
	})
}

// RemoveSplit drops a payment line.
func (s *SettlementService) RemoveSplit(ctx context.Context, tillID string, splitID int) (*SettlementView, error) {
	return s.edit(ctx, tillID, func(sess *session) error {
		return sess.alloc.RemoveSplit(splitID)
	})
}

// UpdateSplit applies a cashier edit to one payment line.
func (s *SettlementService) UpdateSplit(ctx context.Context, tillID string, splitID int, field settlement.Field, value string) (*SettlementView, error) {
	return s.edit(ctx, tillID, func(sess *session) error {
		if field == settlement.FieldMode {
			if _, ok := findMode(sess.modes, value); !ok && !sess.alloc.IsCreditMode(value) {
				return apperror.NewFieldError(string(settlement.FieldMode), fmt.Sprintf("%q is not a payment mode on this till", value))
			}
			if mode, ok := findMode(sess.modes, value); ok {
				value = mode.Name
			}
		}
		return sess.alloc.UpdateSplit(splitID, field, value)
	})
}

// SetCreditUsed applies store credit. The amount is clamped to the
// customer's balance and the target.
func (s *SettlementService) SetCreditUsed(ctx context.Context, tillID string, amount decimal.Decimal) (*SettlementView, error) {
	return s.edit(ctx, tillID, func(sess *session) error {
		sess.alloc.SetCreditUsed(amount)
		return nil
	})
}

// SetPointsRedeemed applies loyalty points, clamped to the balance.
func (s *SettlementService) SetPointsRedeemed(ctx context.Context, tillID string, points decimal.Decimal) (*SettlementView, error) {
	return s.edit(ctx, tillID, func(sess *session) error {
		sess.alloc.SetPointsRedeemed(points)
		return nil
	})
}

// SetMobile sets the sale's default mobile number.
func (s *SettlementService) SetMobile(ctx context.Context, tillID, mobile string) (*SettlementView, error) {
	return s.edit(ctx, tillID, func(sess *session) error {
		sess.mobile = strings.TrimSpace(mobile)
		return nil
	})
}

func (s *SettlementService) edit(ctx context.Context, tillID string, fn func(*session) error) (*SettlementView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(ctx, tillID)
	if err != nil {
		return nil, err
	}
	if sess.processing {
		return nil, apperror.NewConflictError(apperror.ReasonInFlight, "The settlement is being submitted")
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	return s.viewLocked(ctx, sess), nil
}

// Submit posts the till's settlement.
func (s *SettlementService) Submit(ctx context.Context, tillID string, input SubmitInput) (*SubmitResult, error) {
	s.mu.Lock()
	sess, err := s.sessionLocked(ctx, tillID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if sess.processing {
		s.mu.Unlock()
		return nil, apperror.NewConflictError(apperror.ReasonInFlight, "The settlement is already being submitted")
	}

	kind, err := resolveKind(sess, input.Kind)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if sess.alloc.AnyProcessing() {
		s.mu.Unlock()
		s.metrics.SettlementRecorded(string(kind), metrics.OutcomeRejected)
		return nil, apperror.NewConflictError(apperror.ReasonLineBusy, "Wait for the mobile money confirmation to finish")
	}

	if kind == enum.SubmissionDraftSave {
		return s.submitDraft(ctx, sess)
	}

	holdsCart := kind == enum.SubmissionNewSale
	if holdsCart {
		if err := s.carts.Hold(ctx, tillID); err != nil {
			s.mu.Unlock()
			s.metrics.SettlementRecorded(string(kind), metrics.OutcomeRejected)
			return nil, err
		}
	}
	call, err := s.prepareLocked(ctx, sess, kind, input)
	if err != nil {
		s.mu.Unlock()
		if holdsCart {
			s.carts.Release(ctx, tillID, false)
		}
		s.metrics.SettlementRecorded(string(kind), metrics.OutcomeRejected)
		return nil, err
	}
	sess.processing = true
	generation := sess.id
	s.mu.Unlock()

	salesID, err := call.post(ctx)
	if holdsCart {
		s.carts.Release(ctx, tillID, err == nil)
	}

	s.mu.Lock()
	current, live := s.sessions[tillID]
	live = live && current.id == generation
	if live {
		current.processing = false
	}
	if err != nil {
		s.mu.Unlock()
		s.metrics.SettlementRecorded(string(kind), metrics.OutcomeFailure)
		s.logger.Warn("settlement submission failed",
			zap.String("till_id", tillID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, err
	}
	if live {
		delete(s.sessions, tillID)
	}
	s.mu.Unlock()

	return s.afterSubmit(ctx, call, salesID, input), nil
}

// submitDraft parks the cart instead of settling it. Called with s.mu held;
// releases it.
func (s *SettlementService) submitDraft(ctx context.Context, sess *session) (*SubmitResult, error) {
	sess.processing = true
	generation := sess.id
	mobile := sess.mobile
	tillID := sess.tillID
	s.mu.Unlock()

	res, err := s.drafts.Queue(ctx, tillID, QueueInput{Mobile: mobile})

	s.mu.Lock()
	current, live := s.sessions[tillID]
	live = live && current.id == generation
	if live {
		current.processing = false
		if err == nil {
			delete(s.sessions, tillID)
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.metrics.SettlementRecorded(string(enum.SubmissionDraftSave), metrics.OutcomeFailure)
		return nil, err
	}
	s.metrics.SettlementRecorded(string(enum.SubmissionDraftSave), metrics.OutcomeSuccess)
	return &SubmitResult{
		SalesID: res.DraftID,
		Kind:    enum.SubmissionDraftSave,
		Status:  enum.SettlementStatusPartial,
	}, nil
}

// submission is a validated payload ready to post, plus what the journal
// needs once it is accepted.
type submission struct {
	kind      enum.SubmissionKind
	tillID    string
	warehouse string
	customer  *entity.Customer
	mobile    string
	draftID   string
	total     decimal.Decimal
	paid      decimal.Decimal
	complete  bool
	credit    decimal.Decimal
	points    decimal.Decimal
	items     []entity.SaleItem
	payments  []entity.PaymentDetail
	sale      *entity.SaleRequest
	payment   *entity.InvoicePaymentRequest
	gateway   repository.SalesGateway
}

func (c *submission) post(ctx context.Context) (string, error) {
	var (
		res *entity.SaleResult
		err error
	)
	if c.sale != nil {
		res, err = c.gateway.CreateSale(ctx, c.sale)
	} else {
		res, err = c.gateway.PayInvoice(ctx, c.payment)
	}
	if err != nil {
		return "", err
	}
	if res != nil && res.SalesID != "" {
		return res.SalesID, nil
	}
	if c.payment != nil {
		return c.payment.SalesID, nil
	}
	return c.draftID, nil
}

func (s *SettlementService) prepareLocked(ctx context.Context, sess *session, kind enum.SubmissionKind, input SubmitInput) (*submission, error) {
	for _, split := range sess.alloc.Splits() {
		if s.isMobile(sess, split.Mode) && split.Amount.IsPositive() && !split.Confirmed {
			return nil, apperror.NewConflictError(apperror.ReasonUnconfirmed,
				fmt.Sprintf("Confirm the %s payment on line %d before submitting", split.Mode, split.ID))
		}
	}

	call := &submission{
		kind:     kind,
		tillID:   sess.tillID,
		customer: sess.customer,
		mobile:   sess.mobile,
		total:    sess.alloc.Target(),
		paid:     sess.alloc.Paid(),
		complete: sess.alloc.IsComplete(),
		credit:   sess.alloc.CreditUsed().Add(sess.alloc.CreditSplitTotal()),
		points:   sess.alloc.PointsRedeemed(),
		payments: sess.alloc.PaymentDetails(),
		gateway:  s.sales,
	}

	if kind == enum.SubmissionNewSale {
		till, err := s.tills.Require(sess.tillID)
		if err != nil {
			return nil, err
		}
		cart, err := s.carts.Get(ctx, sess.tillID)
		if err != nil {
			return nil, err
		}
		if cart.IsEmpty() {
			return nil, apperror.NewFieldError("cart", "Add items to the cart before taking payment")
		}
		if cart.ViewOnly() {
			return nil, apperror.NewConflictError(apperror.ReasonDraftPaid,
				"Draft "+cart.PaidDraftID+" is already paid and can only be viewed or printed")
		}
		call.warehouse = till.Warehouse
		call.draftID = cart.DraftID
		call.items = cart.SaleItems()
	}

	if call.credit.GreaterThan(money.NonNegative(sess.customer.Credit)) {
		return nil, apperror.NewFieldError("credit_used", "Credit exceeds the customer's available balance")
	}

	if !call.complete && !input.ConfirmPartial {
		return nil, apperror.NewPartialPaymentError(
			"The payment does not match the amount due. Confirm to post it as a partial payment.",
			PartialPayment{
				Target:    sess.alloc.Target(),
				Paid:      sess.alloc.Paid(),
				Remaining: sess.alloc.Remaining(),
			},
		)
	}

	var payments []entity.PaymentDetail
	if len(call.payments) > 0 {
		payments = call.payments
	}

	if kind == enum.SubmissionInvoicePayment {
		call.draftID = sess.invoice.SalesID
		call.payment = &entity.InvoicePaymentRequest{
			SalesID:        sess.invoice.SalesID,
			PaymentDetails: payments,
		}
		return call, nil
	}

	call.sale = &entity.SaleRequest{
		InvoiceItems:          call.items,
		Warehouse:             call.warehouse,
		CustomerName:          sess.customer.Name,
		CustomerID:            sess.customer.ID,
		TotalSalesPrice:       call.total,
		MobileNumber:          sess.mobile,
		PaymentDetails:        payments,
		CreditUsed:            call.credit,
		LoyaltyPointsRedeemed: call.points,
		SalesDate:             time.Now().Format("2006-01-02"),
		SalesID:               call.draftID,
	}
	return call, nil
}

func (s *SettlementService) afterSubmit(ctx context.Context, call *submission, salesID string, input SubmitInput) *SubmitResult {
	status := enum.SettlementStatusComplete
	if !call.complete {
		status = enum.SettlementStatusPartial
	}
	due := money.NonNegative(call.total.Sub(call.paid))

	record := &entity.SettlementRecord{
		SalesID:        salesID,
		TillID:         call.tillID,
		Warehouse:      call.warehouse,
		CashierID:      input.CashierID,
		Kind:           call.kind,
		Status:         status,
		CustomerID:     call.customer.ID,
		CustomerName:   call.customer.Name,
		CustomerEmail:  call.customer.Email,
		Mobile:         call.mobile,
		Total:          call.total,
		Paid:           call.paid,
		Due:            due,
		CreditUsed:     call.credit,
		PointsRedeemed: call.points,
		Items:          call.items,
		Payments:       call.payments,
		SalesDate:      time.Now(),
	}
	if call.kind == enum.SubmissionNewSale {
		record.DraftID = call.draftID
	}
	if err := s.journal.Create(ctx, record); err != nil {
		s.logger.Warn("failed to journal settlement", zap.String("sales_id", salesID), zap.Error(err))
	}

	if call.kind == enum.SubmissionNewSale {
		s.customers.ResetToWalkIn(call.tillID)
		if call.draftID != "" {
			s.bus.Publish(events.DraftCompleted{TillID: call.tillID, DraftID: call.draftID})
		}
	}

	result := &SubmitResult{
		SalesID: salesID,
		Kind:    call.kind,
		Status:  status,
		Total:   call.total,
		Paid:    call.paid,
		Due:     due,
		Record:  record,
	}

	if input.Print && s.receipts != nil {
		if _, err := s.receipts.PrintRecord(record); err != nil {
			result.Warnings = append(result.Warnings, "Receipt could not be printed: "+err.Error())
		} else {
			result.Printed = true
		}
	}
	if input.Send && s.receipts != nil {
		if err := s.receipts.SendRecord(ctx, record, call.mobile); err != nil {
			result.Warnings = append(result.Warnings, "Receipt could not be sent: "+apperror.GetAppError(err).Message)
		} else {
			result.Sent = true
		}
	}

	s.metrics.SettlementRecorded(string(call.kind), metrics.OutcomeSuccess)
	s.logger.Info("settlement posted",
		zap.String("till_id", call.tillID),
		zap.String("sales_id", salesID),
		zap.String("kind", string(call.kind)),
		zap.String("status", status.String()),
	)
	return result
}

// History lists journaled settlements, newest first.
func (s *SettlementService) History(ctx context.Context, params *repository.SettlementFilterParams) (*pagination.PaginatedResult[entity.SettlementRecord], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()

	records, total, err := s.journal.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return pagination.NewPaginatedResult(records, pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)), nil
}

// HistoryCursor lists journaled settlements with cursor pagination.
func (s *SettlementService) HistoryCursor(ctx context.Context, params *repository.SettlementCursorFilterParams) (*pagination.CursorPaginatedResult[entity.SettlementRecord], error) {
	if params.Cursor == nil {
		params.Cursor = pagination.DefaultCursorParams()
	}
	params.Cursor.Validate()

	records, err := s.journal.ListWithCursor(ctx, params)
	if err != nil {
		return nil, err
	}
	page, items := pagination.NewCursorPagination(records, params.Cursor.Limit,
		func(r entity.SettlementRecord) string { return r.ID.String() },
		func(r entity.SettlementRecord) time.Time { return r.CreatedAt },
	)
	page.HasPrev = params.Cursor.Cursor != ""
	return pagination.NewCursorPaginatedResult(items, page), nil
}

// Start subscribes to draft, till and customer events and returns the
// teardown function.
func (s *SettlementService) Start(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(events.TopicDraftItemsLoaded, func(e events.Event) {
			loaded, ok := e.(events.DraftItemsLoaded)
			if !ok || loaded.Paid {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), autoOpenTimeout)
			defer cancel()
			if _, err := s.Open(ctx, loaded.TillID, OpenInput{}); err != nil {
				s.logger.Warn("could not open settlement for resumed draft",
					zap.String("till_id", loaded.TillID),
					zap.String("draft_id", loaded.DraftID),
					zap.Error(err),
				)
			}
		}),
		bus.Subscribe(events.TopicTillClosed, func(e events.Event) {
			closed, ok := e.(events.TillClosed)
			if !ok {
				return
			}
			if err := s.Close(closed.TillID); err != nil {
				s.logger.Warn("settlement kept open on closed till", zap.String("till_id", closed.TillID), zap.Error(err))
			}
		}),
		bus.Subscribe(events.TopicCustomerReset, func(e events.Event) {
			reset, ok := e.(events.CustomerReset)
			if !ok {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			if sess, ok := s.sessions[reset.TillID]; ok {
				s.syncLocked(context.Background(), sess)
			}
		}),
	}
	return func() {
		for _, unsubscribe := range unsubs {
			unsubscribe()
		}
	}
}

func (s *SettlementService) sessionLocked(ctx context.Context, tillID string) (*session, error) {
	sess, ok := s.sessions[tillID]
	if !ok {
		return nil, apperror.NewPreconditionError(apperror.ReasonNoSettlement, "No settlement is open on this till")
	}
	s.syncLocked(ctx, sess)
	return sess, nil
}

// syncLocked follows customer and cart changes made since the last call:
// a different customer swaps the limits, a new-sale target follows the cart.
func (s *SettlementService) syncLocked(ctx context.Context, sess *session) {
	if sess.processing {
		return
	}
	customer := s.customers.Peek(sess.tillID)
	if customer.ID != sess.customer.ID || customer.WalkIn != sess.customer.WalkIn {
		sess.customer = customer
		sess.alloc.SetLimits(s.limitsFor(customer))
	}
	if sess.invoice == nil {
		cart, err := s.carts.Get(ctx, sess.tillID)
		if err == nil && !money.NearlyEqual(cart.Total, sess.alloc.Target()) {
			sess.alloc.SetTarget(cart.Total)
		}
	}
}

func (s *SettlementService) viewLocked(ctx context.Context, sess *session) *SettlementView {
	alloc := sess.alloc
	limits := alloc.Limits()
	kind := enum.SubmissionNewSale
	invoiceID := ""
	if sess.invoice != nil {
		kind = enum.SubmissionInvoicePayment
		invoiceID = sess.invoice.SalesID
	}
	customer := *sess.customer
	return &SettlementView{
		ID:             sess.id,
		TillID:         sess.tillID,
		Kind:           kind,
		InvoiceID:      invoiceID,
		Target:         alloc.Target(),
		Splits:         alloc.Splits(),
		CreditUsed:     alloc.CreditUsed(),
		CreditLimit:    decimal.Min(money.NonNegative(limits.Credit), alloc.Target()),
		PointsRedeemed: alloc.PointsRedeemed(),
		PointsLimit:    money.NonNegative(limits.LoyaltyPoints),
		PointsValue:    alloc.PointsValue(),
		Paid:           alloc.Paid(),
		Remaining:      alloc.Remaining(),
		Complete:       alloc.IsComplete(),
		Processing:     sess.processing,
		Mobile:         sess.mobile,
		Customer:       &customer,
		Modes:          append([]entity.PaymentMode(nil), sess.modes...),
		OpenedAt:       sess.openedAt,
	}
}

func (s *SettlementService) limitsFor(c *entity.Customer) settlement.Limits {
	return settlement.Limits{
		Credit:        c.Credit,
		LoyaltyPoints: c.LoyaltyPoints,
		PointValue:    s.cfg.PointValue,
		WalkIn:        c.WalkIn,
	}
}

// paymentModes fetches the till's modes, flags mobile and credit modes, and
// appends the credit pseudo-mode if the backend did not list it.
func (s *SettlementService) paymentModes(ctx context.Context) ([]entity.PaymentMode, error) {
	listed, err := s.modes.ListPaymentModes(ctx)
	if err != nil {
		return nil, err
	}

	modes := make([]entity.PaymentMode, 0, len(listed)+1)
	hasCredit := false
	for _, m := range listed {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		if strings.EqualFold(m.Name, s.cfg.CreditMode) {
			m.Credit = true
			hasCredit = true
		}
		if !m.Mobile && matchesPattern(m.Name, s.cfg.MobileModePatterns) {
			m.Mobile = true
		}
		modes = append(modes, m)
	}
	if len(modes) == 0 || (hasCredit && len(modes) == 1) {
		return nil, apperror.NewBackendError("No payment modes are configured for this till")
	}
	if !hasCredit {
		modes = append(modes, entity.PaymentMode{Name: s.cfg.CreditMode, Credit: true})
	} else if modes[0].Credit {
		// credit must never be the default line's mode
		for i := 1; i < len(modes); i++ {
			if !modes[i].Credit {
				modes[0], modes[i] = modes[i], modes[0]
				break
			}
		}
	}
	return modes, nil
}

func (s *SettlementService) isMobile(sess *session, mode string) bool {
	if m, ok := findMode(sess.modes, mode); ok && m.Mobile {
		return true
	}
	return matchesPattern(mode, s.cfg.MobileModePatterns)
}

func resolveKind(sess *session, requested enum.SubmissionKind) (enum.SubmissionKind, error) {
	if requested == "" {
		if sess.invoice != nil {
			return enum.SubmissionInvoicePayment, nil
		}
		return enum.SubmissionNewSale, nil
	}
	if !requested.Valid() {
		return "", apperror.NewFieldError("kind", fmt.Sprintf("Unknown submission kind %q", requested))
	}
	if sess.invoice != nil && requested != enum.SubmissionInvoicePayment {
		return "", apperror.NewFieldError("kind", "This settlement collects an invoice balance")
	}
	if sess.invoice == nil && requested == enum.SubmissionInvoicePayment {
		return "", apperror.NewFieldError("kind", "No invoice is selected")
	}
	return requested, nil
}

func findMode(modes []entity.PaymentMode, name string) (entity.PaymentMode, bool) {
	name = strings.TrimSpace(name)
	for _, m := range modes {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return entity.PaymentMode{}, false
}

func matchesPattern(mode string, patterns []string) bool {
	lower := strings.ToLower(mode)
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
