package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/enum"
	"github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/domain/settlement"
	"github.com/sangkips/investify-till/pkg/apperror"
	"github.com/sangkips/investify-till/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSale(t *testing.T, h *harness, tillID, code string, qty int) *SettlementView {
	t.Helper()
	h.openTill(t, tillID)
	h.add(t, tillID, code, qty)
	view, err := h.settlements.Open(context.Background(), tillID, OpenInput{})
	require.NoError(t, err)
	return view
}

func TestOpenSettlementTargetsCartTotal(t *testing.T) {
	h := newHarness(t)

	view := openSale(t, h, "T1", "RICE", 2)

	assert.True(t, view.Target.Equal(dec("200")))
	require.Len(t, view.Splits, 1)
	assert.Equal(t, "Cash", view.Splits[0].Mode)
	assert.True(t, view.Splits[0].Amount.Equal(dec("200")))
	assert.True(t, view.Complete)
	assert.True(t, view.Customer.WalkIn)
	assert.Equal(t, "CUST-0000", view.Customer.ID)

	names := make([]string, len(view.Modes))
	for i, m := range view.Modes {
		names[i] = m.Name
	}
	assert.Equal(t, []string{"Cash", "M-Pesa", "Card", "credit"}, names)
	assert.True(t, view.Modes[1].Mobile)
}

func TestOpenSettlementRequiresItems(t *testing.T) {
	h := newHarness(t)

	_, err := h.settlements.Open(context.Background(), "T1", OpenInput{})

	requireReason(t, err, apperror.ReasonValidation)
}

func TestGetWithoutSessionIsPrecondition(t *testing.T) {
	h := newHarness(t)

	_, err := h.settlements.Get(context.Background(), "T1")

	requireReason(t, err, apperror.ReasonNoSettlement)
}

func TestEditingFirstSplitRebalancesLast(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 2)

	view, err := h.settlements.AddSplit(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, view.Splits, 2)

	view, err = h.settlements.UpdateSplit(ctx, "T1", view.Splits[0].ID, settlement.FieldAmount, "50")
	require.NoError(t, err)

	assert.True(t, view.Splits[0].Amount.Equal(dec("50")))
	assert.True(t, view.Splits[1].Amount.Equal(dec("150")))
	assert.True(t, money.Sum(view.Splits[0].Amount, view.Splits[1].Amount).Equal(dec("200")))
	assert.True(t, view.Complete)
}

func TestUnknownModeIsRejected(t *testing.T) {
	h := newHarness(t)
	view := openSale(t, h, "T1", "RICE", 1)

	_, err := h.settlements.UpdateSplit(context.Background(), "T1", view.Splits[0].ID, settlement.FieldMode, "Bitcoin")

	requireReason(t, err, apperror.ReasonValidation)
}

func TestCreditIsClampedToCustomerBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)
	_, err := h.customers.Select(ctx, "T1", "CUST-0001")
	require.NoError(t, err)

	view, err := h.settlements.SetCreditUsed(ctx, "T1", dec("50"))

	require.NoError(t, err)
	assert.True(t, view.CreditUsed.Equal(dec("30")))
	assert.True(t, view.CreditLimit.Equal(dec("30")))
	assert.True(t, view.Splits[0].Amount.Equal(dec("70")))
	assert.True(t, view.Complete)
}

func TestWalkInCannotUseCredit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	view := openSale(t, h, "T1", "RICE", 1)
	before := view.Splits

	_, err := h.settlements.UpdateSplit(ctx, "T1", before[0].ID, settlement.FieldMode, "credit")

	requireReason(t, err, apperror.ReasonWalkInCredit)
	after, err := h.settlements.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, before, after.Splits)

	credit, err := h.settlements.SetCreditUsed(ctx, "T1", dec("10"))
	require.NoError(t, err)
	assert.True(t, credit.CreditUsed.IsZero())
}

func TestPointsAreConvertedAndClamped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 2)
	_, err := h.customers.Select(ctx, "T1", "CUST-0001")
	require.NoError(t, err)

	view, err := h.settlements.SetPointsRedeemed(ctx, "T1", dec("500"))

	require.NoError(t, err)
	assert.True(t, view.PointsRedeemed.Equal(dec("100")))
	assert.True(t, view.PointsValue.Equal(dec("100")))
	assert.True(t, view.Splits[0].Amount.Equal(dec("100")))
}

func TestSwitchingToWalkInMovesCreditLinesOff(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)
	_, err := h.customers.Select(ctx, "T1", "CUST-0001")
	require.NoError(t, err)
	view, err := h.settlements.UpdateSplit(ctx, "T1", 1, settlement.FieldMode, "CREDIT")
	require.NoError(t, err)
	assert.Equal(t, "credit", view.Splits[0].Mode)

	h.customers.ResetToWalkIn("T1")

	view, err = h.settlements.Get(ctx, "T1")
	require.NoError(t, err)
	assert.True(t, view.Customer.WalkIn)
	assert.Equal(t, "Cash", view.Splits[0].Mode)
}

func TestTargetFollowsCartChanges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)

	h.add(t, "T1", "SVC", 1)
	view, err := h.settlements.Get(ctx, "T1")

	require.NoError(t, err)
	assert.True(t, view.Target.Equal(dec("150")))
	assert.True(t, view.Splits[0].Amount.Equal(dec("150")))
}

func TestSubmitNewSale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 2)
	cashier := uuid.New()

	result, err := h.settlements.Submit(ctx, "T1", SubmitInput{CashierID: cashier})

	require.NoError(t, err)
	assert.Equal(t, "SAL-001", result.SalesID)
	assert.Equal(t, enum.SubmissionNewSale, result.Kind)
	assert.Equal(t, enum.SettlementStatusComplete, result.Status)
	assert.True(t, result.Due.IsZero())

	require.Len(t, h.backend.sales, 1)
	sale := h.backend.sales[0]
	assert.Equal(t, "Main Store", sale.Warehouse)
	assert.Equal(t, "Walk-in Customer", sale.CustomerName)
	assert.True(t, sale.TotalSalesPrice.Equal(dec("200")))
	require.Len(t, sale.InvoiceItems, 1)
	assert.True(t, sale.InvoiceItems[0].Qty.Equal(dec("2")))
	require.Len(t, sale.PaymentDetails, 1)
	assert.Equal(t, "Cash", sale.PaymentDetails[0].ModeOfPayment)
	assert.Empty(t, sale.SalesID)

	cart, _ := h.carts.Get(ctx, "T1")
	assert.True(t, cart.IsEmpty())
	_, err = h.settlements.Get(ctx, "T1")
	requireReason(t, err, apperror.ReasonNoSettlement)

	records := h.journal.all()
	require.Len(t, records, 1)
	assert.Equal(t, "SAL-001", records[0].SalesID)
	assert.Equal(t, cashier, records[0].CashierID)
}

func TestSubmitNewSaleRequiresOpenTill(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.add(t, "T1", "RICE", 1)
	_, err := h.settlements.Open(ctx, "T1", OpenInput{})
	require.NoError(t, err)

	_, err = h.settlements.Submit(ctx, "T1", SubmitInput{})

	requireReason(t, err, apperror.ReasonNoOpenTill)
	assert.Zero(t, h.backend.saleCount())
}

func TestSubmitFoldsCreditSplitsIntoCreditUsed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)
	_, err := h.customers.Select(ctx, "T1", "CUST-0001")
	require.NoError(t, err)
	view, err := h.settlements.AddSplit(ctx, "T1")
	require.NoError(t, err)
	_, err = h.settlements.UpdateSplit(ctx, "T1", view.Splits[0].ID, settlement.FieldMode, "credit")
	require.NoError(t, err)
	_, err = h.settlements.UpdateSplit(ctx, "T1", view.Splits[0].ID, settlement.FieldAmount, "20")
	require.NoError(t, err)
	_, err = h.settlements.SetPointsRedeemed(ctx, "T1", dec("10"))
	require.NoError(t, err)

	_, err = h.settlements.Submit(ctx, "T1", SubmitInput{})

	require.NoError(t, err)
	sale := h.backend.sales[0]
	assert.True(t, sale.CreditUsed.Equal(dec("20")))
	assert.True(t, sale.LoyaltyPointsRedeemed.Equal(dec("10")))
	require.Len(t, sale.PaymentDetails, 1)
	assert.Equal(t, "Cash", sale.PaymentDetails[0].ModeOfPayment)
	assert.True(t, sale.PaymentDetails[0].Amount.Equal(dec("70")))
	assert.Equal(t, "CUST-0001", sale.CustomerID)
}

func TestCreditBeyondBalanceIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)
	_, err := h.customers.Select(ctx, "T1", "CUST-0001")
	require.NoError(t, err)
	_, err = h.settlements.UpdateSplit(ctx, "T1", 1, settlement.FieldMode, "credit")
	require.NoError(t, err)

	_, err = h.settlements.Submit(ctx, "T1", SubmitInput{})

	requireReason(t, err, apperror.ReasonValidation)
	assert.Zero(t, h.backend.saleCount())
}

func TestPartialPaymentNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 2)
	_, err := h.settlements.UpdateSplit(ctx, "T1", 1, settlement.FieldAmount, "120")
	require.NoError(t, err)

	_, err = h.settlements.Submit(ctx, "T1", SubmitInput{})

	requireReason(t, err, apperror.ReasonPartialPayment)
	appErr := apperror.GetAppError(err)
	assert.Equal(t, http.StatusPreconditionRequired, appErr.Code)
	details, ok := appErr.Details.(PartialPayment)
	require.True(t, ok)
	assert.True(t, details.Remaining.Equal(dec("80")))
	assert.Zero(t, h.backend.saleCount())
	cart, _ := h.carts.Get(ctx, "T1")
	assert.False(t, cart.IsEmpty())

	result, err := h.settlements.Submit(ctx, "T1", SubmitInput{ConfirmPartial: true})

	require.NoError(t, err)
	assert.Equal(t, enum.SettlementStatusPartial, result.Status)
	assert.True(t, result.Paid.Equal(dec("120")))
	assert.True(t, result.Due.Equal(dec("80")))
}

func TestSubmitBlockedWhileLineProcessing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	view := openSale(t, h, "T1", "RICE", 1)

	h.settlements.mu.Lock()
	_, err := h.settlements.sessions["T1"].alloc.BeginConfirmation(view.Splits[0].ID)
	h.settlements.mu.Unlock()
	require.NoError(t, err)

	_, err = h.settlements.Submit(ctx, "T1", SubmitInput{ConfirmPartial: true})

	requireReason(t, err, apperror.ReasonLineBusy)
	assert.Zero(t, h.backend.saleCount())
}

func TestUnconfirmedMobileLineBlocksSubmit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)
	_, err := h.settlements.UpdateSplit(ctx, "T1", 1, settlement.FieldMode, "m-pesa")
	require.NoError(t, err)

	_, err = h.settlements.Submit(ctx, "T1", SubmitInput{})

	requireReason(t, err, apperror.ReasonUnconfirmed)
	assert.Zero(t, h.backend.saleCount())
}

func TestSecondSubmitWhileInFlightIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)

	var second error
	h.backend.saleHook = func() {
		_, second = h.settlements.Submit(ctx, "T1", SubmitInput{})
	}

	_, err := h.settlements.Submit(ctx, "T1", SubmitInput{})

	require.NoError(t, err)
	requireReason(t, second, apperror.ReasonInFlight)
	assert.Equal(t, 1, h.backend.saleCount())
}

func TestSettlementCannotBeClosedWhileSubmitting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)

	var closeErr, reopenErr, secondErr error
	h.backend.saleHook = func() {
		h.backend.saleHook = nil
		closeErr = h.settlements.Close("T1")
		_, _ = h.tills.Close("T1")
		_, reopenErr = h.settlements.Open(ctx, "T1", OpenInput{})
		_, secondErr = h.settlements.Submit(ctx, "T1", SubmitInput{})
	}

	_, err := h.settlements.Submit(ctx, "T1", SubmitInput{})

	require.NoError(t, err)
	requireReason(t, closeErr, apperror.ReasonInFlight)
	requireReason(t, reopenErr, apperror.ReasonInFlight)
	requireReason(t, secondErr, apperror.ReasonInFlight)
	assert.Equal(t, 1, h.backend.saleCount())
}

func TestCartIsFrozenWhileSubmitting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)

	var addErr, clearErr error
	h.backend.saleHook = func() {
		_, addErr = h.carts.AddByCode(ctx, "T1", "SVC")
		_, clearErr = h.carts.Clear(ctx, "T1")
	}

	_, err := h.settlements.Submit(ctx, "T1", SubmitInput{})

	require.NoError(t, err)
	requireReason(t, addErr, apperror.ReasonInFlight)
	requireReason(t, clearErr, apperror.ReasonInFlight)
	require.Len(t, h.backend.sales, 1)
	assert.Len(t, h.backend.sales[0].InvoiceItems, 1)

	h.backend.saleHook = nil
	cart := h.add(t, "T1", "SVC", 1)
	assert.Len(t, cart.Lines, 1)
}

func TestFailedSubmitKeepsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)
	h.backend.saleErr = apperror.NewBackendError("Stock sync in progress")

	_, err := h.settlements.Submit(ctx, "T1", SubmitInput{})

	requireReason(t, err, apperror.ReasonBackend)
	assert.Equal(t, "Stock sync in progress", err.Error())
	view, err := h.settlements.Get(ctx, "T1")
	require.NoError(t, err)
	assert.False(t, view.Processing)
	cart, _ := h.carts.Get(ctx, "T1")
	assert.False(t, cart.IsEmpty())
}

func TestInvoicePaymentDoesNotNeedTill(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.invoices["SAL-0099"] = &entity.Invoice{SalesID: "SAL-0099", OutstandingAmount: dec("80")}

	view, err := h.settlements.Open(ctx, "T9", OpenInput{InvoiceID: "SAL-0099"})
	require.NoError(t, err)
	assert.Equal(t, enum.SubmissionInvoicePayment, view.Kind)
	assert.True(t, view.Target.Equal(dec("80")))

	result, err := h.settlements.Submit(ctx, "T9", SubmitInput{})

	require.NoError(t, err)
	assert.Equal(t, enum.SubmissionInvoicePayment, result.Kind)
	require.Len(t, h.backend.payments, 1)
	assert.Equal(t, "SAL-0099", h.backend.payments[0].SalesID)
	require.Len(t, h.backend.payments[0].PaymentDetails, 1)
	assert.Zero(t, h.backend.saleCount())
}

func TestSubmitKindMustMatchSession(t *testing.T) {
	h := newHarness(t)
	openSale(t, h, "T1", "RICE", 1)

	_, err := h.settlements.Submit(context.Background(), "T1", SubmitInput{Kind: enum.SubmissionInvoicePayment})

	requireReason(t, err, apperror.ReasonValidation)
}

func TestDraftSaveThroughSettlement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 2)

	result, err := h.settlements.Submit(ctx, "T1", SubmitInput{Kind: enum.SubmissionDraftSave})

	require.NoError(t, err)
	assert.Equal(t, "DRAFT-001", result.SalesID)
	assert.Equal(t, enum.SubmissionDraftSave, result.Kind)
	assert.Zero(t, h.backend.saleCount())
	require.Len(t, h.backend.draftRequests, 1)
	assert.True(t, h.backend.draftRequests[0].Total.Equal(dec("200")))
	_, err = h.settlements.Get(ctx, "T1")
	requireReason(t, err, apperror.ReasonNoSettlement)
}

func TestSubmitPrintsAndSendsReceipt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)
	_, err := h.settlements.SetMobile(ctx, "T1", "0733000000")
	require.NoError(t, err)

	result, err := h.settlements.Submit(ctx, "T1", SubmitInput{Print: true, Send: true})

	require.NoError(t, err)
	assert.True(t, result.Printed)
	assert.True(t, result.Sent)
	assert.Empty(t, result.Warnings)
	require.Len(t, h.printer.Jobs(), 1)
	assert.Contains(t, string(h.printer.Jobs()[0]), "SAL-001")
	assert.Equal(t, []string{"SAL-001:0733000000"}, h.backend.receipts)
}

func TestPrintFailureIsAWarning(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)
	h.printer.FailWith(assert.AnError)

	result, err := h.settlements.Submit(ctx, "T1", SubmitInput{Print: true, Send: true})

	require.NoError(t, err)
	assert.False(t, result.Printed)
	assert.False(t, result.Sent)
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, 1, h.backend.saleCount())
}

func TestTillCloseAbandonsSettlement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)

	_, err := h.tills.Close("T1")
	require.NoError(t, err)

	_, err = h.settlements.Get(ctx, "T1")
	requireReason(t, err, apperror.ReasonNoSettlement)
}

func TestHistoryListsJournal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	openSale(t, h, "T1", "RICE", 1)
	_, err := h.settlements.Submit(ctx, "T1", SubmitInput{})
	require.NoError(t, err)

	page, err := h.settlements.History(ctx, &repository.SettlementFilterParams{TillID: "T1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)

	cursor, err := h.settlements.HistoryCursor(ctx, &repository.SettlementCursorFilterParams{TillID: "T1"})
	require.NoError(t, err)
	require.Len(t, cursor.Items, 1)
	assert.False(t, cursor.Pagination.HasNext)
}
