package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/settlement"
	"github.com/sangkips/investify-till/pkg/apperror"
	"github.com/sangkips/investify-till/pkg/money"
	"github.com/shopspring/decimal"
)

type settlementTestContext struct {
	t       *testing.T
	h       *harness
	tillID  string
	err     error
	view    *SettlementView
	draftID string
	queued  []entity.CartLine
	result  *SubmitResult
}

func (c *settlementTestContext) reset() {
	c.h = newHarness(c.t)
	c.tillID = ""
	c.err = nil
	c.view = nil
	c.draftID = ""
	c.queued = nil
	c.result = nil
}

func (c *settlementTestContext) anOpenTillInWarehouse(tillID, warehouse string) error {
	c.tillID = tillID
	_, err := c.h.tills.Open(tillID, warehouse, uuid.New())
	return err
}

func (c *settlementTestContext) theCartHoldsOf(qty int, code string) error {
	for i := 0; i < qty; i++ {
		if _, err := c.h.carts.AddByCode(context.Background(), c.tillID, code); err != nil {
			return err
		}
	}
	return nil
}

func (c *settlementTestContext) customerIsSelected(id string) error {
	_, err := c.h.customers.Select(context.Background(), c.tillID, id)
	return err
}

func (c *settlementTestContext) iOpenTheSettlement() error {
	c.view, c.err = c.h.settlements.Open(context.Background(), c.tillID, OpenInput{})
	return c.err
}

func (c *settlementTestContext) iAddASplit() error {
	c.view, c.err = c.h.settlements.AddSplit(context.Background(), c.tillID)
	return c.err
}

func (c *settlementTestContext) iSetSplitAmountTo(id int, amount string) error {
	return c.update(id, settlement.FieldAmount, amount)
}

// A rejected mode change is an expected outcome checked by a later step.
func (c *settlementTestContext) iSetSplitModeTo(id int, mode string) error {
	view, err := c.h.settlements.UpdateSplit(context.Background(), c.tillID, id, settlement.FieldMode, mode)
	c.err = err
	if err == nil {
		c.view = view
	}
	return nil
}

func (c *settlementTestContext) update(id int, field settlement.Field, value string) error {
	c.view, c.err = c.h.settlements.UpdateSplit(context.Background(), c.tillID, id, field, value)
	return c.err
}

func (c *settlementTestContext) iApplyOfStoreCredit(amount string) error {
	c.view, c.err = c.h.settlements.SetCreditUsed(context.Background(), c.tillID, dec(amount))
	return c.err
}

func (c *settlementTestContext) splitIsAwaitingMobileConfirmation(id int) error {
	c.h.settlements.mu.Lock()
	defer c.h.settlements.mu.Unlock()
	sess, ok := c.h.settlements.sessions[c.tillID]
	if !ok {
		return fmt.Errorf("no settlement on %s", c.tillID)
	}
	_, err := sess.alloc.BeginConfirmation(id)
	return err
}

func (c *settlementTestContext) iQueueTheCartAsADraft() error {
	ctx := context.Background()
	cart, err := c.h.carts.Get(ctx, c.tillID)
	if err != nil {
		return err
	}
	c.queued = cart.Lines
	res, err := c.h.drafts.Queue(ctx, c.tillID, QueueInput{})
	if err != nil {
		return err
	}
	c.draftID = res.DraftID
	return nil
}

func (c *settlementTestContext) iResumeTheQueuedDraft() error {
	_, err := c.h.drafts.Resume(context.Background(), c.tillID, c.draftID)
	return err
}

func (c *settlementTestContext) iSubmitTheSale() error {
	c.result, c.err = c.h.settlements.Submit(context.Background(), c.tillID, SubmitInput{})
	return nil
}

func (c *settlementTestContext) refresh() error {
	view, err := c.h.settlements.Get(context.Background(), c.tillID)
	if err != nil {
		return err
	}
	c.view = view
	return nil
}

func (c *settlementTestContext) theSettlementTargetIs(want string) error {
	if !c.view.Target.Equal(dec(want)) {
		return fmt.Errorf("target is %s, want %s", c.view.Target, want)
	}
	return nil
}

func (c *settlementTestContext) splitAmountIs(id int, want string) error {
	split, err := c.split(id)
	if err != nil {
		return err
	}
	if !split.Amount.Equal(dec(want)) {
		return fmt.Errorf("split %d amount is %s, want %s", id, split.Amount, want)
	}
	return nil
}

func (c *settlementTestContext) splitModeIs(id int, want string) error {
	if err := c.refresh(); err != nil {
		return err
	}
	split, err := c.split(id)
	if err != nil {
		return err
	}
	if split.Mode != want {
		return fmt.Errorf("split %d mode is %q, want %q", id, split.Mode, want)
	}
	return nil
}

func (c *settlementTestContext) split(id int) (entity.PaymentSplit, error) {
	for _, s := range c.view.Splits {
		if s.ID == id {
			return s, nil
		}
	}
	return entity.PaymentSplit{}, fmt.Errorf("no split %d", id)
}

func (c *settlementTestContext) thePaymentLinesCoverTheTarget() error {
	v := c.view
	total := decimal.Zero
	for _, s := range v.Splits {
		total = total.Add(s.Amount)
	}
	total = money.Sum(total, v.CreditUsed, v.PointsValue)
	if !money.NearlyEqual(total, v.Target) {
		return fmt.Errorf("payments total %s, target %s", total, v.Target)
	}
	return nil
}

func (c *settlementTestContext) creditUsedIs(want string) error {
	if !c.view.CreditUsed.Equal(dec(want)) {
		return fmt.Errorf("credit used is %s, want %s", c.view.CreditUsed, want)
	}
	return nil
}

func (c *settlementTestContext) theRequestIsRejectedWithReason(reason string) error {
	if c.err == nil {
		return fmt.Errorf("expected rejection with reason %q", reason)
	}
	if !apperror.HasReason(c.err, reason) {
		return fmt.Errorf("rejected with %v, want reason %q", c.err, reason)
	}
	return nil
}

func (c *settlementTestContext) theCartIsEmpty() error {
	cart, err := c.h.carts.Get(context.Background(), c.tillID)
	if err != nil {
		return err
	}
	if !cart.IsEmpty() {
		return fmt.Errorf("cart still holds %d lines", len(cart.Lines))
	}
	return nil
}

func (c *settlementTestContext) theCartReproducesTheQueuedLines() error {
	cart, err := c.h.carts.Get(context.Background(), c.tillID)
	if err != nil {
		return err
	}
	if cart.DraftID != c.draftID {
		return fmt.Errorf("cart draft is %q, want %q", cart.DraftID, c.draftID)
	}
	if len(cart.Lines) != len(c.queued) {
		return fmt.Errorf("cart has %d lines, want %d", len(cart.Lines), len(c.queued))
	}
	for i, want := range c.queued {
		got := cart.Lines[i]
		if got.ItemCode != want.ItemCode || !got.Quantity.Equal(want.Quantity) || !got.UnitPrice.Equal(want.UnitPrice) {
			return fmt.Errorf("line %d is %s x%s @%s, want %s x%s @%s", i,
				got.ItemCode, got.Quantity, got.UnitPrice, want.ItemCode, want.Quantity, want.UnitPrice)
		}
	}
	return nil
}

func (c *settlementTestContext) theSaleReusesTheQueuedDraftID() error {
	if c.err != nil {
		return c.err
	}
	c.h.backend.mu.Lock()
	sales := append([]entity.SaleRequest(nil), c.h.backend.sales...)
	c.h.backend.mu.Unlock()
	if len(sales) != 1 {
		return fmt.Errorf("%d sales posted, want 1", len(sales))
	}
	if sales[0].SalesID != c.draftID || c.result.SalesID != c.draftID {
		return fmt.Errorf("sale posted as %q, want %q", sales[0].SalesID, c.draftID)
	}
	return nil
}

func (c *settlementTestContext) theBackendHoldsNoDrafts() error {
	c.h.backend.mu.Lock()
	n := len(c.h.backend.drafts)
	c.h.backend.mu.Unlock()
	if n != 0 {
		return fmt.Errorf("backend holds %d drafts", n)
	}
	return nil
}

func (c *settlementTestContext) noSaleWasPosted() error {
	if n := c.h.backend.saleCount(); n != 0 {
		return fmt.Errorf("%d sales posted", n)
	}
	return nil
}

func initializeSettlementScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		tc := &settlementTestContext{t: t}

		ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
			tc.reset()
			return ctx, nil
		})

		// Given steps
		ctx.Step(`^an open till "([^"]*)" in warehouse "([^"]*)"$`, tc.anOpenTillInWarehouse)
		ctx.Step(`^the cart holds (\d+) of "([^"]*)"$`, tc.theCartHoldsOf)
		ctx.Step(`^customer "([^"]*)" is selected$`, tc.customerIsSelected)
		ctx.Step(`^split (\d+) is awaiting mobile confirmation$`, tc.splitIsAwaitingMobileConfirmation)

		// When steps
		ctx.Step(`^I open the settlement$`, tc.iOpenTheSettlement)
		ctx.Step(`^I add a split$`, tc.iAddASplit)
		ctx.Step(`^I set split (\d+) amount to "([^"]*)"$`, tc.iSetSplitAmountTo)
		ctx.Step(`^I set split (\d+) mode to "([^"]*)"$`, tc.iSetSplitModeTo)
		ctx.Step(`^I apply "([^"]*)" of store credit$`, tc.iApplyOfStoreCredit)
		ctx.Step(`^I queue the cart as a draft$`, tc.iQueueTheCartAsADraft)
		ctx.Step(`^I resume the queued draft$`, tc.iResumeTheQueuedDraft)
		ctx.Step(`^I submit the sale$`, tc.iSubmitTheSale)

		// Then steps
		ctx.Step(`^the settlement target is "([^"]*)"$`, tc.theSettlementTargetIs)
		ctx.Step(`^split (\d+) amount is "([^"]*)"$`, tc.splitAmountIs)
		ctx.Step(`^split (\d+) mode is "([^"]*)"$`, tc.splitModeIs)
		ctx.Step(`^the payment lines cover the target$`, tc.thePaymentLinesCoverTheTarget)
		ctx.Step(`^credit used is "([^"]*)"$`, tc.creditUsedIs)
		ctx.Step(`^the request is rejected with reason "([^"]*)"$`, tc.theRequestIsRejectedWithReason)
		ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
		ctx.Step(`^the cart reproduces the queued lines$`, tc.theCartReproducesTheQueuedLines)
		ctx.Step(`^the sale reuses the queued draft id$`, tc.theSaleReusesTheQueuedDraftID)
		ctx.Step(`^the backend holds no drafts$`, tc.theBackendHoldsNoDrafts)
		ctx.Step(`^no sale was posted$`, tc.noSaleWasPosted)
	}
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeSettlementScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/settlement.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
