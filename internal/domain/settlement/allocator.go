// Package settlement holds the split-payment allocator. It is pure state:
// no I/O, no locking. Callers serialise access per till.
package settlement

import (
	"fmt"
	"strings"

	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/enum"
	"github.com/sangkips/investify-till/pkg/apperror"
	"github.com/sangkips/investify-till/pkg/money"
	"github.com/shopspring/decimal"
)

// Field names a cashier-editable attribute of a payment split.
type Field string

const (
	FieldMode      Field = "mode"
	FieldAmount    Field = "amount"
	FieldPhone     Field = "phone"
	FieldReference Field = "reference"
)

// Error messages surfaced inline next to the split.
const (
	ErrMsgWalkInCredit    = "Credit is not available for walk-in customers"
	ErrMsgLastSplit       = "At least one payment line is required"
	ErrMsgSplitNotFound   = "Payment line"
	ErrMsgSplitConfirmed  = "Payment line is confirmed and can no longer be changed"
	ErrMsgSplitProcessing = "Payment line is awaiting mobile money confirmation"
	ErrMsgNegativeAmount  = "Amount cannot be negative"
	ErrMsgInvalidAmount   = "Amount must be a number"
	ErrMsgUnknownField    = "Unknown payment field"
	ErrMsgModeRequired    = "Payment mode is required"
)

// Limits are the customer balances and till rules that bound redemption.
type Limits struct {
	Credit        decimal.Decimal
	LoyaltyPoints decimal.Decimal
	PointValue    decimal.Decimal
	WalkIn        bool
}

// Allocator keeps an ordered list of payment splits balanced against a
// target. Only the last split is ever rewritten automatically.
type Allocator struct {
	target         decimal.Decimal
	splits         []entity.PaymentSplit
	nextID         int
	creditUsed     decimal.Decimal
	pointsRedeemed decimal.Decimal
	limits         Limits
	defaultMode    string
	creditMode     string
}

// NewAllocator starts a session with one split carrying the full target.
func NewAllocator(target decimal.Decimal, defaultMode, creditMode string, limits Limits) *Allocator {
	if limits.PointValue.IsZero() {
		limits.PointValue = decimal.NewFromInt(1)
	}
	a := &Allocator{
		target:         money.Round(money.NonNegative(target)),
		creditUsed:     decimal.Zero,
		pointsRedeemed: decimal.Zero,
		limits:         limits,
		defaultMode:    defaultMode,
		creditMode:     creditMode,
		nextID:         1,
	}
	a.splits = []entity.PaymentSplit{a.newSplit(decimal.Zero)}
	a.Rebalance()
	return a
}

func (a *Allocator) newSplit(amount decimal.Decimal) entity.PaymentSplit {
	s := entity.PaymentSplit{
		ID:     a.nextID,
		Mode:   a.defaultMode,
		Amount: money.Round(amount),
		State:  enum.ConfirmationIdle,
	}
	a.nextID++
	return s
}

func (a *Allocator) Target() decimal.Decimal         { return a.target }
func (a *Allocator) CreditUsed() decimal.Decimal     { return a.creditUsed }
func (a *Allocator) PointsRedeemed() decimal.Decimal { return a.pointsRedeemed }
func (a *Allocator) Limits() Limits                  { return a.limits }

// PointsValue is the currency value of the redeemed points.
func (a *Allocator) PointsValue() decimal.Decimal {
	return money.Round(a.pointsRedeemed.Mul(a.limits.PointValue))
}

// Splits returns a copy of the current split list.
func (a *Allocator) Splits() []entity.PaymentSplit {
	return append([]entity.PaymentSplit(nil), a.splits...)
}

// Split returns a copy of the split with id.
func (a *Allocator) Split(id int) (entity.PaymentSplit, bool) {
	if i := a.index(id); i >= 0 {
		return a.splits[i], true
	}
	return entity.PaymentSplit{}, false
}

func (a *Allocator) index(id int) int {
	for i := range a.splits {
		if a.splits[i].ID == id {
			return i
		}
	}
	return -1
}

// IsCreditMode reports whether mode is the reserved credit pseudo-mode.
func (a *Allocator) IsCreditMode(mode string) bool {
	return strings.EqualFold(strings.TrimSpace(mode), a.creditMode)
}

// SplitTotal is the sum of all split amounts.
func (a *Allocator) SplitTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range a.splits {
		total = total.Add(a.splits[i].Amount)
	}
	return total
}

// Paid is everything applied towards the target.
func (a *Allocator) Paid() decimal.Decimal {
	return money.Sum(a.SplitTotal(), a.creditUsed, a.PointsValue())
}

// Remaining is target minus everything applied. Negative means overpaid.
func (a *Allocator) Remaining() decimal.Decimal {
	return a.target.Sub(a.Paid())
}

// IsComplete reports whether the payment matches the target within 0.01.
func (a *Allocator) IsComplete() bool {
	return a.Remaining().Abs().LessThan(money.Tolerance)
}

// AddSplit appends a split in the default mode carrying whatever is still
// unallocated.
func (a *Allocator) AddSplit() entity.PaymentSplit {
	amount := money.NonNegative(a.target.Sub(a.SplitTotal()).Sub(a.creditUsed).Sub(a.PointsValue()))
	s := a.newSplit(amount)
	a.splits = append(a.splits, s)
	a.Rebalance()
	return a.splits[len(a.splits)-1]
}

// RemoveSplit drops a split. The last remaining split cannot be removed, and
// neither can one that is confirmed or mid-confirmation.
func (a *Allocator) RemoveSplit(id int) error {
	i := a.index(id)
	if i < 0 {
		return apperror.NewNotFoundError(ErrMsgSplitNotFound)
	}
	if len(a.splits) <= 1 {
		return apperror.NewFieldError("splits", ErrMsgLastSplit)
	}
	if err := a.checkEditable(&a.splits[i]); err != nil {
		return err
	}
	a.splits = append(a.splits[:i], a.splits[i+1:]...)
	a.Rebalance()
	return nil
}

// UpdateSplit applies a cashier edit. Editing any split other than the last
// re-balances the last one; the edited split is never rewritten.
func (a *Allocator) UpdateSplit(id int, field Field, value string) error {
	i := a.index(id)
	if i < 0 {
		return apperror.NewNotFoundError(ErrMsgSplitNotFound)
	}
	s := &a.splits[i]
	if err := a.checkEditable(s); err != nil {
		return err
	}

	switch field {
	case FieldMode:
		mode := strings.TrimSpace(value)
		if mode == "" {
			return apperror.NewFieldError(string(FieldMode), ErrMsgModeRequired)
		}
		if a.IsCreditMode(mode) && a.limits.WalkIn {
			err := apperror.NewFieldError(string(FieldMode), ErrMsgWalkInCredit)
			err.Reason = apperror.ReasonWalkInCredit
			return err
		}
		if mode != s.Mode {
			s.Mode = mode
			a.resetAttempt(s)
		}
	case FieldAmount:
		amount, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return apperror.NewFieldError(string(FieldAmount), ErrMsgInvalidAmount)
		}
		if amount.IsNegative() {
			return apperror.NewFieldError(string(FieldAmount), ErrMsgNegativeAmount)
		}
		s.Amount = money.Round(amount)
		a.resetAttempt(s)
	case FieldPhone:
		s.Phone = strings.TrimSpace(value)
		a.resetAttempt(s)
	case FieldReference:
		s.Reference = strings.TrimSpace(value)
	default:
		return apperror.NewFieldError("field", fmt.Sprintf("%s: %q", ErrMsgUnknownField, field))
	}

	if i != len(a.splits)-1 {
		a.Rebalance()
	}
	return nil
}

// A failed attempt is forgotten once the cashier changes what would be pushed.
func (a *Allocator) resetAttempt(s *entity.PaymentSplit) {
	if s.State == enum.ConfirmationFailure {
		s.State = enum.ConfirmationIdle
		s.Error = ""
	}
}

func (a *Allocator) checkEditable(s *entity.PaymentSplit) error {
	if s.ReadOnly() {
		return apperror.NewConflictError(apperror.ReasonLineLocked, ErrMsgSplitConfirmed)
	}
	if s.Busy() {
		return apperror.NewConflictError(apperror.ReasonLineBusy, ErrMsgSplitProcessing)
	}
	return nil
}

// SetTarget changes the amount being settled (e.g. an invoice was selected).
func (a *Allocator) SetTarget(target decimal.Decimal) {
	a.target = money.Round(money.NonNegative(target))
	a.creditUsed = a.clampCredit(a.creditUsed)
	a.Rebalance()
}

// SetLimits swaps in a different customer's balances. Credit lines are moved
// back to the default mode when the customer becomes walk-in.
func (a *Allocator) SetLimits(limits Limits) {
	if limits.PointValue.IsZero() {
		limits.PointValue = a.limits.PointValue
	}
	a.limits = limits
	if limits.WalkIn {
		for i := range a.splits {
			if a.IsCreditMode(a.splits[i].Mode) && !a.splits[i].ReadOnly() && !a.splits[i].Busy() {
				a.splits[i].Mode = a.defaultMode
			}
		}
	}
	a.creditUsed = a.clampCredit(a.creditUsed)
	a.pointsRedeemed = a.clampPoints(a.pointsRedeemed)
	a.Rebalance()
}

// SetCreditUsed applies store credit, clamped to [0, min(credit, target)].
func (a *Allocator) SetCreditUsed(amount decimal.Decimal) decimal.Decimal {
	a.creditUsed = a.clampCredit(amount)
	a.Rebalance()
	return a.creditUsed
}

// SetPointsRedeemed applies loyalty points, clamped to [0, loyalty points].
func (a *Allocator) SetPointsRedeemed(points decimal.Decimal) decimal.Decimal {
	a.pointsRedeemed = a.clampPoints(points)
	a.Rebalance()
	return a.pointsRedeemed
}

func (a *Allocator) clampCredit(amount decimal.Decimal) decimal.Decimal {
	ceiling := decimal.Min(money.NonNegative(a.limits.Credit), a.target)
	return money.Round(money.Clamp(amount, decimal.Zero, ceiling))
}

func (a *Allocator) clampPoints(points decimal.Decimal) decimal.Decimal {
	return money.Clamp(points, decimal.Zero, money.NonNegative(a.limits.LoyaltyPoints))
}

// Rebalance sets the last split to whatever the other splits, credit and
// points leave of the target, never below zero. Differences under 0.01 are
// ignored so repeated calls settle. A confirmed or in-flight last split is
// left alone. Reports whether the last split changed.
func (a *Allocator) Rebalance() bool {
	if len(a.splits) == 0 {
		return false
	}
	last := &a.splits[len(a.splits)-1]
	if last.ReadOnly() || last.Busy() {
		return false
	}
	paidBeforeLast := decimal.Zero
	for i := 0; i < len(a.splits)-1; i++ {
		paidBeforeLast = paidBeforeLast.Add(a.splits[i].Amount)
	}
	want := money.Round(money.NonNegative(a.target.Sub(paidBeforeLast).Sub(a.creditUsed).Sub(a.PointsValue())))
	if money.NearlyEqual(want, last.Amount) {
		return false
	}
	last.Amount = want
	return true
}

// BeginConfirmation moves a split into processing. Only one attempt per line
// may be outstanding and a confirmed line cannot be attempted again.
func (a *Allocator) BeginConfirmation(id int) (entity.PaymentSplit, error) {
	i := a.index(id)
	if i < 0 {
		return entity.PaymentSplit{}, apperror.NewNotFoundError(ErrMsgSplitNotFound)
	}
	if err := a.checkEditable(&a.splits[i]); err != nil {
		return entity.PaymentSplit{}, err
	}
	a.splits[i].State = enum.ConfirmationProcessing
	a.splits[i].Error = ""
	return a.splits[i], nil
}

// CompleteConfirmation records a successful push. The line becomes read-only.
func (a *Allocator) CompleteConfirmation(id int, reference string) bool {
	i := a.index(id)
	if i < 0 || a.splits[i].State != enum.ConfirmationProcessing {
		return false
	}
	a.splits[i].State = enum.ConfirmationSuccess
	a.splits[i].Confirmed = true
	if reference != "" {
		a.splits[i].Reference = reference
	}
	return true
}

// FailConfirmation ends an attempt; the cashier may retry.
func (a *Allocator) FailConfirmation(id int, message string) bool {
	i := a.index(id)
	if i < 0 || a.splits[i].State != enum.ConfirmationProcessing {
		return false
	}
	a.splits[i].State = enum.ConfirmationFailure
	a.splits[i].Confirmed = false
	a.splits[i].Error = message
	return true
}

// AnyProcessing reports whether a confirmation is outstanding on any line.
func (a *Allocator) AnyProcessing() bool {
	for i := range a.splits {
		if a.splits[i].Busy() {
			return true
		}
	}
	return false
}

// CreditSplitTotal sums splits in the credit pseudo-mode.
func (a *Allocator) CreditSplitTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range a.splits {
		if a.IsCreditMode(a.splits[i].Mode) {
			total = total.Add(a.splits[i].Amount)
		}
	}
	return total
}

// PaymentDetails lists the non-credit splits that carry money.
func (a *Allocator) PaymentDetails() []entity.PaymentDetail {
	details := make([]entity.PaymentDetail, 0, len(a.splits))
	for i := range a.splits {
		s := a.splits[i]
		if a.IsCreditMode(s.Mode) || !s.Amount.IsPositive() {
			continue
		}
		details = append(details, entity.PaymentDetail{
			ModeOfPayment: s.Mode,
			Amount:        s.Amount,
			Reference:     s.Reference,
		})
	}
	return details
}
