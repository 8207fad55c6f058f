package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/enum"
	"github.com/sangkips/investify-till/internal/domain/settlement"
	"github.com/sangkips/investify-till/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mobileSale opens a one-line settlement of 100 paid by M-Pesa.
func mobileSale(t *testing.T, h *harness) {
	t.Helper()
	openSale(t, h, "T1", "RICE", 1)
	_, err := h.settlements.UpdateSplit(context.Background(), "T1", 1, settlement.FieldMode, "M-Pesa")
	require.NoError(t, err)
}

func TestConfirmRequiresPhone(t *testing.T) {
	h := newHarness(t)
	mobileSale(t, h)

	_, err := h.mobile.Confirm(context.Background(), "T1", 1, "")

	requireReason(t, err, apperror.ReasonValidation)
	assert.Zero(t, h.backend.pushCount())
}

func TestConfirmRejectsNonMobileMode(t *testing.T) {
	h := newHarness(t)
	openSale(t, h, "T1", "RICE", 1)

	_, err := h.mobile.Confirm(context.Background(), "T1", 1, "0711222333")

	requireReason(t, err, apperror.ReasonValidation)
	assert.Zero(t, h.backend.pushCount())
}

func TestConfirmUnknownSplit(t *testing.T) {
	h := newHarness(t)
	mobileSale(t, h)

	_, err := h.mobile.Confirm(context.Background(), "T1", 9, "0711222333")

	requireReason(t, err, apperror.ReasonNotFound)
}

func TestConfirmSuccessLocksLine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mobileSale(t, h)

	view, err := h.mobile.Confirm(ctx, "T1", 1, "0711222333")

	require.NoError(t, err)
	split := view.Splits[0]
	assert.True(t, split.Confirmed)
	assert.Equal(t, enum.ConfirmationSuccess, split.State)
	assert.Equal(t, "QK12345", split.Reference)
	assert.Equal(t, "0711222333", split.Phone)

	require.Len(t, h.backend.pushes, 1)
	push := h.backend.pushes[0]
	assert.Equal(t, "0711222333", push.MobileNumber)
	require.Len(t, push.PaymentDetails, 1)
	assert.Equal(t, "M-Pesa", push.PaymentDetails[0].ModeOfPayment)
	assert.True(t, push.PaymentDetails[0].Amount.Equal(dec("100")))

	_, err = h.mobile.Confirm(ctx, "T1", 1, "")
	requireReason(t, err, apperror.ReasonLineLocked)
	_, err = h.settlements.UpdateSplit(ctx, "T1", 1, settlement.FieldAmount, "40")
	requireReason(t, err, apperror.ReasonLineLocked)
	assert.Equal(t, 1, h.backend.pushCount())

	result, err := h.settlements.Submit(ctx, "T1", SubmitInput{})
	require.NoError(t, err)
	assert.Equal(t, enum.SettlementStatusComplete, result.Status)
	require.Len(t, h.backend.sales[0].PaymentDetails, 1)
	assert.Equal(t, "QK12345", h.backend.sales[0].PaymentDetails[0].Reference)
}

func TestConfirmFallsBackToSaleMobile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mobileSale(t, h)
	_, err := h.settlements.SetMobile(ctx, "T1", "0799000000")
	require.NoError(t, err)

	_, err = h.mobile.Confirm(ctx, "T1", 1, "")

	require.NoError(t, err)
	assert.Equal(t, "0799000000", h.backend.pushes[0].MobileNumber)
}

func TestDeclinedPushCanBeRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mobileSale(t, h)
	h.backend.pushResult = &entity.MobilePushResult{StatusCode: 402, Message: "Insufficient funds"}

	view, err := h.mobile.Confirm(ctx, "T1", 1, "0711222333")

	require.NoError(t, err)
	assert.False(t, view.Splits[0].Confirmed)
	assert.Equal(t, enum.ConfirmationFailure, view.Splits[0].State)
	assert.Equal(t, "Insufficient funds", view.Splits[0].Error)

	_, err = h.settlements.Submit(ctx, "T1", SubmitInput{})
	requireReason(t, err, apperror.ReasonUnconfirmed)

	h.backend.pushResult = &entity.MobilePushResult{StatusCode: 200, CheckoutRequestID: "ws_CO_1"}
	view, err = h.mobile.Confirm(ctx, "T1", 1, "")

	require.NoError(t, err)
	assert.True(t, view.Splits[0].Confirmed)
	assert.Empty(t, view.Splits[0].Error)
	assert.Equal(t, "ws_CO_1", view.Splits[0].Reference)
	assert.Equal(t, 2, h.backend.pushCount())
}

func TestDeclineWithoutMessageUsesDefault(t *testing.T) {
	h := newHarness(t)
	mobileSale(t, h)
	h.backend.pushResult = &entity.MobilePushResult{StatusCode: 500}

	view, err := h.mobile.Confirm(context.Background(), "T1", 1, "0711222333")

	require.NoError(t, err)
	assert.Equal(t, msgMobileDeclined, view.Splits[0].Error)
}

func TestTransportErrorMarksFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain error", errors.New("dial tcp: connection refused"), msgMobileUnreachable},
		{"backend message", apperror.NewBackendError("Gateway busy, retry shortly"), "Gateway busy, retry shortly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			mobileSale(t, h)
			h.backend.pushErr = tt.err

			view, err := h.mobile.Confirm(context.Background(), "T1", 1, "0711222333")

			require.NoError(t, err)
			assert.Equal(t, enum.ConfirmationFailure, view.Splits[0].State)
			assert.Equal(t, tt.want, view.Splits[0].Error)
		})
	}
}

func TestLineIsBusyWhileConfirming(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mobileSale(t, h)

	var submitErr, editErr, openErr error
	var processing bool
	h.backend.pushHook = func() {
		view, _ := h.settlements.Get(ctx, "T1")
		processing = view.Splits[0].Busy()
		_, submitErr = h.settlements.Submit(ctx, "T1", SubmitInput{ConfirmPartial: true})
		_, editErr = h.settlements.UpdateSplit(ctx, "T1", 1, settlement.FieldAmount, "10")
		_, openErr = h.settlements.Open(ctx, "T1", OpenInput{})
	}

	_, err := h.mobile.Confirm(ctx, "T1", 1, "0711222333")

	require.NoError(t, err)
	assert.True(t, processing)
	requireReason(t, submitErr, apperror.ReasonLineBusy)
	requireReason(t, editErr, apperror.ReasonLineBusy)
	requireReason(t, openErr, apperror.ReasonInFlight)
	assert.Zero(t, h.backend.saleCount())
}

func TestResponseForClosedSettlementIsDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mobileSale(t, h)
	h.backend.pushHook = func() {
		assert.NoError(t, h.settlements.Close("T1"))
	}

	_, err := h.mobile.Confirm(ctx, "T1", 1, "0711222333")

	requireReason(t, err, apperror.ReasonNoSettlement)
	_, err = h.settlements.Get(ctx, "T1")
	requireReason(t, err, apperror.ReasonNoSettlement)
}
