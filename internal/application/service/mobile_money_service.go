package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/domain/settlement"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
	"github.com/sangkips/investify-till/pkg/apperror"
	"go.uber.org/zap"
)

const (
	msgMobileDeclined    = "Mobile money request was declined"
	msgMobileUnreachable = "Could not reach the mobile money service. Try again."
)

// MobileMoneyService runs the push-and-confirm cycle for mobile-money
// payment lines. Each attempt is a single push; the gateway's answer is
// taken as final.
type MobileMoneyService struct {
	settlements *SettlementService
	gateway     repository.MobileMoneyGateway
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewMobileMoneyService creates a new mobile money service
func NewMobileMoneyService(settlements *SettlementService, gateway repository.MobileMoneyGateway, m *metrics.Metrics, logger *zap.Logger) *MobileMoneyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MobileMoneyService{
		settlements: settlements,
		gateway:     gateway,
		metrics:     m,
		logger:      logger,
	}
}

// Confirm pushes a payment prompt for one split. phone overrides the
// split's and the sale's number. A declined or failed push is not an error:
// the line moves to failure with a message and the view is returned.
func (s *MobileMoneyService) Confirm(ctx context.Context, tillID string, splitID int, phone string) (*SettlementView, error) {
	svc := s.settlements
	phone = strings.TrimSpace(phone)

	svc.mu.Lock()
	sess, err := svc.sessionLocked(ctx, tillID)
	if err != nil {
		svc.mu.Unlock()
		return nil, err
	}
	if sess.processing {
		svc.mu.Unlock()
		return nil, apperror.NewConflictError(apperror.ReasonInFlight, "The settlement is being submitted")
	}
	split, ok := sess.alloc.Split(splitID)
	if !ok {
		svc.mu.Unlock()
		return nil, apperror.NewNotFoundError(settlement.ErrMsgSplitNotFound)
	}
	if !svc.isMobile(sess, split.Mode) {
		svc.mu.Unlock()
		return nil, apperror.NewFieldError(string(settlement.FieldMode),
			fmt.Sprintf("%s is not a mobile money payment mode", split.Mode))
	}
	number := firstNonEmpty(phone, split.Phone, sess.mobile)
	if number == "" {
		svc.mu.Unlock()
		return nil, apperror.NewFieldError(string(settlement.FieldPhone), "Enter the customer's phone number")
	}
	if !split.Amount.IsPositive() {
		svc.mu.Unlock()
		return nil, apperror.NewFieldError(string(settlement.FieldAmount), "Amount must be greater than zero")
	}
	if phone != "" && phone != split.Phone {
		if err := sess.alloc.UpdateSplit(splitID, settlement.FieldPhone, phone); err != nil {
			svc.mu.Unlock()
			return nil, err
		}
	}
	split, err = sess.alloc.BeginConfirmation(splitID)
	if err != nil {
		svc.mu.Unlock()
		return nil, err
	}
	generation := sess.id
	svc.mu.Unlock()

	s.logger.Info("mobile money push",
		zap.String("till_id", tillID),
		zap.Int("split_id", splitID),
		zap.String("mode", split.Mode),
		zap.String("amount", split.Amount.String()),
	)
	result, pushErr := s.gateway.Push(ctx, &entity.MobilePushRequest{
		MobileNumber: number,
		PaymentDetails: []entity.PaymentDetail{{
			ModeOfPayment: split.Mode,
			Amount:        split.Amount,
		}},
	})

	svc.mu.Lock()
	defer svc.mu.Unlock()

	current, live := svc.sessions[tillID]
	if !live || current.id != generation {
		s.logger.Info("discarding mobile money response for a closed settlement",
			zap.String("till_id", tillID), zap.Int("split_id", splitID))
		return nil, apperror.NewPreconditionError(apperror.ReasonNoSettlement, "The settlement was closed before the payment was confirmed")
	}

	switch {
	case pushErr != nil:
		s.logger.Warn("mobile money push failed", zap.String("till_id", tillID), zap.Error(pushErr))
		current.alloc.FailConfirmation(splitID, pushMessage(pushErr))
		s.metrics.MobileMoneyAttempt(metrics.OutcomeFailure)
	case result == nil || !result.Accepted():
		message := msgMobileDeclined
		if result != nil && strings.TrimSpace(result.Message) != "" {
			message = result.Message
		}
		current.alloc.FailConfirmation(splitID, message)
		s.metrics.MobileMoneyAttempt(metrics.OutcomeRejected)
	default:
		current.alloc.CompleteConfirmation(splitID, result.TransactionReference())
		s.metrics.MobileMoneyAttempt(metrics.OutcomeSuccess)
	}

	return svc.viewLocked(ctx, current), nil
}

func pushMessage(err error) string {
	if apperror.IsAppError(err) {
		if msg := apperror.GetAppError(err).Message; msg != "" {
			return msg
		}
	}
	return msgMobileUnreachable
}
