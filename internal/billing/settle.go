package billing

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pos-gateway/internal/model"
)

// Messages shown after a settlement attempt.
const (
	PaymentSuccessMessage = "Payment successful! Order completed and KOTs marked as served."
	PaymentFailedMessage  = "Failed to process payment"
)

// PaymentRequest is one settlement submitted from a terminal.
type PaymentRequest struct {
	OrderID     int64
	PaymentType string
	PaidAmount  float64
	UserID      string
}

// Settlement is the result of a successful payment.
type Settlement struct {
	Order           model.Order `json:"order"`
	AttemptID       string      `json:"attempt_id"`
	Change          float64     `json:"change"`
	CreditAmount    float64     `json:"credit_amount"`
	Message         string      `json:"message"`
	Redirect        string      `json:"redirect"`
	RedirectAfterMs int64       `json:"redirect_after_ms"`
}

// ProcessPayment marks the order Paid.  The order is re-read first so the
// amount settled is never a poll-cached one; a second submission for the
// same order while this one runs fails with ErrPaymentInFlight.  Every
// attempt is journalled with its outcome.  Nothing is retried.
func (s *Service) ProcessPayment(ctx context.Context, req PaymentRequest) (Settlement, error) {
	if req.PaymentType == "" || req.PaidAmount < 0 || req.OrderID <= 0 {
		return Settlement{}, ErrInvalidPayment
	}
	key := strconv.FormatInt(req.OrderID, 10)
	release, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		return Settlement{}, err
	}
	defer release()

	log := s.log.WithFields(logrus.Fields{"order_id": req.OrderID, "user_id": req.UserID})
	attempt := model.PaymentAttempt{
		AttemptID:   uuid.NewString(),
		OrderID:     req.OrderID,
		UserID:      req.UserID,
		PaymentType: req.PaymentType,
		PaidAmount:  req.PaidAmount,
		Status:      model.AttemptPending,
		CreatedAt:   time.Now().UTC(),
	}
	journalID := s.begin(ctx, log, attempt)

	fresh, err := s.api.GetOrder(ctx, req.OrderID)
	if err != nil {
		s.finish(log, journalID, model.PaymentOutcome{Status: model.AttemptFailed, Error: err.Error()})
		return Settlement{}, err
	}
	if settledStatuses[fresh.Status] {
		s.finish(log, journalID, model.PaymentOutcome{
			Status:    model.AttemptRejected,
			NetAmount: fresh.NetAmount,
			Error:     ErrOrderNotActive.Error(),
		})
		return Settlement{}, ErrOrderNotActive
	}

	credit := Credit(fresh.NetAmount, req.PaidAmount)
	change := Change(fresh.NetAmount, req.PaidAmount)
	status := model.OrderPaid
	patch := model.OrderPatch{
		Status:       &status,
		PaymentType:  &req.PaymentType,
		PaidAmount:   &req.PaidAmount,
		CreditAmount: &credit,
	}
	updated, err := s.api.UpdateOrder(ctx, req.OrderID, patch)
	if err != nil {
		s.finish(log, journalID, model.PaymentOutcome{
			Status:    model.AttemptFailed,
			NetAmount: fresh.NetAmount,
			Error:     err.Error(),
		})
		log.WithError(err).Warn("payment failed")
		return Settlement{}, err
	}

	s.finish(log, journalID, model.PaymentOutcome{
		Status:       model.AttemptSucceeded,
		NetAmount:    fresh.NetAmount,
		CreditAmount: credit,
		ChangeAmount: change,
	})
	if s.events != nil {
		evt := map[string]any{
			"attempt_id":    attempt.AttemptID,
			"order_id":      req.OrderID,
			"order_number":  fresh.OrderNumber,
			"payment_type":  req.PaymentType,
			"paid_amount":   req.PaidAmount,
			"credit_amount": credit,
			"table_id":      fresh.TableID,
		}
		if err := s.events.Publish(ctx, "payment.settled", evt); err != nil {
			log.WithError(err).Warn("publish payment.settled")
		}
	}
	if s.refresher != nil {
		s.refresher.Trigger()
	}
	log.WithFields(logrus.Fields{"payment_type": req.PaymentType, "credit": credit}).Info("order settled")

	return Settlement{
		Order:           updated,
		AttemptID:       attempt.AttemptID,
		Change:          change,
		CreditAmount:    credit,
		Message:         PaymentSuccessMessage,
		Redirect:        "/pos",
		RedirectAfterMs: s.redirectDelay.Milliseconds(),
	}, nil
}

func (s *Service) begin(ctx context.Context, log logrus.FieldLogger, a model.PaymentAttempt) int64 {
	if s.journal == nil {
		return 0
	}
	id, err := s.journal.Begin(ctx, a)
	if err != nil {
		log.WithError(err).Error("journal payment attempt")
		return 0
	}
	return id
}

// finish runs detached from the request context so a client hanging up
// does not leave the attempt open.
func (s *Service) finish(log logrus.FieldLogger, id int64, out model.PaymentOutcome) {
	if s.journal == nil || id == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.journal.Finish(ctx, id, out); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("journal payment outcome")
	}
}
