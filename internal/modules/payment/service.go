// README: Payment collaborator; settles completed requests and records the outcome.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"errandhub/internal/access"
	"errandhub/internal/modules/request"
	"errandhub/internal/notify"
	"errandhub/internal/types"
)

var (
	ErrNotCompleted = fmt.Errorf("%w: payment status can change only after completion", types.ErrConflict)
	ErrSettled      = fmt.Errorf("%w: payment already settled", types.ErrConflict)
)

// Charge describes what a gateway should collect for one request.
type Charge struct {
	RequestID   types.ID
	RequesterID types.ID
	Amount      *types.Money
}

// Gateway captures a charge and reports the resulting payment status.
type Gateway interface {
	Capture(ctx context.Context, c Charge) (request.PaymentStatus, error)
}

// DeferredGateway leaves every request unpaid; settlement happens out of band
// and is recorded through Service.SetStatus.
type DeferredGateway struct{}

func (DeferredGateway) Capture(context.Context, Charge) (request.PaymentStatus, error) {
	return request.PaymentUnpaid, nil
}

// Store is the subset of request.Repository the payment service needs.
type Store interface {
	GetRequest(ctx context.Context, id types.ID) (*request.ServiceRequest, error)
	SetPaymentStatus(ctx context.Context, requestID types.ID, from, to request.PaymentStatus, at time.Time) (bool, error)
}

var allowed = map[request.PaymentStatus][]request.PaymentStatus{
	request.PaymentUnpaid: {request.PaymentPaid, request.PaymentFailed},
	request.PaymentFailed: {request.PaymentPaid, request.PaymentUnpaid},
}

func canMove(from, to request.PaymentStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Service struct {
	store    Store
	gateway  Gateway
	notifier notify.Notifier
	authz    access.Authorizer
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(store Store, gateway Gateway, notifier notify.Notifier, log logrus.FieldLogger) *Service {
	if gateway == nil {
		gateway = DeferredGateway{}
	}
	if notifier == nil {
		notifier = notify.Nop
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		authz:    access.Policy{},
		log:      log,
		now:      time.Now,
	}
}

// OnCompleted runs the gateway for a request that just completed. Failures
// are logged and never surface to the caller.
func (s *Service) OnCompleted(ctx context.Context, r *request.ServiceRequest) {
	log := s.log.WithField("request_id", r.ID)
	status, err := s.gateway.Capture(ctx, Charge{RequestID: r.ID, RequesterID: r.RequesterID, Amount: r.OfferedAmount})
	if err != nil {
		log.WithError(err).Warn("payment capture failed")
		status = request.PaymentFailed
	}
	if status == request.PaymentUnpaid {
		log.Debug("payment deferred")
		return
	}
	ok, err := s.store.SetPaymentStatus(ctx, r.ID, request.PaymentUnpaid, status, s.now())
	if err != nil {
		log.WithError(err).Error("record payment status")
		return
	}
	if !ok {
		log.Warn("payment status changed concurrently; capture result not recorded")
		return
	}
	s.emit(ctx, r, status)
}

// SetStatus records an out-of-band settlement. Only admins may call it.
func (s *Service) SetStatus(ctx context.Context, caller access.Caller, requestID types.ID, status request.PaymentStatus) (*request.ServiceRequest, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", types.ErrValidation, status)
	}
	r, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Allow(ctx, caller, access.ActionSetPayment, access.Resource{RequesterID: r.RequesterID}); err != nil {
		return nil, err
	}
	if r.Status != request.StatusCompleted {
		return nil, ErrNotCompleted
	}
	if r.PaymentStatus == status {
		return r, nil
	}
	if !canMove(r.PaymentStatus, status) {
		return nil, ErrSettled
	}
	ok, err := s.store.SetPaymentStatus(ctx, requestID, r.PaymentStatus, status, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment status changed concurrently", types.ErrConflict)
	}
	s.log.WithFields(logrus.Fields{"request_id": requestID, "payment_status": status, "actor": caller.UserID}).Info("payment status set")
	r.PaymentStatus = status
	s.emit(ctx, r, status)
	return r, nil
}

func (s *Service) Status(ctx context.Context, requestID types.ID) (request.PaymentStatus, error) {
	r, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	return r.PaymentStatus, nil
}

func (s *Service) emit(ctx context.Context, r *request.ServiceRequest, status request.PaymentStatus) {
	err := s.notifier.Emit(ctx, notify.Event{
		Type:      notify.PaymentStatus,
		UserID:    r.RequesterID,
		RelatedID: r.ID,
		Detail:    string(status),
		Timestamp: s.now(),
	})
	if err != nil {
		s.log.WithError(err).WithField("request_id", r.ID).Warn("payment notification failed")
	}
}
