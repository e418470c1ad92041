// Package billing settles a table's running order: it loads the billing
// context, derives the bill, takes payment and renders the printed receipt.
package billing

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/model"
)

var (
	ErrPaymentInFlight = errors.New("a payment for this order is already being processed")
	ErrOrderNotActive  = errors.New("order is no longer active")
	ErrInvalidPayment  = errors.New("payment mode and a non-negative amount are required")
)

// settledStatuses lists the order statuses billing refuses to settle again.
var settledStatuses = map[string]bool{
	model.OrderCompleted: true,
	model.OrderCancelled: true,
	model.OrderPaid:      true,
}

// Upstream is the part of the REST client billing needs.
type Upstream interface {
	GetTable(ctx context.Context, id int64) (model.Table, error)
	GetActiveOrder(ctx context.Context, tableID int64) (*model.Order, error)
	ListOrders(ctx context.Context, f apiclient.OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (model.Order, error)
	UpdateOrder(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error)
	PaymentModes(ctx context.Context) ([]model.PaymentMode, error)
}

// Journal records every settlement attempt and how it ended.
type Journal interface {
	Begin(ctx context.Context, a model.PaymentAttempt) (int64, error)
	Finish(ctx context.Context, id int64, outcome model.PaymentOutcome) error
}

// Publisher emits domain events on the message bus.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Refresher is asked to re-read the floor after a settlement.
type Refresher interface {
	Trigger()
}

// Options wires a Service.  Nil collaborators are skipped.
type Options struct {
	ActiveOrderEndpoint bool
	RedirectDelay       time.Duration
	LockTTL             time.Duration
	Locker              Locker
	Journal             Journal
	Events              Publisher
	Refresher           Refresher
	Log                 logrus.FieldLogger
}

type Service struct {
	api           Upstream
	activeByAPI   bool
	redirectDelay time.Duration
	lockTTL       time.Duration
	locker        Locker
	journal       Journal
	events        Publisher
	refresher     Refresher
	log           logrus.FieldLogger
}

func NewService(api Upstream, opts Options) *Service {
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.Locker == nil {
		opts.Locker = NewLocker(nil)
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Service{
		api:           api,
		activeByAPI:   opts.ActiveOrderEndpoint,
		redirectDelay: opts.RedirectDelay,
		lockTTL:       opts.LockTTL,
		locker:        opts.Locker,
		journal:       opts.Journal,
		events:        opts.Events,
		refresher:     opts.Refresher,
		log:           opts.Log.WithField("component", "billing"),
	}
}
