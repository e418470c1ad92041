package billing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/logger"
	"github.com/iliyamo/pos-gateway/internal/model"
)

type fakeUpstream struct {
	getTable    func(int64) (model.Table, error)
	active      func(int64) (*model.Order, error)
	listOrders  func() ([]model.Order, error)
	getOrder    func(int64) (model.Order, error)
	updateOrder func(int64, model.OrderPatch) (model.Order, error)
	modes       func() ([]model.PaymentMode, error)

	mu        sync.Mutex
	tableGets int
	updates   []model.OrderPatch
}

func (f *fakeUpstream) GetTable(_ context.Context, id int64) (model.Table, error) {
	f.mu.Lock()
	f.tableGets++
	f.mu.Unlock()
	return f.getTable(id)
}

func (f *fakeUpstream) GetActiveOrder(_ context.Context, id int64) (*model.Order, error) {
	return f.active(id)
}

func (f *fakeUpstream) ListOrders(context.Context, apiclient.OrderFilter) ([]model.Order, error) {
	return f.listOrders()
}

func (f *fakeUpstream) GetOrder(_ context.Context, id int64) (model.Order, error) {
	return f.getOrder(id)
}

func (f *fakeUpstream) UpdateOrder(_ context.Context, id int64, p model.OrderPatch) (model.Order, error) {
	f.mu.Lock()
	f.updates = append(f.updates, p)
	f.mu.Unlock()
	return f.updateOrder(id, p)
}

func (f *fakeUpstream) PaymentModes(context.Context) ([]model.PaymentMode, error) {
	if f.modes == nil {
		return []model.PaymentMode{{ID: 1, Name: "FonePay"}, {ID: 2, Name: "Cash"}}, nil
	}
	return f.modes()
}

type fakeJournal struct {
	mu       sync.Mutex
	attempts []model.PaymentAttempt
	outcomes map[int64]model.PaymentOutcome
}

func (j *fakeJournal) Begin(_ context.Context, a model.PaymentAttempt) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts = append(j.attempts, a)
	return int64(len(j.attempts)), nil
}

func (j *fakeJournal) Finish(_ context.Context, id int64, out model.PaymentOutcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.outcomes == nil {
		j.outcomes = map[int64]model.PaymentOutcome{}
	}
	j.outcomes[id] = out
	return nil
}

type fakeEvents struct {
	keys []string
}

func (e *fakeEvents) Publish(_ context.Context, key string, _ any) error {
	e.keys = append(e.keys, key)
	return nil
}

type countingRefresher struct{ n int }

func (r *countingRefresher) Trigger() { r.n++ }

func ptr[T any](v T) *T { return &v }

func TestServiceChargeScenario(t *testing.T) {
	o := model.Order{NetAmount: 1000, GrossAmount: 950, Discount: 50}
	assert.Equal(t, 100.0, ServiceCharge(o))
	a := AmountsFor(o)
	assert.Equal(t, 1000.0, a.Total)
	assert.Equal(t, 1000.0, a.AmountToPay)
	assert.Equal(t, 1000.0, a.DefaultReceived)
}

func TestServiceChargeUsesHalfUpRounding(t *testing.T) {
	assert.Equal(t, 3.0, ServiceCharge(model.Order{NetAmount: 102.5, GrossAmount: 100}))
	assert.Equal(t, -2.0, ServiceCharge(model.Order{NetAmount: 97.5, GrossAmount: 100}))
	assert.Equal(t, -3.0, ServiceCharge(model.Order{NetAmount: 97.4, GrossAmount: 100}))
}

func TestChangeAndCreditScenario(t *testing.T) {
	assert.Equal(t, 100.0, Change(500, 600))
	assert.Equal(t, 0.0, Credit(500, 600))
	assert.Equal(t, 0.0, Change(500, 300))
	assert.Equal(t, 200.0, Credit(500, 300))
	assert.Equal(t, 0.0, Change(500, 500))
	assert.Equal(t, 0.0, Credit(500, 500))
}

func TestLoadContextWithKnownTableSkipsFetch(t *testing.T) {
	api := &fakeUpstream{
		listOrders: func() ([]model.Order, error) {
			return []model.Order{
				{ID: 1, TableID: ptr(int64(7)), Status: model.OrderPaid},
				{ID: 2, TableID: ptr(int64(7)), Status: model.OrderPending, NetAmount: 1000, GrossAmount: 950, Discount: 50},
			}, nil
		},
	}
	svc := NewService(api, Options{Log: logger.Discard()})
	bc, err := svc.LoadContext(context.Background(), 7, &model.Table{ID: 7, TableID: "T7"})
	require.NoError(t, err)
	assert.Equal(t, 0, api.tableGets)
	require.NotNil(t, bc.Order)
	assert.Equal(t, int64(2), bc.Order.ID)
	assert.Equal(t, 100.0, bc.Amounts.ServiceCharge)
	assert.Equal(t, []string{"Cash", "FonePay"}, bc.PaymentModes)
	assert.Equal(t, "Cash", bc.DefaultMode)
	assert.Nil(t, bc.Empty)
}

func TestLoadContextFetchesTableAndReportsEmptyState(t *testing.T) {
	api := &fakeUpstream{
		getTable:   func(id int64) (model.Table, error) { return model.Table{ID: id, TableID: "T9"}, nil },
		listOrders: func() ([]model.Order, error) { return []model.Order{{ID: 3, TableID: ptr(int64(9)), Status: model.OrderCompleted}}, nil },
		modes:      func() ([]model.PaymentMode, error) { return nil, errors.New("settings down") },
	}
	svc := NewService(api, Options{Log: logger.Discard()})
	bc, err := svc.LoadContext(context.Background(), 9, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, api.tableGets)
	assert.Equal(t, "T9", bc.Table.TableID)
	assert.Nil(t, bc.Order)
	require.NotNil(t, bc.Empty)
	assert.Equal(t, NoActiveOrderMessage, bc.Empty.Message)
	assert.Equal(t, "/pos", bc.Empty.Exit)
	assert.Equal(t, []string{"Cash"}, bc.PaymentModes)
}

func TestLoadContextUsesDedicatedEndpointWhenEnabled(t *testing.T) {
	api := &fakeUpstream{
		active: func(id int64) (*model.Order, error) {
			return &model.Order{ID: 44, TableID: ptr(id), Status: model.OrderInProgress}, nil
		},
		listOrders: func() ([]model.Order, error) { t.Fatal("list must not be used"); return nil, nil },
	}
	svc := NewService(api, Options{ActiveOrderEndpoint: true, Log: logger.Discard()})
	bc, err := svc.LoadContext(context.Background(), 7, &model.Table{ID: 7})
	require.NoError(t, err)
	require.NotNil(t, bc.Order)
	assert.Equal(t, int64(44), bc.Order.ID)
}

func TestProcessPaymentSettlesFreshOrder(t *testing.T) {
	api := &fakeUpstream{
		getOrder: func(id int64) (model.Order, error) {
			return model.Order{ID: id, OrderNumber: "ORD-5", Status: model.OrderPending, NetAmount: 500}, nil
		},
		updateOrder: func(id int64, p model.OrderPatch) (model.Order, error) {
			return model.Order{ID: id, Status: *p.Status, PaidAmount: *p.PaidAmount, CreditAmount: *p.CreditAmount}, nil
		},
	}
	j := &fakeJournal{}
	ev := &fakeEvents{}
	ref := &countingRefresher{}
	svc := NewService(api, Options{Journal: j, Events: ev, Refresher: ref, Log: logger.Discard()})

	res, err := svc.ProcessPayment(context.Background(), PaymentRequest{OrderID: 5, PaymentType: "Cash", PaidAmount: 300, UserID: "3"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaid, res.Order.Status)
	assert.Equal(t, 200.0, res.CreditAmount)
	assert.Equal(t, 0.0, res.Change)
	assert.Equal(t, PaymentSuccessMessage, res.Message)
	assert.Equal(t, "/pos", res.Redirect)
	assert.Equal(t, int64(1000), res.RedirectAfterMs)

	require.Len(t, api.updates, 1)
	p := api.updates[0]
	assert.Equal(t, "Cash", *p.PaymentType)
	assert.Equal(t, 300.0, *p.PaidAmount)
	assert.Equal(t, 200.0, *p.CreditAmount)

	require.Len(t, j.attempts, 1)
	assert.Equal(t, model.AttemptSucceeded, j.outcomes[1].Status)
	assert.Equal(t, []string{"payment.settled"}, ev.keys)
	assert.Equal(t, 1, ref.n)
}

func TestProcessPaymentRejectsSettledOrder(t *testing.T) {
	api := &fakeUpstream{
		getOrder: func(id int64) (model.Order, error) { return model.Order{ID: id, Status: model.OrderPaid}, nil },
	}
	j := &fakeJournal{}
	svc := NewService(api, Options{Journal: j, Log: logger.Discard()})
	_, err := svc.ProcessPayment(context.Background(), PaymentRequest{OrderID: 5, PaymentType: "Cash", PaidAmount: 10})
	assert.ErrorIs(t, err, ErrOrderNotActive)
	assert.Empty(t, api.updates)
	assert.Equal(t, model.AttemptRejected, j.outcomes[1].Status)
}

func TestProcessPaymentSurfacesUpstreamFailure(t *testing.T) {
	api := &fakeUpstream{
		getOrder: func(id int64) (model.Order, error) { return model.Order{ID: id, Status: model.OrderPending, NetAmount: 100}, nil },
		updateOrder: func(int64, model.OrderPatch) (model.Order, error) {
			return model.Order{}, &apiclient.RequestError{Status: http.StatusBadRequest, Detail: "Order already settled"}
		},
	}
	j := &fakeJournal{}
	ref := &countingRefresher{}
	svc := NewService(api, Options{Journal: j, Refresher: ref, Log: logger.Discard()})
	_, err := svc.ProcessPayment(context.Background(), PaymentRequest{OrderID: 5, PaymentType: "Card", PaidAmount: 100})
	re, ok := apiclient.AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, "Order already settled", re.Detail)
	assert.Equal(t, model.AttemptFailed, j.outcomes[1].Status)
	assert.Equal(t, "upstream 400: Order already settled", j.outcomes[1].Error)
	assert.Equal(t, 0, ref.n)
}

func TestProcessPaymentInFlightGuard(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	api := &fakeUpstream{
		getOrder: func(id int64) (model.Order, error) {
			close(entered)
			<-release
			return model.Order{ID: id, Status: model.OrderPending, NetAmount: 100}, nil
		},
		updateOrder: func(id int64, p model.OrderPatch) (model.Order, error) { return model.Order{ID: id, Status: *p.Status}, nil },
	}
	svc := NewService(api, Options{Log: logger.Discard()})
	req := PaymentRequest{OrderID: 5, PaymentType: "Cash", PaidAmount: 100}

	done := make(chan error, 1)
	go func() {
		_, err := svc.ProcessPayment(context.Background(), req)
		done <- err
	}()
	<-entered
	_, err := svc.ProcessPayment(context.Background(), req)
	assert.ErrorIs(t, err, ErrPaymentInFlight)

	close(release)
	require.NoError(t, <-done)

	api.getOrder = func(id int64) (model.Order, error) {
		return model.Order{ID: id, Status: model.OrderPending, NetAmount: 100}, nil
	}
	_, err = svc.ProcessPayment(context.Background(), req)
	assert.NoError(t, err, "lock must be released once the first payment finished")
}

func TestProcessPaymentValidates(t *testing.T) {
	svc := NewService(&fakeUpstream{}, Options{Log: logger.Discard()})
	_, err := svc.ProcessPayment(context.Background(), PaymentRequest{OrderID: 5, PaidAmount: 10})
	assert.ErrorIs(t, err, ErrInvalidPayment)
	_, err = svc.ProcessPayment(context.Background(), PaymentRequest{OrderID: 5, PaymentType: "Cash", PaidAmount: -1})
	assert.ErrorIs(t, err, ErrInvalidPayment)
}

func TestRenderReceipt(t *testing.T) {
	o := model.Order{
		OrderNumber: "ORD-0042",
		OrderType:   model.OrderTypeTable,
		Table:       &model.TableRef{TableID: "T7"},
		Customer:    &model.Customer{Name: "Sita"},
		CreatedAt:   model.Timestamp{Time: time.Date(2024, 5, 1, 19, 30, 0, 0, time.UTC)},
		Items: []model.OrderItem{
			{ID: 1, MenuItem: &model.MenuItemRef{Name: "Chicken Momo"}, Quantity: 2, Subtotal: 600},
			{ID: 2, MenuItem: &model.MenuItemRef{Name: "A very long dish name that will not fit the column"}, Quantity: 1, Subtotal: 350},
		},
		GrossAmount: 950,
		Discount:    50,
		NetAmount:   1000,
	}
	out := RenderReceipt(o, ReceiptOptions{Width: 48, Title: "Digibusi Cafe", HeaderLines: []string{"Kathmandu, Nepal"}, Location: time.UTC})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for _, l := range lines {
		assert.LessOrEqual(t, len([]rune(l)), 48, l)
	}
	assert.Contains(t, out, "DIGIBUSI CAFE")
	assert.Contains(t, out, "Bill No: ORD-0042")
	assert.Contains(t, out, "Date: 2024-05-01 19:30")
	assert.Contains(t, out, "Table: T7")
	assert.Contains(t, out, "Customer: Sita")
	assert.Contains(t, out, "Discount:")
	assert.Contains(t, out, "-50")
	assert.Contains(t, out, "Service Charge (5%):")
	assert.Contains(t, out, "Please visit again")
	assert.Regexp(t, `TOTAL:\s+Rs\. 1,000\n`, out)
	assert.Regexp(t, `Chicken Momo\s+2\s+600`, out)
}

func TestRenderReceiptWalkInWithoutExtras(t *testing.T) {
	out := RenderReceipt(model.Order{OrderNumber: "ORD-1", OrderType: model.OrderTypeTakeaway, GrossAmount: 100, NetAmount: 100}, ReceiptOptions{})
	assert.Contains(t, out, "Table: Walk-in")
	assert.NotContains(t, out, "Discount:")
	assert.NotContains(t, out, "Service Charge")
	assert.NotContains(t, out, "Customer:")
}

func TestCashierQueue(t *testing.T) {
	orders := []model.Order{
		{ID: 1, OrderNumber: "ORD-001", Status: model.OrderPending, Customer: &model.Customer{Name: "Hari"}},
		{ID: 2, OrderNumber: "ORD-002", Status: model.OrderCompleted},
		{ID: 3, OrderNumber: "ORD-003", Status: model.OrderPaid},
		{ID: 4, OrderNumber: "ORD-004", Status: model.OrderInProgress},
	}
	assert.Len(t, CashierQueue(orders, ""), 2)
	got := CashierQueue(orders, "hAR")
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	got = CashierQueue(orders, "002")
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}
