package stateview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/config"
	"github.com/iliyamo/pos-gateway/internal/logger"
	"github.com/iliyamo/pos-gateway/internal/model"
)

type fakeUpstream struct {
	mu          sync.Mutex
	floors      func() ([]model.Floor, error)
	tables      func(floorID int64) ([]model.Table, error)
	kots        func(status string) ([]model.KOT, error)
	orders      func() ([]model.Order, error)
	updateKOT   func(id int64, status string) error
	updateOrder func(id int64, p model.OrderPatch) (model.Order, error)
	calls       map[string]int
}

func (f *fakeUpstream) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeUpstream) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeUpstream) ListFloors(context.Context) ([]model.Floor, error) {
	f.hit("floors")
	if f.floors == nil {
		return []model.Floor{}, nil
	}
	return f.floors()
}

func (f *fakeUpstream) ListTables(_ context.Context, floorID int64) ([]model.Table, error) {
	f.hit("tables")
	if f.tables == nil {
		return []model.Table{}, nil
	}
	return f.tables(floorID)
}

func (f *fakeUpstream) ListKOTs(_ context.Context, status string) ([]model.KOT, error) {
	f.hit("kots")
	if f.kots == nil {
		return []model.KOT{}, nil
	}
	return f.kots(status)
}

func (f *fakeUpstream) UpdateKOTStatus(_ context.Context, id int64, status string) error {
	f.hit("update_kot")
	return f.updateKOT(id, status)
}

func (f *fakeUpstream) ListOrders(context.Context, apiclient.OrderFilter) ([]model.Order, error) {
	f.hit("orders")
	if f.orders == nil {
		return []model.Order{}, nil
	}
	return f.orders()
}

func (f *fakeUpstream) UpdateOrder(_ context.Context, id int64, p model.OrderPatch) (model.Order, error) {
	f.hit("update_order")
	return f.updateOrder(id, p)
}

type memStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

func (m *memStore) Save(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &s
	return nil
}

func (m *memStore) Load(context.Context) (Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return Snapshot{}, false, nil
	}
	return *m.snap, true, nil
}

type topicRecorder struct {
	mu     sync.Mutex
	topics []string
}

func (r *topicRecorder) Broadcast(topic string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
}

func ptr[T any](v T) *T { return &v }

func ts(t time.Time) model.Timestamp { return model.Timestamp{Time: t} }

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestActiveOrderPrefersOpenOrderOverOlderPaid(t *testing.T) {
	orders := []model.Order{
		{ID: 1, TableID: ptr(int64(7)), Status: model.OrderPaid, CreatedAt: ts(base.Add(-time.Hour))},
		{ID: 2, TableID: ptr(int64(7)), Status: model.OrderPending, CreatedAt: ts(base)},
		{ID: 3, TableID: ptr(int64(8)), Status: model.OrderPending, CreatedAt: ts(base.Add(time.Hour))},
	}
	got := ActiveOrder(orders, 7)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)

	again := ActiveOrder(orders, 7)
	assert.Equal(t, got.ID, again.ID, "same list must yield the same selection")
}

func TestActiveOrderSkipsSettledStatusesAndBreaksTies(t *testing.T) {
	orders := []model.Order{
		{ID: 4, TableID: ptr(int64(7)), Status: model.OrderCompleted, CreatedAt: ts(base.Add(time.Hour))},
		{ID: 5, TableID: ptr(int64(7)), Status: model.OrderCancelled, CreatedAt: ts(base.Add(time.Hour))},
		{ID: 6, TableID: ptr(int64(7)), Status: model.OrderInProgress, CreatedAt: ts(base)},
		{ID: 9, TableID: ptr(int64(7)), Status: model.OrderPending, CreatedAt: ts(base)},
		{ID: 10, Status: model.OrderPending, CreatedAt: ts(base.Add(2 * time.Hour))},
	}
	got := ActiveOrder(orders, 7)
	require.NotNil(t, got)
	assert.Equal(t, int64(9), got.ID)
	assert.Nil(t, ActiveOrder(orders[:2], 7))
}

func TestRefreshToleratesPartialFailure(t *testing.T) {
	fail := false
	api := &fakeUpstream{
		floors: func() ([]model.Floor, error) { return []model.Floor{{ID: 1, Name: "Ground"}}, nil },
		tables: func(int64) ([]model.Table, error) {
			return []model.Table{{ID: 7, FloorID: 1, Status: model.TableOccupied}}, nil
		},
		orders: func() ([]model.Order, error) {
			if fail {
				return nil, errors.New("boom")
			}
			return []model.Order{{ID: 2, TableID: ptr(int64(7)), Status: model.OrderPending}}, nil
		},
	}
	v := New(api, Options{Log: logger.Discard()})

	res := v.Refresh(context.Background())
	assert.True(t, res.OK())
	require.Len(t, v.Orders(), 1)

	fail = true
	res = v.Refresh(context.Background())
	assert.Equal(t, []string{SliceOrders}, res.Failed)
	assert.Len(t, v.Orders(), 1, "failed slice keeps its last-known value")
	assert.Len(t, v.Tables(0), 1)
	assert.Len(t, v.Floors(), 1)
}

func TestServingKOTResyncsTicketsAndTables(t *testing.T) {
	var mu sync.Mutex
	served := false
	api := &fakeUpstream{
		tables: func(int64) ([]model.Table, error) {
			mu.Lock()
			defer mu.Unlock()
			n := 1
			if served {
				n = 0
			}
			return []model.Table{{ID: 7, FloorID: 1, Status: model.TableOccupied, KOTCount: n}}, nil
		},
		kots: func(status string) ([]model.KOT, error) {
			assert.Equal(t, model.KOTPending, status)
			mu.Lock()
			defer mu.Unlock()
			if served {
				return []model.KOT{}, nil
			}
			return []model.KOT{{ID: 40, KOTType: model.KOTTypeKitchen, Status: model.KOTPending}}, nil
		},
		updateKOT: func(id int64, status string) error {
			assert.Equal(t, int64(40), id)
			assert.Equal(t, model.KOTServed, status)
			mu.Lock()
			served = true
			mu.Unlock()
			return nil
		},
	}
	bc := &topicRecorder{}
	v := New(api, Options{Broadcaster: bc, Log: logger.Discard()})
	v.Refresh(context.Background())
	require.Len(t, v.PendingKOTs(), 1)

	require.NoError(t, v.UpdateKOTStatus(context.Background(), 40, model.KOTServed))
	assert.Empty(t, v.PendingKOTs())
	tbl, ok := v.Table(7)
	require.True(t, ok)
	assert.Equal(t, 0, tbl.KOTCount)
	assert.Contains(t, bc.topics, TopicKOTs)
	assert.Contains(t, bc.topics, TopicTables)
}

func TestUpdateKOTStatusFailureSkipsResync(t *testing.T) {
	api := &fakeUpstream{updateKOT: func(int64, string) error {
		return &apiclient.RequestError{Status: 404, Detail: "KOT not found"}
	}}
	v := New(api, Options{Log: logger.Discard()})
	err := v.UpdateKOTStatus(context.Background(), 1, model.KOTServed)
	require.Error(t, err)
	assert.Equal(t, 0, api.count("kots"))
}

func TestCancelOrderNeedsConfirmation(t *testing.T) {
	api := &fakeUpstream{updateOrder: func(id int64, p model.OrderPatch) (model.Order, error) {
		return model.Order{ID: id, Status: *p.Status}, nil
	}}
	v := New(api, Options{Log: logger.Discard()})

	_, err := v.CancelOrder(context.Background(), 3, false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Equal(t, 0, api.count("update_order"))

	o, err := v.CancelOrder(context.Background(), 3, true)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, o.Status)
	assert.Equal(t, 1, api.count("orders"))
	assert.Equal(t, 1, api.count("tables"))
}

func TestLateResponseAfterCloseIsIgnored(t *testing.T) {
	release := make(chan struct{})
	api := &fakeUpstream{orders: func() ([]model.Order, error) {
		<-release
		return []model.Order{{ID: 1}}, nil
	}}
	store := &memStore{}
	v := New(api, Options{Store: store, Log: logger.Discard()})

	done := make(chan struct{})
	go func() {
		_ = v.LoadOrders(context.Background())
		close(done)
	}()
	v.Close()
	close(release)
	<-done

	assert.Empty(t, v.Orders())
	assert.False(t, v.Restore(context.Background()))
}

func TestOvertakenResponseIsDropped(t *testing.T) {
	first := make(chan struct{})
	calls := 0
	var mu sync.Mutex
	api := &fakeUpstream{orders: func() ([]model.Order, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			<-first
			return []model.Order{{ID: 1, Status: model.OrderPending}}, nil
		}
		return []model.Order{{ID: 1, Status: model.OrderPaid}}, nil
	}}
	v := New(api, Options{Log: logger.Discard()})

	done := make(chan struct{})
	go func() {
		_ = v.LoadOrders(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return api.count("orders") == 1 }, time.Second, time.Millisecond)
	require.NoError(t, v.LoadOrders(context.Background()))
	close(first)
	<-done

	orders := v.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderPaid, orders[0].Status)
}

func TestDestinationFor(t *testing.T) {
	d := DestinationFor(model.Table{ID: 7, TableID: "T7"})
	assert.Equal(t, DestinationOrder, d.Kind)
	assert.Equal(t, "/pos/order/7", d.Path)
	assert.Nil(t, d.OrderID)

	d = DestinationFor(model.Table{ID: 7, ActiveOrderID: ptr(int64(31))})
	assert.Equal(t, DestinationOrderWithActive, d.Kind)
	require.NotNil(t, d.OrderID)
	assert.Equal(t, int64(31), *d.OrderID)
	assert.Equal(t, int64(7), d.Table.ID)
}

func TestActions(t *testing.T) {
	v := New(&fakeUpstream{}, Options{Log: logger.Discard()})
	assert.Equal(t, []string{ActionOrderTaking}, v.Actions(model.Table{ID: 1, Status: model.TableAvailable}))
	assert.Equal(t, []string{ActionOrderTaking}, v.Actions(model.Table{ID: 1, Status: model.TableReserved}))
	assert.Equal(t, []string{ActionOrderTaking, ActionBilling}, v.Actions(model.Table{ID: 1, Status: model.TableOccupied}))
	assert.Equal(t, []string{ActionOrderTaking, ActionBilling},
		v.Actions(model.Table{ID: 1, Status: model.TableAvailable, ActiveOrderID: ptr(int64(3))}))
}

func TestFloorTablesSelectsFirstFloor(t *testing.T) {
	api := &fakeUpstream{
		floors: func() ([]model.Floor, error) { return []model.Floor{{ID: 2, Name: "Ground"}, {ID: 5, Name: "Roof"}}, nil },
		tables: func(int64) ([]model.Table, error) {
			return []model.Table{{ID: 1, FloorID: 2}, {ID: 2, FloorID: 5}, {ID: 3, FloorID: 2}}, nil
		},
	}
	v := New(api, Options{Log: logger.Discard()})
	v.Refresh(context.Background())

	floor, tables := v.FloorTables(0)
	assert.Equal(t, int64(2), floor)
	assert.Len(t, tables, 2)

	floor, tables = v.FloorTables(5)
	assert.Equal(t, int64(5), floor)
	assert.Len(t, tables, 1)
}

func TestFloorScopedLoadReplacesOnlyThatFloor(t *testing.T) {
	api := &fakeUpstream{tables: func(floorID int64) ([]model.Table, error) {
		if floorID == 2 {
			return []model.Table{{ID: 1, FloorID: 2, Status: model.TableOccupied}}, nil
		}
		return []model.Table{{ID: 1, FloorID: 2}, {ID: 2, FloorID: 5}}, nil
	}}
	v := New(api, Options{Log: logger.Discard()})
	_, err := v.LoadTables(context.Background(), 0)
	require.NoError(t, err)
	_, err = v.LoadTables(context.Background(), 2)
	require.NoError(t, err)

	all := v.Tables(0)
	assert.Len(t, all, 2)
	tbl, _ := v.Table(1)
	assert.Equal(t, model.TableOccupied, tbl.Status)
}

func TestStaleFullLoadDoesNotOverwriteNewerFloorLoad(t *testing.T) {
	release := make(chan struct{})
	api := &fakeUpstream{tables: func(floorID int64) ([]model.Table, error) {
		if floorID == 2 {
			return []model.Table{{ID: 1, FloorID: 2, Status: model.TableOccupied}}, nil
		}
		<-release
		return []model.Table{{ID: 1, FloorID: 2, Status: model.TableAvailable}, {ID: 2, FloorID: 5}}, nil
	}}
	v := New(api, Options{Log: logger.Discard()})

	done := make(chan struct{})
	go func() {
		_, _ = v.LoadTables(context.Background(), 0)
		close(done)
	}()
	require.Eventually(t, func() bool { return api.count("tables") == 1 }, time.Second, time.Millisecond)
	_, err := v.LoadTables(context.Background(), 2)
	require.NoError(t, err)
	close(release)
	<-done

	tbl, ok := v.Table(1)
	require.True(t, ok)
	assert.Equal(t, model.TableOccupied, tbl.Status)
	assert.Len(t, v.Tables(0), 1)
}

func TestRestoreSeedsEmptyViewAndRefreshPersists(t *testing.T) {
	store := &memStore{}
	api := &fakeUpstream{tables: func(int64) ([]model.Table, error) {
		return []model.Table{{ID: 7, Status: model.TableOccupied}}, nil
	}}
	v := New(api, Options{Store: store, Log: logger.Discard()})
	v.Refresh(context.Background())
	require.NotNil(t, store.snap)

	restarted := New(&fakeUpstream{}, Options{Store: store, Log: logger.Discard()})
	require.True(t, restarted.Restore(context.Background()))
	total, occupied := restarted.Occupancy()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, occupied)
}

func TestRunRefreshesOnTriggerAndStops(t *testing.T) {
	api := &fakeUpstream{}
	v := New(api, Options{Log: logger.Discard()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		v.Run(ctx, config.PollConfig{Interval: time.Hour})
		close(done)
	}()

	require.Eventually(t, func() bool { return api.count("orders") == 1 }, time.Second, time.Millisecond)
	v.Trigger()
	require.Eventually(t, func() bool { return api.count("orders") == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestNextWaitStaysWithinJitter(t *testing.T) {
	cfg := config.PollConfig{Interval: 30 * time.Second, Jitter: 2 * time.Second}
	for i := 0; i < 50; i++ {
		w := nextWait(cfg)
		assert.GreaterOrEqual(t, w, 30*time.Second)
		assert.Less(t, w, 32*time.Second)
	}
	assert.Equal(t, 30*time.Second, nextWait(config.PollConfig{Interval: 30 * time.Second}))
}

// tokenRecorder notes the forwarded token of each upstream call.
type tokenRecorder struct {
	*fakeUpstream
	mu   sync.Mutex
	seen map[string]string
}

func (r *tokenRecorder) note(ctx context.Context, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = map[string]string{}
	}
	r.seen[name] = apiclient.TokenFromContext(ctx)
}

func (r *tokenRecorder) token(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.seen[name]
	return tok, ok
}

func (r *tokenRecorder) UpdateKOTStatus(ctx context.Context, id int64, status string) error {
	r.note(ctx, "update_kot")
	return r.fakeUpstream.UpdateKOTStatus(ctx, id, status)
}

func (r *tokenRecorder) ListKOTs(ctx context.Context, status string) ([]model.KOT, error) {
	r.note(ctx, "kots:"+status)
	return r.fakeUpstream.ListKOTs(ctx, status)
}

func (r *tokenRecorder) ListTables(ctx context.Context, floorID int64) ([]model.Table, error) {
	r.note(ctx, "tables")
	return r.fakeUpstream.ListTables(ctx, floorID)
}

func TestSharedLoadsDropTheCallersToken(t *testing.T) {
	api := &tokenRecorder{fakeUpstream: &fakeUpstream{
		updateKOT: func(int64, string) error { return nil },
	}}
	v := New(api, Options{Log: logger.Discard()})
	ctx := apiclient.ContextWithToken(context.Background(), "terminal-7")

	require.NoError(t, v.UpdateKOTStatus(ctx, 3, model.KOTServed))

	tok, ok := api.token("update_kot")
	require.True(t, ok)
	assert.Equal(t, "terminal-7", tok, "the mutation is made as the terminal user")
	tok, ok = api.token("kots:" + model.KOTPending)
	require.True(t, ok)
	assert.Empty(t, tok)
	tok, ok = api.token("tables")
	require.True(t, ok)
	assert.Empty(t, tok)

	_, err := v.LoadKOTs(ctx, model.KOTServed)
	require.NoError(t, err)
	tok, _ = api.token("kots:" + model.KOTServed)
	assert.Equal(t, "terminal-7", tok, "uncached lists keep the caller's token")
}
