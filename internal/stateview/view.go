// Package stateview keeps the gateway's read model of the dining floor:
// floors, tables, pending tickets and orders, refreshed from the backend on
// a timer, on change notifications and after every mutating action.
package stateview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/model"
)

// Realtime topics the view publishes on.
const (
	TopicTables = "tables"
	TopicKOTs   = "kots"
	TopicOrders = "orders"
)

// Slice names reported by RefreshResult.
const (
	SliceFloors = "floors"
	SliceTables = "tables"
	SliceKOTs   = "kots"
	SliceOrders = "orders"
)

var (
	ErrConfirmationRequired = errors.New("cancelling an order requires confirmation")
	ErrClosed               = errors.New("state view closed")
)

// Upstream is the part of the REST client the view needs.
type Upstream interface {
	ListFloors(ctx context.Context) ([]model.Floor, error)
	ListTables(ctx context.Context, floorID int64) ([]model.Table, error)
	ListKOTs(ctx context.Context, status string) ([]model.KOT, error)
	UpdateKOTStatus(ctx context.Context, id int64, status string) error
	ListOrders(ctx context.Context, f apiclient.OrderFilter) ([]model.Order, error)
	UpdateOrder(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error)
}

// Broadcaster pushes view changes to connected terminals.
type Broadcaster interface {
	Broadcast(topic string, payload any)
}

// Publisher emits domain events on the message bus.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Options wires optional collaborators.  Nil fields disable the feature.
type Options struct {
	Broadcaster Broadcaster
	Store       SnapshotStore
	Events      Publisher
	Log         logrus.FieldLogger
	Now         func() time.Time
}

// View is safe for concurrent use.  Loads run independently; a failed load
// leaves its slice at the last-known value and a response that was
// overtaken by a newer one for the same slice is dropped.
type View struct {
	api    Upstream
	bc     Broadcaster
	store  SnapshotStore
	events Publisher
	log    logrus.FieldLogger
	now    func() time.Time

	seq     atomic.Uint64
	trigger chan struct{}

	mu        sync.RWMutex
	closed    bool
	floors    []model.Floor
	tables    []model.Table
	kots      []model.KOT
	orders    []model.Order
	applied   map[string]uint64
	updatedAt time.Time
}

func New(api Upstream, opts Options) *View {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &View{
		api:     api,
		bc:      opts.Broadcaster,
		store:   opts.Store,
		events:  opts.Events,
		log:     opts.Log.WithField("component", "stateview"),
		now:     opts.Now,
		trigger: make(chan struct{}, 1),
		floors:  []model.Floor{},
		tables:  []model.Table{},
		kots:    []model.KOT{},
		orders:  []model.Order{},
		applied: make(map[string]uint64),
	}
}

// RefreshResult reports which slices could not be loaded.
type RefreshResult struct {
	Failed    []string  `json:"failed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OK reports whether every slice loaded.
func (r RefreshResult) OK() bool { return len(r.Failed) == 0 }

// Refresh runs the four loads concurrently.  It never fails as a whole.
func (v *View) Refresh(ctx context.Context) RefreshResult {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []string
	)
	load := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(ctx); err != nil {
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
			}
			return nil
		})
	}
	load(SliceFloors, v.LoadFloors)
	load(SliceTables, func(ctx context.Context) error { _, err := v.LoadTables(ctx, 0); return err })
	load(SliceKOTs, func(ctx context.Context) error { _, err := v.LoadKOTs(ctx, model.KOTPending); return err })
	load(SliceOrders, v.LoadOrders)
	_ = g.Wait()

	v.mu.Lock()
	v.updatedAt = v.now()
	res := RefreshResult{Failed: failed, UpdatedAt: v.updatedAt}
	v.mu.Unlock()

	if len(failed) < 4 {
		v.saveSnapshot(ctx)
	}
	return res
}

// LoadFloors replaces the floor list.
func (v *View) LoadFloors(ctx context.Context) error {
	seq := v.seq.Add(1)
	floors, err := v.api.ListFloors(shared(ctx))
	if err != nil {
		v.log.WithError(err).Warn("load floors")
		return err
	}
	v.apply(SliceFloors, seq, func() { v.floors = floors })
	return nil
}

// LoadTables fetches tables for floorID (0 for every floor).  A floor-scoped
// load replaces only that floor's entries.
func (v *View) LoadTables(ctx context.Context, floorID int64) ([]model.Table, error) {
	seq := v.seq.Add(1)
	tables, err := v.api.ListTables(shared(ctx), floorID)
	if err != nil {
		v.log.WithError(err).WithField("floor_id", floorID).Warn("load tables")
		return nil, err
	}
	// Full and floor loads share one sequence so an older full list never
	// overwrites a newer floor.
	applied := v.apply(SliceTables, seq, func() {
		if floorID == 0 {
			v.tables = tables
			return
		}
		merged := make([]model.Table, 0, len(v.tables)+len(tables))
		for _, t := range v.tables {
			if t.FloorID != floorID {
				merged = append(merged, t)
			}
		}
		v.tables = append(merged, tables...)
	})
	if applied {
		v.broadcast(TopicTables, v.Tables(0))
	}
	return tables, nil
}

// LoadKOTs fetches tickets.  Only the Pending list is kept in the view;
// other filters are fetched and returned without caching.
func (v *View) LoadKOTs(ctx context.Context, status string) ([]model.KOT, error) {
	seq := v.seq.Add(1)
	if status == model.KOTPending {
		ctx = shared(ctx)
	}
	kots, err := v.api.ListKOTs(ctx, status)
	if err != nil {
		v.log.WithError(err).WithField("status", status).Warn("load kots")
		return nil, err
	}
	if status != model.KOTPending {
		return kots, nil
	}
	if v.apply(SliceKOTs, seq, func() { v.kots = kots }) {
		v.broadcast(TopicKOTs, kots)
	}
	return kots, nil
}

// LoadOrders replaces the order list.
func (v *View) LoadOrders(ctx context.Context) error {
	seq := v.seq.Add(1)
	orders, err := v.api.ListOrders(shared(ctx), apiclient.OrderFilter{})
	if err != nil {
		v.log.WithError(err).Warn("load orders")
		return err
	}
	if v.apply(SliceOrders, seq, func() { v.orders = orders }) {
		v.broadcast(TopicOrders, orders)
	}
	return nil
}

// shared drops the caller's forwarded token so lists cached for every
// terminal are read with the gateway's service token.
func shared(ctx context.Context) context.Context {
	return apiclient.ContextWithToken(ctx, "")
}

// apply runs set under the write lock unless the view is closed or a newer
// load of the same slice has already landed.
func (v *View) apply(slice string, seq uint64, set func()) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	if seq < v.applied[slice] {
		v.log.WithField("slice", slice).Debug("dropping out-of-order response")
		return false
	}
	v.applied[slice] = seq
	set()
	return true
}

func (v *View) broadcast(topic string, payload any) {
	if v.bc == nil {
		return
	}
	v.mu.RLock()
	closed := v.closed
	v.mu.RUnlock()
	if !closed {
		v.bc.Broadcast(topic, payload)
	}
}

// Floors returns the last-known floors.
func (v *View) Floors() []model.Floor {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]model.Floor(nil), v.floors...)
}

// Tables returns the last-known tables of floorID.  0 selects every floor.
func (v *View) Tables(floorID int64) []model.Table {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]model.Table, 0, len(v.tables))
	for _, t := range v.tables {
		if floorID == 0 || t.FloorID == floorID {
			out = append(out, t)
		}
	}
	return out
}

// FloorTables resolves the floor a terminal is looking at.  With no floor
// requested the first floor is selected, when any exist.
func (v *View) FloorTables(floorID int64) (int64, []model.Table) {
	if floorID == 0 {
		v.mu.RLock()
		if len(v.floors) > 0 {
			floorID = v.floors[0].ID
		}
		v.mu.RUnlock()
	}
	return floorID, v.Tables(floorID)
}

// Table returns the cached table with the given id.
func (v *View) Table(id int64) (model.Table, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, t := range v.tables {
		if t.ID == id {
			return t, true
		}
	}
	return model.Table{}, false
}

// PendingKOTs returns the last-known Pending tickets.
func (v *View) PendingKOTs() []model.KOT {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]model.KOT(nil), v.kots...)
}

// Orders returns the last-known orders.
func (v *View) Orders() []model.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]model.Order(nil), v.orders...)
}

// Order returns the cached order with the given id.
func (v *View) Order(id int64) (model.Order, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, o := range v.orders {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

// UpdatedAt is the time of the last completed refresh.
func (v *View) UpdatedAt() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.updatedAt
}

// Occupancy counts tables and those currently not Available or Reserved.
func (v *View) Occupancy() (total, occupied int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, t := range v.tables {
		total++
		if t.Status == model.TableOccupied || t.Status == model.TableBillRequested {
			occupied++
		}
	}
	return total, occupied
}

// Close tears the view down.  Loads still in flight finish but no longer
// write, broadcast or persist.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}
