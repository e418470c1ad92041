package stateview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/pos-gateway/internal/model"
)

// Snapshot is the persisted copy of the view.
type Snapshot struct {
	Floors    []model.Floor `json:"floors"`
	Tables    []model.Table `json:"tables"`
	KOTs      []model.KOT   `json:"kots"`
	Orders    []model.Order `json:"orders"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SnapshotStore persists snapshots across restarts.
type SnapshotStore interface {
	Save(ctx context.Context, s Snapshot) error
	Load(ctx context.Context) (Snapshot, bool, error)
}

// RedisStore keeps the snapshot under a single key.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisStore returns nil when rdb is nil so callers can pass the result
// straight into Options.
func NewRedisStore(rdb *redis.Client, key string, ttl time.Duration) SnapshotStore {
	if rdb == nil {
		return nil
	}
	return &RedisStore{rdb: rdb, key: key, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	bs, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.rdb.Set(ctx, s.key, bs, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context) (Snapshot, bool, error) {
	bs, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(bs, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Snapshot copies the current view.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Snapshot{
		Floors:    append([]model.Floor(nil), v.floors...),
		Tables:    append([]model.Table(nil), v.tables...),
		KOTs:      append([]model.KOT(nil), v.kots...),
		Orders:    append([]model.Order(nil), v.orders...),
		UpdatedAt: v.updatedAt,
	}
}

// Restore seeds an empty view from the store so a restarted gateway serves
// last-known state before its first refresh completes.  Slices that were
// already loaded are left alone.
func (v *View) Restore(ctx context.Context) bool {
	if v.store == nil {
		return false
	}
	snap, ok, err := v.store.Load(ctx)
	if err != nil {
		v.log.WithError(err).Warn("load snapshot")
		return false
	}
	if !ok {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	restore := func(slice string, set func()) {
		if v.applied[slice] == 0 {
			set()
		}
	}
	restore(SliceFloors, func() { v.floors = nonNil(snap.Floors) })
	restore(SliceTables, func() { v.tables = nonNil(snap.Tables) })
	restore(SliceKOTs, func() { v.kots = nonNil(snap.KOTs) })
	restore(SliceOrders, func() { v.orders = nonNil(snap.Orders) })
	if v.updatedAt.IsZero() {
		v.updatedAt = snap.UpdatedAt
	}
	return true
}

func (v *View) saveSnapshot(ctx context.Context) {
	if v.store == nil {
		return
	}
	v.mu.RLock()
	closed := v.closed
	v.mu.RUnlock()
	if closed {
		return
	}
	if err := v.store.Save(ctx, v.Snapshot()); err != nil {
		v.log.WithError(err).Warn("save snapshot")
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
