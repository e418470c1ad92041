// Package session tracks staff work shifts and keeps a running duration for
// every user with an Active session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pos-gateway/internal/format"
	"github.com/iliyamo/pos-gateway/internal/model"
)

// Topic is the realtime topic session ticks are pushed on.
const Topic = "session"

var (
	ErrConfirmationRequired = errors.New("ending a session requires confirmation")
	ErrNoActiveSession      = errors.New("no active session")
)

// Upstream is the part of the REST client the tracker needs.
type Upstream interface {
	CreateSession(ctx context.Context, in model.SessionCreate) (model.Session, error)
	UpdateSession(ctx context.Context, id int64, in model.SessionUpdate) (model.Session, error)
	ListSessions(ctx context.Context) ([]model.Session, error)
	SessionReport(ctx context.Context) ([]model.SessionReportRow, error)
}

// Notifier receives a user's session state on every tick and on every
// start or end.
type Notifier interface {
	NotifyUser(userID, topic string, payload any)
}

// State is what a terminal shows for a user's session.
type State struct {
	Session        *model.Session `json:"session"`
	Duration       string         `json:"duration"`
	ElapsedSeconds int64          `json:"elapsed_seconds"`
	ClosingSoon    bool           `json:"closing_soon"`
}

// Options configures a Registry.  Zero values take the defaults.
type Options struct {
	Tick      time.Duration // default 1s
	WarnAfter time.Duration // default 20h
	Now       func() time.Time
	Notifier  Notifier
	Log       logrus.FieldLogger
}

type tracker struct {
	session model.Session
	cancel  context.CancelFunc
}

// Registry owns one tracker per user.  Trackers are replaced when the
// session reference changes and torn down on end and on Close; a tick that
// fires after its tracker was replaced never publishes.
type Registry struct {
	api       Upstream
	tick      time.Duration
	warnAfter time.Duration
	now       func() time.Time
	notifier  Notifier
	log       logrus.FieldLogger

	mu       sync.Mutex
	ctx      context.Context
	stop     context.CancelFunc
	closed   bool
	trackers map[string]*tracker
}

func NewRegistry(api Upstream, opts Options) *Registry {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.WarnAfter <= 0 {
		opts.WarnAfter = 20 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Registry{
		api:       api,
		tick:      opts.Tick,
		warnAfter: opts.WarnAfter,
		now:       opts.Now,
		notifier:  opts.Notifier,
		log:       opts.Log.WithField("component", "session"),
		ctx:       ctx,
		stop:      stop,
		trackers:  make(map[string]*tracker),
	}
}

// Elapsed is now − start_time while the session is Active and
// end_time − start_time once it is Closed.  It never goes negative.
func Elapsed(s model.Session, now time.Time) time.Duration {
	end := now
	if !s.IsActive() && s.EndTime != nil && !s.EndTime.IsZero() {
		end = s.EndTime.Time
	}
	d := end.Sub(s.StartTime.Time)
	if d < 0 {
		return 0
	}
	return d
}

// Start opens a shift for userID.  A rejection by the backend (for example
// a session already Active) comes back as the upstream error unchanged.
func (r *Registry) Start(ctx context.Context, userID string, openingBalance float64, notes *string) (State, error) {
	s, err := r.api.CreateSession(ctx, model.SessionCreate{OpeningBalance: openingBalance, Notes: notes})
	if err != nil {
		return State{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armLocked(userID, s)
	st := r.stateLocked(userID)
	r.notifyLocked(userID, st)
	r.log.WithFields(logrus.Fields{"user_id": userID, "session_id": s.ID}).Info("session started")
	return st, nil
}

// End closes userID's shift with closingBalance.  confirmed must be true;
// otherwise ErrConfirmationRequired is returned and nothing is sent
// upstream.  Without a local tracker the user's Active session is looked up
// on the backend.  On success the tracker is torn down and the duration
// resets.
func (r *Registry) End(ctx context.Context, userID string, closingBalance float64, confirmed bool) (model.Session, error) {
	if !confirmed {
		return model.Session{}, ErrConfirmationRequired
	}
	var target model.Session
	r.mu.Lock()
	t, ok := r.trackers[userID]
	if ok {
		target = t.session
	}
	r.mu.Unlock()
	if !ok {
		// Opened before a restart or through another gateway.
		found, err := r.activeUpstream(ctx, userID)
		if err != nil {
			return model.Session{}, err
		}
		if found == nil {
			return model.Session{}, ErrNoActiveSession
		}
		target = *found
	}

	closed := model.SessionClosed
	s, err := r.api.UpdateSession(ctx, target.ID, model.SessionUpdate{
		ClosingBalance: &closingBalance,
		Status:         &closed,
	})
	if err != nil {
		return model.Session{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.trackers[userID]; ok && cur.session.ID == target.ID {
		r.disarmLocked(userID)
	}
	r.notifyLocked(userID, r.stateLocked(userID))
	r.log.WithFields(logrus.Fields{"user_id": userID, "session_id": s.ID}).Info("session ended")
	return s, nil
}

// Resume adopts the user's Active session from the backend, e.g. after a
// gateway restart or when the shift was opened on another terminal.  If the
// backend no longer reports one (it closes sessions older than 24 hours when
// listing) the local tracker is dropped and ErrNoActiveSession returned.
func (r *Registry) Resume(ctx context.Context, userID string) (State, error) {
	found, err := r.activeUpstream(ctx, userID)
	if err != nil {
		return State{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if found == nil {
		if _, ok := r.trackers[userID]; ok {
			r.disarmLocked(userID)
			r.notifyLocked(userID, r.stateLocked(userID))
		}
		return State{Duration: format.HMS(0)}, ErrNoActiveSession
	}
	if cur, ok := r.trackers[userID]; ok && cur.session.ID == found.ID {
		cur.session = *found
	} else {
		r.armLocked(userID, *found)
	}
	return r.stateLocked(userID), nil
}

// activeUpstream returns userID's newest Active session as the backend
// reports it, or nil.
func (r *Registry) activeUpstream(ctx context.Context, userID string) (*model.Session, error) {
	list, err := r.api.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var found *model.Session
	for i := range list {
		s := list[i]
		if strconv.FormatInt(s.UserID, 10) != userID || !s.IsActive() {
			continue
		}
		if found == nil || s.StartTime.After(found.StartTime.Time) {
			found = &s
		}
	}
	return found, nil
}

// Current returns the user's state without contacting the backend.
func (r *Registry) Current(userID string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked(userID)
}

// Active reports how many users have a running tracker.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}

// Close stops every tracker.  Later Start/Resume calls still talk to the
// backend but no longer start timers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for uid := range r.trackers {
		r.disarmLocked(uid)
	}
	r.stop()
}

func (r *Registry) armLocked(userID string, s model.Session) {
	if _, ok := r.trackers[userID]; ok {
		r.disarmLocked(userID)
	}
	if r.closed || !s.IsActive() {
		return
	}
	ctx, cancel := context.WithCancel(r.ctx)
	t := &tracker{session: s, cancel: cancel}
	r.trackers[userID] = t
	go r.run(ctx, userID, t)
}

func (r *Registry) disarmLocked(userID string) {
	if t, ok := r.trackers[userID]; ok {
		t.cancel()
		delete(r.trackers, userID)
	}
}

func (r *Registry) run(ctx context.Context, userID string, t *tracker) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			if ctx.Err() != nil || r.trackers[userID] != t {
				r.mu.Unlock()
				return
			}
			r.notifyLocked(userID, r.stateLocked(userID))
			r.mu.Unlock()
		}
	}
}

func (r *Registry) stateLocked(userID string) State {
	t, ok := r.trackers[userID]
	if !ok {
		return State{Duration: format.HMS(0)}
	}
	s := t.session
	d := Elapsed(s, r.now())
	return State{
		Session:        &s,
		Duration:       format.HMS(d),
		ElapsedSeconds: int64(d / time.Second),
		ClosingSoon:    d >= r.warnAfter,
	}
}

func (r *Registry) notifyLocked(userID string, st State) {
	if r.notifier != nil {
		r.notifier.NotifyUser(userID, Topic, st)
	}
}
