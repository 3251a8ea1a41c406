package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
)

// DefaultVisitTTL is how long an untouched visit stays mounted.
const DefaultVisitTTL = 15 * time.Minute

// Visit is one mounted ResourceDetail, owned by one browser tab.
type Visit struct {
	ID         string
	ResourceID int64
	Detail     *ResourceDetail

	lastSeen time.Time
}

// VisitRegistry keeps the detail views mounted by the web front, keyed by an
// xid visit ID. A background manager closes visits idle for longer than the
// TTL, which is the web equivalent of navigating away.
type VisitRegistry struct {
	newDetail func() *ResourceDetail
	ttl       time.Duration
	sweep     time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	visits map[string]*Visit

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewVisitRegistry creates a registry. newDetail builds an unloaded view for
// each new visit.
func NewVisitRegistry(newDetail func() *ResourceDetail, ttl time.Duration, logger *slog.Logger) *VisitRegistry {
	if ttl <= 0 {
		ttl = DefaultVisitTTL
	}
	sweep := ttl / 4
	if sweep < time.Second {
		sweep = time.Second
	}
	return &VisitRegistry{
		newDetail: newDetail,
		ttl:       ttl,
		sweep:     sweep,
		logger:    logger,
		now:       time.Now,
		visits:    make(map[string]*Visit),
		done:      make(chan struct{}),
	}
}

// TTL is the idle lifetime of a visit.
func (r *VisitRegistry) TTL() time.Duration {
	return r.ttl
}

// Open mounts a fresh view for resourceID. The caller loads it.
func (r *VisitRegistry) Open(resourceID int64) *Visit {
	v := &Visit{
		ID:         xid.New().String(),
		ResourceID: resourceID,
		Detail:     r.newDetail(),
		lastSeen:   r.now(),
	}

	r.mu.Lock()
	r.visits[v.ID] = v
	r.mu.Unlock()

	r.logger.Debug("visit opened",
		slog.String("visit_id", v.ID),
		slog.Int64("resource_id", resourceID),
	)
	return v
}

// Get returns the visit and marks it as recently used.
func (r *VisitRegistry) Get(id string) (*Visit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if ok {
		v.lastSeen = r.now()
	}
	return v, ok
}

// Close unmounts a visit. Unknown IDs are ignored.
func (r *VisitRegistry) Close(id string) {
	r.mu.Lock()
	v, ok := r.visits[id]
	delete(r.visits, id)
	r.mu.Unlock()

	if ok {
		v.Detail.Close()
		r.logger.Debug("visit closed", slog.String("visit_id", id))
	}
}

// Len reports how many visits are mounted.
func (r *VisitRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visits)
}

// Start launches the idle-visit reaper.
func (r *VisitRegistry) Start() {
	r.startOnce.Do(func() {
		r.logger.Info("starting visit reaper", slog.Duration("ttl", r.ttl))
		r.wg.Add(1)
		go r.manager()
	})
}

// Stop halts the reaper and closes every remaining visit.
func (r *VisitRegistry) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()

		r.mu.Lock()
		remaining := r.visits
		r.visits = make(map[string]*Visit)
		r.mu.Unlock()

		for _, v := range remaining {
			v.Detail.Close()
		}
		r.logger.Info("visit registry stopped", slog.Int("closed", len(remaining)))
	})
}

func (r *VisitRegistry) manager() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.reap()
		}
	}
}

// reap closes visits idle for longer than the TTL.
func (r *VisitRegistry) reap() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Visit
	for id, v := range r.visits {
		if v.lastSeen.Before(cutoff) {
			expired = append(expired, v)
			delete(r.visits, id)
		}
	}
	r.mu.Unlock()

	for _, v := range expired {
		v.Detail.Close()
	}
	if len(expired) > 0 {
		r.logger.Debug("reaped idle visits", slog.Int("count", len(expired)))
	}
	return len(expired)
}
