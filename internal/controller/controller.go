// Package controller orchestrates "read cache, decide skeleton vs. silent
// refresh, fetch, reconcile" for every sub-resource family of a product.
// One controller instance exists per resource type; all of them share the
// cache store and the request coordinator.
package controller

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/api"
	"github.com/paylume/productsync/internal/cache"
	"github.com/paylume/productsync/internal/dedup"
	"github.com/paylume/productsync/internal/events"
	"github.com/paylume/productsync/internal/metrics"
	"github.com/paylume/productsync/pkg/model"
)

// State is the view-facing lifecycle of a controller.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading" // no cached value: view shows a skeleton
	StateReady   State = "ready"
	StateErrored State = "errored"
)

// ErrNotBound is returned by mutations issued before Bind.
var ErrNotBound = errors.New("controller: not bound to a product")

// Snapshot is what the view reads: current state, last applied data and the
// inline error message shown in place of the data when State is Errored.
type Snapshot[V any] struct {
	State State
	Data  V
	Err   string
}

// fetchFunc fetches the authoritative server value for a product.
type fetchFunc[V any] func(ctx context.Context, token, productID string) (V, error)

// Controller drives the Idle -> Loading -> Ready | Errored machine for one
// resource type. Responses are tagged with a monotonically increasing
// request id; only the response matching the current id may touch view
// state or cache, so a slow fetch for a previous product can never
// overwrite a newer one.
type Controller[V any] struct {
	logger   *zap.Logger
	bus      *events.Bus
	store    cache.Store
	coord    *dedup.Coordinator
	resource model.ResourceType
	fetch    fetchFunc[V]

	mu        sync.Mutex
	cond      *sync.Cond
	flights   int // reads currently between issue and arbitration
	productID string
	token     string
	reqID     uint64
	state     State
	data      V
	errMsg    string
}

func newController[V any](d Deps, resource model.ResourceType, fetch fetchFunc[V]) *Controller[V] {
	c := &Controller[V]{
		logger:   d.Logger,
		bus:      d.Bus,
		store:    d.Cache,
		coord:    d.Coord,
		resource: resource,
		fetch:    fetch,
		state:    StateIdle,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Resource returns the resource family this controller owns.
func (c *Controller[V]) Resource() model.ResourceType {
	return c.resource
}

// Snapshot returns the current view state.
func (c *Controller[V]) Snapshot() Snapshot[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot[V]{State: c.state, Data: c.data, Err: c.errMsg}
}

// Bind points the controller at a product (view mount or identity change).
// A cached value moves state straight to Ready and a silent refresh runs in
// the background; a cache miss shows the loading skeleton and the fetch is
// awaited. Any response still in flight for the previous identity is
// superseded.
func (c *Controller[V]) Bind(ctx context.Context, productID, token string) {
	c.mu.Lock()
	c.productID = productID
	c.token = token
	c.reqID++ // supersede in-flight responses for the old identity
	if token == "" {
		// No session: decline to fetch rather than showing a skeleton
		// that will never resolve.
		c.setState(StateIdle)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	key := cache.Key(c.resource, productID)
	if v, ok := cache.GetAs[V](ctx, c.store, key); ok {
		c.mu.Lock()
		c.data = v
		c.errMsg = ""
		c.setState(StateReady)
		c.mu.Unlock()
		go c.Load(ctx, false) // stale-while-revalidate
		return
	}

	c.mu.Lock()
	c.setState(StateLoading)
	c.mu.Unlock()
	c.Load(ctx, false)
}

// Load issues a fetch for the bound product. Concurrent non-forced loads
// for the same key collapse into one network call; force bypasses any
// reuse but still dedupes against concurrent forces. Fetch failures never
// propagate: they become the Errored state with an inline message.
func (c *Controller[V]) Load(ctx context.Context, force bool) {
	c.mu.Lock()
	pid, tok := c.productID, c.token
	if pid == "" || tok == "" {
		// No identity or no session: decline to fetch.
		c.mu.Unlock()
		return
	}
	c.reqID++
	id := c.reqID
	if c.state == StateIdle {
		c.setState(StateLoading)
	}
	c.flights++
	c.mu.Unlock()

	key := cache.Key(c.resource, pid)
	fn := func(ctx context.Context) (any, error) {
		return c.fetch(ctx, tok, pid)
	}

	var res any
	var err error
	var joined bool
	if force {
		res, err, joined = c.coord.ForceDo(ctx, key, fn)
	} else {
		res, err, joined = c.coord.Do(ctx, key, fn)
	}
	if joined {
		metrics.CoalescedLoads.WithLabelValues(string(c.resource)).Inc()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		c.flights--
		c.cond.Broadcast()
	}()

	if id != c.reqID {
		// A newer request owns the state now; drop this response silently.
		metrics.StaleResponsesDiscarded.WithLabelValues(string(c.resource)).Inc()
		c.logger.Debug("controller.stale_response_discarded",
			zap.String("resource", string(c.resource)),
			zap.String("product", pid))
		return
	}

	if err != nil {
		c.errMsg = humanMessage(err)
		c.setState(StateErrored)
		metrics.IncError("controller", "fetch_failed")
		c.logger.Warn("controller.fetch_failed",
			zap.String("resource", string(c.resource)),
			zap.String("product", pid),
			zap.Error(err))
		return
	}

	v, ok := res.(V)
	if !ok {
		c.errMsg = "could not load data, please try again"
		c.setState(StateErrored)
		return
	}

	c.data = v
	c.errMsg = ""
	c.setState(StateReady)
	if err := cache.Put(ctx, c.store, key, v); err != nil {
		c.logger.Warn("controller.cache_write_failed",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Mutate runs a create/update/delete call against the API and, on success,
// force-refreshes so cache and view reflect the authoritative post-mutation
// server state. It is sequenced after any in-flight read has settled its
// arbitration, so the force-refresh is the request that survives. The call
// error is returned to the caller (the view keeps its dialog open and
// surfaces a notification); nothing is refreshed on failure.
func (c *Controller[V]) Mutate(ctx context.Context, call func(ctx context.Context, token, productID string) error) error {
	c.mu.Lock()
	pid, tok := c.productID, c.token
	if pid == "" {
		c.mu.Unlock()
		return ErrNotBound
	}
	for c.flights > 0 {
		c.cond.Wait()
	}
	c.mu.Unlock()

	if err := call(ctx, tok, pid); err != nil {
		return err
	}
	c.Load(ctx, true)
	return nil
}

// Warm populates the cache for a product if it is not cached yet, without
// touching view state. The prefetcher calls this for resources whose tab
// has not been opened. The bool result reports whether a fetch was issued.
func (c *Controller[V]) Warm(ctx context.Context, productID, token string) (bool, error) {
	if token == "" {
		return false, api.ErrNoToken
	}
	key := cache.Key(c.resource, productID)
	if _, ok := c.store.Get(ctx, key); ok {
		return false, nil
	}

	res, err, _ := c.coord.Do(ctx, key, func(ctx context.Context) (any, error) {
		return c.fetch(ctx, token, productID)
	})
	if err != nil {
		return true, err
	}
	v, ok := res.(V)
	if !ok {
		return true, errors.New("controller: unexpected fetch result type")
	}
	return true, cache.Put(ctx, c.store, key, v)
}

// setState must be called with mu held. Bus handlers run synchronously and
// must not call back into the controller.
func (c *Controller[V]) setState(to State) {
	if c.state == to {
		return
	}
	from := c.state
	c.state = to
	if c.bus != nil {
		c.bus.PublishStateChange(events.StateChange{
			Resource:  c.resource,
			ProductID: c.productID,
			From:      string(from),
			To:        string(to),
		})
	}
}

// humanMessage converts a fetch failure into the inline empty-state text.
func humanMessage(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "could not load data, please try again"
}
