// Package prefetch warms the cache for every sub-resource of a product the
// operator has not opened yet, so switching tabs later is instant. Fetches
// are strictly best-effort: a failed prefetch leaves its cache entry unset
// for the normal controller to fetch on demand, and nothing is surfaced to
// the user.
package prefetch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/metrics"
	"github.com/paylume/productsync/pkg/model"
)

// Warmer is the slice of a resource controller the prefetcher needs.
type Warmer interface {
	Resource() model.ResourceType
	// Warm populates the cache if the resource is not cached yet; the bool
	// result reports whether a fetch was actually issued.
	Warm(ctx context.Context, productID, token string) (bool, error)
}

// Prefetcher schedules one best-effort warm-up per product, debounced so
// rapid navigation between products does not fire fetch storms.
type Prefetcher struct {
	logger   *zap.Logger
	debounce time.Duration
	warmers  []Warmer

	mu      sync.Mutex
	timer   *time.Timer
	pending string          // product the armed timer belongs to
	done    map[string]bool // products already warmed this session
}

// New creates a Prefetcher over the given warmers.
func New(logger *zap.Logger, debounce time.Duration, warmers ...Warmer) *Prefetcher {
	return &Prefetcher{
		logger:   logger,
		debounce: debounce,
		warmers:  warmers,
		done:     make(map[string]bool),
	}
}

// Trigger schedules a warm-up for productID after the debounce window.
// Re-triggering for another product before the window elapses cancels the
// scheduled run outright. A product already warmed this session is a no-op.
func (p *Prefetcher) Trigger(ctx context.Context, productID, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if productID == "" || p.done[productID] {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.pending = productID
	p.timer = time.AfterFunc(p.debounce, func() {
		p.run(ctx, productID, token)
	})
}

// Cancel drops any scheduled warm-up (owning view unmounted). Fetches
// already in flight are not aborted; their results land in the cache.
func (p *Prefetcher) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.pending = ""
}

func (p *Prefetcher) run(ctx context.Context, productID, token string) {
	p.mu.Lock()
	if p.pending != productID || p.done[productID] {
		p.mu.Unlock()
		return
	}
	p.pending = ""
	p.done[productID] = true
	p.mu.Unlock()

	p.logger.Debug("prefetch.started", zap.String("product", productID))

	// Settle-all join: every warmer runs regardless of its siblings'
	// failures.
	var wg sync.WaitGroup
	for _, w := range p.warmers {
		wg.Add(1)
		go func(w Warmer) {
			defer wg.Done()
			res := string(w.Resource())
			fetched, err := w.Warm(ctx, productID, token)
			switch {
			case err != nil:
				metrics.PrefetchTotal.WithLabelValues(res, "error").Inc()
				p.logger.Warn("prefetch.warm_failed",
					zap.String("resource", res),
					zap.String("product", productID),
					zap.Error(err))
			case !fetched:
				metrics.PrefetchTotal.WithLabelValues(res, "cached").Inc()
			default:
				metrics.PrefetchTotal.WithLabelValues(res, "ok").Inc()
			}
		}(w)
	}
	wg.Wait()

	p.logger.Debug("prefetch.finished", zap.String("product", productID))
}

// Warmed reports whether productID has completed a warm-up this session.
func (p *Prefetcher) Warmed(productID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done[productID]
}
