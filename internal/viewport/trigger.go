// Package viewport turns a scroll sentinel's visibility changes into
// load-more requests.
package viewport

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/codyseavey/tcg-inventory/backend/internal/metrics"
)

// LoadState reports whether a page is in flight and whether more remain.
// hasMore is only consulted when nothing is loading.
type LoadState func() (isLoading, hasMore bool)

// LoadMore requests the next page.
type LoadMore func(ctx context.Context) error

// Trigger fires LoadMore at most once each time the sentinel goes from
// hidden to visible.
type Trigger struct {
	state    LoadState
	loadMore LoadMore
	limiter  *rate.Limiter

	mu      sync.Mutex
	visible bool
	stopped bool
}

// New builds a trigger. minInterval > 0 additionally spaces out fires so a
// flapping sentinel cannot request pages faster than that.
func New(state LoadState, loadMore LoadMore, minInterval time.Duration) *Trigger {
	t := &Trigger{state: state, loadMore: loadMore}
	if minInterval > 0 {
		t.limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return t
}

// Observe records the sentinel's visibility and returns whether it fired.
func (t *Trigger) Observe(ctx context.Context, visible bool) (bool, error) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return false, nil
	}
	entered := visible && !t.visible
	t.visible = visible
	if !entered {
		t.mu.Unlock()
		return false, nil
	}

	// Checked now rather than at subscription so a page requested elsewhere
	// since then is not requested twice.
	isLoading, hasMore := t.state()
	if isLoading {
		t.mu.Unlock()
		return false, nil
	}
	if !hasMore {
		t.stopped = true
		t.mu.Unlock()
		log.Debug().Msg("sentinel exhausted, no longer observing")
		return false, nil
	}
	if t.limiter != nil && !t.limiter.Allow() {
		t.mu.Unlock()
		return false, nil
	}
	t.mu.Unlock()

	metrics.ViewportFiresTotal.Inc()
	err := t.loadMore(ctx)

	if isLoading, hasMore := t.state(); !isLoading && !hasMore {
		t.mu.Lock()
		t.stopped = true
		t.mu.Unlock()
	}
	return true, err
}

// Stopped reports whether the trigger stopped observing because the node
// ran out of pages.
func (t *Trigger) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Reset resumes observing, e.g. after the node was refreshed with a new filter.
func (t *Trigger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visible = false
	t.stopped = false
}
