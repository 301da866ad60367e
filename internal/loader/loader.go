// Package loader pages the children of one tree node into memory on demand.
package loader

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codyseavey/tcg-inventory/backend/internal/metrics"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

// Request is the page a loader asks its fetch function for.
type Request struct {
	Offset int
	Limit  int
	Filter models.StockFilter
}

type FetchFunc[T any] func(ctx context.Context, req Request) ([]T, error)

// Snapshot is a copy of a loader's state safe to hand to callers.
type Snapshot[T any] struct {
	Items     []T    `json:"items"`
	HasMore   bool   `json:"has_more"`
	IsLoading bool   `json:"is_loading"`
	Status    Status `json:"status"`
	// Partial marks aggregates computed over an incomplete child list.
	Partial bool   `json:"partial"`
	Error   string `json:"error,omitempty"`
}

// Loader holds the PageState of one node. Pages for one node are fetched
// strictly one at a time; different loaders fetch concurrently.
type Loader[T any] struct {
	level string
	fetch FetchFunc[T]

	mu    sync.Mutex
	state PageState[T]
}

func New[T any](level string, batchSize int, fetch FetchFunc[T]) *Loader[T] {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Loader[T]{
		level: level,
		fetch: fetch,
		state: PageState[T]{BatchSize: batchSize, Filter: models.StockFilterAll},
	}
}

func (l *Loader[T]) apply(ev Event[T]) {
	l.state = reduce(l.state, ev)
}

func (l *Loader[T]) Expand() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.apply(Event[T]{Type: EventExpand})
}

// Collapse discards everything loaded so far.
func (l *Loader[T]) Collapse() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.apply(Event[T]{Type: EventCollapse})
}

// Reset discards loaded pages and switches to filter. Offsets from the old
// filter mean nothing against the new one, so nothing is merged.
func (l *Loader[T]) Reset(filter models.StockFilter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.apply(Event[T]{Type: EventReset, Filter: filter})
}

// Refresh is Reset with the current filter.
func (l *Loader[T]) Refresh() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.apply(Event[T]{Type: EventReset, Filter: l.state.Filter})
}

// State returns a copy of the current PageState.
func (l *Loader[T]) State() PageState[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.Items = append([]T(nil), s.Items...)
	return s
}

func (l *Loader[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Loader[T]) snapshotLocked() Snapshot[T] {
	snap := Snapshot[T]{
		Items:     append([]T(nil), l.state.Items...),
		HasMore:   l.state.HasMore,
		IsLoading: l.state.IsLoading,
		Status:    statusOf(l.state),
		Partial:   l.state.HasMore,
	}
	if snap.Items == nil {
		snap.Items = []T{}
	}
	if l.state.Err != nil {
		snap.Error = l.state.Err.Error()
	}
	return snap
}

// EnsureLoaded fetches the first page if the node is expanded and has not
// loaded yet. A filter different from the last one resets the node first.
// Collapsed nodes are left alone.
func (l *Loader[T]) EnsureLoaded(ctx context.Context, filter models.StockFilter) (Snapshot[T], error) {
	l.mu.Lock()
	if !l.state.Expanded {
		snap := l.snapshotLocked()
		l.mu.Unlock()
		return snap, nil
	}
	if filter != "" && filter != l.state.Filter {
		l.apply(Event[T]{Type: EventReset, Filter: filter})
	}
	if l.state.Loaded || l.state.IsLoading {
		snap := l.snapshotLocked()
		l.mu.Unlock()
		return snap, nil
	}
	req, gen := l.beginLocked()
	l.mu.Unlock()

	return l.run(ctx, req, gen)
}

// LoadMore fetches the next page. It does nothing while a page is in flight,
// once the node is exhausted, or while it is collapsed.
func (l *Loader[T]) LoadMore(ctx context.Context) (Snapshot[T], error) {
	l.mu.Lock()
	if reason := l.skipReasonLocked(); reason != "" {
		snap := l.snapshotLocked()
		l.mu.Unlock()
		metrics.LoaderSkippedLoadMore.WithLabelValues(reason).Inc()
		log.Debug().Str("level", l.level).Str("reason", reason).Int("items", len(snap.Items)).Msg("load more ignored")
		return snap, nil
	}
	req, gen := l.beginLocked()
	l.mu.Unlock()

	return l.run(ctx, req, gen)
}

func (l *Loader[T]) skipReasonLocked() string {
	switch {
	case !l.state.Expanded:
		return "collapsed"
	case l.state.IsLoading:
		return "loading"
	case !l.state.HasMore:
		return "exhausted"
	default:
		return ""
	}
}

func (l *Loader[T]) beginLocked() (Request, uint64) {
	req := Request{
		Offset: l.state.Offset(),
		Limit:  l.state.BatchSize,
		Filter: l.state.Filter,
	}
	l.apply(Event[T]{Type: EventFetchStarted})
	return req, l.state.Generation
}

func (l *Loader[T]) run(ctx context.Context, req Request, gen uint64) (Snapshot[T], error) {
	start := time.Now()
	page, err := l.fetch(ctx, req)
	metrics.LoaderFetchDuration.WithLabelValues(l.level).Observe(time.Since(start).Seconds())

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.state.Generation {
		metrics.LoaderFetchesTotal.WithLabelValues(l.level, "discarded").Inc()
		log.Debug().Str("level", l.level).Int("offset", req.Offset).Msg("discarding page fetched for a previous generation")
		return l.snapshotLocked(), nil
	}

	if err != nil {
		l.apply(Event[T]{Type: EventFetchFailed, Generation: gen, Err: err})
		metrics.LoaderFetchesTotal.WithLabelValues(l.level, "error").Inc()
		log.Warn().Err(err).Str("level", l.level).Int("offset", req.Offset).Msg("page fetch failed")
		return l.snapshotLocked(), err
	}

	l.apply(Event[T]{Type: EventFetchSucceeded, Generation: gen, Page: page})
	metrics.LoaderFetchesTotal.WithLabelValues(l.level, "ok").Inc()
	return l.snapshotLocked(), nil
}

// SliceFetch pages over a list the gateway only returns whole.
func SliceFetch[T any](all func(ctx context.Context, filter models.StockFilter) ([]T, error)) FetchFunc[T] {
	return func(ctx context.Context, req Request) ([]T, error) {
		items, err := all(ctx, req.Filter)
		if err != nil {
			return nil, err
		}
		if req.Offset >= len(items) {
			return []T{}, nil
		}
		end := req.Offset + req.Limit
		if end > len(items) {
			end = len(items)
		}
		return items[req.Offset:end], nil
	}
}
