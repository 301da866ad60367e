package loader

import "github.com/codyseavey/tcg-inventory/backend/internal/models"

// PageState is the accumulated pagination state of one tree node.
type PageState[T any] struct {
	BatchSize  int
	Items      []T
	HasMore    bool
	IsLoading  bool
	Expanded   bool
	Loaded     bool
	Filter     models.StockFilter
	Generation uint64
	Err        error
}

// Offset is where the next page starts. It only advances on success.
func (s PageState[T]) Offset() int { return len(s.Items) }

type EventType int

const (
	EventExpand EventType = iota
	EventCollapse
	// EventReset discards accumulated pages but keeps the node expanded.
	EventReset
	EventFetchStarted
	EventFetchSucceeded
	EventFetchFailed
)

func (t EventType) String() string {
	switch t {
	case EventExpand:
		return "expand"
	case EventCollapse:
		return "collapse"
	case EventReset:
		return "reset"
	case EventFetchStarted:
		return "fetch_started"
	case EventFetchSucceeded:
		return "fetch_succeeded"
	case EventFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

type Event[T any] struct {
	Type EventType
	// Generation tags fetch results with the state they were requested for.
	Generation uint64
	Filter     models.StockFilter
	Page       []T
	Err        error
}

// reduce is the only place PageState changes. Collapse and reset bump the
// generation so fetch results requested before them are dropped on arrival.
func reduce[T any](s PageState[T], ev Event[T]) PageState[T] {
	switch ev.Type {
	case EventExpand:
		s.Expanded = true

	case EventCollapse:
		s = PageState[T]{
			BatchSize:  s.BatchSize,
			Filter:     s.Filter,
			Generation: s.Generation + 1,
		}

	case EventReset:
		s = PageState[T]{
			BatchSize:  s.BatchSize,
			Expanded:   s.Expanded,
			Filter:     ev.Filter,
			Generation: s.Generation + 1,
		}

	case EventFetchStarted:
		s.IsLoading = true
		s.Err = nil

	case EventFetchSucceeded:
		if ev.Generation != s.Generation {
			return s
		}
		items := make([]T, 0, len(s.Items)+len(ev.Page))
		items = append(items, s.Items...)
		s.Items = append(items, ev.Page...)
		s.HasMore = len(ev.Page) >= s.BatchSize
		s.Loaded = true
		s.IsLoading = false

	case EventFetchFailed:
		if ev.Generation != s.Generation {
			return s
		}
		s.IsLoading = false
		s.Err = ev.Err
	}
	return s
}

type Status string

const (
	StatusCollapsed Status = "collapsed"
	StatusPending   Status = "pending"
	StatusLoading   Status = "loading"
	StatusLoaded    Status = "loaded"
	StatusExhausted Status = "exhausted"
	StatusFailed    Status = "failed"
)

func statusOf[T any](s PageState[T]) Status {
	switch {
	case !s.Expanded:
		return StatusCollapsed
	case s.IsLoading:
		return StatusLoading
	case !s.Loaded && s.Err != nil:
		return StatusFailed
	case !s.Loaded:
		return StatusPending
	case s.HasMore:
		return StatusLoaded
	default:
		return StatusExhausted
	}
}
