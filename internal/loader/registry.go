package loader

import (
	"fmt"
	"sort"
	"sync"

	"github.com/codyseavey/tcg-inventory/backend/internal/models"
	"github.com/codyseavey/tcg-inventory/backend/internal/querycache"
)

// Scope places a node in the tree: the cache kind its children are read as,
// the id they hang off, and the registry key of its parent node.
type Scope struct {
	Kind     querycache.Kind
	ParentID string
	Parent   string
}

type node interface {
	Collapse()
	Reset(filter models.StockFilter)
	Refresh()
}

type registered struct {
	loader node
	scope  Scope
}

// Registry owns the loaders of every node that has been expanded.
type Registry struct {
	mu    sync.Mutex
	nodes map[string]registered
}

func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]registered)}
}

// Obtain returns the loader registered under key, creating it on first use.
func Obtain[T any](r *Registry, key string, scope Scope, create func() *Loader[T]) (*Loader[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.nodes[key]; ok {
		l, ok := existing.loader.(*Loader[T])
		if !ok {
			return nil, fmt.Errorf("node %s holds a %T", key, existing.loader)
		}
		return l, nil
	}
	l := create()
	r.nodes[key] = registered{loader: l, scope: scope}
	return l, nil
}

// Lookup returns the loader registered under key without creating one.
func Lookup[T any](r *Registry, key string) (*Loader[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.nodes[key]
	if !ok {
		return nil, false
	}
	l, ok := existing.loader.(*Loader[T])
	return l, ok
}

// Collapse collapses key and forgets every node below it. Reports whether
// key was registered.
func (r *Registry) Collapse(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	root, ok := r.nodes[key]
	if !ok {
		return false
	}
	root.loader.Collapse()
	var below []string
	for k := range r.nodes {
		if k != key && r.descendsFromLocked(k, key) {
			below = append(below, k)
		}
	}
	for _, k := range below {
		r.nodes[k].loader.Collapse()
		delete(r.nodes, k)
	}
	return true
}

func (r *Registry) descendsFromLocked(key, ancestor string) bool {
	seen := make(map[string]bool)
	for cur := r.nodes[key].scope.Parent; cur != "" && !seen[cur]; {
		if cur == ancestor {
			return true
		}
		seen[cur] = true
		parent, ok := r.nodes[cur]
		if !ok {
			return false
		}
		cur = parent.scope.Parent
	}
	return false
}

// ResetAll switches every node to filter, discarding loaded pages.
func (r *Registry) ResetAll(filter models.StockFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.nodes {
		n.loader.Reset(filter)
	}
}

// OnInvalidate refreshes the nodes whose children were read under any of the
// invalidated prefixes. It has the querycache.Listener signature.
func (r *Registry) OnInvalidate(prefixes []querycache.Prefix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.nodes {
		key := querycache.Key{Kind: n.scope.Kind, ParentID: n.scope.ParentID}
		for _, p := range prefixes {
			if p.Matches(key) {
				n.loader.Refresh()
				break
			}
		}
	}
}

// Keys lists registered node keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.nodes))
	for k := range r.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
