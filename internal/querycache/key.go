package querycache

import (
	"sort"
	"strings"
)

// Kind names the entity a cached read returns.
type Kind string

const (
	KindLibraries        Kind = "libraries"
	KindSets             Kind = "sets"
	KindCards            Kind = "cards"
	KindStock            Kind = "stock"
	KindSearch           Kind = "inventory-search"
	KindSummary          Kind = "summary"
	KindTransactionItems Kind = "transaction-items"
	KindPriceAlerts      Kind = "price-alerts"
	KindGrouped          Kind = "inventory-grouped"
)

// Key addresses one cached read: the entity kind, the parent it hangs off
// (empty for top-level reads) and the filter values that shaped it.
type Key struct {
	Kind     Kind
	ParentID string
	Filters  map[string]string
}

// NewKey builds a key from alternating filter name/value pairs.
func NewKey(kind Kind, parentID string, filters ...string) Key {
	k := Key{Kind: kind, ParentID: parentID}
	if len(filters) > 0 {
		k.Filters = make(map[string]string, len(filters)/2)
		for i := 0; i+1 < len(filters); i += 2 {
			k.Filters[filters[i]] = filters[i+1]
		}
	}
	return k
}

// String renders the key with filters sorted by name, e.g.
// "stock/card-1/filter=all".
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Kind))
	b.WriteByte('/')
	b.WriteString(k.ParentID)
	if len(k.Filters) == 0 {
		return b.String()
	}
	names := make([]string, 0, len(k.Filters))
	for name := range k.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	b.WriteByte('/')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(k.Filters[name])
	}
	return b.String()
}

// Prefix selects every filter variant of a kind, optionally narrowed to one
// parent. An empty ParentID matches all parents.
type Prefix struct {
	Kind     Kind
	ParentID string
}

func All(kind Kind) Prefix { return Prefix{Kind: kind} }

func Under(kind Kind, parentID string) Prefix { return Prefix{Kind: kind, ParentID: parentID} }

func (p Prefix) Matches(k Key) bool {
	if p.Kind != k.Kind {
		return false
	}
	return p.ParentID == "" || p.ParentID == k.ParentID
}

func (p Prefix) String() string {
	if p.ParentID == "" {
		return string(p.Kind) + "(*)"
	}
	return string(p.Kind) + "(" + p.ParentID + ")"
}
