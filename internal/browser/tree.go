package browser

import (
	"context"
	"time"

	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/gateway"
	"github.com/codyseavey/tcg-inventory/backend/internal/loader"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
	"github.com/codyseavey/tcg-inventory/backend/internal/querycache"
	"github.com/codyseavey/tcg-inventory/backend/internal/viewport"
)

func (b *Browser) librariesLoader() (*loader.Loader[models.LibraryNode], error) {
	return loader.Obtain(b.registry, KeyLibraries, loader.Scope{Kind: querycache.KindLibraries}, func() *loader.Loader[models.LibraryNode] {
		return loader.New("libraries", b.paging.LibraryBatchSize,
			pageFetch(b, querycache.KindLibraries, "", nil, b.gw.ListLibraries))
	})
}

func (b *Browser) setsLoader(libraryID string) (*loader.Loader[models.SetNode], error) {
	scope := loader.Scope{Kind: querycache.KindSets, ParentID: libraryID, Parent: KeyLibraries}
	return loader.Obtain(b.registry, LibraryKey(libraryID), scope, func() *loader.Loader[models.SetNode] {
		return loader.New("sets", b.paging.SetBatchSize,
			pageFetch(b, querycache.KindSets, libraryID, nil, func(ctx context.Context, p gateway.ListParams) ([]models.SetNode, error) {
				return b.gw.ListSets(ctx, libraryID, p)
			}))
	})
}

func (b *Browser) cardsLoader(libraryID, setID string) (*loader.Loader[models.CardNode], error) {
	scope := loader.Scope{Kind: querycache.KindCards, ParentID: setID}
	if libraryID != "" {
		scope.Parent = LibraryKey(libraryID)
	}
	return loader.Obtain(b.registry, SetKey(setID), scope, func() *loader.Loader[models.CardNode] {
		return loader.New("cards", b.paging.CardBatchSize,
			pageFetch(b, querycache.KindCards, setID, nil, func(ctx context.Context, p gateway.ListParams) ([]models.CardNode, error) {
				return b.gw.ListCards(ctx, setID, p)
			}))
	})
}

func (b *Browser) stockLoader(setID, cardID string) (*loader.Loader[models.StockItem], error) {
	scope := loader.Scope{Kind: querycache.KindStock, ParentID: cardID}
	if setID != "" {
		scope.Parent = SetKey(setID)
	}
	return loader.Obtain(b.registry, CardKey(cardID), scope, func() *loader.Loader[models.StockItem] {
		return loader.New("stock", stockVariantBatch, loader.SliceFetch(func(ctx context.Context, filter models.StockFilter) ([]models.StockItem, error) {
			key := querycache.NewKey(querycache.KindStock, cardID, "active", "true")
			all, err := querycache.Get[[]models.StockItem](ctx, b.cache, key, func(ctx context.Context) ([]models.StockItem, error) {
				return b.gw.ListStockVariants(ctx, cardID, true)
			})
			if err != nil {
				return nil, err
			}
			return filterVariants(all, filter), nil
		}))
	})
}

func filterVariants(items []models.StockItem, filter models.StockFilter) []models.StockItem {
	if filter == models.StockFilterAll || filter == "" {
		return items
	}
	out := make([]models.StockItem, 0, len(items))
	for _, item := range items {
		inStock := item.Quantity > 0
		if inStock == (filter == models.StockFilterInStock) {
			out = append(out, item)
		}
	}
	return out
}

func (b *Browser) searchLoader(query string) (*loader.Loader[models.CardNode], error) {
	q := normalizeQuery(query)
	if q == "" {
		return nil, errs.New(errs.KindValidation, "search query is required")
	}
	return loader.Obtain(b.registry, SearchKey(q), loader.Scope{Kind: querycache.KindSearch}, func() *loader.Loader[models.CardNode] {
		return loader.New("search", b.paging.SearchBatchSize,
			pageFetch(b, querycache.KindSearch, "", []string{"q", q}, func(ctx context.Context, p gateway.ListParams) ([]models.CardNode, error) {
				return b.gw.SearchCardsByName(ctx, q, p)
			}))
	})
}

func expand[T any](ctx context.Context, b *Browser, key string, l *loader.Loader[T], err error) (NodePage[T], error) {
	if err != nil {
		return NodePage[T]{Key: key}, err
	}
	l.Expand()
	snap, err := l.EnsureLoaded(ctx, b.Filter())
	return NodePage[T]{Key: key, Snapshot: snap}, err
}

func more[T any](ctx context.Context, key string, l *loader.Loader[T], err error) (NodePage[T], error) {
	if err != nil {
		return NodePage[T]{Key: key}, err
	}
	snap, err := l.LoadMore(ctx)
	return NodePage[T]{Key: key, Snapshot: snap}, err
}

// Libraries opens the root of the tree.
func (b *Browser) Libraries(ctx context.Context) (NodePage[models.LibraryNode], error) {
	l, err := b.librariesLoader()
	return expand(ctx, b, KeyLibraries, l, err)
}

func (b *Browser) MoreLibraries(ctx context.Context) (NodePage[models.LibraryNode], error) {
	l, err := b.librariesLoader()
	return more(ctx, KeyLibraries, l, err)
}

// ExpandLibrary opens a library and lists its sets.
func (b *Browser) ExpandLibrary(ctx context.Context, libraryID string) (NodePage[models.SetNode], error) {
	l, err := b.setsLoader(libraryID)
	return expand(ctx, b, LibraryKey(libraryID), l, err)
}

func (b *Browser) MoreSets(ctx context.Context, libraryID string) (NodePage[models.SetNode], error) {
	l, ok := loader.Lookup[models.SetNode](b.registry, LibraryKey(libraryID))
	return more(ctx, LibraryKey(libraryID), l, notOpen(ok, LibraryKey(libraryID)))
}

// ExpandSet opens a set and lists its cards. libraryID may be empty when the
// set was reached outside the library tree.
func (b *Browser) ExpandSet(ctx context.Context, libraryID, setID string) (NodePage[models.CardNode], error) {
	l, err := b.cardsLoader(libraryID, setID)
	return expand(ctx, b, SetKey(setID), l, err)
}

func (b *Browser) MoreCards(ctx context.Context, setID string) (NodePage[models.CardNode], error) {
	l, ok := loader.Lookup[models.CardNode](b.registry, SetKey(setID))
	return more(ctx, SetKey(setID), l, notOpen(ok, SetKey(setID)))
}

// ExpandCard lists the active stock variants of a card.
func (b *Browser) ExpandCard(ctx context.Context, setID, cardID string) (NodePage[models.StockItem], error) {
	l, err := b.stockLoader(setID, cardID)
	return expand(ctx, b, CardKey(cardID), l, err)
}

// Search opens a result list for query; paging works like any other node.
func (b *Browser) Search(ctx context.Context, query string) (NodePage[models.CardNode], error) {
	l, err := b.searchLoader(query)
	return expand(ctx, b, SearchKey(query), l, err)
}

func (b *Browser) MoreSearch(ctx context.Context, query string) (NodePage[models.CardNode], error) {
	key := SearchKey(query)
	l, ok := loader.Lookup[models.CardNode](b.registry, key)
	return more(ctx, key, l, notOpen(ok, key))
}

func notOpen(ok bool, key string) error {
	if ok {
		return nil
	}
	return errs.Newf(errs.KindNotFound, "node %s is not open", key)
}

// Collapse closes a node and forgets everything loaded beneath it.
func (b *Browser) Collapse(key string) (bool, error) {
	if _, _, err := parseKey(key); err != nil {
		return false, err
	}
	ok := b.registry.Collapse(key)

	open := make(map[string]bool)
	for _, k := range b.registry.Keys() {
		open[k] = true
	}
	b.triggersMu.Lock()
	defer b.triggersMu.Unlock()
	for k := range b.triggers {
		if !open[k] {
			delete(b.triggers, k)
		}
	}
	if tr, found := b.triggers[key]; found {
		tr.Reset()
	}
	return ok, nil
}

// ObserveResult says whether a sentinel change requested a page and what the
// node holds afterwards.
type ObserveResult struct {
	Fired     bool   `json:"fired"`
	Key       string `json:"key"`
	ItemCount int    `json:"item_count"`
	HasMore   bool   `json:"has_more"`
	IsLoading bool   `json:"is_loading"`
}

// Observe feeds a sentinel visibility change for key's node.
func (b *Browser) Observe(ctx context.Context, key string, visible bool) (ObserveResult, error) {
	level, _, err := parseKey(key)
	if err != nil {
		return ObserveResult{}, err
	}
	switch level {
	case levelLibraries:
		return observe[models.LibraryNode](ctx, b, key, visible)
	case levelSets:
		return observe[models.SetNode](ctx, b, key, visible)
	case levelCards, levelSearch:
		return observe[models.CardNode](ctx, b, key, visible)
	default:
		return observe[models.StockItem](ctx, b, key, visible)
	}
}

func observe[T any](ctx context.Context, b *Browser, key string, visible bool) (ObserveResult, error) {
	l, ok := loader.Lookup[T](b.registry, key)
	if !ok {
		return ObserveResult{Key: key}, notOpen(false, key)
	}

	b.triggersMu.Lock()
	tr, ok := b.triggers[key]
	if !ok {
		tr = viewport.New(
			func() (bool, bool) {
				s := l.State()
				// A node that has never loaded a page is not exhausted.
				return s.IsLoading, s.HasMore || !s.Loaded
			},
			func(ctx context.Context) error {
				_, err := l.LoadMore(ctx)
				return err
			},
			b.viewportInterval(),
		)
		b.triggers[key] = tr
	}
	b.triggersMu.Unlock()

	fired, err := tr.Observe(ctx, visible)
	s := l.State()
	return ObserveResult{
		Fired:     fired,
		Key:       key,
		ItemCount: len(s.Items),
		HasMore:   s.HasMore,
		IsLoading: s.IsLoading,
	}, err
}

func (b *Browser) viewportInterval() time.Duration {
	return b.paging.ViewportMinInterval
}

// resetTriggers lets exhausted sentinels observe again after nodes reload.
func (b *Browser) resetTriggers() {
	b.triggersMu.Lock()
	defer b.triggersMu.Unlock()
	for _, tr := range b.triggers {
		tr.Reset()
	}
}
