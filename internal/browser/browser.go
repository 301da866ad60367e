// Package browser drives the inventory tree: which nodes are open, what they
// have loaded, and how the active filter and grouping shape them.
package browser

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codyseavey/tcg-inventory/backend/internal/config"
	"github.com/codyseavey/tcg-inventory/backend/internal/draft"
	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/gateway"
	"github.com/codyseavey/tcg-inventory/backend/internal/grouping"
	"github.com/codyseavey/tcg-inventory/backend/internal/loader"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
	"github.com/codyseavey/tcg-inventory/backend/internal/preferences"
	"github.com/codyseavey/tcg-inventory/backend/internal/querycache"
	"github.com/codyseavey/tcg-inventory/backend/internal/viewport"
)

// Stock variants come back whole from the gateway; one page holds them all.
const stockVariantBatch = 500

// NodePage is one node's loaded children.
type NodePage[T any] struct {
	Key string `json:"key"`
	loader.Snapshot[T]
}

type Browser struct {
	gw       gateway.Gateway
	cache    *querycache.Cache
	registry *loader.Registry
	prefs    *preferences.Service
	drafts   *draft.Engine
	paging   config.PagingConfig

	mu      sync.RWMutex
	filter  models.StockFilter
	groupBy []grouping.Field

	triggersMu sync.Mutex
	triggers   map[string]*viewport.Trigger
}

// New restores the saved filter and grouping and wires loaders to cache
// invalidation, so a mutation refreshes the nodes that showed stale rows.
func New(ctx context.Context, gw gateway.Gateway, cache *querycache.Cache, prefs *preferences.Service, paging config.PagingConfig) *Browser {
	saved := prefs.Load(ctx)
	b := &Browser{
		gw:       gw,
		cache:    cache,
		registry: loader.NewRegistry(),
		prefs:    prefs,
		drafts:   draft.NewEngine(gw, cache),
		paging:   paging,
		filter:   saved.StockFilter,
		groupBy:  saved.GroupBy,
		triggers: make(map[string]*viewport.Trigger),
	}
	cache.Subscribe(b.registry.OnInvalidate)
	cache.Subscribe(func([]querycache.Prefix) { b.resetTriggers() })
	return b
}

func (b *Browser) Drafts() *draft.Engine { return b.drafts }

func (b *Browser) Filter() models.StockFilter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

func (b *Browser) GroupBy() []grouping.Field {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]grouping.Field(nil), b.groupBy...)
}

func (b *Browser) Preferences() preferences.Preferences {
	return preferences.Preferences{StockFilter: b.Filter(), GroupBy: b.GroupBy()}
}

// SetStockFilter switches every open node to f. Loaded pages are discarded
// since their offsets mean nothing under the new filter. The change applies
// even if saving it fails.
func (b *Browser) SetStockFilter(ctx context.Context, f models.StockFilter) error {
	b.mu.Lock()
	changed := f != b.filter
	b.filter = f
	b.mu.Unlock()

	if changed {
		b.registry.ResetAll(f)
		b.resetTriggers()
		log.Info().Str("filter", string(f)).Msg("stock filter changed")
	}
	return b.prefs.SaveStockFilter(ctx, f)
}

// SetGrouping replaces the active grouping fields.
func (b *Browser) SetGrouping(ctx context.Context, fields []grouping.Field) ([]grouping.Field, error) {
	fields = grouping.Normalize(fields)
	b.mu.Lock()
	b.groupBy = fields
	b.mu.Unlock()
	return fields, b.prefs.SaveGroupBy(ctx, fields)
}

// ToggleGroupField turns one grouping field on or off.
func (b *Browser) ToggleGroupField(ctx context.Context, f grouping.Field) ([]grouping.Field, error) {
	if !f.Valid() {
		return nil, errs.Newf(errs.KindValidation, "unknown grouping field %q", f)
	}
	b.mu.Lock()
	b.groupBy = grouping.Toggle(b.groupBy, f)
	fields := append([]grouping.Field(nil), b.groupBy...)
	b.mu.Unlock()
	return fields, b.prefs.SaveGroupBy(ctx, fields)
}

// Grouped folds every stock leaf matching the filter into the grouping tree.
func (b *Browser) Grouped(ctx context.Context, sortByName bool) ([]*grouping.Node, error) {
	filter := b.Filter()
	key := querycache.NewKey(querycache.KindGrouped, "", "filter", string(filter))
	leaves, err := querycache.Get[[]models.InventoryLeaf](ctx, b.cache, key, func(ctx context.Context) ([]models.InventoryLeaf, error) {
		return b.gw.ListInventoryLeaves(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	nodes := grouping.Group(leaves, b.GroupBy())
	if sortByName {
		grouping.SortByName(nodes)
	}
	if nodes == nil {
		nodes = []*grouping.Node{}
	}
	return nodes, nil
}

// StartEdit opens a draft for a stock variant, loading it fresh.
func (b *Browser) StartEdit(ctx context.Context, stockID uint) (draft.Session, error) {
	if sess, err := b.drafts.Get(stockID); err == nil {
		return sess, nil
	}
	item, err := b.gw.GetStock(ctx, stockID)
	if err != nil {
		return draft.Session{}, err
	}
	return b.drafts.StartEdit(*item), nil
}

func (b *Browser) CreateStock(ctx context.Context, req models.CreateStockRequest) (*models.StockItem, error) {
	item, err := b.gw.CreateStock(ctx, req)
	if err != nil {
		return nil, err
	}
	b.cache.InvalidateMutation(querycache.MutationCreateStock, querycache.MutationContext{CardID: item.CardID})
	return item, nil
}

func (b *Browser) CreateSale(ctx context.Context, req models.CreateSaleRequest) (*models.SaleTransaction, error) {
	trx, err := b.gw.CreateSaleTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	b.cache.InvalidateMutation(querycache.MutationCreateTransaction, querycache.MutationContext{})
	return trx, nil
}

func pageFetch[T any](b *Browser, kind querycache.Kind, parentID string, extra []string,
	list func(ctx context.Context, p gateway.ListParams) ([]T, error)) loader.FetchFunc[T] {
	return func(ctx context.Context, req loader.Request) ([]T, error) {
		filters := append([]string{
			"filter", string(req.Filter),
			"offset", strconv.Itoa(req.Offset),
			"limit", strconv.Itoa(req.Limit),
		}, extra...)
		key := querycache.NewKey(kind, parentID, filters...)
		return querycache.Get[[]T](ctx, b.cache, key, func(ctx context.Context) ([]T, error) {
			return list(ctx, gateway.ListParams{Offset: req.Offset, Limit: req.Limit, StockFilter: req.Filter})
		})
	}
}
