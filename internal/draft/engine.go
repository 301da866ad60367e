package draft

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/gateway"
	"github.com/codyseavey/tcg-inventory/backend/internal/metrics"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
	"github.com/codyseavey/tcg-inventory/backend/internal/querycache"
)

// Gateway is the subset of the store a commit writes through.
type Gateway interface {
	UpdateStock(ctx context.Context, stockID uint, patch models.StockPatch) (gateway.UpdateResult, error)
	AddMarketplaceListing(ctx context.Context, stockID uint, marketplace string, price decimal.NullDecimal) error
	RemoveMarketplaceListing(ctx context.Context, stockID uint, marketplace string) error
}

// Invalidator drops cached reads a mutation made obsolete.
type Invalidator interface {
	InvalidateMutation(m querycache.Mutation, mc querycache.MutationContext) int
}

// Session is one open edit. Token changes every time the session is opened.
type Session struct {
	Token      string `json:"token"`
	Baseline   Draft  `json:"baseline"`
	Draft      Draft  `json:"draft"`
	HasChanges bool   `json:"has_changes"`
}

type session struct {
	token      string
	baseline   Draft
	draft      Draft
	committing bool
}

func (s *session) view() Session {
	return Session{
		Token:      s.token,
		Baseline:   s.baseline.clone(),
		Draft:      s.draft.clone(),
		HasChanges: HasChanges(s.baseline, s.draft),
	}
}

// Engine holds at most one draft per stock id.
type Engine struct {
	gw    Gateway
	cache Invalidator

	mu       sync.Mutex
	sessions map[uint]*session
}

func NewEngine(gw Gateway, cache Invalidator) *Engine {
	return &Engine{gw: gw, cache: cache, sessions: make(map[uint]*session)}
}

// StartEdit opens a draft for item, or returns the one already open.
func (e *Engine) StartEdit(item models.StockItem) Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[item.ID]; ok {
		return s.view()
	}
	base := FromStock(item)
	s := &session{token: uuid.NewString(), baseline: base, draft: base.clone()}
	e.sessions[item.ID] = s
	return s.view()
}

func (e *Engine) Get(stockID uint) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.lookupLocked(stockID)
	if err != nil {
		return Session{}, err
	}
	return s.view(), nil
}

func (e *Engine) lookupLocked(stockID uint) (*session, error) {
	s, ok := e.sessions[stockID]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "no draft open for stock %d", stockID)
	}
	return s, nil
}

// Cancel discards the draft. Reports whether one was open.
func (e *Engine) Cancel(stockID uint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sessions[stockID]; !ok {
		return false
	}
	delete(e.sessions, stockID)
	return true
}

// UpdateField changes one field of the draft only. Values that cannot be
// parsed are rejected here; range checks wait for commit.
func (e *Engine) UpdateField(stockID uint, field, value string) (Session, error) {
	return e.UpdateFields(stockID, map[string]string{field: value})
}

// UpdateFields sets several fields at once. Either all of them are applied or,
// when one fails to parse, none are.
func (e *Engine) UpdateFields(stockID uint, fields map[string]string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.editableLocked(stockID)
	if err != nil {
		return Session{}, err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	next := s.draft.clone()
	for _, name := range names {
		if err := setField(&next, name, fields[name]); err != nil {
			return Session{}, err
		}
	}
	s.draft = next
	return s.view(), nil
}

// editableLocked returns the session for stockID unless a commit is sending
// it, in which case edits would be dropped when the commit closes the draft.
func (e *Engine) editableLocked(stockID uint) (*session, error) {
	s, err := e.lookupLocked(stockID)
	if err != nil {
		return nil, err
	}
	if s.committing {
		return nil, errs.Newf(errs.KindValidation, "draft for stock %d is being committed", stockID)
	}
	return s, nil
}

func setField(d *Draft, field, value string) error {
	value = strings.TrimSpace(value)
	switch field {
	case "quantity":
		q, err := strconv.Atoi(value)
		if err != nil {
			return errs.Newf(errs.KindValidation, "quantity %q is not a number", value)
		}
		d.Quantity = q
	case "condition":
		c := models.NormalizeCondition(value)
		if c == "" && value != "" {
			return errs.Newf(errs.KindValidation, "unknown condition %q", value)
		}
		d.Condition = c
	case "language":
		if value == "" {
			d.Language = ""
			return nil
		}
		d.Language = models.NormalizeLanguage(value)
	case "cost":
		if value == "" {
			d.Cost = decimal.Zero
			return nil
		}
		cost, err := decimal.NewFromString(value)
		if err != nil {
			return errs.Newf(errs.KindValidation, "cost %q is not a number", value)
		}
		d.Cost = cost
	case "sku":
		d.SKU = value
	case "location":
		d.Location = value
	default:
		return errs.Newf(errs.KindValidation, "field %q is not editable", field)
	}
	return nil
}

// Commit validates the draft and writes the difference from its baseline.
// The field patch goes first; if it fails nothing else is sent and the draft
// is kept. Marketplace adds and removes are then sent one by one. Those that
// fail are reported in a partial failure error while the rest stay applied;
// the baseline advances past what was applied so a retry only resends the
// failures.
func (e *Engine) Commit(ctx context.Context, stockID uint) (CommitResult, error) {
	e.mu.Lock()
	s, err := e.lookupLocked(stockID)
	if err != nil {
		e.mu.Unlock()
		return CommitResult{}, err
	}
	if s.committing {
		e.mu.Unlock()
		return CommitResult{}, errs.Newf(errs.KindValidation, "commit already in progress for stock %d", stockID)
	}
	if err := Validate(s.draft); err != nil {
		e.mu.Unlock()
		metrics.DraftCommitsTotal.WithLabelValues("validation").Inc()
		return CommitResult{}, err
	}
	baseline, d := s.baseline.clone(), s.draft.clone()
	changes := Diff(baseline, d)
	if changes.IsEmpty() {
		delete(e.sessions, stockID)
		e.mu.Unlock()
		metrics.DraftCommitsTotal.WithLabelValues("noop").Inc()
		return CommitResult{StockID: stockID, Changes: changes, Baseline: baseline}, nil
	}
	s.committing = true
	e.mu.Unlock()

	res, applied, commitErr := e.apply(ctx, baseline, d, changes)

	e.mu.Lock()
	defer e.mu.Unlock()
	s.committing = false

	if len(applied) > 0 {
		for _, m := range dedupeMutations(applied) {
			e.cache.InvalidateMutation(m, querycache.MutationContext{CardID: d.CardID})
		}
	}

	switch {
	case commitErr == nil:
		delete(e.sessions, stockID)
		metrics.DraftCommitsTotal.WithLabelValues("ok").Inc()
		log.Info().Uint("stock_id", stockID).Str("card_id", d.CardID).Msg("draft committed")
	case errs.Is(commitErr, errs.KindPartial):
		s.baseline = res.Baseline.clone()
		metrics.DraftCommitsTotal.WithLabelValues("partial").Inc()
		log.Warn().Uint("stock_id", stockID).Int("failed", len(res.Failed)).Msg("draft partially committed")
	default:
		metrics.DraftCommitsTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(commitErr).Uint("stock_id", stockID).Msg("draft commit failed, draft kept")
	}
	return res, commitErr
}

// MarketplaceFailure is one listing call that did not go through.
type MarketplaceFailure struct {
	Marketplace string `json:"marketplace"`
	Op          string `json:"op"`
	Error       string `json:"error"`
}

type CommitResult struct {
	StockID uint    `json:"stock_id"`
	Changes Changes `json:"changes"`
	// Baseline is the draft as the store now holds it.
	Baseline Draft                `json:"baseline"`
	Failed   []MarketplaceFailure `json:"failed,omitempty"`
}

func (e *Engine) apply(ctx context.Context, baseline, d Draft, changes Changes) (CommitResult, []querycache.Mutation, error) {
	res := CommitResult{StockID: d.StockID, Changes: changes}
	next := baseline.clone()
	var applied []querycache.Mutation

	if !changes.Patch.IsEmpty() {
		upd, err := e.gw.UpdateStock(ctx, d.StockID, changes.Patch)
		if err != nil {
			return res, nil, errs.Transient(err, "update stock")
		}
		if !upd.Success {
			return res, nil, errs.Newf(errs.KindNotFound, "stock %d not found", d.StockID)
		}
		applyPatch(&next, changes.Patch)
		applied = append(applied, querycache.MutationUpdateStockField)
	}

	for _, l := range append(append([]Listing(nil), changes.ToAdd...), changes.ToUpdate...) {
		if err := e.gw.AddMarketplaceListing(ctx, d.StockID, l.Marketplace, l.Price); err != nil {
			metrics.MarketplaceCallsTotal.WithLabelValues("add", "error").Inc()
			res.Failed = append(res.Failed, MarketplaceFailure{Marketplace: l.Marketplace, Op: "add", Error: err.Error()})
			continue
		}
		metrics.MarketplaceCallsTotal.WithLabelValues("add", "ok").Inc()
		next.Marketplaces = upsertListing(next.Marketplaces, l)
		applied = append(applied, querycache.MutationAddMarketplace)
	}

	for _, m := range changes.ToRemove {
		if err := e.gw.RemoveMarketplaceListing(ctx, d.StockID, m); err != nil {
			metrics.MarketplaceCallsTotal.WithLabelValues("remove", "error").Inc()
			res.Failed = append(res.Failed, MarketplaceFailure{Marketplace: m, Op: "remove", Error: err.Error()})
			continue
		}
		metrics.MarketplaceCallsTotal.WithLabelValues("remove", "ok").Inc()
		next.Marketplaces = removeListing(next.Marketplaces, m)
		applied = append(applied, querycache.MutationRemoveMarketplace)
	}

	sortListings(next.Marketplaces)
	res.Baseline = next
	if len(res.Failed) > 0 {
		return res, applied, errs.Newf(errs.KindPartial, "%d marketplace change(s) failed", len(res.Failed)).WithDetails(res.Failed)
	}
	return res, applied, nil
}

func applyPatch(d *Draft, p models.StockPatch) {
	if p.Quantity != nil {
		d.Quantity = *p.Quantity
	}
	if p.Condition != nil {
		d.Condition = *p.Condition
	}
	if p.Cost != nil {
		d.Cost = *p.Cost
	}
	if p.SKU != nil {
		d.SKU = *p.SKU
	}
	if p.Location != nil {
		d.Location = *p.Location
	}
	if p.Language != nil {
		d.Language = *p.Language
	}
}

func upsertListing(ls []Listing, l Listing) []Listing {
	for i := range ls {
		if ls[i].Marketplace == l.Marketplace {
			ls[i] = l
			return ls
		}
	}
	return append(ls, l)
}

func removeListing(ls []Listing, marketplace string) []Listing {
	out := ls[:0]
	for _, l := range ls {
		if l.Marketplace != marketplace {
			out = append(out, l)
		}
	}
	return out
}

func dedupeMutations(ms []querycache.Mutation) []querycache.Mutation {
	seen := make(map[querycache.Mutation]bool, len(ms))
	out := ms[:0]
	for _, m := range ms {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
