package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/querycache"
)

const (
	AlertUnderpriced = "underpriced"
	AlertOverpriced  = "overpriced"
)

// PriceAlert flags a marketplace listing whose price strays from the card's
// market price by more than the threshold.
type PriceAlert struct {
	StockID     uint            `json:"stock_id"`
	CardID      string          `json:"card_id"`
	CardName    string          `json:"card_name"`
	Marketplace string          `json:"marketplace"`
	ListedPrice decimal.Decimal `json:"listed_price"`
	MarketPrice decimal.Decimal `json:"market_price"`
	// DeltaPercent is (listed - market) / market * 100.
	DeltaPercent decimal.Decimal `json:"delta_percent"`
	Kind         string          `json:"kind"`
}

// PriceAlertService compares listed prices with market prices. Results are
// cached for the price-alert stale time since market prices move slowly.
type PriceAlertService struct {
	db    *gorm.DB
	cache *querycache.Cache
}

func NewPriceAlertService(db *gorm.DB, cache *querycache.Cache) *PriceAlertService {
	return &PriceAlertService{db: db, cache: cache}
}

// Alerts lists listings more than thresholdPct percent away from market,
// worst first.
func (s *PriceAlertService) Alerts(ctx context.Context, thresholdPct decimal.Decimal) ([]PriceAlert, error) {
	if thresholdPct.IsNegative() {
		return nil, errs.New(errs.KindValidation, "threshold must not be negative")
	}
	key := querycache.NewKey(querycache.KindPriceAlerts, "", "threshold", thresholdPct.String())
	return querycache.Get[[]PriceAlert](ctx, s.cache, key, func(ctx context.Context) ([]PriceAlert, error) {
		return s.compute(ctx, thresholdPct)
	})
}

func (s *PriceAlertService) compute(ctx context.Context, thresholdPct decimal.Decimal) ([]PriceAlert, error) {
	var rows []struct {
		StockID     uint
		CardID      string
		CardName    string
		Marketplace string
		ListedPrice decimal.Decimal
		MarketPrice decimal.Decimal
	}
	err := s.db.WithContext(ctx).Table("marketplace_listings").
		Select("marketplace_listings.stock_id, stock_items.card_id, cards.name AS card_name, " +
			"marketplace_listings.marketplace, marketplace_listings.price AS listed_price, cards.price_usd AS market_price").
		Joins("JOIN stock_items ON stock_items.id = marketplace_listings.stock_id").
		Joins("JOIN cards ON cards.id = stock_items.card_id").
		Where("stock_items.active = ? AND marketplace_listings.price IS NOT NULL", true).
		Scan(&rows).Error
	if err != nil {
		return nil, errs.Transient(err, "load listing prices")
	}

	hundred := decimal.NewFromInt(100)
	alerts := []PriceAlert{}
	for _, r := range rows {
		if !r.MarketPrice.IsPositive() {
			continue
		}
		delta := r.ListedPrice.Sub(r.MarketPrice).Div(r.MarketPrice).Mul(hundred).Round(2)
		if delta.Abs().LessThanOrEqual(thresholdPct) {
			continue
		}
		kind := AlertOverpriced
		if delta.IsNegative() {
			kind = AlertUnderpriced
		}
		alerts = append(alerts, PriceAlert{
			StockID:      r.StockID,
			CardID:       r.CardID,
			CardName:     r.CardName,
			Marketplace:  r.Marketplace,
			ListedPrice:  r.ListedPrice,
			MarketPrice:  r.MarketPrice,
			DeltaPercent: delta,
			Kind:         kind,
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DeltaPercent.Abs().GreaterThan(alerts[j].DeltaPercent.Abs())
	})
	return alerts, nil
}
