package gateway

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

const (
	stockCountExpr = "COALESCE(SUM(stock_items.quantity), 0)"
	valueExpr      = "COALESCE(SUM(stock_items.quantity * cards.price_usd), 0)"

	// maxQuantity is the most copies a single stock row may hold.
	maxQuantity = 9999
)

// GormGateway implements Gateway on top of gorm.
type GormGateway struct {
	db *gorm.DB
}

func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db}
}

func (g *GormGateway) ListLibraries(ctx context.Context, p ListParams) ([]models.LibraryNode, error) {
	var rows []models.LibraryNode
	q := g.db.WithContext(ctx).Table("libraries").
		Select("libraries.id, libraries.name, " + stockCountExpr + " AS stock_count, " + valueExpr + " AS total_value").
		Joins("LEFT JOIN card_sets ON card_sets.library_id = libraries.id").
		Joins("LEFT JOIN cards ON cards.set_id = card_sets.id").
		Joins("LEFT JOIN stock_items ON stock_items.card_id = cards.id AND stock_items.active = ?", true).
		Group("libraries.id, libraries.name").
		Order("libraries.name ASC, libraries.id ASC")

	if err := page(withStockFilter(q, p.StockFilter), p).Scan(&rows).Error; err != nil {
		return nil, storeErr(err, "list libraries")
	}
	return rows, nil
}

func (g *GormGateway) ListSets(ctx context.Context, libraryID string, p ListParams) ([]models.SetNode, error) {
	var rows []models.SetNode
	q := g.db.WithContext(ctx).Table("card_sets").
		Select("card_sets.id, card_sets.library_id, card_sets.name, card_sets.is_upcoming, " +
			stockCountExpr + " AS stock_count, " + valueExpr + " AS total_value").
		Joins("LEFT JOIN cards ON cards.set_id = card_sets.id").
		Joins("LEFT JOIN stock_items ON stock_items.card_id = cards.id AND stock_items.active = ?", true).
		Group("card_sets.id, card_sets.library_id, card_sets.name, card_sets.is_upcoming").
		Order("card_sets.name ASC, card_sets.id ASC")
	if libraryID != "" {
		q = q.Where("card_sets.library_id = ?", libraryID)
	}

	if err := page(withStockFilter(q, p.StockFilter), p).Scan(&rows).Error; err != nil {
		return nil, storeErr(err, "list sets")
	}
	return rows, nil
}

func (g *GormGateway) ListCards(ctx context.Context, setID string, p ListParams) ([]models.CardNode, error) {
	q := g.cardQuery(ctx)
	if setID != "" {
		q = q.Where("cards.set_id = ?", setID)
	}

	var rows []models.CardNode
	if err := page(withStockFilter(q, p.StockFilter), p).Scan(&rows).Error; err != nil {
		return nil, storeErr(err, "list cards")
	}
	return rows, nil
}

func (g *GormGateway) SearchCardsByName(ctx context.Context, query string, p ListParams) ([]models.CardNode, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, errs.New(errs.KindValidation, "search query is required")
	}

	q := g.cardQuery(ctx).Where("LOWER(cards.name) LIKE ?", "%"+query+"%")

	var rows []models.CardNode
	if err := page(withStockFilter(q, p.StockFilter), p).Scan(&rows).Error; err != nil {
		return nil, storeErr(err, "search cards")
	}
	return rows, nil
}

func (g *GormGateway) cardQuery(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx).Table("cards").
		Select("cards.id, cards.set_id, cards.name, cards.rarity, cards.card_number, cards.price_usd, " +
			stockCountExpr + " AS stock_count, " + valueExpr + " AS total_value").
		Joins("LEFT JOIN stock_items ON stock_items.card_id = cards.id AND stock_items.active = ?", true).
		Group("cards.id, cards.set_id, cards.name, cards.rarity, cards.card_number, cards.price_usd").
		Order("cards.name ASC, cards.id ASC")
}

func (g *GormGateway) ListStockVariants(ctx context.Context, cardID string, activeOnly bool) ([]models.StockItem, error) {
	q := g.db.WithContext(ctx).
		Preload("Marketplaces", func(db *gorm.DB) *gorm.DB { return db.Order("marketplace ASC") }).
		Where("card_id = ?", cardID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var items []models.StockItem
	if err := q.Order("id ASC").Find(&items).Error; err != nil {
		return nil, storeErr(err, "list stock variants")
	}
	return items, nil
}

// ListInventoryLeaves returns one leaf per card with active stock, in the
// order the stock was created.
func (g *GormGateway) ListInventoryLeaves(ctx context.Context, filter models.StockFilter) ([]models.InventoryLeaf, error) {
	var items []models.StockItem
	err := g.db.WithContext(ctx).
		Preload("Card.Set.Library").
		Where("active = ?", true).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, storeErr(err, "list inventory")
	}

	index := make(map[string]int)
	locations := make(map[string]map[string]bool)
	var leaves []models.InventoryLeaf
	for _, item := range items {
		if item.Card == nil {
			continue
		}
		i, ok := index[item.CardID]
		if !ok {
			i = len(leaves)
			index[item.CardID] = i
			locations[item.CardID] = make(map[string]bool)
			leaves = append(leaves, models.InventoryLeaf{
				CardID:   item.CardID,
				CardName: item.Card.Name,
				Game:     item.Card.Set.Library.Name,
				SetName:  item.Card.Set.Name,
				Rarity:   item.Card.Rarity,
			})
		}
		leaves[i].StockQuantity += item.Quantity
		leaves[i].Details = append(leaves[i].Details, models.LeafDetail{
			StockID:        item.ID,
			Condition:      item.Condition,
			Language:       item.Language,
			Quantity:       item.Quantity,
			EstimatedValue: item.Card.PriceUSD,
		})
		if item.Location != "" {
			locations[item.CardID][item.Location] = true
		}
	}

	out := leaves[:0]
	for _, leaf := range leaves {
		if !matchesFilter(leaf.StockQuantity, filter) {
			continue
		}
		if locs := locations[leaf.CardID]; len(locs) > 0 {
			names := make([]string, 0, len(locs))
			for l := range locs {
				names = append(names, l)
			}
			sort.Strings(names)
			leaf.Tags = map[string]string{"location": strings.Join(names, ", ")}
		}
		out = append(out, leaf)
	}
	return out, nil
}

func (g *GormGateway) Summary(ctx context.Context) (*models.InventorySummary, error) {
	db := g.db.WithContext(ctx)

	var totals struct {
		StockCount    int
		DistinctCards int
		TotalValue    decimal.Decimal
		TotalCost     decimal.Decimal
	}
	err := db.Table("stock_items").
		Select(stockCountExpr + " AS stock_count, COUNT(DISTINCT stock_items.card_id) AS distinct_cards, " +
			valueExpr + " AS total_value, COALESCE(SUM(stock_items.quantity * stock_items.cost), 0) AS total_cost").
		Joins("JOIN cards ON cards.id = stock_items.card_id").
		Where("stock_items.active = ?", true).
		Scan(&totals).Error
	if err != nil {
		return nil, storeErr(err, "summarize inventory")
	}

	summary := models.InventorySummary{
		StockCount:    totals.StockCount,
		DistinctCards: totals.DistinctCards,
		TotalValue:    totals.TotalValue,
		TotalCost:     totals.TotalCost,
	}

	err = db.Table("stock_items").
		Select("libraries.id AS library_id, libraries.name, " + stockCountExpr + " AS stock_count, " + valueExpr + " AS total_value").
		Joins("JOIN cards ON cards.id = stock_items.card_id").
		Joins("JOIN card_sets ON card_sets.id = cards.set_id").
		Joins("JOIN libraries ON libraries.id = card_sets.library_id").
		Where("stock_items.active = ?", true).
		Group("libraries.id, libraries.name").
		Order("libraries.name ASC").
		Scan(&summary.Libraries).Error
	if err != nil {
		return nil, storeErr(err, "summarize libraries")
	}
	return &summary, nil
}

func (g *GormGateway) GetStock(ctx context.Context, stockID uint) (*models.StockItem, error) {
	var item models.StockItem
	err := g.db.WithContext(ctx).
		Preload("Marketplaces", func(db *gorm.DB) *gorm.DB { return db.Order("marketplace ASC") }).
		First(&item, stockID).Error
	if err != nil {
		return nil, storeErr(err, "get stock")
	}
	return &item, nil
}

func (g *GormGateway) CreateStock(ctx context.Context, req models.CreateStockRequest) (*models.StockItem, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || quantity > maxQuantity {
		return nil, errs.Newf(errs.KindValidation, "quantity must be between 1 and %d", maxQuantity)
	}
	if req.Cost.IsNegative() {
		return nil, errs.New(errs.KindValidation, "cost must not be negative")
	}

	condition := models.ConditionNearMint
	if req.Condition != "" {
		condition = models.NormalizeCondition(string(req.Condition))
		if condition == "" {
			return nil, errs.Newf(errs.KindValidation, "unknown condition %q", req.Condition)
		}
	}

	item := models.StockItem{
		CardID:    req.CardID,
		Quantity:  quantity,
		Condition: condition,
		Language:  models.NormalizeLanguage(string(req.Language)),
		Cost:      req.Cost,
		SKU:       strings.TrimSpace(req.SKU),
		Location:  strings.TrimSpace(req.Location),
		Active:    true,
	}
	seen := make(map[string]bool)
	for _, name := range req.Marketplaces {
		name = models.NormalizeMarketplace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		item.Marketplaces = append(item.Marketplaces, models.MarketplaceListing{Marketplace: name})
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card models.Card
		if err := tx.Select("id").First(&card, "id = ?", req.CardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.Newf(errs.KindNotFound, "card %s not found", req.CardID)
			}
			return err
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, storeErr(err, "create stock")
	}
	return &item, nil
}

func (g *GormGateway) UpdateStock(ctx context.Context, stockID uint, patch models.StockPatch) (UpdateResult, error) {
	if patch.IsEmpty() {
		return UpdateResult{Success: true}, nil
	}

	result := g.db.WithContext(ctx).Model(&models.StockItem{}).
		Where("id = ?", stockID).
		Updates(patch.Columns())
	if result.Error != nil {
		return UpdateResult{}, storeErr(result.Error, "update stock")
	}
	return UpdateResult{Success: result.RowsAffected > 0}, nil
}

func (g *GormGateway) AddMarketplaceListing(ctx context.Context, stockID uint, marketplace string, price decimal.NullDecimal) error {
	marketplace = models.NormalizeMarketplace(marketplace)
	if marketplace == "" {
		return errs.New(errs.KindValidation, "marketplace name is required")
	}

	db := g.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.StockItem{}).Where("id = ?", stockID).Count(&count).Error; err != nil {
		return storeErr(err, "add marketplace listing")
	}
	if count == 0 {
		return errs.Newf(errs.KindNotFound, "stock %d not found", stockID)
	}

	listing := models.MarketplaceListing{StockID: stockID, Marketplace: marketplace, Price: price}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}, {Name: "marketplace"}},
		DoUpdates: clause.AssignmentColumns([]string{"price"}),
	}).Create(&listing).Error
	if err != nil {
		return storeErr(err, "add marketplace listing")
	}
	return nil
}

func (g *GormGateway) RemoveMarketplaceListing(ctx context.Context, stockID uint, marketplace string) error {
	err := g.db.WithContext(ctx).
		Where("stock_id = ? AND marketplace = ?", stockID, models.NormalizeMarketplace(marketplace)).
		Delete(&models.MarketplaceListing{}).Error
	if err != nil {
		return storeErr(err, "remove marketplace listing")
	}
	return nil
}

func (g *GormGateway) CreateSaleTransaction(ctx context.Context, req models.CreateSaleRequest) (*models.SaleTransaction, error) {
	if len(req.Items) == 0 {
		return nil, errs.New(errs.KindValidation, "a sale needs at least one item")
	}
	if req.TaxAmount.IsNegative() || req.ShippingAmount.IsNegative() {
		return nil, errs.New(errs.KindValidation, "tax and shipping must not be negative")
	}

	trx := models.SaleTransaction{
		ID:             uuid.NewString(),
		Source:         strings.TrimSpace(req.Source),
		TaxAmount:      req.TaxAmount,
		ShippingAmount: req.ShippingAmount,
		Subtotal:       decimal.Zero,
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range req.Items {
			if line.Quantity <= 0 {
				return errs.New(errs.KindValidation, "item quantity must be positive")
			}
			if line.UnitPrice.IsNegative() {
				return errs.New(errs.KindValidation, "unit price must not be negative")
			}

			var stock models.StockItem
			if err := tx.First(&stock, line.StockID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errs.Newf(errs.KindNotFound, "stock %d not found", line.StockID)
				}
				return err
			}
			if stock.Quantity < line.Quantity {
				return errs.Newf(errs.KindValidation, "stock %d has %d on hand, cannot sell %d", stock.ID, stock.Quantity, line.Quantity)
			}

			err := tx.Model(&models.StockItem{}).Where("id = ?", stock.ID).
				Update("quantity", gorm.Expr("quantity - ?", line.Quantity)).Error
			if err != nil {
				return err
			}

			trx.Subtotal = trx.Subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
			trx.Items = append(trx.Items, models.TransactionItem{
				StockID:   stock.ID,
				CardID:    stock.CardID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			})
		}

		trx.Total = trx.Subtotal.Add(trx.TaxAmount).Add(trx.ShippingAmount)
		return tx.Create(&trx).Error
	})
	if err != nil {
		return nil, storeErr(err, "create sale transaction")
	}
	return &trx, nil
}

func withStockFilter(q *gorm.DB, filter models.StockFilter) *gorm.DB {
	switch filter {
	case models.StockFilterInStock:
		return q.Having(stockCountExpr + " > 0")
	case models.StockFilterOutOfStock:
		return q.Having(stockCountExpr + " = 0")
	default:
		return q
	}
}

func page(q *gorm.DB, p ListParams) *gorm.DB {
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	return q
}

func matchesFilter(quantity int, filter models.StockFilter) bool {
	switch filter {
	case models.StockFilterInStock:
		return quantity > 0
	case models.StockFilterOutOfStock:
		return quantity == 0
	default:
		return true
	}
}

func storeErr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.Wrap(errs.KindNotFound, err, op)
	}
	return errs.Transient(err, op)
}
