package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleTransaction records a sale that drew down stock.
type SaleTransaction struct {
	ID             string            `json:"id" gorm:"primaryKey"`
	Source         string            `json:"source" gorm:"not null;index"`
	Subtotal       decimal.Decimal   `json:"subtotal" gorm:"type:numeric"`
	TaxAmount      decimal.Decimal   `json:"tax_amount" gorm:"type:numeric"`
	ShippingAmount decimal.Decimal   `json:"shipping_amount" gorm:"type:numeric"`
	Total          decimal.Decimal   `json:"total" gorm:"type:numeric"`
	Items          []TransactionItem `json:"items" gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `json:"created_at"`
}

type TransactionItem struct {
	ID            uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	TransactionID string          `json:"transaction_id" gorm:"not null;index"`
	StockID       uint            `json:"stock_id" gorm:"not null;index"`
	CardID        string          `json:"card_id" gorm:"index"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:numeric"`
}

type CreateSaleRequest struct {
	Source         string            `json:"source" binding:"required"`
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	ShippingAmount decimal.Decimal   `json:"shipping_amount"`
}

type SaleItemRequest struct {
	StockID   uint            `json:"stock_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
