// Package grouping folds inventory leaves into a tree keyed by the active
// grouping fields, with value and quantity totals at every level.
package grouping

import (
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

type Node struct {
	Path               string                 `json:"path"`
	Level              int                    `json:"level"`
	Field              Field                  `json:"field"`
	Value              string                 `json:"value"`
	TotalValue         decimal.Decimal        `json:"total_value"`
	TotalStockQuantity int                    `json:"total_stock_quantity"`
	Children           []*Node                `json:"children,omitempty"`
	Leaves             []models.InventoryLeaf `json:"leaves,omitempty"`
}

// Group builds the tree in one pass over leaves. With no fields it groups by
// card name, so the result is never flat. Children keep first-appearance order.
func Group(leaves []models.InventoryLeaf, fields []Field) []*Node {
	fields = Normalize(fields)
	if len(fields) == 0 {
		fields = []Field{FieldCardName}
	}

	var roots []*Node
	byPath := make(map[string]*Node)

	for _, leaf := range leaves {
		value := leaf.Value()
		siblings := &roots
		path := ""

		for level, f := range fields {
			v := f.valueOf(leaf)
			path += "/" + string(f) + "=" + url.PathEscape(v)

			n, ok := byPath[path]
			if !ok {
				n = &Node{Path: path, Level: level, Field: f, Value: v}
				byPath[path] = n
				*siblings = append(*siblings, n)
			}
			n.TotalValue = n.TotalValue.Add(value)
			n.TotalStockQuantity += leaf.StockQuantity
			if level == len(fields)-1 {
				n.Leaves = append(n.Leaves, leaf)
			}
			siblings = &n.Children
		}
	}
	return roots
}

// SortByName orders every level by value and the leaves by card name.
func SortByName(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Value) < strings.ToLower(nodes[j].Value)
	})
	for _, n := range nodes {
		sort.SliceStable(n.Leaves, func(i, j int) bool {
			return strings.ToLower(n.Leaves[i].CardName) < strings.ToLower(n.Leaves[j].CardName)
		})
		SortByName(n.Children)
	}
}
