package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeCondition(t *testing.T) {
	tests := []struct {
		input    string
		expected Condition
	}{
		{"NM", ConditionNearMint},
		{"near mint", ConditionNearMint},
		{"Mint", ConditionNearMint},
		{"lp", ConditionLightlyPlayed},
		{"Moderately Played", ConditionModerately},
		{"PL", ConditionHeavilyPlayed},
		{"damaged", ConditionDamaged},
		{"", ""},
		{"sealed", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeCondition(tt.input); got != tt.expected {
				t.Errorf("NormalizeCondition(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected CardLanguage
	}{
		{"jp", LanguageJapanese},
		{"Japanese", LanguageJapanese},
		{"de", LanguageGerman},
		{"FR", LanguageFrench},
		{"ita", LanguageItalian},
		{"", LanguageEnglish},
		{"klingon", LanguageEnglish},
	}

	for _, tt := range tests {
		if got := NormalizeLanguage(tt.input); got != tt.expected {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestParseStockFilter(t *testing.T) {
	tests := []struct {
		input   string
		want    StockFilter
		wantErr bool
	}{
		{"", StockFilterAll, false},
		{"all", StockFilterAll, false},
		{"IN-STOCK", StockFilterInStock, false},
		{"out-of-stock", StockFilterOutOfStock, false},
		{"sold", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStockFilter(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStockFilter(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStockFilter(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStockPatchOnlyCarriesChangedFields(t *testing.T) {
	cost := decimal.RequireFromString("4.25")
	patch := StockPatch{Cost: &cost}

	if patch.IsEmpty() {
		t.Fatal("patch with cost should not be empty")
	}

	cols := patch.Columns()
	if len(cols) != 1 {
		t.Fatalf("Columns() = %v, want exactly one column", cols)
	}
	if _, ok := cols["cost"]; !ok {
		t.Errorf("Columns() missing cost: %v", cols)
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"cost":"4.25"}` {
		t.Errorf("json = %s, want {\"cost\":\"4.25\"}", raw)
	}

	if !(StockPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
}

func TestStockPatchApply(t *testing.T) {
	qty := 3
	loc := "Binder 2"
	item := StockItem{Quantity: 1, Location: "Box A", Condition: ConditionNearMint}

	StockPatch{Quantity: &qty, Location: &loc}.Apply(&item)

	if item.Quantity != 3 || item.Location != "Binder 2" {
		t.Errorf("Apply() = %+v, want quantity 3 at Binder 2", item)
	}
	if item.Condition != ConditionNearMint {
		t.Errorf("Apply() changed condition to %q", item.Condition)
	}
}

func TestInventoryLeafValue(t *testing.T) {
	leaf := InventoryLeaf{
		Details: []LeafDetail{
			{Quantity: 2, EstimatedValue: decimal.RequireFromString("1.50")},
			{Quantity: 1, EstimatedValue: decimal.RequireFromString("10")},
		},
	}

	want := decimal.RequireFromString("13")
	if got := leaf.Value(); !got.Equal(want) {
		t.Errorf("Value() = %s, want %s", got, want)
	}
}

func TestNormalizeMarketplace(t *testing.T) {
	if got := NormalizeMarketplace("  eBay "); got != "ebay" {
		t.Errorf("NormalizeMarketplace = %q, want ebay", got)
	}
}
