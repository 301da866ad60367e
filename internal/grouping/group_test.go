package grouping

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

func leaf(id, game, set, rarity, name string, details ...models.LeafDetail) models.InventoryLeaf {
	l := models.InventoryLeaf{
		CardID:   id,
		CardName: name,
		Game:     game,
		SetName:  set,
		Rarity:   rarity,
		Details:  details,
	}
	for _, d := range details {
		l.StockQuantity += d.Quantity
	}
	return l
}

func detail(qty int, value string) models.LeafDetail {
	return models.LeafDetail{Quantity: qty, EstimatedValue: decimal.RequireFromString(value)}
}

func sampleLeaves() []models.InventoryLeaf {
	return []models.InventoryLeaf{
		leaf("lea-1", "Magic", "Alpha", "Rare", "Black Lotus", detail(1, "100")),
		leaf("lea-2", "Magic", "Alpha", "Common", "Llanowar Elves", detail(4, "2.50"), detail(2, "2")),
		leaf("base-4", "Pokemon", "Base Set", "Holo Rare", "Charizard", detail(2, "300")),
		leaf("m10-1", "Magic", "M10", "Common", "Llanowar Elves", detail(3, "0.25")),
	}
}

func TestActivateKeepsCanonicalOrder(t *testing.T) {
	tests := []struct {
		name   string
		clicks []Field
		want   []Field
	}{
		{"set then game", []Field{FieldSet, FieldGame}, []Field{FieldGame, FieldSet}},
		{"reverse hierarchy", []Field{FieldCardName, FieldRarity, FieldSet, FieldGame}, hierarchy},
		{"tags after hierarchy", []Field{Tag("binder"), FieldRarity, FieldLocation, FieldGame}, []Field{FieldGame, FieldRarity, Tag("binder"), FieldLocation}},
		{"duplicate click", []Field{FieldGame, FieldGame}, []Field{FieldGame}},
		{"invalid ignored", []Field{"color", FieldSet}, []Field{FieldSet}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fields []Field
			for _, f := range tt.clicks {
				fields = Activate(fields, f)
			}
			if !reflect.DeepEqual(fields, tt.want) {
				t.Errorf("got %v, want %v", fields, tt.want)
			}
		})
	}
}

func TestToggleAndDeactivate(t *testing.T) {
	fields := []Field{FieldGame, FieldSet, FieldRarity}

	fields = Toggle(fields, FieldSet)
	if want := []Field{FieldGame, FieldRarity}; !reflect.DeepEqual(fields, want) {
		t.Fatalf("got %v, want %v", fields, want)
	}
	fields = Toggle(fields, FieldSet)
	if want := []Field{FieldGame, FieldSet, FieldRarity}; !reflect.DeepEqual(fields, want) {
		t.Fatalf("got %v, want %v", fields, want)
	}
	if got := Deactivate(fields, FieldCardName); len(got) != 3 {
		t.Errorf("deactivating an inactive field changed the list: %v", got)
	}
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		input   string
		want    []Field
		wantErr bool
	}{
		{"", []Field{}, false},
		{"game", []Field{FieldGame}, false},
		{"set, game", []Field{FieldGame, FieldSet}, false},
		{"tag:binder,cardName", []Field{FieldCardName, Tag("binder")}, false},
		{"game,colour", nil, true},
		{"tag:", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFields(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFields(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseFields(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if got := Format([]Field{FieldGame, FieldSet}); got != "game,set" {
		t.Errorf("Format = %q", got)
	}
}

func TestGroupTotals(t *testing.T) {
	roots := Group(sampleLeaves(), []Field{FieldGame, FieldSet})

	if len(roots) != 2 {
		t.Fatalf("expected 2 games, got %d", len(roots))
	}
	magic := roots[0]
	if magic.Value != "Magic" || magic.Level != 0 {
		t.Errorf("first root = %q at level %d", magic.Value, magic.Level)
	}
	if magic.TotalStockQuantity != 10 {
		t.Errorf("magic quantity = %d, want 10", magic.TotalStockQuantity)
	}
	// 100 + 4*2.50 + 2*2 + 3*0.25
	if want := decimal.RequireFromString("114.75"); !magic.TotalValue.Equal(want) {
		t.Errorf("magic value = %s, want %s", magic.TotalValue, want)
	}
	if len(magic.Children) != 2 || magic.Children[0].Value != "Alpha" {
		t.Errorf("magic children not in first-appearance order: %+v", magic.Children)
	}
	alpha := magic.Children[0]
	if len(alpha.Leaves) != 2 {
		t.Errorf("alpha leaves = %d, want 2", len(alpha.Leaves))
	}
	if alpha.Path != "/game=Magic/set=Alpha" {
		t.Errorf("alpha path = %q", alpha.Path)
	}
}

func TestGroupAggregateConsistency(t *testing.T) {
	fieldSets := [][]Field{
		{FieldGame},
		{FieldGame, FieldSet},
		{FieldGame, FieldSet, FieldRarity, FieldCardName},
		{FieldRarity, FieldLocation},
		{FieldCardName},
	}
	leaves := sampleLeaves()
	leaves[0].Tags = map[string]string{"location": "Case 1"}

	var check func(t *testing.T, n *Node)
	check = func(t *testing.T, n *Node) {
		sum := 0
		value := decimal.Zero
		for _, c := range n.Children {
			check(t, c)
			sum += c.TotalStockQuantity
			value = value.Add(c.TotalValue)
		}
		for _, l := range n.Leaves {
			sum += l.StockQuantity
			value = value.Add(l.Value())
		}
		if sum != n.TotalStockQuantity {
			t.Errorf("%s: children sum %d != total %d", n.Path, sum, n.TotalStockQuantity)
		}
		if !value.Equal(n.TotalValue) {
			t.Errorf("%s: children value %s != total %s", n.Path, value, n.TotalValue)
		}
	}

	for _, fields := range fieldSets {
		t.Run(Format(fields), func(t *testing.T) {
			for _, root := range Group(leaves, fields) {
				check(t, root)
			}
		})
	}
}

func TestGroupEmptyFieldsFallsBackToCardName(t *testing.T) {
	roots := Group(sampleLeaves(), nil)

	if len(roots) != 3 {
		t.Fatalf("expected 3 card names, got %d", len(roots))
	}
	for _, r := range roots {
		if r.Field != FieldCardName {
			t.Errorf("root field = %s, want cardName", r.Field)
		}
	}
	elves := roots[1]
	if elves.Value != "Llanowar Elves" || len(elves.Leaves) != 2 {
		t.Errorf("elves group = %q with %d leaves", elves.Value, len(elves.Leaves))
	}
}

func TestGroupMissingValue(t *testing.T) {
	roots := Group(sampleLeaves(), []Field{FieldLocation})
	if len(roots) != 1 || roots[0].Value != NoValue {
		t.Fatalf("expected a single %q group, got %+v", NoValue, roots)
	}
}

func TestSortByName(t *testing.T) {
	roots := Group(sampleLeaves(), []Field{FieldGame, FieldSet})
	roots[0].Children[0], roots[0].Children[1] = roots[0].Children[1], roots[0].Children[0]
	roots[0], roots[1] = roots[1], roots[0]

	SortByName(roots)

	if roots[0].Value != "Magic" || roots[0].Children[0].Value != "Alpha" {
		t.Errorf("not sorted: %s/%s", roots[0].Value, roots[0].Children[0].Value)
	}
	leaves := roots[0].Children[0].Leaves
	if leaves[0].CardName != "Black Lotus" {
		t.Errorf("leaves not sorted: %s first", leaves[0].CardName)
	}
}
