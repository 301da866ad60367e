package grouping

import (
	"fmt"
	"strings"

	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

// Field is one level of a grouped inventory tree.
type Field string

const (
	FieldGame     Field = "game"
	FieldSet      Field = "set"
	FieldRarity   Field = "rarity"
	FieldCardName Field = "cardName"
	FieldLocation Field = "location"

	tagPrefix = "tag:"
	// NoValue labels leaves that have nothing for a field.
	NoValue = "(none)"
)

// hierarchy is the catalog order; active hierarchy fields always follow it.
var hierarchy = []Field{FieldGame, FieldSet, FieldRarity, FieldCardName}

// Tag groups by an ad-hoc leaf tag.
func Tag(name string) Field {
	return Field(tagPrefix + name)
}

func (f Field) rank() int {
	for i, h := range hierarchy {
		if f == h {
			return i
		}
	}
	return -1
}

func (f Field) Valid() bool {
	if f.rank() >= 0 || f == FieldLocation {
		return true
	}
	return strings.HasPrefix(string(f), tagPrefix) && len(f) > len(tagPrefix)
}

func (f Field) valueOf(leaf models.InventoryLeaf) string {
	var v string
	switch f {
	case FieldGame:
		v = leaf.Game
	case FieldSet:
		v = leaf.SetName
	case FieldRarity:
		v = leaf.Rarity
	case FieldCardName:
		v = leaf.CardName
	case FieldLocation:
		v = leaf.Tags["location"]
	default:
		v = leaf.Tags[strings.TrimPrefix(string(f), tagPrefix)]
	}
	if v == "" {
		return NoValue
	}
	return v
}

// Normalize drops duplicates and invalid fields, puts hierarchy fields in
// catalog order, then appends the others in the order given.
func Normalize(fields []Field) []Field {
	seen := make(map[Field]bool, len(fields))
	var others []Field
	for _, f := range fields {
		if seen[f] || !f.Valid() {
			continue
		}
		seen[f] = true
		if f.rank() < 0 {
			others = append(others, f)
		}
	}
	out := make([]Field, 0, len(seen))
	for _, h := range hierarchy {
		if seen[h] {
			out = append(out, h)
		}
	}
	return append(out, others...)
}

// Activate turns f on. Clicking set then game yields [game set].
func Activate(fields []Field, f Field) []Field {
	return Normalize(append(append([]Field(nil), fields...), f))
}

func Deactivate(fields []Field, f Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, existing := range fields {
		if existing != f {
			out = append(out, existing)
		}
	}
	return Normalize(out)
}

// Toggle activates f if it is off and deactivates it otherwise.
func Toggle(fields []Field, f Field) []Field {
	for _, existing := range fields {
		if existing == f {
			return Deactivate(fields, f)
		}
	}
	return Activate(fields, f)
}

// ParseFields reads a comma separated list such as "set,game".
func ParseFields(s string) ([]Field, error) {
	var fields []Field
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f := Field(part)
		if !f.Valid() {
			return nil, fmt.Errorf("unknown grouping field %q", part)
		}
		fields = append(fields, f)
	}
	return Normalize(fields), nil
}

func Format(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
