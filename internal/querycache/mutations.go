package querycache

// Mutation names a write whose completion makes some cached reads obsolete.
type Mutation string

const (
	MutationCreateStock       Mutation = "createStock"
	MutationUpdateStockField  Mutation = "updateStockField"
	MutationAddMarketplace    Mutation = "addMarketplace"
	MutationRemoveMarketplace Mutation = "removeMarketplace"
	MutationCreateTransaction Mutation = "createTransaction"
)

// MutationContext carries the ids a mutation touched. CardID narrows
// card-scoped targets; empty widens them to every card.
type MutationContext struct {
	CardID string
}

type target struct {
	kind   Kind
	byCard bool
}

// Every mutation site delegates here instead of listing keys inline.
var invalidationTable = map[Mutation][]target{
	MutationCreateStock: {
		{kind: KindStock, byCard: true},
		{kind: KindLibraries},
		{kind: KindSets},
		{kind: KindCards},
		{kind: KindSearch},
		{kind: KindGrouped},
		{kind: KindSummary},
	},
	MutationUpdateStockField: {
		{kind: KindStock, byCard: true},
		{kind: KindLibraries},
		{kind: KindSets},
		{kind: KindCards},
		{kind: KindSearch},
		{kind: KindTransactionItems},
		{kind: KindGrouped},
		{kind: KindSummary},
	},
	MutationAddMarketplace: {
		{kind: KindStock, byCard: true},
		{kind: KindSearch},
		{kind: KindTransactionItems},
		{kind: KindPriceAlerts},
	},
	MutationRemoveMarketplace: {
		{kind: KindStock, byCard: true},
		{kind: KindSearch},
		{kind: KindTransactionItems},
		{kind: KindPriceAlerts},
	},
	// A sale spans many cards, so stock is invalidated wholesale.
	MutationCreateTransaction: {
		{kind: KindStock},
		{kind: KindLibraries},
		{kind: KindSets},
		{kind: KindCards},
		{kind: KindSearch},
		{kind: KindTransactionItems},
		{kind: KindGrouped},
		{kind: KindSummary},
	},
}

// PrefixesFor resolves the invalidation targets of m. Unknown mutations
// resolve to nothing.
func PrefixesFor(m Mutation, mc MutationContext) []Prefix {
	targets := invalidationTable[m]
	prefixes := make([]Prefix, 0, len(targets))
	for _, t := range targets {
		if t.byCard && mc.CardID != "" {
			prefixes = append(prefixes, Under(t.kind, mc.CardID))
			continue
		}
		prefixes = append(prefixes, All(t.kind))
	}
	return prefixes
}

// Mutations lists the table's keys, for documentation endpoints and tests.
func Mutations() []Mutation {
	return []Mutation{
		MutationCreateStock,
		MutationUpdateStockField,
		MutationAddMarketplace,
		MutationRemoveMarketplace,
		MutationCreateTransaction,
	}
}
