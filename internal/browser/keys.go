package browser

import (
	"strings"

	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
)

// Node keys address expandable nodes of the tree.
const (
	KeyLibraries  = "libraries"
	libraryPrefix = "library:"
	setPrefix     = "set:"
	cardPrefix    = "card:"
	searchPrefix  = "search:"
)

func LibraryKey(id string) string { return libraryPrefix + id }
func SetKey(id string) string     { return setPrefix + id }
func CardKey(id string) string    { return cardPrefix + id }
func SearchKey(q string) string   { return searchPrefix + normalizeQuery(q) }

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

type nodeLevel int

const (
	levelLibraries nodeLevel = iota
	levelSets
	levelCards
	levelStock
	levelSearch
)

func parseKey(key string) (nodeLevel, string, error) {
	if key == KeyLibraries {
		return levelLibraries, "", nil
	}
	for prefix, level := range map[string]nodeLevel{
		libraryPrefix: levelSets,
		setPrefix:     levelCards,
		cardPrefix:    levelStock,
		searchPrefix:  levelSearch,
	} {
		if id, ok := strings.CutPrefix(key, prefix); ok && id != "" {
			return level, id, nil
		}
	}
	return 0, "", errs.Newf(errs.KindValidation, "unknown node key %q", key)
}
