package main

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-inventory/backend/internal/config"
	"github.com/codyseavey/tcg-inventory/backend/internal/database"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

func TestLoadDemoCatalog(t *testing.T) {
	fsys, err := fs.Sub(demoCatalog, "demo")
	require.NoError(t, err)

	cat, err := loadCatalog(fsys)
	require.NoError(t, err)
	assert.Len(t, cat.Libraries, 2)
	assert.Len(t, cat.Sets, 4)
	assert.Len(t, cat.Cards, 13)

	for _, s := range cat.Sets {
		if s.ID == "lea" {
			require.NotNil(t, s.ReleasedAt)
			assert.Equal(t, 1993, s.ReleasedAt.Year())
		}
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{
			name:  "missing libraries",
			files: fstest.MapFS{},
			want:  "libraries.json",
		},
		{
			name: "unknown library",
			files: fstest.MapFS{
				"libraries.json": {Data: []byte(`[{"id":"mtg","name":"Magic"}]`)},
				"sets.json":      {Data: []byte(`[{"id":"x","library_id":"ygo","name":"X"}]`)},
			},
			want: "unknown library",
		},
		{
			name: "bad release date",
			files: fstest.MapFS{
				"libraries.json": {Data: []byte(`[{"id":"mtg","name":"Magic"}]`)},
				"sets.json":      {Data: []byte(`[{"id":"x","library_id":"mtg","name":"X","released_at":"soon"}]`)},
			},
			want: "released_at",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadCatalog(tt.files)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DBConfig{
		Driver: config.DriverSQLite,
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	fsys, err := fs.Sub(demoCatalog, "demo")
	require.NoError(t, err)
	cat, err := loadCatalog(fsys)
	require.NoError(t, err)
	cat.addFillerSets("mtg", 48)

	res, err := seed(db, cat, 2)
	require.NoError(t, err)
	assert.Equal(t, 52, res.Sets)
	assert.Equal(t, 7, res.Stock)

	res, err = seed(db, cat, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stock, "cards with stock are left alone")

	var sets int64
	require.NoError(t, db.Model(&models.CardSet{}).Where("library_id = ?", "mtg").Count(&sets).Error)
	assert.EqualValues(t, 50, sets)

	var listings int64
	require.NoError(t, db.Model(&models.MarketplaceListing{}).Count(&listings).Error)
	assert.EqualValues(t, 7, listings)
}
