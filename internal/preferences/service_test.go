package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-inventory/backend/internal/config"
	"github.com/codyseavey/tcg-inventory/backend/internal/database"
	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/grouping"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

type fakeRedis struct {
	values map[string]string
	err    error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DBConfig{
		Driver: config.DriverSQLite,
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return NewGormStore(db)
}

func TestLoadDefaults(t *testing.T) {
	svc := NewService(&RedisStore{store: &fakeRedis{values: map[string]string{}}})

	prefs := svc.Load(context.Background())
	assert.Equal(t, models.StockFilterAll, prefs.StockFilter)
	assert.Equal(t, []grouping.Field{grouping.FieldGame}, prefs.GroupBy)
}

func TestRoundTripStores(t *testing.T) {
	stores := map[string]Store{
		"redis": &RedisStore{store: &fakeRedis{values: map[string]string{}}, prefix: "inv"},
		"gorm":  newGormStore(t),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			svc := NewService(store)
			ctx := context.Background()

			require.NoError(t, svc.SaveStockFilter(ctx, models.StockFilterInStock))
			require.NoError(t, svc.SaveGroupBy(ctx, []grouping.Field{grouping.FieldGame, grouping.FieldRarity}))
			// Overwrite to exercise the upsert path.
			require.NoError(t, svc.SaveStockFilter(ctx, models.StockFilterOutOfStock))

			prefs := svc.Load(ctx)
			assert.Equal(t, models.StockFilterOutOfStock, prefs.StockFilter)
			assert.Equal(t, []grouping.Field{grouping.FieldGame, grouping.FieldRarity}, prefs.GroupBy)
		})
	}
}

func TestEmptyGroupingSurvivesReload(t *testing.T) {
	stores := map[string]Store{
		"redis": &RedisStore{store: &fakeRedis{values: map[string]string{}}},
		"gorm":  newGormStore(t),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, NewService(store).SaveGroupBy(ctx, []grouping.Field{}))

			prefs := NewService(store).Load(ctx)
			assert.Empty(t, prefs.GroupBy)
			assert.NotNil(t, prefs.GroupBy)
		})
	}
}

func TestRedisKeysArePrefixed(t *testing.T) {
	fake := &fakeRedis{values: map[string]string{}}
	store := &RedisStore{store: fake, prefix: "inv"}

	require.NoError(t, store.Set(context.Background(), KeyGroupBy, "set"))
	assert.Equal(t, "set", fake.values["inv:pref:group_by"])

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotSet)
}

func TestLoadIgnoresCorruptValues(t *testing.T) {
	fake := &fakeRedis{values: map[string]string{
		"pref:stock_filter": "sometimes",
		"pref:group_by":     "colour",
	}}
	prefs := NewService(&RedisStore{store: fake}).Load(context.Background())
	assert.Equal(t, Defaults(), prefs)
}

func TestStoreFailures(t *testing.T) {
	fake := &fakeRedis{values: map[string]string{}, err: errors.New("connection refused")}
	svc := NewService(&RedisStore{store: fake})

	assert.Equal(t, Defaults(), svc.Load(context.Background()))

	err := svc.SaveStockFilter(context.Background(), models.StockFilterInStock)
	assert.True(t, errs.Is(err, errs.KindTransient))
}
