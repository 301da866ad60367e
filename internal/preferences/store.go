// Package preferences persists the browser's stock filter and grouping mode.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

// ErrNotSet is returned by a Store for a key that was never saved.
var ErrNotSet = errors.New("preference not set")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// GormStore keeps preferences in the preferences table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, key string) (string, error) {
	var pref models.Preference
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotSet
	}
	if err != nil {
		return "", fmt.Errorf("load preference %s: %w", key, err)
	}
	return pref.Value, nil
}

func (s *GormStore) Set(ctx context.Context, key, value string) error {
	pref := models.Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return fmt.Errorf("save preference %s: %w", key, err)
	}
	return nil
}

type cmdable interface {
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
}

// RedisStore shares preferences between server instances.
type RedisStore struct {
	store  cmdable
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{store: client, prefix: prefix}
}

// Connect parses url, pings the server and returns a store over it.
func Connect(ctx context.Context, url, prefix string) (*RedisStore, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, prefix), client, nil
}

func (s *RedisStore) key(name string) string {
	if s.prefix == "" {
		return "pref:" + name
	}
	return s.prefix + ":pref:" + name
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotSet
	}
	if err != nil {
		return "", fmt.Errorf("load preference %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.store.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("save preference %s: %w", key, err)
	}
	return nil
}
