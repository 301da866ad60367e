package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, 44, cfg.Paging.SetBatchSize)
	assert.Equal(t, 10, cfg.Paging.LibraryBatchSize)
	assert.Equal(t, 30*time.Second, cfg.Cache.SearchStaleTime)
	assert.Equal(t, 5*time.Minute, cfg.Cache.PriceAlertStaleTime)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SET_BATCH_SIZE", "12")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 12, cfg.Paging.SetBatchSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DB:       DBConfig{Driver: DriverSQLite, Path: "x.db"},
			Snapshot: SnapshotConfig{Hour: 23},
			Paging:   PagingConfig{LibraryBatchSize: 10, SetBatchSize: 44, CardBatchSize: 24, SearchBatchSize: 20},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid sqlite", func(*Config) {}, false},
		{"postgres without url", func(c *Config) { c.DB.Driver = DriverPostgres }, true},
		{"postgres with url", func(c *Config) { c.DB.Driver = DriverPostgres; c.DB.URL = "postgres://x" }, false},
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }, true},
		{"bad snapshot hour", func(c *Config) { c.Snapshot.Hour = 24 }, true},
		{"zero batch size", func(c *Config) { c.Paging.SetBatchSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
