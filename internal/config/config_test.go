package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bikeshop/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, config.CartPersisted, cfg.CartStrategy)
	assert.Equal(t, 0.05, cfg.TaxRate)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	assert.NotEmpty(t, cfg.JWTSecret, "development gets a fallback secret")
	assert.False(t, cfg.RedisEnabled())
}

func TestFromViper_Validation(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
		wantErr   string
	}{
		{"unknown driver", map[string]interface{}{"DATABASE_DRIVER": "mysql"}, "DATABASE_DRIVER"},
		{"unknown strategy", map[string]interface{}{"CART_STRATEGY": "cookie"}, "CART_STRATEGY"},
		{"session without redis", map[string]interface{}{"CART_STRATEGY": "session"}, "requires REDIS_ADDR"},
		{"negative tax", map[string]interface{}{"TAX_RATE": -0.1}, "TAX_RATE"},
		{"production without secret", map[string]interface{}{"APP_ENV": "production"}, "JWT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.FromViper(newViper(tt.overrides))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromViper_SessionStrategyWithRedis(t *testing.T) {
	cfg, err := config.FromViper(newViper(map[string]interface{}{
		"CART_STRATEGY": "session",
		"REDIS_ADDR":    "localhost:6379",
		"TAX_RATE":      0,
	}))
	require.NoError(t, err)
	assert.Equal(t, config.CartSession, cfg.CartStrategy)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, 0.0, cfg.TaxRate)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	assert.Error(t, config.LoadEnvFile(), "no .env in the working directory")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BIKESHOP_ENV_FILE_CHECK=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BIKESHOP_ENV_FILE_CHECK") })
	require.NoError(t, config.LoadEnvFile())
	assert.Equal(t, "loaded", os.Getenv("BIKESHOP_ENV_FILE_CHECK"))
}
