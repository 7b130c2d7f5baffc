package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 2*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, "123456", cfg.Accounts.DefaultPassword)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.Redis.Enabled)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("JWT_EXPIRATION", "not-a-duration")
	v.Set("CATALOG_CACHE_TTL", "30s")
	v.Set("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg := fromViper(v)

	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 30*time.Second, cfg.Catalog.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
