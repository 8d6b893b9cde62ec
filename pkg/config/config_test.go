package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 24*time.Hour, cfg.HITLConfigTTL)
	assert.Equal(t, time.Hour, cfg.CustomerContextTTL)
	assert.Equal(t, "switchboard", cfg.ServiceName)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("HITL_CONFIG_TTL", "48h")
	t.Setenv("SALES_PHONE", "+15551234567")

	cfg := Load()
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 48*time.Hour, cfg.HITLConfigTTL)
	assert.Equal(t, "+15551234567", cfg.SalesPhone)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("HITL_CONFIG_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 24*time.Hour, cfg.HITLConfigTTL)
}
