// Package config loads switchboard configuration from environment
// variables with sensible defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the settings shared across components.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string

	// Department directory overrides for the fixed routing table.
	SalesPhone   string
	SalesEmail   string
	SupportPhone string
	SupportEmail string
	BillingPhone string
	BillingEmail string

	// TTLs for store-backed records.
	HITLConfigTTL      time.Duration
	CustomerContextTTL time.Duration
	RoutingLogTTL      time.Duration

	// Telemetry.
	ServiceName  string
	OTLPEndpoint string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		LogLevel: envOr("LOG_LEVEL", "INFO"),

		SalesPhone:   envOr("SALES_PHONE", "+18005550101"),
		SalesEmail:   envOr("SALES_EMAIL", "sales@example.com"),
		SupportPhone: envOr("SUPPORT_PHONE", "+18005550102"),
		SupportEmail: envOr("SUPPORT_EMAIL", "support@example.com"),
		BillingPhone: envOr("BILLING_PHONE", "+18005550103"),
		BillingEmail: envOr("BILLING_EMAIL", "billing@example.com"),

		HITLConfigTTL:      envDuration("HITL_CONFIG_TTL", 24*time.Hour),
		CustomerContextTTL: envDuration("CUSTOMER_CONTEXT_TTL", time.Hour),
		RoutingLogTTL:      envDuration("ROUTING_LOG_TTL", 24*time.Hour),

		ServiceName:  envOr("SERVICE_NAME", "switchboard"),
		OTLPEndpoint: envOr("OTLP_ENDPOINT", "localhost:4317"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
