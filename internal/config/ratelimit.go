package config

import (
	"os"
	"strconv"
	"time"
)

// LoginLimitConfig is the token bucket applied to failed sign-in attempts,
// keyed by username.
type LoginLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

func LoadLoginLimitConfig() LoginLimitConfig {
	def := LoginLimitConfig{
		Enabled:        envBool("LOGIN_LIMIT_ENABLED", true),
		Capacity:       envInt("LOGIN_LIMIT_CAPACITY", 5),
		RefillTokens:   envInt("LOGIN_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("LOGIN_LIMIT_REFILL_INTERVAL", time.Minute),
		TTL:            envDur("LOGIN_LIMIT_TTL", 30*time.Minute),
		Prefix:         envStr("LOGIN_LIMIT_PREFIX", "tablebook:login"),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Minute
	}
	minTTL := 5 * def.RefillInterval
	if def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
