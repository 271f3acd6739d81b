package config

import (
	"os"
	"strings"
	"time"
)

// RateLimitConfig drives the Redis token bucket in front of the workflow
// routes.  Each bucket holds Capacity requests and regains RefillTokens
// every RefillInterval.  KeyStrategy picks which of client ip, workflow id
// and route share a bucket.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST and
// RATE_LIMIT_REFILL_EVERY are shorthands for a capacity and a one token
// refill period.  Buckets outlive at least five refill periods.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", "ip_workflow_route")),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
		cfg.Capacity = burst
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		cfg.RefillTokens = 1
		cfg.RefillInterval = every
	}

	cfg.Capacity = max(cfg.Capacity, 1)
	cfg.RefillTokens = max(cfg.RefillTokens, 1)
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	cfg.TTL = max(cfg.TTL, 5*cfg.RefillInterval)
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return dur
}
