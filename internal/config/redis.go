package config

// Redis holds generated MEL documents between generation and download and
// backs the rate limiter.  If the connection fails at startup NewRedisClient
// returns nil; callers fall back to in-process document storage and disable
// rate limiting.

import (
	"context"
	"crypto/tls"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment.  Supported
// variables are:
//
//	REDIS_URL - redis:// or rediss:// URL, takes precedence over the rest
//	REDIS_HOST and REDIS_PORT, or REDIS_ADDR (host:port)
//	REDIS_PASSWORD, REDIS_DB
//	REDIS_TLS - enable TLS when "true" or "1"
func RedisOptions() (*redis.Options, error) {
	if u := os.Getenv("REDIS_URL"); u != "" {
		return redis.ParseURL(u)
	}
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// NewRedisClient connects and pings with a short timeout.  It returns nil
// when Redis is not usable.
func NewRedisClient(ctx context.Context) *redis.Client {
	opts, err := RedisOptions()
	if err != nil {
		log.Printf("redis: invalid REDIS_URL: %v", err)
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis: ping %s failed: %v", opts.Addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
