package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("ROSTER_API_URL", "http://roster.local:8000/")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
	t.Setenv("DB_HOST", "")

	cfg := Load()
	if cfg.Env != "dev" {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.RosterAPIURL != "http://roster.local:8000" {
		t.Errorf("RosterAPIURL = %q", cfg.RosterAPIURL)
	}
	if cfg.PreviewPageSize != 100 {
		t.Errorf("PreviewPageSize = %d", cfg.PreviewPageSize)
	}
	if cfg.Audit.AMQPURL != "amqp://u:p@mq:5672/" || cfg.Audit.Queue != "roster.member.mutated" || !cfg.Audit.Enabled {
		t.Errorf("Audit = %+v", cfg.Audit)
	}
	if cfg.DB.Configured() {
		t.Error("DB configured without host")
	}
	if cfg.Document.TTL != time.Hour || cfg.Document.Prefix != "mel:doc" {
		t.Errorf("Document = %+v", cfg.Document)
	}
}

func TestLoadDocumentConfigFloorsTTL(t *testing.T) {
	t.Setenv("DOCUMENT_TTL", "5s")
	if got := LoadDocumentConfig().TTL; got != time.Minute {
		t.Errorf("TTL = %s", got)
	}
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 5 || cfg.RefillTokens != 1 || cfg.RefillInterval != 2*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TTL != 10*time.Second {
		t.Errorf("TTL = %s, want 5 refill intervals", cfg.TTL)
	}
	if cfg.KeyStrategy != "ip_workflow_route" {
		t.Errorf("KeyStrategy = %q", cfg.KeyStrategy)
	}
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TLS", "1")
	opts, err := RedisOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.TLSConfig == nil {
		t.Errorf("opts = %+v", opts)
	}

	t.Setenv("REDIS_URL", "redis://:pw@redis.local:6379/3")
	opts, err = RedisOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "redis.local:6379" || opts.Password != "pw" || opts.DB != 3 {
		t.Errorf("url opts = %+v", opts)
	}
}

func TestEnvBool(t *testing.T) {
	for v, want := range map[string]bool{"1": true, "Yes": true, "ON": true, "false": false, "off": false, "maybe": true, "": true} {
		t.Setenv("RATE_LIMIT_ENABLED", v)
		if got := LoadRateLimitConfig().Enabled; got != want {
			t.Errorf("RATE_LIMIT_ENABLED=%q: Enabled = %v", v, got)
		}
	}
}
