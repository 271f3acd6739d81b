package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/mel-roster/internal/config"
)

// tokenBucket refills KEYS[1] by whole intervals, then takes one token.
// ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_seconds.
// Returns {allowed, tokens_left, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals * refill_tokens)
		last_refill = last_refill + intervals * interval_ms
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return {allowed, tokens, retry_after_ms}
`)

// bucketReply is the decoded result of one tokenBucket run.
type bucketReply struct {
	Allowed   bool
	Remaining int64
	RetryMs   int64
}

// RetrySeconds rounds the wait up to whole seconds for Retry-After.
func (r bucketReply) RetrySeconds() int {
	if r.RetryMs <= 0 {
		return 0
	}
	return int((r.RetryMs + 999) / 1000)
}

func parseBucketReply(v any) (bucketReply, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return bucketReply{}, false
	}
	return bucketReply{
		Allowed:   asInt64(arr[0]) == 1,
		Remaining: asInt64(arr[1]),
		RetryMs:   asInt64(arr[2]),
	}, true
}

// NewTokenBucket limits workflow requests with a token bucket kept in
// Redis, so every instance shares the same budget.  Without Redis, or when
// disabled, it passes every request through.  Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	ttl := int64(cfg.TTL / time.Second)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			res, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), ttl).Result()
			if err != nil {
				if cfg.Debug {
					c.Logger().Warnf("ratelimit: redis error for %s: %v", key, err)
				}
				return next(c)
			}
			reply, ok := parseBucketReply(res)
			if !ok {
				if cfg.Debug {
					c.Logger().Warnf("ratelimit: unexpected reply for %s: %#v", key, res)
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(reply.Remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !reply.Allowed {
				return tooManyRequests(c, reply.RetrySeconds())
			}
			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, secs int) error {
	c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	return c.JSON(http.StatusTooManyRequests, echo.Map{
		"error":       fmt.Sprintf("too many requests for this workflow, retry in %ds", secs),
		"retry_after": secs,
	})
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

// buildRateKey names the bucket for c.  The default strategy gives every
// client its own bucket per workflow and route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	wf := c.Param("id")
	if wf == "" {
		wf = "none"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "workflow":
		parts = append(parts, "wf", wf)
	case "route":
		parts = append(parts, "route", route)
	case "ip_workflow":
		parts = append(parts, "ip", ip, "wf", wf)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "workflow_route":
		parts = append(parts, "wf", wf, "route", route)
	default:
		parts = append(parts, "ip", ip, "wf", wf, "route", route)
	}
	return strings.Join(parts, ":")
}
