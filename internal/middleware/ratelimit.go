package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pos-gateway/internal/config"
)

// bucketScript keeps {level, stamp_ms} per key and refills continuously at
// ARGV[3] tokens per ARGV[4] ms, capped at ARGV[2].  It answers
// {allowed, whole tokens left, ms until the next token}.
var bucketScript = redis.NewScript(`
local cap      = tonumber(ARGV[2])
local per_ms   = tonumber(ARGV[3]) / tonumber(ARGV[4])
local now      = tonumber(ARGV[1])
local cur      = redis.call('HMGET', KEYS[1], 'level', 'stamp_ms')
local level    = tonumber(cur[1]) or cap
local stamp    = tonumber(cur[2]) or now

if now > stamp then
	level = math.min(cap, level + (now - stamp) * per_ms)
end

local ok, wait = 0, 0
if level >= 1 then
	ok = 1
	level = level - 1
else
	wait = math.ceil((1 - level) / per_ms)
end

redis.call('HSET', KEYS[1], 'level', level, 'stamp_ms', now)
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return { ok, math.floor(level), wait }
`)

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewTokenBucket throttles each terminal user per route.  When Redis is
// missing or failing requests are let through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "ratelimit")
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			res, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				cfg.TTL.Milliseconds(),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				log.WithError(err).WithField("key", key).Warn("rate limit unavailable")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if res[0] == 1 {
				return next(c)
			}
			wait := (res[2] + 999) / 1000
			h.Set("Retry-After", strconv.FormatInt(wait, 10))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too many requests, slow down",
				"retry_after": wait,
			})
		}
	}
}

// buildRateKey scopes the bucket.  "terminal" (the default) is one bucket
// per branch, user and route; "user" shares one bucket across routes;
// "ip" keys on the client address only.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		return cfg.Prefix + ":ip:" + ip
	case "user":
		return cfg.Prefix + ":" + principalScope(c)
	default:
		return cfg.Prefix + ":" + principalScope(c) + ":" + c.Request().Method + " " + c.Path()
	}
}

// principalScope is "branch/user", with "-" for a missing branch.
func principalScope(c echo.Context) string {
	branch := "-"
	if p, ok := PrincipalFrom(c); ok && p.Branch != "" {
		branch = p.Branch
	}
	return branch + "/" + currentUserID(c)
}
