package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/pos-gateway/internal/config"
)

// cachedResponse is what the dashboard cache stores.  Only the content type
// is replayed; request-scoped headers are regenerated on every answer.
type cachedResponse struct {
	Status      int    `json:"s"`
	ContentType string `json:"ct"`
	Body        []byte `json:"b"`
}

// captureWriter tees the body into buf until it would exceed limit.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	truncated bool
	limit     int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	switch {
	case cw.truncated:
	case cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit:
		cw.truncated = true
		cw.buf.Reset()
	default:
		cw.buf.Write(b)
	}
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds prefix:sha1(scope|route|query).  The default scope is
// the caller's branch and user so managers never see each other's cards.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	scope := principalScope(c)
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route", "route_query":
		scope = "*"
	}
	query := c.Request().URL.RawQuery
	if strings.EqualFold(cfg.KeyStrategy, "route") {
		query = ""
	}
	sum := sha1.Sum([]byte(scope + "|" + c.Path() + "|" + query))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisCache serves repeated reads of the dashboard from Redis for
// cfg.TTL.  Only 200 answers that fit in cfg.MaxBodyBytes are stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKeyFrom(cfg, c)
			res := c.Response()

			if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil && hit.Status != 0 {
					res.Header().Set("X-Cache", "HIT")
					return c.Blob(hit.Status, hit.ContentType, hit.Body)
				}
			}

			cw := &captureWriter{ResponseWriter: res.Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			res.Writer = cw
			res.Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}
			entry, err := json.Marshal(cachedResponse{
				Status:      cw.status,
				ContentType: res.Header().Get(echo.HeaderContentType),
				Body:        cw.buf.Bytes(),
			})
			if err == nil {
				_ = rdb.Set(context.Background(), key, entry, ttl).Err()
			}
			return nil
		}
	}
}
