package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/social-api/internal/config"
)

// cachedResponse is what gets stored in Redis for one key.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// captureWriter tees the response body (up to limit bytes) while writing it
// to the client.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
		cw.truncated = true
	} else if !cw.truncated {
		cw.buf.Write(b)
	}
	return cw.ResponseWriter.Write(b)
}

func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", r.URL.Path}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", r.URL.Path, "q", r.URL.RawQuery}
	default: // route_query
		parts = []string{"route", r.URL.Path, "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// ResponseCache caches successful responses of public read routes in Redis.
// It must only wrap routes that do not depend on the caller's identity. A nil
// client or a disabled config yields a pass-through middleware.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKey(cfg, c)

			if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(bs, &hit) == nil {
					for k, vals := range hit.Header {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(hit.Status, c.Response().Header().Get(echo.HeaderContentType), hit.Body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := json.Marshal(cachedResponse{Status: cw.status, Header: hdr, Body: cw.buf.Bytes()})
			if err == nil {
				_ = rdb.SetEx(context.WithoutCancel(c.Request().Context()), key, payload, ttl).Err()
			}
			return nil
		}
	}
}

// CacheInvalidator drops every cached response under cfg.Prefix after a
// mutation succeeds. A cached read must never outlive the write that changed
// it. Keys are hashed, so the whole prefix is cleared. A nil client or a
// disabled config yields a pass-through middleware.
func CacheInvalidator(cfg config.CacheConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if s := c.Response().Status; s < 200 || s >= 300 {
				return nil
			}
			ctx := context.WithoutCancel(c.Request().Context())
			if err := purgePrefix(ctx, rdb, cfg.Prefix); err != nil {
				log.Warn().Err(err).Str("path", c.Path()).Msg("cache invalidation failed")
			}
			return nil
		}
	}
}

func purgePrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	iter := rdb.Scan(ctx, 0, prefix+":*", 256).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 256 {
			if err := rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return rdb.Del(ctx, batch...).Err()
	}
	return nil
}
