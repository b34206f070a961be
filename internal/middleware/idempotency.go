package middleware

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carrental/internal/redis"
)

const idempotencyHeader = "Idempotency-Key"

// ResponseCache stores responses for replay.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*redis.CachedResponse, error)
	Set(ctx context.Context, key string, response *redis.CachedResponse) error
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware returns middleware that replays the first response
// for a repeated Idempotency-Key. Keys are scoped by principal and path so
// two users cannot collide. With a nil cache the middleware does nothing.
func IdempotencyMiddleware(cache ResponseCache, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil {
			c.Next()
			return
		}

		// Only apply to mutating methods.
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := scopeKey(c, key)

		cached, err := cache.Get(ctx, cacheKey)
		if err != nil {
			// Cache error - proceed without idempotency.
			log.Warn("idempotency cache read failed", zap.Error(err))
			c.Next()
			return
		}

		if cached != nil {
			for k, v := range cached.Headers {
				for _, val := range v {
					c.Header(k, val)
				}
			}
			c.Header("Idempotent-Replayed", "true")
			c.Data(cached.StatusCode, "application/json", cached.Body)
			c.Abort()
			return
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// Server errors and lock timeouts are retryable and not cached.
		status := c.Writer.Status()
		if status >= 200 && status < 500 {
			response := redis.CachedResponse{
				StatusCode: status,
				Body:       w.body.Bytes(),
				Headers:    extractResponseHeaders(c),
			}
			if err := cache.Set(context.WithoutCancel(ctx), cacheKey, &response); err != nil {
				log.Warn("idempotency cache write failed", zap.Error(err))
			}
		}
	}
}

func scopeKey(c *gin.Context, key string) string {
	owner := "anonymous"
	if principal := PrincipalFrom(c); principal != nil {
		owner = principal.Key
	}
	return owner + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	// Only cache Content-Type header.
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
