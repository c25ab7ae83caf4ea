package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"geotrace"
	"geotrace/internal/config"
	"geotrace/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	headerRequestID = "X-Request-ID"
	ctxKeyRequestID = "requestId"

	errInternal    = "internal server error"
	errRateLimited = "too many requests"

	maxRequestIDLen = 128
	maxLimiters     = 10_000
)

// recovery turns a panic into a JSON 500 instead of gin's empty body.
func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		h.log.Errorw("panic_recovered", "panic", rec, "path", c.Request.URL.Path, "request_id", c.GetString(ctxKeyRequestID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, geotrace.ErrorResponse{Error: errInternal})
	})
}

// requestID reuses a caller-supplied X-Request-ID or assigns a new one.
func (h *Handler) requestID(c *gin.Context) {
	id := c.GetHeader(headerRequestID)
	if id == "" || len(id) > maxRequestIDLen {
		id = uuid.NewString()
	}
	c.Set(ctxKeyRequestID, id)
	c.Header(headerRequestID, id)
	c.Next()
}

func (h *Handler) securityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	if h.cfg.SessionCookieSecure {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
	c.Next()
}

// cors answers preflight requests on known routes and tags responses for
// allowed origins.
func (h *Handler) cors() gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(h.cfg.CORSOrigins))
	for _, o := range h.cfg.CORSOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, ok := allowed[origin]
		if origin != "" && (allowAll || ok) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-Receipt-ID, X-Receipt-Signature")
			c.Header("Access-Control-Max-Age", "3600")
			c.Header("Vary", "Origin")
		}

		// Unknown paths fall through to the JSON 404.
		if c.Request.Method == http.MethodOptions && c.FullPath() != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// observe feeds the HTTP collectors. Unmatched routes share one path label.
func (h *Handler) observe(c *gin.Context) {
	if h.metrics == nil {
		c.Next()
		return
	}
	start := time.Now()
	h.metrics.IncrementInFlight()
	defer h.metrics.DecrementInFlight()

	c.Next()

	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	h.metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
}

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// newRateLimiter returns nil when limiting is disabled.
func newRateLimiter(cfg config.RateLimitConfig, log *logger.Logger) *rateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(cfg.RequestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

func (rl *rateLimiter) handle(c *gin.Context) {
	key := c.ClientIP()
	if !rl.get(key).Allow() {
		rl.log.Warnw("rate_limit_exceeded", "client", key, "path", c.Request.URL.Path)
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, geotrace.ErrorResponse{Error: errRateLimited})
		return
	}
	c.Next()
}
