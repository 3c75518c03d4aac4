package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quillforge/aiengine/internal/ui"
)

const (
	// DefaultCacheTTL is the default time-to-live for cache entries.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheMaxEntries caps the cache size; the oldest entry is
	// evicted when full.
	DefaultCacheMaxEntries = 1000

	// cleanupInterval is how often the cache cleaner runs.
	cleanupInterval = 1 * time.Minute
)

// cacheEntry is a cached response with expiration time.
type cacheEntry struct {
	response  []byte
	expireAt  time.Time
	createdAt time.Time
}

func (e *cacheEntry) expired() bool {
	return time.Now().After(e.expireAt)
}

// ResponseCache is a thread-safe in-memory cache for generate responses,
// keyed by the SHA256 of the request body. Identical prompts within the
// TTL are served without burning provider quota.
type ResponseCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger

	hits   int64
	misses int64
}

// ResponseCacheOption is a functional option for configuring ResponseCache.
type ResponseCacheOption func(*ResponseCache)

// WithCacheTTL sets a custom TTL for cache entries.
func WithCacheTTL(ttl time.Duration) ResponseCacheOption {
	return func(c *ResponseCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheMaxEntries caps the number of cached responses.
func WithCacheMaxEntries(n int) ResponseCacheOption {
	return func(c *ResponseCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithCacheLogger sets a custom logger.
func WithCacheLogger(logger *slog.Logger) ResponseCacheOption {
	return func(c *ResponseCache) {
		c.logger = logger
	}
}

// NewResponseCache creates a cache and starts its background TTL cleaner.
func NewResponseCache(opts ...ResponseCacheOption) *ResponseCache {
	c := &ResponseCache{
		entries:    make(map[string]*cacheEntry),
		ttl:        DefaultCacheTTL,
		maxEntries: DefaultCacheMaxEntries,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.runCleanup()

	return c
}

// HashRequest generates the cache key for a request body.
func HashRequest(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}

// Get retrieves a cached response by key.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	if entry.expired() {
		c.mu.Lock()
		delete(c.entries, key)
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()

	return entry.response, true
}

// Set stores a response with the configured TTL, evicting the oldest
// entry when the cache is full.
func (c *ResponseCache) Set(key string, response []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	now := time.Now()
	c.entries[key] = &cacheEntry{
		response:  response,
		expireAt:  now.Add(c.ttl),
		createdAt: now,
	}
}

// evictOldestLocked removes the entry with the earliest creation time.
// Caller must hold c.mu.
func (c *ResponseCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.createdAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// runCleanup periodically removes expired entries.
func (c *ResponseCache) runCleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

// cleanup removes all expired entries.
func (c *ResponseCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0

	for key, entry := range c.entries {
		if now.After(entry.expireAt) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 && c.logger != nil {
		c.logger.Debug("cache cleanup",
			slog.Int("expired_entries", expired),
			slog.Int("remaining_entries", len(c.entries)),
		)
	}
}

// Stats returns cache hit/miss statistics and current size.
func (c *ResponseCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}

// CacheMiddleware caches successful generate responses.
// Flow:
//  1. Hash the request body (SHA256)
//  2. Check cache: HIT returns immediately without touching a provider
//  3. MISS continues to the handler and caches a 200 response
func CacheMiddleware(cache *ResponseCache, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.URL.Path != "/v1/generate" {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}

		// Restore body for downstream handlers.
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		cacheKey := HashRequest(bodyBytes)

		if cachedResponse, found := cache.Get(cacheKey); found {
			start := time.Now()
			latency := time.Since(start)

			if logger != nil {
				logger.Info("cache hit",
					slog.String("cache_key", cacheKey[:12]+"..."),
					slog.Duration("latency", latency),
				)
			}

			ui.PrintCacheHit(cacheKey, latency)

			c.Set("cache_hit", true)
			c.Data(http.StatusOK, "application/json", cachedResponse)
			c.Abort()
			return
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		// Only successful generations are worth replaying.
		if c.Writer.Status() == http.StatusOK {
			cache.Set(cacheKey, writer.body.Bytes())

			if logger != nil {
				logger.Debug("response cached",
					slog.String("cache_key", cacheKey[:12]+"..."),
					slog.Int("size_bytes", writer.body.Len()),
				)
			}
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture the response body.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write captures the response body while writing to the original writer.
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
