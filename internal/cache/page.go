package cache

import (
	"context"
	"log/slog"
	"time"

	"postline/internal/middleware"
	"postline/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// CachedPage is a fully rendered response.
type CachedPage struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// PageCache stores rendered pages by key for a bounded time.
type PageCache interface {
	Get(ctx context.Context, key string) (*CachedPage, bool)
	Set(ctx context.Context, key string, page *CachedPage, ttl time.Duration)
}

// NewPageCache returns a Redis-backed PageCache, or a no-op one when store has no client.
func NewPageCache(store *Store) PageCache {
	if !store.Enabled() {
		return NopPageCache{}
	}
	return &redisPageCache{store: store}
}

type redisPageCache struct {
	store *Store
}

func (p *redisPageCache) Get(ctx context.Context, key string) (*CachedPage, bool) {
	var page CachedPage
	found, err := p.store.GetJSON(ctx, key, &page)
	if err != nil {
		observability.PageCacheLookups.WithLabelValues("error").Inc()
		middleware.Logger.WarnContext(ctx, "page cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if !found {
		observability.PageCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	observability.PageCacheLookups.WithLabelValues("hit").Inc()
	return &page, true
}

func (p *redisPageCache) Set(ctx context.Context, key string, page *CachedPage, ttl time.Duration) {
	if err := p.store.SetJSON(ctx, key, page, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "page cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// NopPageCache never stores anything.
type NopPageCache struct{}

func (NopPageCache) Get(context.Context, string) (*CachedPage, bool) { return nil, false }
func (NopPageCache) Set(context.Context, string, *CachedPage, time.Duration) {}

// CachePage serves GET responses from pc for ttl, keyed by the full request URL.
// Only 200 responses are stored. When enabled returns false the request bypasses the cache.
func CachePage(pc PageCache, ttl time.Duration, enabled func(c *fiber.Ctx) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet || ttl <= 0 || (enabled != nil && !enabled(c)) {
			return c.Next()
		}

		key := PageKey(c.OriginalURL())
		if page, ok := pc.Get(c.UserContext(), key); ok {
			c.Set(fiber.HeaderContentType, page.ContentType)
			c.Set("X-Cache", "HIT")
			return c.Status(page.Status).Send(page.Body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		c.Set("X-Cache", "MISS")
		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		pc.Set(c.UserContext(), key, &CachedPage{
			Status:      fiber.StatusOK,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}, ttl)
		return nil
	}
}
