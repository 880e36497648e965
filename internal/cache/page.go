package cache

import (
	"context"
	"fmt"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// KeyFunc derives the cache key of a request. Two requests with the same key
// share one cached response.
type KeyFunc func(c *fiber.Ctx) string

type cachedPage struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// URLKey keys pages by full URL (path plus query) and the viewer, since the
// rendered page includes the viewer's navigation.
func URLKey(c *fiber.Ctx) string {
	viewer := uint(0)
	if uid, ok := c.Locals("userID").(uint); ok {
		viewer = uid
	}
	return fmt.Sprintf("%s|u%d", c.OriginalURL(), viewer)
}

// Page caches successful GET responses for ttl. Writes elsewhere do not
// invalidate entries: stale pages are served until the TTL lapses or
// ClearPages is called. Without Redis every request passes through.
func Page(ttl time.Duration, keyFn KeyFunc) fiber.Handler {
	if keyFn == nil {
		keyFn = URLKey
	}
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet || client == nil || ttl <= 0 {
			observability.PageCacheRequests.WithLabelValues("bypass").Inc()
			return c.Next()
		}

		ctx := c.UserContext()
		key := PageKeyPrefix + keyFn(c)

		var page cachedPage
		found, err := GetJSON(ctx, key, &page)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "page cache read failed", "key", key, "error", err)
		}
		if found {
			observability.PageCacheRequests.WithLabelValues("hit").Inc()
			c.Set("X-Cache", "HIT")
			c.Set(fiber.HeaderContentType, page.ContentType)
			return c.Status(fiber.StatusOK).Send(page.Body)
		}

		observability.PageCacheRequests.WithLabelValues("miss").Inc()
		c.Set("X-Cache", "MISS")
		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		body := c.Response().Body()
		page = cachedPage{
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), body...),
		}
		if err := SetJSON(ctx, key, page, ttl); err != nil {
			middleware.Logger.WarnContext(ctx, "page cache write failed", "key", key, "error", err)
		}
		return nil
	}
}

// ClearPages removes every cached page and returns how many entries were dropped.
func ClearPages(ctx context.Context) (int64, error) {
	if client == nil {
		return 0, nil
	}

	var removed int64
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, PageKeyPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("scan cached pages: %w", err)
		}
		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("delete cached pages: %w", err)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
