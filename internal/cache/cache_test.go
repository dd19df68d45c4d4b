package cache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewStore(client)
}

type groupDoc struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

func TestStore_Aside(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *groupDoc) func() error {
		return func() error {
			calls++
			*dest = groupDoc{Slug: "cats", Title: "Cats"}
			return nil
		}
	}

	var first groupDoc
	require.NoError(t, store.Aside(ctx, GroupKey("cats"), &first, GroupTTL, fetch(&first)))
	var second groupDoc
	require.NoError(t, store.Aside(ctx, GroupKey("cats"), &second, GroupTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	store.InvalidateGroup(ctx, "cats")
	var third groupDoc
	require.NoError(t, store.Aside(ctx, GroupKey("cats"), &third, GroupTTL, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestStore_AsideFetchError(t *testing.T) {
	mr, store := newTestStore(t)
	boom := errors.New("not found")

	var dest groupDoc
	err := store.Aside(context.Background(), GroupKey("missing"), &dest, GroupTTL, func() error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(GroupKey("missing")))
}

func TestStore_NilClient(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	assert.False(t, store.Enabled())
	found, err := store.GetJSON(ctx, "k", &groupDoc{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, store.SetJSON(ctx, "k", groupDoc{}, time.Minute))

	calls := 0
	require.NoError(t, store.Aside(ctx, "k", &groupDoc{}, time.Minute, func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
	assert.IsType(t, NopPageCache{}, NewPageCache(store))
}

func newCachedApp(pc PageCache, ttl time.Duration, enabled func(*fiber.Ctx) bool, body *string, status *int) *fiber.App {
	app := fiber.New()
	app.Get("/", CachePage(pc, ttl, enabled), func(c *fiber.Ctx) error {
		return c.Status(*status).JSON(fiber.Map{"body": *body})
	})
	return app
}

func get(t *testing.T, app *fiber.App, url string) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(b)
}

func TestCachePage(t *testing.T) {
	t.Run("serves stale page until ttl expires", func(t *testing.T) {
		mr, store := newTestStore(t)
		body, status := "first", fiber.StatusOK
		app := newCachedApp(NewPageCache(store), 20*time.Second, nil, &body, &status)

		resp, first := get(t, app, "/?page=1")
		assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

		body = "second"
		resp, cached := get(t, app, "/?page=1")
		assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
		assert.Equal(t, first, cached)
		assert.Equal(t, fiber.MIMEApplicationJSON, resp.Header.Get(fiber.HeaderContentType))

		_, otherPage := get(t, app, "/?page=2")
		assert.Contains(t, otherPage, "second")

		mr.FastForward(21 * time.Second)
		_, fresh := get(t, app, "/?page=1")
		assert.Contains(t, fresh, "second")
	})

	t.Run("non-200 responses are not stored", func(t *testing.T) {
		mr, store := newTestStore(t)
		body, status := "oops", fiber.StatusInternalServerError
		app := newCachedApp(NewPageCache(store), time.Minute, nil, &body, &status)

		get(t, app, "/")
		assert.Empty(t, mr.Keys())
	})

	t.Run("disabled bypasses cache", func(t *testing.T) {
		mr, store := newTestStore(t)
		body, status := "x", fiber.StatusOK
		app := newCachedApp(NewPageCache(store), time.Minute, func(*fiber.Ctx) bool { return false }, &body, &status)

		resp, _ := get(t, app, "/")
		assert.Empty(t, resp.Header.Get("X-Cache"))
		assert.Empty(t, mr.Keys())
	})

	t.Run("nop cache always renders", func(t *testing.T) {
		body, status := "one", fiber.StatusOK
		app := newCachedApp(NopPageCache{}, time.Minute, nil, &body, &status)

		get(t, app, "/")
		body = "two"
		_, got := get(t, app, "/")
		assert.Contains(t, got, "two")
	})
}
