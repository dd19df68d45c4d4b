package server

import (
	"fmt"
	"testing"
	"time"

	"postline/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_NewestFirstAndPaginated(t *testing.T) {
	ts := newTestServer(t)
	author := testutil.CreateUser(t, ts.db, "ann")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		testutil.CreatePost(t, ts.db, author, nil, fmt.Sprintf("post %02d", i), base.Add(time.Duration(i)*time.Minute))
	}

	resp, body := ts.get(t, "/", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	doc := decodeJSON(t, body)
	texts := pageTexts(t, doc)
	require.Len(t, texts, 10)
	assert.Equal(t, "post 12", texts[0])
	assert.Equal(t, true, doc["page"].(map[string]any)["has_next"])

	_, body = ts.get(t, "/?page=2", "")
	assert.Equal(t, []string{"post 02", "post 01"}, pageTexts(t, decodeJSON(t, body)))

	_, body = ts.get(t, "/?page=banana", "")
	assert.Len(t, pageTexts(t, decodeJSON(t, body)), 10)
}

func TestIndex_ServedFromCache(t *testing.T) {
	ts := newTestServer(t)
	author := testutil.CreateUser(t, ts.db, "ann")
	testutil.CreatePost(t, ts.db, author, nil, "first", time.Now().Add(-time.Hour))

	resp, first := ts.get(t, "/", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

	testutil.CreatePost(t, ts.db, author, nil, "second", time.Now())

	resp, cached := ts.get(t, "/", "")
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.Equal(t, first, cached)
	assert.NotContains(t, string(cached), "second")

	ts.mr.FastForward(21 * time.Second)

	resp, fresh := ts.get(t, "/", "")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Equal(t, []string{"second", "first"}, pageTexts(t, decodeJSON(t, fresh)))
}

func TestGroupPosts(t *testing.T) {
	ts := newTestServer(t)
	author := testutil.CreateUser(t, ts.db, "ann")
	cats := testutil.CreateGroup(t, ts.db, "cats")
	dogs := testutil.CreateGroup(t, ts.db, "dogs")
	testutil.CreatePost(t, ts.db, author, cats, "meow", time.Now())
	testutil.CreatePost(t, ts.db, author, dogs, "woof", time.Now())

	resp, body := ts.get(t, "/group/cats", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	doc := decodeJSON(t, body)
	assert.Equal(t, "cats", doc["group"].(map[string]any)["slug"])
	assert.Equal(t, []string{"meow"}, pageTexts(t, doc))

	resp, _ = ts.get(t, "/group/birds", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t)
	ann := testutil.CreateUser(t, ts.db, "ann")
	leo := ts.createUser(t, "leo", strongPassword)
	testutil.CreatePost(t, ts.db, ann, nil, "hello", time.Now())

	resp, body := ts.get(t, "/ann", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	doc := decodeJSON(t, body)
	assert.Equal(t, "ann", doc["author"].(map[string]any)["username"])
	assert.Equal(t, false, doc["following"])
	assert.Equal(t, float64(1), doc["posts_count"])
	assert.Equal(t, []string{"hello"}, pageTexts(t, doc))

	token := ts.tokenFor(t, leo)
	resp, _ = ts.postForm(t, "/ann/follow", nil, token)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	_, body = ts.get(t, "/ann", token)
	doc = decodeJSON(t, body)
	assert.Equal(t, true, doc["following"])
	assert.Equal(t, float64(1), doc["followers_count"])

	resp, _ = ts.get(t, "/nobody", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNotFound_IncludesPath(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/some/deep/unknown/path", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decodeJSON(t, body)["error"], "/some/deep/unknown/path")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.get(t, "/health/live", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := ts.get(t, "/health/ready", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	checks := decodeJSON(t, body)["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])

	ts.mr.Close()
	resp, _ = ts.get(t, "/health/ready", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestAboutPages(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/about/author", "/about/tech"} {
		resp, body := ts.get(t, path, "")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, decodeJSON(t, body)["title"])
	}
}
