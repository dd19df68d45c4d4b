package server

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"postline/internal/models"
	"postline/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	ts := newTestServer(t)
	leo := ts.createUser(t, "leo", strongPassword)
	token := ts.tokenFor(t, leo)
	cats := testutil.CreateGroup(t, ts.db, "cats")

	t.Run("form", func(t *testing.T) {
		resp, _ := ts.postForm(t, "/new", url.Values{
			"text":  {"hello cats"},
			"group": {fmt.Sprint(cats.ID)},
		}, token)
		require.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))

		var post models.Post
		require.NoError(t, ts.db.Where("text = ?", "hello cats").First(&post).Error)
		assert.Equal(t, leo.ID, post.UserID)
		require.NotNil(t, post.GroupID)
		assert.Equal(t, cats.ID, *post.GroupID)
	})

	t.Run("empty text", func(t *testing.T) {
		resp, body := ts.postForm(t, "/new", url.Values{"text": {"   "}}, token)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		fields := decodeJSON(t, body)["fields"].(map[string]any)
		assert.Contains(t, fields, "text")
	})

	t.Run("unknown group", func(t *testing.T) {
		resp, body := ts.postForm(t, "/new", url.Values{"text": {"hi"}, "group": {"9999"}}, token)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		fields := decodeJSON(t, body)["fields"].(map[string]any)
		assert.Contains(t, fields, "group")
	})

	t.Run("with image", func(t *testing.T) {
		resp, _ := ts.postMultipart(t, "/new", map[string]string{"text": "picture"}, "cat.png", tinyPNG(t), token)
		require.Equal(t, fiber.StatusFound, resp.StatusCode)

		var post models.Post
		require.NoError(t, ts.db.Where("text = ?", "picture").First(&post).Error)
		assert.True(t, strings.HasPrefix(post.Image, "posts/"), post.Image)
		assert.True(t, strings.HasPrefix(post.Thumbnail, "posts/thumbs/"), post.Thumbnail)

		resp, body := ts.get(t, "/media/"+post.Image, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
		assert.Equal(t, tinyPNG(t), body)

		_, body = ts.get(t, fmt.Sprintf("/leo/%d", post.ID), "")
		doc := decodeJSON(t, body)
		assert.Equal(t, "/media/"+post.Image, doc["post"].(map[string]any)["image_url"])
	})

	t.Run("not an image", func(t *testing.T) {
		resp, body := ts.postMultipart(t, "/new", map[string]string{"text": "junk"}, "junk.png", []byte("plain text"), token)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		fields := decodeJSON(t, body)["fields"].(map[string]any)
		assert.Contains(t, fields, "image")

		var count int64
		require.NoError(t, ts.db.Model(&models.Post{}).Where("text = ?", "junk").Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestNewPostForm_ListsGroups(t *testing.T) {
	ts := newTestServer(t)
	leo := ts.createUser(t, "leo", strongPassword)
	testutil.CreateGroup(t, ts.db, "dogs")
	testutil.CreateGroup(t, ts.db, "cats")

	resp, body := ts.get(t, "/new", ts.tokenFor(t, leo))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	groups := decodeJSON(t, body)["groups"].([]any)
	require.Len(t, groups, 2)
	assert.Equal(t, "cats", groups[0].(map[string]any)["title"])
}

func TestPostView(t *testing.T) {
	ts := newTestServer(t)
	ann := ts.createUser(t, "ann", strongPassword)
	leo := ts.createUser(t, "leo", strongPassword)
	post := testutil.CreatePost(t, ts.db, ann, nil, "hello", time.Now())
	path := fmt.Sprintf("/ann/%d", post.ID)

	resp, body := ts.get(t, path, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	doc := decodeJSON(t, body)
	assert.Equal(t, "hello", doc["post"].(map[string]any)["text"])
	assert.Equal(t, false, doc["can_edit"])

	_, body = ts.get(t, path, ts.tokenFor(t, ann))
	assert.Equal(t, true, decodeJSON(t, body)["can_edit"])

	_, body = ts.get(t, path, ts.tokenFor(t, leo))
	assert.Equal(t, false, decodeJSON(t, body)["can_edit"])

	resp, _ = ts.get(t, fmt.Sprintf("/leo/%d", post.ID), "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = ts.get(t, "/ann/999999", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestEditPost(t *testing.T) {
	ts := newTestServer(t)
	ann := ts.createUser(t, "ann", strongPassword)
	leo := ts.createUser(t, "leo", strongPassword)
	cats := testutil.CreateGroup(t, ts.db, "cats")
	post := testutil.CreatePost(t, ts.db, ann, nil, "original", time.Now())
	viewPath := fmt.Sprintf("/ann/%d", post.ID)
	editPath := viewPath + "/edit"

	reload := func() models.Post {
		var p models.Post
		require.NoError(t, ts.db.First(&p, post.ID).Error)
		return p
	}

	t.Run("anonymous is sent to login", func(t *testing.T) {
		resp, _ := ts.postForm(t, editPath, url.Values{"text": {"hacked"}}, "")
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/auth/login?next="+url.QueryEscape(editPath), resp.Header.Get(fiber.HeaderLocation))
		assert.Equal(t, "original", reload().Text)
	})

	t.Run("non-author is redirected to the post", func(t *testing.T) {
		token := ts.tokenFor(t, leo)

		resp, _ := ts.get(t, editPath, token)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, viewPath, resp.Header.Get(fiber.HeaderLocation))

		resp, _ = ts.postForm(t, editPath, url.Values{"text": {"hacked"}}, token)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, viewPath, resp.Header.Get(fiber.HeaderLocation))
		assert.Equal(t, "original", reload().Text)
	})

	t.Run("author form is prefilled", func(t *testing.T) {
		resp, body := ts.get(t, editPath, ts.tokenFor(t, ann))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		doc := decodeJSON(t, body)
		assert.Equal(t, true, doc["is_edit"])
		assert.Equal(t, "original", doc["post"].(map[string]any)["text"])
	})

	t.Run("author updates text group and image", func(t *testing.T) {
		resp, _ := ts.postMultipart(t, editPath, map[string]string{
			"text":  "updated",
			"group": fmt.Sprint(cats.ID),
		}, "new.png", tinyPNG(t), ts.tokenFor(t, ann))
		require.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, viewPath, resp.Header.Get(fiber.HeaderLocation))

		p := reload()
		assert.Equal(t, "updated", p.Text)
		require.NotNil(t, p.GroupID)
		assert.Equal(t, cats.ID, *p.GroupID)
		assert.NotEmpty(t, p.Image)
	})

	t.Run("author with empty text gets field errors", func(t *testing.T) {
		resp, body := ts.postForm(t, editPath, url.Values{"text": {""}}, ts.tokenFor(t, ann))
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decodeJSON(t, body)["fields"], "text")
		assert.Equal(t, "updated", reload().Text)
	})
}

func TestAddComment(t *testing.T) {
	ts := newTestServer(t)
	ann := testutil.CreateUser(t, ts.db, "ann")
	leo := ts.createUser(t, "leo", strongPassword)
	post := testutil.CreatePost(t, ts.db, ann, nil, "hello", time.Now())
	viewPath := fmt.Sprintf("/ann/%d", post.ID)
	token := ts.tokenFor(t, leo)

	resp, _ := ts.postForm(t, viewPath+"/comment", url.Values{"text": {"nice post"}}, token)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, viewPath, resp.Header.Get(fiber.HeaderLocation))

	resp, body := ts.postForm(t, viewPath+"/comment", url.Values{"text": {""}}, token)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeJSON(t, body)["fields"], "text")

	resp, _ = ts.postForm(t, viewPath+"/comment", url.Values{"text": {"anon"}}, "")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderLocation), "/auth/login?next="))

	_, body = ts.get(t, viewPath, "")
	comments := decodeJSON(t, body)["comments"].([]any)
	require.Len(t, comments, 1)
	comment := comments[0].(map[string]any)
	assert.Equal(t, "nice post", comment["text"])
	assert.Equal(t, "leo", comment["author"].(map[string]any)["username"])

	resp, _ = ts.postForm(t, fmt.Sprintf("/leo/%d/comment", post.ID), url.Values{"text": {"wrong author"}}, token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestServeMedia_Missing(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.get(t, "/media/posts/nope.png", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = ts.get(t, "/media/../secret", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
