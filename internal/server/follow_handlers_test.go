package server

import (
	"net/url"
	"testing"
	"time"

	"postline/internal/models"
	"postline/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowFlow(t *testing.T) {
	ts := newTestServer(t)
	ann := testutil.CreateUser(t, ts.db, "ann")
	bob := testutil.CreateUser(t, ts.db, "bob")
	leo := ts.createUser(t, "leo", strongPassword)
	token := ts.tokenFor(t, leo)

	testutil.CreatePost(t, ts.db, ann, nil, "from ann", time.Now().Add(-time.Minute))
	testutil.CreatePost(t, ts.db, bob, nil, "from bob", time.Now())

	_, body := ts.get(t, "/follow", token)
	assert.Empty(t, pageTexts(t, decodeJSON(t, body)))

	resp, _ := ts.postForm(t, "/ann/follow", url.Values{}, token)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/ann", resp.Header.Get(fiber.HeaderLocation))

	// GET works too and a repeated follow is harmless.
	resp, _ = ts.get(t, "/ann/follow", token)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	var edges int64
	require.NoError(t, ts.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	_, body = ts.get(t, "/follow", token)
	assert.Equal(t, []string{"from ann"}, pageTexts(t, decodeJSON(t, body)))

	resp, _ = ts.postForm(t, "/ann/unfollow", url.Values{}, token)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/ann", resp.Header.Get(fiber.HeaderLocation))

	_, body = ts.get(t, "/follow", token)
	assert.Empty(t, pageTexts(t, decodeJSON(t, body)))

	// Unfollowing again is a no-op.
	resp, _ = ts.postForm(t, "/ann/unfollow", url.Values{}, token)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}

func TestFollow_Self(t *testing.T) {
	ts := newTestServer(t)
	leo := ts.createUser(t, "leo", strongPassword)

	resp, _ := ts.postForm(t, "/leo/follow", url.Values{}, ts.tokenFor(t, leo))
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/leo", resp.Header.Get(fiber.HeaderLocation))

	var edges int64
	require.NoError(t, ts.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Zero(t, edges)
}

func TestFollow_UnknownAuthor(t *testing.T) {
	ts := newTestServer(t)
	leo := ts.createUser(t, "leo", strongPassword)
	token := ts.tokenFor(t, leo)

	resp, _ := ts.postForm(t, "/ghost/follow", url.Values{}, token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = ts.postForm(t, "/ghost/unfollow", url.Values{}, token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestFollow_RequiresLogin(t *testing.T) {
	ts := newTestServer(t)
	testutil.CreateUser(t, ts.db, "ann")

	resp, _ := ts.get(t, "/ann/follow", "")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login?next=%2Fann%2Ffollow", resp.Header.Get(fiber.HeaderLocation))
}
