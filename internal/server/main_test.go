package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"postline/internal/config"
	"postline/internal/models"
	"postline/internal/storage"
	"postline/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	*Server
	app   *fiber.App
	db    *gorm.DB
	mr    *miniredis.Miniredis
	store *storage.LocalStorage
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                  "test",
		Port:                 "0",
		JWTSecret:            "test-secret-that-is-long-enough-123",
		AllowedOrigins:       "http://localhost:3000",
		FeatureFlags:         "index_cache=on,image_thumbnails=on",
		PageSize:             10,
		IndexCacheTTLSeconds: 20,
		ImageMaxUploadSizeMB: 5,
		StorageBackend:       "local",
		MediaURL:             "/media/",
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	db := testutil.NewSQLiteDB(t)

	store, err := storage.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)

	s, err := NewServerWithDeps(testConfig(), db, rdb, WithStorage(store))
	require.NoError(t, err)

	return &testServer{Server: s, app: s.newApp(), db: db, mr: mr, store: store}
}

// createUser inserts a user that can log in with password.
func (ts *testServer) createUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Username: username, Email: username + "@example.com", Password: string(hash)}
	require.NoError(t, ts.db.Create(u).Error)
	return u
}

func (ts *testServer) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := ts.generateToken(u.ID, u.Username)
	require.NoError(t, err)
	return token
}

// do runs req against the app and returns the response with its body read.
func (ts *testServer) do(t *testing.T, req *http.Request, token string) (*http.Response, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (ts *testServer) get(t *testing.T, path, token string) (*http.Response, []byte) {
	t.Helper()
	return ts.do(t, httptest.NewRequest(http.MethodGet, path, nil), token)
}

func (ts *testServer) postForm(t *testing.T, path string, form url.Values, token string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return ts.do(t, req, token)
}

func (ts *testServer) postMultipart(t *testing.T, path string, fields map[string]string, filename string, file []byte, token string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		fw, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return ts.do(t, req, token)
}

func decodeJSON(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

// pageTexts extracts the post texts from a {"page": {...}} or feed document.
func pageTexts(t *testing.T, doc map[string]any) []string {
	t.Helper()
	page, ok := doc["page"].(map[string]any)
	require.True(t, ok, "missing page in %v", doc)
	items, _ := page["items"].([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.(map[string]any)["text"].(string))
	}
	return out
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
