package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"postline/internal/cache"
	"postline/internal/featureflags"
	"postline/internal/models"
	"postline/internal/repository"
	"postline/internal/storage"
	"postline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	store   *storage.LocalStorage
	follows *FollowService
	feeds   *FeedService
	posts   *PostService
	images  *ImageService
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	store, err := storage.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)

	postRepo := repository.NewPostRepository(db)
	groupRepo := repository.NewGroupRepository(db, cache.NewStore(nil))
	userRepo := repository.NewUserRepository(db)

	follows := NewFollowService(repository.NewFollowRepository(db))
	images := NewImageService(store, featureflags.NewManager(flags), nil)

	return &testEnv{
		db:      db,
		store:   store,
		follows: follows,
		feeds:   NewFeedService(postRepo, groupRepo, userRepo, follows, 10),
		posts:   NewPostService(postRepo, repository.NewCommentRepository(db), groupRepo, images),
		images:  images,
	}
}

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func assertCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func postTexts(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Text
	}
	return out
}
