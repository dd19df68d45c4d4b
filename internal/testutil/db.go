// Package testutil provides shared fixtures for tests that need a real schema.
package testutil

import (
	"testing"
	"time"

	"postline/internal/database"
	"postline/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB returns a migrated in-memory database with foreign keys enforced.
// The pool is pinned to one connection because every new connection to
// ":memory:" would see an empty database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(":memory:")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a throwaway email and password hash.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateGroup inserts a group whose title and slug are both slug.
func CreateGroup(t *testing.T, db *gorm.DB, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: slug, Slug: slug, Description: "about " + slug}
	require.NoError(t, db.Create(g).Error)
	return g
}

// CreatePost inserts a post by author at the given time, optionally in group.
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, group *models.Group, text string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{Text: text, UserID: author.ID, CreatedAt: at}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
