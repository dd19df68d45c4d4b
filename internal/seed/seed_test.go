package seed

import (
	"context"
	"strings"
	"testing"

	"postline/internal/models"
	"postline/internal/testutil"
	"postline/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGroups(t *testing.T) {
	groups, err := DefaultGroups()
	require.NoError(t, err)
	require.NotEmpty(t, groups)
	for _, g := range groups {
		assert.NoError(t, validation.ValidateGroupSlug(g.Slug), g.Slug)
	}
}

func TestLoadGroups_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad slug", "- {title: Cats, slug: Cats!}"},
		{"missing title", "- {slug: cats}"},
		{"duplicate slug", "- {title: Cats, slug: cats}\n- {title: More cats, slug: cats}"},
		{"not a list", "title: cats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadGroups(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestGroups_Upsert(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fixtures := []GroupFixture{{Title: "Cats", Slug: "cats", Description: "meow"}}

	first, err := Groups(db, fixtures)
	require.NoError(t, err)
	require.Len(t, first, 1)

	fixtures[0].Description = "purr"
	second, err := Groups(db, fixtures)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)

	var stored models.Group
	require.NoError(t, db.Where("slug = ?", "cats").First(&stored).Error)
	assert.Equal(t, "purr", stored.Description)

	var count int64
	require.NoError(t, db.Model(&models.Group{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSeeder_Seed(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fixtures, err := DefaultGroups()
	require.NoError(t, err)
	groups, err := Groups(db, fixtures)
	require.NoError(t, err)

	s := NewSeeder(db, 42)
	res, err := s.Seed(context.Background(), groups, Options{
		NumUsers:        5,
		PostsPerUser:    3,
		CommentsPerPost: 2,
		FollowsPerUser:  10,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Users)
	assert.Equal(t, 15, res.Posts)
	assert.Equal(t, 30, res.Comments)
	// FollowsPerUser is capped at everyone else.
	assert.Equal(t, 20, res.Follows)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		assert.NoError(t, validation.ValidateUsername(u.Username), u.Username)
	}

	var selfEdges int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_id = author_id").Count(&selfEdges).Error)
	assert.Zero(t, selfEdges)

	require.NoError(t, s.ClearAll())
	var posts, groupsLeft int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Group{}).Count(&groupsLeft).Error)
	assert.Zero(t, posts)
	assert.Equal(t, int64(len(groups)), groupsLeft)
}
