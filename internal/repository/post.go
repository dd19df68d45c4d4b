package repository

import (
	"context"
	"errors"

	"postline/internal/models"
	"postline/internal/pagination"

	"gorm.io/gorm"
)

// feedOrder is the total order of every feed: newest first, id breaking ties.
const feedOrder = "posts.created_at DESC, posts.id DESC"

const postColumns = "posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count"

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	CountByAuthor(ctx context.Context, userID uint) (int64, error)

	All() pagination.Source[models.Post]
	ByGroup(groupID uint) pagination.Source[models.Post]
	ByAuthor(userID uint) pagination.Source[models.Post]
	ByAuthors(userIDs []uint) pagination.Source[models.Post]
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Group").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Select(postColumns).
		Preload("Author").
		Preload("Group").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// Update writes the editable fields: text, group and image keys.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(post).
		Select("Text", "GroupID", "Image", "Thumbnail").
		Updates(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) CountByAuthor(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *postRepository) All() pagination.Source[models.Post] {
	return &postQuery{db: r.db, scope: func(tx *gorm.DB) *gorm.DB { return tx }}
}

func (r *postRepository) ByGroup(groupID uint) pagination.Source[models.Post] {
	return &postQuery{db: r.db, scope: func(tx *gorm.DB) *gorm.DB {
		return tx.Where("posts.group_id = ?", groupID)
	}}
}

func (r *postRepository) ByAuthor(userID uint) pagination.Source[models.Post] {
	return &postQuery{db: r.db, scope: func(tx *gorm.DB) *gorm.DB {
		return tx.Where("posts.user_id = ?", userID)
	}}
}

// ByAuthors is a single IN query regardless of how many authors are given.
func (r *postRepository) ByAuthors(userIDs []uint) pagination.Source[models.Post] {
	ids := append([]uint(nil), userIDs...)
	return &postQuery{db: r.db, scope: func(tx *gorm.DB) *gorm.DB {
		if len(ids) == 0 {
			return tx.Where("1 = 0")
		}
		return tx.Where("posts.user_id IN ?", ids)
	}}
}

// postQuery is a lazily evaluated, feed-ordered post sequence. Each call
// re-runs the query, so consecutive pages see concurrent inserts and deletes.
type postQuery struct {
	db    *gorm.DB
	scope func(*gorm.DB) *gorm.DB
}

func (q *postQuery) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := q.db.WithContext(ctx).Model(&models.Post{}).Scopes(q.scope).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (q *postQuery) Slice(ctx context.Context, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := q.db.WithContext(ctx).
		Scopes(q.scope).
		Select(postColumns).
		Preload("Author").
		Preload("Group").
		Order(feedOrder).
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
