package repository

import (
	"context"
	"errors"

	"postline/internal/cache"
	"postline/internal/models"

	"gorm.io/gorm"
)

// GroupRepository defines persistence operations for groups.
type GroupRepository interface {
	List(ctx context.Context) ([]models.Group, error)
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	UpdateDescription(ctx context.Context, slug, description string) error
	Delete(ctx context.Context, id uint) error
}

type groupRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewGroupRepository returns a GroupRepository; slug lookups go through store when it has a client.
func NewGroupRepository(db *gorm.DB, store *cache.Store) GroupRepository {
	return &groupRepository{db: db, cache: store}
}

func (r *groupRepository) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("group", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &group, nil
}

func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	err := r.cache.Aside(ctx, cache.GroupKey(slug), &group, cache.GroupTTL, func() error {
		if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("group", slug)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewValidationError("A group with that slug already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateDescription is the only edit allowed once a group exists.
func (r *groupRepository) UpdateDescription(ctx context.Context, slug, description string) error {
	res := r.db.WithContext(ctx).Model(&models.Group{}).Where("slug = ?", slug).Update("description", description)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("group", slug)
	}
	r.cache.InvalidateGroup(ctx, slug)
	return nil
}

// Delete removes the group. Its posts stay and lose their group reference.
func (r *groupRepository) Delete(ctx context.Context, id uint) error {
	group, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("group_id = ?", id).Update("group_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	r.cache.InvalidateGroup(ctx, group.Slug)
	return nil
}
