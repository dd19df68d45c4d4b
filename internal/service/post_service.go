package service

import (
	"context"

	"postline/internal/models"
	"postline/internal/repository"
	"postline/internal/validation"
)

const groupChoiceError = "Select a valid choice. That choice is not one of the available choices."

type CreatePostInput struct {
	AuthorID uint
	Text     string `form:"text" validate:"notblank"`
	GroupID  *uint
	Image    *UploadImageInput
}

type UpdatePostInput struct {
	EditorID uint
	Username string
	PostID   uint
	Text     string `form:"text" validate:"notblank"`
	GroupID  *uint
	// Image replaces the current image when set; otherwise the old one is kept.
	Image *UploadImageInput
}

type AddCommentInput struct {
	AuthorID uint
	Username string
	PostID   uint
	Text     string `form:"text" validate:"notblank"`
}

// PostDetail is a single post with its comments, newest first.
type PostDetail struct {
	Post     *models.Post     `json:"post"`
	Comments []models.Comment `json:"comments"`
}

// CanEdit reports whether principalID may edit post. Only the author can.
func CanEdit(principalID uint, post *models.Post) bool {
	return principalID != 0 && post != nil && post.UserID == principalID
}

type PostService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	groups   repository.GroupRepository
	images   *ImageService
}

func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	groups repository.GroupRepository,
	images *ImageService,
) *PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		groups:   groups,
		images:   images,
	}
}

// Groups lists the groups a post can be filed under, ordered by title.
func (s *PostService) Groups(ctx context.Context) ([]models.Group, error) {
	return s.groups.List(ctx)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := s.validateForm(ctx, in, in.GroupID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:    in.Text,
		UserID:  in.AuthorID,
		GroupID: in.GroupID,
	}

	stored, err := s.saveImage(ctx, in.AuthorID, in.Image)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		post.Image, post.Thumbnail = stored.Key, stored.ThumbnailKey
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.images.Remove(ctx, stored.Keys()...)
		return nil, err
	}
	return post, nil
}

// GetPost returns the post with postID if it was written by username.
func (s *PostService) GetPost(ctx context.Context, username string, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Author.Username != username {
		return nil, models.NewNotFoundError("post", postID)
	}
	s.resolveImageURLs(post)
	return post, nil
}

// GetPostDetail returns the post and its comments.
func (s *PostService) GetPostDetail(ctx context.Context, username string, postID uint) (*PostDetail, error) {
	post, err := s.GetPost(ctx, username, postID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, Comments: comments}, nil
}

// UpdatePost rewrites text, group and (optionally) image of a post. Anyone
// other than the author gets a forbidden error and nothing is written.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.GetPost(ctx, in.Username, in.PostID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(in.EditorID, post) {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	if err := s.validateForm(ctx, in, in.GroupID); err != nil {
		return nil, err
	}

	stored, err := s.saveImage(ctx, in.EditorID, in.Image)
	if err != nil {
		return nil, err
	}

	oldKeys := []string{}
	post.Text = in.Text
	post.GroupID = in.GroupID
	post.Group = nil
	if stored != nil {
		oldKeys = append(oldKeys, post.Image, post.Thumbnail)
		post.Image, post.Thumbnail = stored.Key, stored.ThumbnailKey
	}

	if err := s.posts.Update(ctx, post); err != nil {
		s.images.Remove(ctx, stored.Keys()...)
		return nil, err
	}
	s.images.Remove(ctx, oldKeys...)

	return s.GetPost(ctx, in.Username, in.PostID)
}

// AddComment attaches a comment by AuthorID to the routed post.
func (s *PostService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	post, err := s.GetPost(ctx, in.Username, in.PostID)
	if err != nil {
		return nil, err
	}

	fields, err := validation.Struct(in)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if fields != nil {
		return nil, models.NewFieldValidationError(fields)
	}

	comment := &models.Comment{PostID: post.ID, UserID: in.AuthorID, Text: in.Text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ResolveImageURLs fills the URL fields of posts from their storage keys.
func (s *PostService) ResolveImageURLs(posts []models.Post) {
	for i := range posts {
		s.resolveImageURLs(&posts[i])
	}
}

func (s *PostService) resolveImageURLs(post *models.Post) {
	if s.images == nil {
		return
	}
	post.ImageURL = s.images.URL(post.Image)
	post.ThumbnailURL = s.images.URL(post.Thumbnail)
}

// validateForm collects field errors for the form and the group choice in
// one pass so the client can show them together.
func (s *PostService) validateForm(ctx context.Context, form interface{}, groupID *uint) error {
	fields, err := validation.Struct(form)
	if err != nil {
		return models.NewInternalError(err)
	}

	if groupID != nil {
		if _, err := s.groups.GetByID(ctx, *groupID); err != nil {
			if !models.IsCode(err, models.CodeNotFound) {
				return err
			}
			if fields == nil {
				fields = map[string]string{}
			}
			fields["group"] = groupChoiceError
		}
	}

	if fields != nil {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

func (s *PostService) saveImage(ctx context.Context, userID uint, in *UploadImageInput) (*StoredImage, error) {
	if in == nil || s.images == nil {
		return nil, nil
	}
	in.UserID = userID
	return s.images.Save(ctx, *in)
}
