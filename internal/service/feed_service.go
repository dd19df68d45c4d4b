package service

import (
	"context"

	"postline/internal/models"
	"postline/internal/observability"
	"postline/internal/pagination"
	"postline/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Feed modes, also used as metric labels.
const (
	FeedIndex   = "index"
	FeedGroup   = "group"
	FeedProfile = "profile"
	FeedFollow  = "follow"
)

// PostPage is one page of a feed.
type PostPage = pagination.Page[models.Post]

// GroupFeed is a page of posts from one group.
type GroupFeed struct {
	Group *models.Group `json:"group"`
	Page  *PostPage     `json:"page"`
}

// ProfileFeed is a page of one author's posts plus follow metadata.
type ProfileFeed struct {
	Author         *models.User `json:"author"`
	Following      bool         `json:"following"`
	FollowersCount int64        `json:"followers_count"`
	FollowingCount int64        `json:"following_count"`
	PostsCount     int64        `json:"posts_count"`
	Page           *PostPage    `json:"page"`
}

// FeedService builds ordered, paginated post feeds.
type FeedService struct {
	posts    repository.PostRepository
	groups   repository.GroupRepository
	users    repository.UserRepository
	follows  *FollowService
	pageSize int
}

func NewFeedService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	follows *FollowService,
	pageSize int,
) *FeedService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &FeedService{
		posts:    posts,
		groups:   groups,
		users:    users,
		follows:  follows,
		pageSize: pageSize,
	}
}

// PageSize is the number of posts per feed page.
func (s *FeedService) PageSize() int {
	return s.pageSize
}

// Index returns a page of every post.
func (s *FeedService) Index(ctx context.Context, rawPage string) (*PostPage, error) {
	return s.paginate(ctx, FeedIndex, s.posts.All(), rawPage)
}

// Group returns a page of the posts filed under slug.
func (s *FeedService) Group(ctx context.Context, slug, rawPage string) (*GroupFeed, error) {
	group, err := s.groups.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	page, err := s.paginate(ctx, FeedGroup, s.posts.ByGroup(group.ID), rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Page: page}, nil
}

// Profile returns a page of username's posts as seen by viewerID (0 when anonymous).
func (s *FeedService) Profile(ctx context.Context, username string, viewerID uint, rawPage string) (*ProfileFeed, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	page, err := s.paginate(ctx, FeedProfile, s.posts.ByAuthor(author.ID), rawPage)
	if err != nil {
		return nil, err
	}

	following, err := s.follows.IsFollowing(ctx, viewerID, author.ID)
	if err != nil {
		return nil, err
	}
	followers, followingCount, err := s.follows.Counts(ctx, author.ID)
	if err != nil {
		return nil, err
	}

	return &ProfileFeed{
		Author:         author,
		Following:      following,
		FollowersCount: followers,
		FollowingCount: followingCount,
		PostsCount:     page.TotalCount,
		Page:           page,
	}, nil
}

// Following returns a page of posts by the authors viewerID follows. A viewer
// who follows nobody gets an empty page without touching the posts table.
func (s *FeedService) Following(ctx context.Context, viewerID uint, rawPage string) (*PostPage, error) {
	authorIDs, err := s.follows.FollowedAuthorIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if len(authorIDs) == 0 {
		observability.FeedPagesServed.WithLabelValues(FeedFollow).Inc()
		return pagination.Empty[models.Post](s.pageSize), nil
	}
	return s.paginate(ctx, FeedFollow, s.posts.ByAuthors(authorIDs), rawPage)
}

func (s *FeedService) paginate(ctx context.Context, mode string, src pagination.Source[models.Post], rawPage string) (page *PostPage, err error) {
	ctx, span := observability.StartSpan(ctx, "feed", mode, attribute.String("page", rawPage))
	defer func() { observability.EndSpan(span, err) }()

	page, err = pagination.Paginate(ctx, src, s.pageSize, rawPage)
	if err != nil {
		return nil, err
	}
	observability.FeedPagesServed.WithLabelValues(mode).Inc()
	span.SetAttributes(attribute.Int("page.number", page.Number), attribute.Int64("page.total", page.TotalCount))
	return page, nil
}
