// Package service holds the application's business rules on top of the repositories.
package service

import (
	"context"

	"postline/internal/observability"
	"postline/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FollowService maintains the directed follower -> author relation.
type FollowService struct {
	follows repository.FollowRepository
}

func NewFollowService(follows repository.FollowRepository) *FollowService {
	return &FollowService{follows: follows}
}

// Follow creates the viewer -> author edge if it does not exist yet.
// Following yourself is accepted and ignored; no edge is ever stored for it.
func (s *FollowService) Follow(ctx context.Context, viewerID, authorID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "follow", "follow",
		attribute.Int64("viewer_id", int64(viewerID)),
		attribute.Int64("author_id", int64(authorID)))
	defer func() { observability.EndSpan(span, err) }()

	if viewerID == authorID {
		observability.FollowChanges.WithLabelValues("self_ignored").Inc()
		return nil
	}

	if err = s.follows.Follow(ctx, viewerID, authorID); err != nil {
		return err
	}
	observability.FollowChanges.WithLabelValues("follow").Inc()
	return nil
}

// Unfollow removes the edge. A missing edge is not an error.
func (s *FollowService) Unfollow(ctx context.Context, viewerID, authorID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "follow", "unfollow",
		attribute.Int64("viewer_id", int64(viewerID)),
		attribute.Int64("author_id", int64(authorID)))
	defer func() { observability.EndSpan(span, err) }()

	if err = s.follows.Unfollow(ctx, viewerID, authorID); err != nil {
		return err
	}
	observability.FollowChanges.WithLabelValues("unfollow").Inc()
	return nil
}

// IsFollowing reports whether viewer follows author. Anonymous viewers follow nobody.
func (s *FollowService) IsFollowing(ctx context.Context, viewerID, authorID uint) (bool, error) {
	if viewerID == 0 || viewerID == authorID {
		return false, nil
	}
	return s.follows.IsFollowing(ctx, viewerID, authorID)
}

// FollowedAuthorIDs returns the authors viewer follows, in no particular order.
func (s *FollowService) FollowedAuthorIDs(ctx context.Context, viewerID uint) ([]uint, error) {
	if viewerID == 0 {
		return []uint{}, nil
	}
	return s.follows.FollowedAuthorIDs(ctx, viewerID)
}

// Counts returns how many users follow userID and how many userID follows.
func (s *FollowService) Counts(ctx context.Context, userID uint) (followers, following int64, err error) {
	if followers, err = s.follows.FollowerCount(ctx, userID); err != nil {
		return 0, 0, err
	}
	if following, err = s.follows.FollowingCount(ctx, userID); err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}
