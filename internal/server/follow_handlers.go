package server

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
)

// ProfileFollow handles GET|POST /:username/follow
// @Summary Follow an author
// @Description Subscribe the caller to an author's posts. Following yourself is a no-op.
// @Tags follows
// @Produce json
// @Param username path string true "Author username"
// @Success 302 "Redirect to the profile"
// @Failure 404 {object} models.ErrorResponse
// @Router /{username}/follow [post]
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	ctx := c.UserContext()
	username := c.Params("username")

	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return s.respondError(c, err)
	}

	if err := s.followService.Follow(ctx, currentUserID(c), author.ID); err != nil {
		return s.respondError(c, err)
	}

	return c.Redirect("/"+url.PathEscape(author.Username), fiber.StatusFound)
}

// ProfileUnfollow handles GET|POST /:username/unfollow
// @Summary Unfollow an author
// @Description Remove the caller's subscription. Unfollowing someone you do not follow is a no-op.
// @Tags follows
// @Produce json
// @Param username path string true "Author username"
// @Success 302 "Redirect to the profile"
// @Failure 404 {object} models.ErrorResponse
// @Router /{username}/unfollow [post]
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	ctx := c.UserContext()
	username := c.Params("username")

	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return s.respondError(c, err)
	}

	if err := s.followService.Unfollow(ctx, currentUserID(c), author.ID); err != nil {
		return s.respondError(c, err)
	}

	return c.Redirect("/"+url.PathEscape(author.Username), fiber.StatusFound)
}
