package server

import (
	"github.com/gofiber/fiber/v2"
)

// Index handles GET /
// @Summary Global feed
// @Description All posts, newest first. The whole response is cached briefly.
// @Tags feeds
// @Produce json
// @Param page query int false "Page number (1-based, clamped)"
// @Success 200 {object} object{page=service.PostPage}
// @Router / [get]
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.feedService.Index(c.UserContext(), c.Query("page"))
	if err != nil {
		return s.respondError(c, err)
	}
	s.postService.ResolveImageURLs(page.Items)

	return c.JSON(fiber.Map{"page": page})
}

// GroupPosts handles GET /group/:slug
// @Summary Group feed
// @Description Posts filed under one group, newest first
// @Tags feeds
// @Produce json
// @Param slug path string true "Group slug"
// @Param page query int false "Page number (1-based, clamped)"
// @Success 200 {object} service.GroupFeed
// @Failure 404 {object} models.ErrorResponse
// @Router /group/{slug} [get]
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	feed, err := s.feedService.Group(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return s.respondError(c, err)
	}
	s.postService.ResolveImageURLs(feed.Page.Items)

	return c.JSON(feed)
}

// FollowIndex handles GET /follow
// @Summary Personalized feed
// @Description Posts by the authors the caller follows, newest first
// @Tags feeds
// @Produce json
// @Param page query int false "Page number (1-based, clamped)"
// @Success 200 {object} object{page=service.PostPage}
// @Success 302 "Redirect to login"
// @Router /follow [get]
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.Following(c.UserContext(), currentUserID(c), c.Query("page"))
	if err != nil {
		return s.respondError(c, err)
	}
	s.postService.ResolveImageURLs(page.Items)

	return c.JSON(fiber.Map{"page": page})
}

// Profile handles GET /:username
// @Summary Author profile
// @Description An author's posts plus follow status and counts
// @Tags feeds
// @Produce json
// @Param username path string true "Author username"
// @Param page query int false "Page number (1-based, clamped)"
// @Success 200 {object} service.ProfileFeed
// @Failure 404 {object} models.ErrorResponse
// @Router /{username} [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	viewerID, _ := s.optionalUserID(c)

	feed, err := s.feedService.Profile(c.UserContext(), c.Params("username"), viewerID, c.Query("page"))
	if err != nil {
		return s.respondError(c, err)
	}
	s.postService.ResolveImageURLs(feed.Page.Items)

	return c.JSON(feed)
}
