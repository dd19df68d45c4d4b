package server

import (
	"fmt"
	"net/url"

	"postline/internal/models"
	"postline/internal/service"

	"github.com/gofiber/fiber/v2"
)

func postPath(username string, postID uint) string {
	return fmt.Sprintf("/%s/%d", url.PathEscape(username), postID)
}

// NewPostForm handles GET /new
// @Summary New post form
// @Description Describe the post form and the groups a post can be filed under
// @Tags posts
// @Produce json
// @Success 200 {object} object{groups=[]models.Group,fields=[]string}
// @Success 302 "Redirect to login"
// @Router /new [get]
func (s *Server) NewPostForm(c *fiber.Ctx) error {
	groups, err := s.postService.Groups(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"is_edit": false,
		"fields":  []string{"text", "group", "image"},
		"groups":  groups,
	})
}

// CreatePost handles POST /new
// @Summary Create a post
// @Description Publish a post with optional group and image, then redirect to the index
// @Tags posts
// @Accept x-www-form-urlencoded,mpfd
// @Produce json
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID"
// @Param image formData file false "Image (gif, jpeg, png or webp)"
// @Success 302 "Redirect to /"
// @Failure 400 {object} models.ErrorResponse
// @Router /new [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := currentUserID(c)

	image, err := readImage(c, userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(map[string]string{"image": "Upload a valid image."}))
	}

	_, err = s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: userID,
		Text:     c.FormValue("text"),
		GroupID:  parseGroupID(c.FormValue("group")),
		Image:    image,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Redirect("/", fiber.StatusFound)
}

// PostView handles GET /:username/:post_id
// @Summary View a post
// @Description A single post with its comments and whether the caller may edit it
// @Tags posts
// @Produce json
// @Param username path string true "Author username"
// @Param post_id path int true "Post ID"
// @Success 200 {object} object{post=models.Post,comments=[]models.Comment,can_edit=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /{username}/{post_id} [get]
func (s *Server) PostView(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}

	detail, err := s.postService.GetPostDetail(c.UserContext(), c.Params("username"), postID)
	if err != nil {
		return s.respondError(c, err)
	}

	viewerID, _ := s.optionalUserID(c)
	return c.JSON(fiber.Map{
		"post":           detail.Post,
		"comments":       detail.Comments,
		"comment_fields": []string{"text"},
		"can_edit":       service.CanEdit(viewerID, detail.Post),
	})
}

// EditPostForm handles GET /:username/:post_id/edit
// @Summary Edit post form
// @Description The post form prefilled with the current values. Non-authors are redirected to the post.
// @Tags posts
// @Produce json
// @Param username path string true "Author username"
// @Param post_id path int true "Post ID"
// @Success 200 {object} object{post=models.Post,groups=[]models.Group}
// @Success 302 "Redirect to the post view"
// @Failure 404 {object} models.ErrorResponse
// @Router /{username}/{post_id}/edit [get]
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}
	username := c.Params("username")

	post, err := s.postService.GetPost(c.UserContext(), username, postID)
	if err != nil {
		return s.respondError(c, err)
	}
	if !service.CanEdit(currentUserID(c), post) {
		return c.Redirect(postPath(username, postID), fiber.StatusFound)
	}

	groups, err := s.postService.Groups(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"is_edit": true,
		"fields":  []string{"text", "group", "image"},
		"post":    post,
		"groups":  groups,
	})
}

// EditPost handles POST /:username/:post_id/edit
// @Summary Update a post
// @Description Replace text, group and optionally the image. Non-authors are redirected to the post unchanged.
// @Tags posts
// @Accept x-www-form-urlencoded,mpfd
// @Produce json
// @Param username path string true "Author username"
// @Param post_id path int true "Post ID"
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID"
// @Param image formData file false "Replacement image"
// @Success 302 "Redirect to the post view"
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /{username}/{post_id}/edit [post]
func (s *Server) EditPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}
	username := c.Params("username")
	userID := currentUserID(c)

	image, err := readImage(c, userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(map[string]string{"image": "Upload a valid image."}))
	}

	_, err = s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		EditorID: userID,
		Username: username,
		PostID:   postID,
		Text:     c.FormValue("text"),
		GroupID:  parseGroupID(c.FormValue("group")),
		Image:    image,
	})
	if err != nil && !models.IsCode(err, models.CodeForbidden) {
		return s.respondError(c, err)
	}

	return c.Redirect(postPath(username, postID), fiber.StatusFound)
}

// AddComment handles POST /:username/:post_id/comment
// @Summary Comment on a post
// @Description Attach a comment by the caller to the post, then redirect back to it
// @Tags posts
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username path string true "Author username"
// @Param post_id path int true "Post ID"
// @Param text formData string true "Comment text"
// @Success 302 "Redirect to the post view"
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /{username}/{post_id}/comment [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}
	username := c.Params("username")

	_, err = s.postService.AddComment(c.UserContext(), service.AddCommentInput{
		AuthorID: currentUserID(c),
		Username: username,
		PostID:   postID,
		Text:     c.FormValue("text"),
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Redirect(postPath(username, postID), fiber.StatusFound)
}
