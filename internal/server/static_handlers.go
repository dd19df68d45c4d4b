package server

import (
	"errors"
	"path"

	"postline/internal/models"
	"postline/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// AboutAuthor handles GET /about/author
// @Summary About the author
// @Tags about
// @Produce json
// @Success 200 {object} object{title=string,body=string}
// @Router /about/author [get]
func (s *Server) AboutAuthor(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"title": "About the author",
		"body":  "postline is a small blogging platform: write posts, file them under groups, follow the authors you like.",
	})
}

// AboutTech handles GET /about/tech
// @Summary About the technology
// @Tags about
// @Produce json
// @Success 200 {object} object{title=string,stack=[]string}
// @Router /about/tech [get]
func (s *Server) AboutTech(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"title": "Technologies",
		"stack": []string{"Go", "Fiber", "GORM", "PostgreSQL", "Redis", "S3-compatible storage"},
	})
}

// ServeMedia handles GET /media/*
// @Summary Stored media
// @Description Stream an uploaded image or thumbnail from storage
// @Tags media
// @Produce octet-stream
// @Param key path string true "Storage key"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /media/{key} [get]
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	key := c.Params("*")
	if key == "" {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("media", key))
	}

	rc, err := s.storage.Open(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("media", key))
		}
		return s.respondError(c, err)
	}

	c.Type(path.Ext(key))
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	// SendStream closes rc once the body has been written.
	return c.SendStream(rc)
}
