package server

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"postline/internal/middleware"
	"postline/internal/models"
	"postline/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a positive integer route parameter.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "post_id" -> "post ID", "group_slug" -> "group slug".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "_id"); ok {
		return strings.ReplaceAll(prefix, "_", " ") + " ID"
	}
	return strings.ReplaceAll(param, "_", " ")
}

// parseGroupID reads the optional group form value. Empty means no group;
// anything unparsable is reported as an unknown group (id 0).
func parseGroupID(raw string) *uint {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		id = 0
	}
	gid := uint(id)
	return &gid
}

// readImage reads the optional "image" multipart file. A request without a
// file, or one that is not multipart at all, has no image.
func readImage(c *fiber.Ctx, userID uint) (*service.UploadImageInput, error) {
	fh, err := c.FormFile("image")
	if err != nil || fh == nil || fh.Size == 0 {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return &service.UploadImageInput{
		UserID:      userID,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// statusForError maps an AppError code to its HTTP status.
func statusForError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err with the status its code maps to. Unknown errors
// are logged and hidden behind a generic 500.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "Request failed",
			"path", c.Path(), "error", err)
		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Code != models.CodeInternal {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

func currentUserID(c *fiber.Ctx) uint {
	uid, _ := c.Locals("userID").(uint)
	return uid
}
