package server

import (
	"time"

	"postline/internal/middleware"
	"postline/internal/models"
	"postline/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type signupRequest struct {
	Username  string `json:"username" form:"username" validate:"required"`
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required"`
	FirstName string `json:"first_name" form:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" form:"last_name" validate:"max=150"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
	Next     string `json:"next" form:"next"`
}

// Signup handles POST /auth/signup
// @Summary User signup
// @Description Register a new account and start a session
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body object{username=string,email=string,password=string,first_name=string,last_name=string} true "Signup request"
// @Success 201 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	fields, err := validation.Struct(req)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if fields == nil {
		fields = map[string]string{}
	}
	if _, bad := fields["username"]; !bad {
		if err := validation.ValidateUsername(req.Username); err != nil {
			fields["username"] = err.Error()
		}
	}
	if _, bad := fields["email"]; !bad {
		if err := validation.ValidateEmail(req.Email); err != nil {
			fields["email"] = err.Error()
		}
	}
	if _, bad := fields["password"]; !bad {
		if err := validation.ValidatePassword(req.Password); err != nil {
			fields["password"] = err.Error()
		}
	}
	if len(fields) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewFieldValidationError(fields))
	}

	exists, err := s.userRepo.Exists(ctx, req.Username, req.Email)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if exists {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("User already exists"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashedPassword),
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return s.respondError(c, err)
	}

	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	s.setTokenCookie(c, token)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// LoginForm handles GET /auth/login
// @Summary Login form
// @Description Describe the login form, echoing the page to return to
// @Tags auth
// @Produce json
// @Param next query string false "Local path to return to after login"
// @Success 200 {object} object{fields=[]string,next=string}
// @Router /auth/login [get]
func (s *Server) LoginForm(c *fiber.Ctx) error {
	next, _ := safeNext(c.Query("next"))
	return c.JSON(fiber.Map{
		"fields": []string{"username", "password"},
		"next":   next,
	})
}

// Login handles POST /auth/login
// @Summary User login
// @Description Authenticate with username and password; sets the session cookie
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body object{username=string,password=string,next=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Success 302 "Redirect to next"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}

	fields, err := validation.Struct(req)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if fields != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewFieldValidationError(fields))
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid credentials"))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	s.setTokenCookie(c, token)

	if next, ok := safeNext(req.Next); ok {
		return c.Redirect(next, fiber.StatusFound)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /auth/logout
// @Summary Logout
// @Description Revoke the current token and clear the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if tokenString := tokenFromRequest(c); tokenString != "" && s.redis != nil {
		if claims, err := s.parseToken(ctx, tokenString); err == nil && claims.JTI != "" {
			ttl := time.Until(claims.ExpiresAt)
			if ttl <= 0 {
				ttl = time.Minute
			}
			if err := s.redis.Set(ctx, "blacklist:"+claims.JTI, "1", ttl).Err(); err != nil {
				middleware.Logger.WarnContext(ctx, "Failed to revoke token", "error", err)
			}
		}
	}

	s.clearTokenCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}
