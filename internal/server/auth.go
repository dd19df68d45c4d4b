package server

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"postline/internal/middleware"
	"postline/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer     = "postline-api"
	tokenAudience   = "postline-client"
	tokenTTL        = 7 * 24 * time.Hour
	tokenCookieName = "access_token"
	loginPath       = "/auth/login"
)

// tokenClaims are the claims postline relies on after a token was verified.
type tokenClaims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// tokenFromRequest returns the bearer token, falling back to the session cookie.
func tokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Cookies(tokenCookieName)
}

// parseToken verifies signature, issuer, audience and expiry, then checks
// the jti against the Redis revocation list.
func (s *Server) parseToken(ctx context.Context, tokenString string) (*tokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, models.NewUnauthorizedError("Invalid user ID in token")
	}

	out := &tokenClaims{UserID: uint(userID)}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	if jti, _ := claims["jti"].(string); jti != "" {
		out.JTI = jti
		if s.redis != nil {
			revoked, err := s.redis.Exists(ctx, "blacklist:"+jti).Result()
			if err == nil && revoked > 0 {
				return nil, models.NewUnauthorizedError("Token has been revoked")
			}
		}
	}

	return out, nil
}

// AuthRequired lets authenticated requests through and redirects everyone
// else to the login page with the original URL in ?next=.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			return redirectToLogin(c)
		}

		claims, err := s.parseToken(c.UserContext(), tokenString)
		if err != nil {
			return redirectToLogin(c)
		}

		c.Locals("userID", claims.UserID)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// optionalUserID returns the authenticated user, if any, without enforcing it.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid, true
	}

	tokenString := tokenFromRequest(c)
	if tokenString == "" {
		return 0, false
	}
	claims, err := s.parseToken(c.UserContext(), tokenString)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

func redirectToLogin(c *fiber.Ctx) error {
	return c.Redirect(loginPath+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
}

// safeNext accepts only local absolute paths so ?next= cannot redirect off-site.
func safeNext(next string) (string, bool) {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return "", false
	}
	return next, true
}

// generateToken creates a JWT token for the given user ID and username
func (s *Server) generateToken(userID uint, username string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(tokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID so single tokens can be revoked.
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

func (s *Server) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(tokenTTL),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearTokenCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
