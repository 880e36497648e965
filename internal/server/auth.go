package server

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionCookie = "access_token"
	tokenAudience = "inkwell-web"
	sessionTTL    = 14 * 24 * time.Hour
	loginPath     = "/auth/login/"
)

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// generateToken signs a session token for user. The jti lets Logout revoke it.
func (s *Server) generateToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(sessionTTL)
	claims := sessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    s.config.JWTIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *Server) parseToken(raw string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(s.config.JWTIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, exp, err := s.generateToken(user)
	if err != nil {
		return models.NewInternalError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearSession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// CurrentUser resolves the session cookie into the userID and user locals.
// Missing, invalid, revoked or orphaned tokens leave the request anonymous.
func (s *Server) CurrentUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(sessionCookie)
		if raw == "" {
			return c.Next()
		}

		ctx := c.UserContext()
		claims, err := s.parseToken(raw)
		if err != nil {
			s.clearSession(c)
			return c.Next()
		}
		if cache.IsTokenRevoked(ctx, claims.ID) {
			s.clearSession(c)
			return c.Next()
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 32)
		if err != nil {
			s.clearSession(c)
			return c.Next()
		}
		user, err := s.userService.GetUserByID(ctx, uint(userID))
		if err != nil {
			if !models.HasCode(err, models.CodeNotFound) {
				return err
			}
			s.clearSession(c)
			return c.Next()
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)
		c.Locals("jti", claims.ID)
		if claims.ExpiresAt != nil {
			c.Locals("tokenExp", claims.ExpiresAt.Time)
		}
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(context.WithValue(ctx, middleware.UserIDKey, user.ID))
		return c.Next()
	}
}

// LoginRequired redirects anonymous visitors to the login page, remembering
// where they were going.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if viewerID(c) != 0 {
			return c.Next()
		}
		return c.Redirect(loginURL(c.OriginalURL()))
	}
}

func loginURL(next string) string {
	return loginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// safeNext accepts only same-site absolute paths as a post-login target.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

func viewerID(c *fiber.Ctx) uint {
	uid, _ := c.Locals("userID").(uint)
	return uid
}

// SignupForm handles GET /auth/signup/
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, "users/signup", fiber.Map{
		"title":  "Sign up",
		"values": service.SignupInput{},
	})
}

// Signup handles POST /auth/signup/ and logs the new user in.
func (s *Server) Signup(c *fiber.Ctx) error {
	in := service.SignupInput{
		Username:  c.FormValue("username"),
		Email:     c.FormValue("email"),
		Password:  c.FormValue("password"),
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
	}

	user, err := s.userService.Signup(c.UserContext(), in)
	if err != nil {
		if !models.HasCode(err, models.CodeValidation) && !models.HasCode(err, models.CodeConflict) {
			return err
		}
		in.Password = ""
		return s.render(c, "users/signup", fiber.Map{
			"title":  "Sign up",
			"error":  errorMessage(err),
			"values": in,
		})
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/")
}

// LoginForm handles GET /auth/login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, "users/login", fiber.Map{
		"title": "Log in",
		"next":  safeNext(c.Query("next")),
	})
}

// Login handles POST /auth/login/
func (s *Server) Login(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.FormValue("username"))
	next := safeNext(c.FormValue("next"))

	user, err := s.userService.Authenticate(c.UserContext(), username, c.FormValue("password"))
	if err != nil {
		if !models.HasCode(err, models.CodeUnauthorized) {
			return err
		}
		return s.render(c, "users/login", fiber.Map{
			"title":    "Log in",
			"error":    errorMessage(err),
			"next":     next,
			"username": username,
		})
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	if next == "" {
		next = "/"
	}
	return c.Redirect(next)
}

// Logout handles /auth/logout/. The token is blacklisted until its expiry so
// a copied cookie stops working too.
func (s *Server) Logout(c *fiber.Ctx) error {
	if jti, ok := c.Locals("jti").(string); ok {
		ttl := sessionTTL
		if exp, ok := c.Locals("tokenExp").(time.Time); ok {
			ttl = time.Until(exp)
		}
		if err := cache.RevokeToken(c.UserContext(), jti, ttl); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "token revocation failed", "error", err)
		}
	}
	s.clearSession(c)
	c.Locals("userID", uint(0))
	c.Locals("user", nil)

	return s.render(c, "users/logged_out", fiber.Map{"title": "Logged out"})
}
