package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// TokenVerifier is the part of the Firebase auth client used here.
// *auth.Client satisfies it.
type TokenVerifier interface {
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*auth.Token, error)
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

var _ TokenVerifier = (*auth.Client)(nil)

// RequireAuth returns a middleware that verifies a Firebase session cookie or
// a Bearer ID token. A nil verifier means auth is not configured.
func RequireAuth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Check if Firebase is initialized
			if verifier == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
			}

			ctx := c.Request().Context()
			var (
				token *auth.Token
				err   error
			)
			if bearer := bearerToken(c.Request()); bearer != "" {
				token, err = verifier.VerifyIDToken(ctx, bearer)
			} else if cookie, cerr := c.Cookie("session"); cerr == nil && cookie.Value != "" {
				token, err = verifier.VerifySessionCookie(ctx, cookie.Value)
				if err != nil {
					// Invalid session, clear cookie
					c.SetCookie(&http.Cookie{
						Name:     "session",
						Value:    "",
						MaxAge:   -1,
						HttpOnly: true,
						Path:     "/",
					})
				}
			} else {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials").SetInternal(err)
			}

			// Set user info in context for downstream handlers
			c.Set("userUID", token.UID)
			if email, ok := token.Claims["email"].(string); ok {
				c.Set("userEmail", email)
			}
			if name, ok := token.Claims["name"].(string); ok {
				c.Set("userName", name)
			}

			return next(c)
		}
	}
}

// DevAuth stands in for RequireAuth when AUTH_DISABLED is set. Every request
// runs as a fixed local user.
func DevAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("userUID", "dev")
			c.Set("userEmail", "dev@localhost")
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
