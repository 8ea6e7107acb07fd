package auth

import (
	"net/http"
	"strings"

	"github.com/cirruslabs/catcache/internal/server/fail"
	"github.com/cirruslabs/catcache/internal/server/token"
	"github.com/labstack/echo/v4"
)

const ContextKey = "auth"

type Auth struct {
	Subject string
}

// Middleware only lets through requests bearing a token issued by the tokenManager.
func Middleware(tokenManager *token.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawToken, found := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if !found || rawToken == "" {
				return fail.Fail(c, http.StatusUnauthorized, "no bearer token was present")
			}

			subject, err := tokenManager.Verify(rawToken)
			if err != nil {
				return fail.Fail(c, http.StatusUnauthorized, "failed to verify the provided token: %v", err)
			}

			c.Set(ContextKey, &Auth{
				Subject: subject,
			})

			return next(c)
		}
	}
}
