package middleware

import (
	stdErrors "errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/meeting-pipeline/errors"
	"github.com/johnquangdev/meeting-pipeline/pkg/jwt"
)

// TokenValidator parses API access tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

type authError struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// EchoAuth returns an Echo middleware that validates the bearer token and sets
// "user_id" (uuid.UUID) and "claims" (*jwt.Claims) into the Echo context
func EchoAuth(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return deny(c, errors.ErrUnauthenticated())
			}

			claims, err := tokens.ValidateAccessToken(token)
			if err != nil {
				if stdErrors.Is(err, jwt.ErrTokenExpired) {
					return deny(c, errors.ErrTokenExpired())
				}
				return deny(c, errors.ErrInvalidToken())
			}

			c.Set("claims", claims)
			c.Set("user_id", claims.UserID)

			return next(c)
		}
	}
}

// extractToken reads the Authorization header, falling back to the access_token cookie
func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func deny(c echo.Context, appErr errors.AppError) error {
	status := appErr.HTTPCode
	if status == 0 {
		status = http.StatusUnauthorized
	}
	return c.JSON(status, authError{Code: appErr.Code, Message: appErr.Message})
}
