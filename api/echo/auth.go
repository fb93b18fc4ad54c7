package echoapi

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
	identitysvc "github.com/vairaa/kazi/services/identity"
)

const (
	tokenContextKey = "userToken"
	userContextKey  = "user"
)

// appJWTConfig validates the session tokens the identity provider signs.
func appJWTConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(identitysvc.Claims),
	}
}

func getContextClaims(c echo.Context) (*identitysvc.Claims, error) {
	if token, ok := c.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*identitysvc.Claims); ok {
			return claims, nil
		}
	}
	return nil, errUnauthorized
}

// getContextUser resolves the authenticated user row once per request and
// caches it on the context.
func getContextUser(c echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := c.Get(userContextKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(c)
	if err != nil {
		return user.User{}, err
	}

	usr, err := svc.GetByID(c.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errUnauthorized
	}
	c.Set(userContextKey, usr)
	return usr, nil
}
