package echoapi

import "github.com/labstack/echo/v4"

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := getContextClaims(c)
			if err != nil {
				return err
			}
			if claims.IsAdmin {
				return next(c)
			}
			return errForbidden
		}
	}
}
