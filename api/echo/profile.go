package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vairaa/kazi/core/user"
)

type profileAPI struct {
	svc *user.Service
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	a := profileAPI{svc: opts.UserSvc}

	pg := g.Group("/profile", jwt)
	pg.GET("", a.profileRetrieve)
	pg.PUT("", a.profileUpdate)
}

type profileResponse struct {
	User    user.User     `json:"user"`
	Profile *user.Profile `json:"profile"`
}

func (a *profileAPI) profileRetrieve(c echo.Context) error {
	ctxUsr, err := getContextUser(c, a.svc)
	if err != nil {
		return err
	}

	usr, pf, err := a.svc.GetProfile(c.Request().Context(), ctxUsr.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &profileResponse{User: usr, Profile: pf})
}

func (a *profileAPI) profileUpdate(c echo.Context) error {
	ctxUsr, err := getContextUser(c, a.svc)
	if err != nil {
		return err
	}

	data := new(user.UpdateProfile)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, pf, err := a.svc.UpdateProfile(c.Request().Context(), ctxUsr.ID, *data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &profileResponse{User: usr, Profile: &pf})
}
