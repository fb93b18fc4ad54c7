package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
)

type userAPI struct {
	svc      *user.Service
	identity core.IdentityProvider
	logger   core.Logger
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	a := userAPI{svc: opts.UserSvc, identity: opts.Identity, logger: opts.Logger}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", a.userLogin)
	ug.POST("/signup", a.userSignup)
	ug.POST("/password-setup", a.userRequestPasswordSetup)
	ug.POST("/password-setup-confirm", a.userConfirmPasswordSetup)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.GET("/me", a.userMe)
	ag.GET("", a.userQuery, adminMiddleware())
	ag.DELETE("", a.userDestroyMultiple, adminMiddleware())
	ag.POST("/provision", a.userProvision, adminMiddleware())
	ag.POST("/send-credentials", a.userSendCredentials, adminMiddleware())
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (lr *loginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}

type loginResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

func (a *userAPI) userLogin(c echo.Context) error {
	data := new(loginRequest)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}
	ctx := c.Request().Context()

	token, err := a.identity.SignIn(ctx, data.Email, data.Password)
	if err != nil {
		return err
	}
	usr, err := a.svc.GetByEmail(ctx, data.Email)
	if err != nil {
		return err
	}
	if usr, err = a.svc.SetLastLogin(ctx, usr); err != nil {
		a.logger.Warn("recording last login: " + err.Error())
	}
	return c.JSON(http.StatusOK, &loginResponse{Token: token, User: usr})
}

func (a *userAPI) userSignup(c echo.Context) error {
	data := new(user.Signup)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := a.svc.Signup(c.Request().Context(), *data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, usr)
}

type provisionRequest struct {
	Users    []user.NewUser `json:"users" validate:"required,min=1"`
	SendMail bool           `json:"send_mail"`
}

func (a *userAPI) userProvision(c echo.Context) error {
	data := new(provisionRequest)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	results := a.svc.Provision(c.Request().Context(), data.Users, data.SendMail)
	return c.JSON(http.StatusOK, echo.Map{"results": results})
}

func (a *userAPI) userSendCredentials(c echo.Context) error {
	sent, err := a.svc.SendCredentials(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"sent": sent})
}

type passwordSetupRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (a *userAPI) userRequestPasswordSetup(c echo.Context) error {
	data := new(passwordSetupRequest)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	if err := a.svc.RequestPasswordSetup(c.Request().Context(), data.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "an email has been sent"})
}

func (a *userAPI) userConfirmPasswordSetup(c echo.Context) error {
	data := new(user.SetUserPassword)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := a.svc.ConfirmPasswordSetup(c.Request().Context(), *data); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (a *userAPI) userMe(c echo.Context) error {
	usr, err := getContextUser(c, a.svc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usr)
}

func (a *userAPI) userQuery(c echo.Context) error {
	filter := new(user.QueryFilter)
	if err := c.Bind(filter); err != nil {
		return err
	}
	filter.Clean()

	users, err := a.svc.Query(c.Request().Context(), filter, []core.DBOrdering{{Field: "student_id", Ascending: true}})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

type destroyRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

func (a *userAPI) userDestroyMultiple(c echo.Context) error {
	data := new(destroyRequest)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	// ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(c, a.svc)
	if err != nil {
		return err
	}
	for _, id := range data.IDs {
		if id == ctxUsr.ID {
			return errForbidden
		}
	}

	if err := a.svc.Delete(c.Request().Context(), data.IDs...); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
