package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/task"
	"github.com/vairaa/kazi/core/user"
)

// Options carries the server's collaborators.
type Options struct {
	Logger   core.Logger
	UserSvc  *user.Service
	TaskSvc  *task.Service
	Identity core.IdentityProvider
}

type Server struct {
	addr   string
	router *echo.Echo
}

type appValidator struct {
	validate *validator.Validate
}

func (v appValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func NewServer(addr string, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Debug = core.Conf.Debug

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = &appValidator{validate: core.Validate}
	e.HTTPErrorHandler = httpErrorHandler(opts.Logger)

	e.GET("/", home)

	jwt := middleware.JWTWithConfig(appJWTConfig())

	v1 := e.Group("/v1")
	registerUserAPI(v1, jwt, opts)
	registerProfileAPI(v1, jwt, opts)
	registerTaskAPI(v1, jwt, opts)

	return &Server{addr: addr, router: e}
}

func (s *Server) Start() error {
	return s.router.Start(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.router.Shutdown(ctx)
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func home(c echo.Context) error {
	return c.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
