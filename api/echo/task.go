package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/task"
	"github.com/vairaa/kazi/core/user"
)

type taskAPI struct {
	svc     *task.Service
	userSvc *user.Service
}

func registerTaskAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	a := taskAPI{svc: opts.TaskSvc, userSvc: opts.UserSvc}

	tg := g.Group("/topics", jwt)
	tg.GET("", a.topicQuery)
	tg.POST("", a.topicCreate, adminMiddleware())
	tg.POST("/:id/notes", a.topicAttachNotes, adminMiddleware())

	kg := g.Group("/tasks", jwt)
	kg.GET("", a.taskQuery)
	kg.POST("", a.taskCreate, adminMiddleware())
	kg.POST("/assign", a.taskAssign, adminMiddleware())
	kg.POST("/marks", a.taskAddMark, adminMiddleware())
	kg.GET("/:id/assignees", a.taskPendingAssignees, adminMiddleware())

	g.GET("/dashboard", a.dashboard, jwt)
}

func (a *taskAPI) topicCreate(c echo.Context) error {
	data := new(task.NewTopic)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	topic, err := a.svc.CreateTopic(c.Request().Context(), *data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, topic)
}

func (a *taskAPI) topicQuery(c echo.Context) error {
	filter := new(task.TopicFilter)
	if err := c.Bind(filter); err != nil {
		return err
	}

	topics, err := a.svc.QueryTopics(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, topics)
}

type attachNotesRequest struct {
	Link string `json:"link" validate:"required,url"`
}

func (a *taskAPI) topicAttachNotes(c echo.Context) error {
	data := new(attachNotesRequest)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	topic, err := a.svc.AttachNotes(c.Request().Context(), c.Param("id"), data.Link)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, topic)
}

func (a *taskAPI) taskCreate(c echo.Context) error {
	data := new(task.NewTask)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := a.svc.CreateTask(c.Request().Context(), *data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (a *taskAPI) taskQuery(c echo.Context) error {
	filter := new(task.TaskFilter)
	if err := c.Bind(filter); err != nil {
		return err
	}

	tasks, err := a.svc.QueryTasks(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

func (a *taskAPI) taskAssign(c echo.Context) error {
	data := new(task.Assign)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	assigned, err := a.svc.Assign(c.Request().Context(), *data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, assigned)
}

func (a *taskAPI) taskAddMark(c echo.Context) error {
	data := new(task.NewMark)
	if err := c.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	total, err := a.svc.AddMark(c.Request().Context(), *data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total})
}

func (a *taskAPI) taskPendingAssignees(c echo.Context) error {
	res, err := a.svc.PendingAssignees(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (a *taskAPI) dashboard(c echo.Context) error {
	ctxUsr, err := getContextUser(c, a.userSvc)
	if err != nil {
		return err
	}

	dash, err := a.svc.Dashboard(c.Request().Context(), ctxUsr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dash)
}
