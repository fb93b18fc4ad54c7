package task

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
)

// Topic is a curriculum unit under a section.
type Topic struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Section   string      `json:"section"`
	TopicDate time.Time   `json:"topic_date"`
	Duration  int         `json:"duration"` // minutes
	Status    string      `json:"status"`
	NotesLink null.String `json:"notes_link"`
	CreatedAt time.Time   `json:"created_at"`
}

// Task is an assignment tied to a topic/section. MaxMarks is advisory only;
// nothing enforces mark <= MaxMarks.
type Task struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	TopicID      null.String `json:"topic_id"`
	Section      string      `json:"section"`
	DueDate      time.Time   `json:"due_date"`
	MaxMarks     int         `json:"max_marks"`
	Difficulty   string      `json:"difficulty"`
	ResourceLink null.String `json:"resource_link"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// AssignedTask joins one User to one Task, unique per (user, task), and carries
// the per-task mark and completion flag.
type AssignedTask struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TaskID     string    `json:"task_id"`
	Mark       int       `json:"mark"`
	Completed  bool      `json:"completed"`
	AssignedAt time.Time `json:"assigned_at"`

	// Task is populated on joined queries.
	Task *Task `json:"task,omitempty"`
}

// NewTopic contains information needed to create a Topic.
type NewTopic struct {
	Title     string `json:"title" validate:"required"`
	Section   string `json:"section" validate:"required"`
	TopicDate string `json:"topic_date" validate:"required"`
	Duration  int    `json:"duration" validate:"required,min=1"`
	Status    string `json:"status"`
}

func (nt *NewTopic) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	nt.Section = core.CleanString(nt.Section)
	if nt.Status == "" {
		nt.Status = "active"
	}
	return core.Validate.Struct(nt)
}

// NewTask contains information needed to create a Task.
type NewTask struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description"`
	TopicID      string `json:"topic_id"`
	Section      string `json:"section" validate:"required"`
	DueDate      string `json:"due_date" validate:"required"`
	MaxMarks     int    `json:"max_marks" validate:"required,min=1"`
	Difficulty   string `json:"difficulty"`
	ResourceLink string `json:"resource_link" validate:"omitempty,url"`
	Status       string `json:"status"`
}

func (nt *NewTask) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	nt.Section = core.CleanString(nt.Section)
	if nt.Difficulty == "" {
		nt.Difficulty = "medium"
	}
	if nt.Status == "" {
		nt.Status = "active"
	}
	return core.Validate.Struct(nt)
}

// Assign selects the task and the users it goes to. All short-circuits UserIDs.
type Assign struct {
	TaskID  string   `json:"task_id" validate:"required"`
	UserIDs []string `json:"user_ids"`
	All     bool     `json:"all"`
}

func (a *Assign) Validate() error {
	if err := core.Validate.Struct(a); err != nil {
		return err
	}
	if !a.All && len(a.UserIDs) == 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "user_ids", Error: "select at least one user or assign to all",
		})
	}
	return nil
}

// NewMark is the grading input. No range validation against the task's
// MaxMarks; it is advisory only.
type NewMark struct {
	UserID string `json:"user_id" validate:"required"`
	TaskID string `json:"task_id" validate:"required"`
	Mark   int    `json:"mark" validate:"min=0"`
}

func (nm NewMark) Validate() error { return core.Validate.Struct(nm) }

// Dashboard is a student's view: their assigned tasks with task details joined,
// plus simple aggregates.
type Dashboard struct {
	User          user.User      `json:"user"`
	AssignedTasks []AssignedTask `json:"assigned_tasks"`
	Records       Records        `json:"records"`
}

type Records struct {
	TotalTasks         int `json:"total_tasks"`
	TotalPendingTask   int `json:"total_pending_tasks"`
	TotalCompletedTask int `json:"total_completed_tasks"`
}

// Assignees lists the users still owing a given task.
type Assignees struct {
	Task  Task        `json:"task"`
	Users []user.User `json:"users"`
	Stats struct {
		TotalUsers int `json:"total_users"`
	} `json:"stats"`
}

type TopicFilter struct {
	Section string `query:"section"`
	Status  string `query:"status"`
}

type TaskFilter struct {
	Section string `query:"section"`
	TopicID string `query:"topic_id"`
	Status  string `query:"status"`
}

// AssignmentFilter applies AND on its fields; nil pointer fields are skipped.
type AssignmentFilter struct {
	UserID    string
	TaskID    string
	Completed *bool
	JoinTask  bool
}
