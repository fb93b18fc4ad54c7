package task

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
)

var (
	// errors
	ErrTopicNotFound      = errors.New("topic not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrAssignmentNotFound = errors.New("assigned task not found")
	ErrAlreadyAssigned    = errors.New("task already assigned to this user")
)

type (
	Repository interface {
		CreateTopic(ctx context.Context, t Topic, exec ...core.DBExecutor) (Topic, error)
		QueryTopics(ctx context.Context, filter *TopicFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Topic, error)
		GetTopicByID(ctx context.Context, id string, exec ...core.DBExecutor) (Topic, error)
		SetTopicNotesLink(ctx context.Context, topicID, link string, exec ...core.DBExecutor) (Topic, error)

		CreateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		QueryTasks(ctx context.Context, filter *TaskFilter, exec ...core.DBExecutor) ([]Task, error)
		GetTaskByID(ctx context.Context, id string, exec ...core.DBExecutor) (Task, error)

		CreateAssignments(ctx context.Context, taskID string, userIDs []string, assignedAt time.Time, exec ...core.DBExecutor) ([]AssignedTask, error)
		QueryAssignments(ctx context.Context, filter *AssignmentFilter, exec ...core.DBExecutor) ([]AssignedTask, error)
		GetAssignment(ctx context.Context, userID, taskID string, exec ...core.DBExecutor) (AssignedTask, error)
		SetAssignmentMark(ctx context.Context, id string, mark int, completed bool, exec ...core.DBExecutor) error
	}

	// UserDirectory is the slice of the user store this service needs: the
	// running total and user lookups for assignment fan-out.
	UserDirectory interface {
		GetRemark(ctx context.Context, userID string, exec ...core.DBExecutor) (string, error)
		SetRemark(ctx context.Context, userID, remark string, exec ...core.DBExecutor) error
		ListUsers(ctx context.Context, role string) ([]user.User, error)
		GetUsersByID(ctx context.Context, ids []string) ([]user.User, error)
	}

	Service struct {
		db     core.Atomic
		repo   Repository
		users  UserDirectory
		logger core.Logger
	}
)

// NowFunc is mockable in tests.
var NowFunc = time.Now

func NewService(db core.Atomic, repo Repository, users UserDirectory, logger core.Logger) *Service {
	return &Service{db: db, repo: repo, users: users, logger: logger}
}

func (svc *Service) CreateTopic(ctx context.Context, nt NewTopic) (Topic, error) {
	topicDate, err := parseDate(nt.TopicDate)
	if err != nil {
		return Topic{}, core.NewValidationError(err, core.FieldError{Field: "topic_date", Error: "invalid date"})
	}
	return svc.repo.CreateTopic(ctx, Topic{
		Title:     nt.Title,
		Section:   nt.Section,
		TopicDate: topicDate,
		Duration:  nt.Duration,
		Status:    nt.Status,
		CreatedAt: NowFunc().UTC(),
	})
}

func (svc *Service) QueryTopics(ctx context.Context, filter *TopicFilter) ([]Topic, error) {
	return svc.repo.QueryTopics(ctx, filter, []core.DBOrdering{{Field: "topic_date", Ascending: true}})
}

// AttachNotes stores a notes link on a topic.
func (svc *Service) AttachNotes(ctx context.Context, topicID, link string) (Topic, error) {
	link = core.CleanString(link)
	if link == "" {
		return Topic{}, core.NewValidationError(nil, core.FieldError{Field: "link", Error: "this field is required"})
	}
	return svc.repo.SetTopicNotesLink(ctx, topicID, link)
}

func (svc *Service) CreateTask(ctx context.Context, nt NewTask) (Task, error) {
	dueDate, err := parseDate(nt.DueDate)
	if err != nil {
		return Task{}, core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "invalid date"})
	}
	t := Task{
		Title:       nt.Title,
		Description: nt.Description,
		Section:     nt.Section,
		DueDate:     dueDate,
		MaxMarks:    nt.MaxMarks,
		Difficulty:  nt.Difficulty,
		Status:      nt.Status,
		CreatedAt:   NowFunc().UTC(),
	}
	if nt.TopicID != "" {
		t.TopicID.SetValid(nt.TopicID)
	}
	if nt.ResourceLink != "" {
		t.ResourceLink.SetValid(nt.ResourceLink)
	}
	return svc.repo.CreateTask(ctx, t)
}

func (svc *Service) QueryTasks(ctx context.Context, filter *TaskFilter) ([]Task, error) {
	return svc.repo.QueryTasks(ctx, filter)
}

func (svc *Service) GetTask(ctx context.Context, id string) (Task, error) {
	return svc.repo.GetTaskByID(ctx, id)
}

// Assign fans a task out to the selected users, or to every user when
// Assign.All is set. Rows are unique per (user, task).
func (svc *Service) Assign(ctx context.Context, a Assign) ([]AssignedTask, error) {
	if _, err := svc.repo.GetTaskByID(ctx, a.TaskID); err != nil {
		return nil, err
	}

	userIDs := a.UserIDs
	if a.All {
		users, err := svc.users.ListUsers(ctx, "")
		if err != nil {
			return nil, errors.Wrap(err, "listing users")
		}
		userIDs = make([]string, 0, len(users))
		for _, u := range users {
			userIDs = append(userIDs, u.ID)
		}
	}
	return svc.repo.CreateAssignments(ctx, a.TaskID, userIDs, NowFunc().UTC())
}

// AddMark records a grade for one (user, task) pair and recomputes the user's
// running total, replacing any prior mark for the same task:
//
//	updatedTotal = currentTotal - oldMark + newMark
//
// All reads and writes run in one transaction; a failed step rolls everything
// back. The assignment row must exist: grading a task the user was never
// assigned is rejected with ErrAssignmentNotFound.
func (svc *Service) AddMark(ctx context.Context, nm NewMark) (int, error) {
	var total int
	err := svc.db.RunInTx(ctx, func(exec core.DBExecutor) error {
		at, err := svc.repo.GetAssignment(ctx, nm.UserID, nm.TaskID, exec)
		if err != nil {
			return err
		}
		remark, err := svc.users.GetRemark(ctx, nm.UserID, exec)
		if err != nil {
			return err
		}
		current, _ := strconv.Atoi(remark) // empty or absent reads as 0

		total = current - at.Mark + nm.Mark

		if err := svc.repo.SetAssignmentMark(ctx, at.ID, nm.Mark, true, exec); err != nil {
			return errors.Wrap(err, "updating assigned task")
		}
		if err := svc.users.SetRemark(ctx, nm.UserID, strconv.Itoa(total), exec); err != nil {
			return errors.Wrap(err, "updating user total")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Dashboard assembles a student's assigned tasks and completion aggregates.
func (svc *Service) Dashboard(ctx context.Context, usr user.User) (Dashboard, error) {
	assigned, err := svc.repo.QueryAssignments(ctx, &AssignmentFilter{UserID: usr.ID, JoinTask: true})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying assignments")
	}

	var completed int
	for _, at := range assigned {
		if at.Completed {
			completed++
		}
	}
	return Dashboard{
		User:          usr,
		AssignedTasks: assigned,
		Records: Records{
			TotalTasks:         len(assigned),
			TotalPendingTask:   len(assigned) - completed,
			TotalCompletedTask: completed,
		},
	}, nil
}

// PendingAssignees returns the users with an incomplete assignment for a task.
func (svc *Service) PendingAssignees(ctx context.Context, taskID string) (Assignees, error) {
	t, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return Assignees{}, err
	}

	pending := false
	assigned, err := svc.repo.QueryAssignments(ctx, &AssignmentFilter{TaskID: taskID, Completed: &pending})
	if err != nil {
		return Assignees{}, errors.Wrap(err, "querying assignments")
	}
	userIDs := make([]string, 0, len(assigned))
	for _, at := range assigned {
		userIDs = append(userIDs, at.UserID)
	}

	users, err := svc.users.GetUsersByID(ctx, userIDs)
	if err != nil {
		return Assignees{}, errors.Wrap(err, "fetching users")
	}

	res := Assignees{Task: t, Users: users}
	res.Stats.TotalUsers = len(users)
	return res, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
