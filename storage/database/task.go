package database

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/task"
)

type topicRow struct {
	ID        string      `db:"id"`
	Title     string      `db:"title"`
	Section   string      `db:"section"`
	TopicDate time.Time   `db:"topic_date"`
	Duration  int         `db:"duration"`
	Status    string      `db:"status"`
	NotesLink null.String `db:"notes_link"`
	CreatedAt time.Time   `db:"created_at"`
}

func (r topicRow) toTopic() task.Topic {
	return task.Topic{
		ID:        r.ID,
		Title:     r.Title,
		Section:   r.Section,
		TopicDate: r.TopicDate,
		Duration:  r.Duration,
		Status:    r.Status,
		NotesLink: r.NotesLink,
		CreatedAt: r.CreatedAt,
	}
}

type taskRow struct {
	ID           string      `db:"id"`
	Title        string      `db:"title"`
	Description  null.String `db:"description"`
	TopicID      null.String `db:"topic_id"`
	Section      string      `db:"section"`
	DueDate      time.Time   `db:"due_date"`
	MaxMarks     int         `db:"max_marks"`
	Difficulty   string      `db:"difficulty"`
	ResourceLink null.String `db:"resource_link"`
	Status       string      `db:"status"`
	CreatedAt    time.Time   `db:"created_at"`
}

func (r taskRow) toTask() task.Task {
	return task.Task{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description.String,
		TopicID:      r.TopicID,
		Section:      r.Section,
		DueDate:      r.DueDate,
		MaxMarks:     r.MaxMarks,
		Difficulty:   r.Difficulty,
		ResourceLink: r.ResourceLink,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
	}
}

type assignedRow struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	TaskID     string    `db:"task_id"`
	Mark       int       `db:"mark"`
	Completed  bool      `db:"completed"`
	AssignedAt time.Time `db:"assigned_at"`
}

const (
	topicCols    = "id, title, section, topic_date, duration, status, notes_link, created_at"
	taskCols     = "id, title, description, topic_id, section, due_date, max_marks, difficulty, resource_link, status, created_at"
	assignedCols = "id, user_id, task_id, mark, completed, assigned_at"
)

type taskRepository struct {
	db *DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

func (repo *taskRepository) CreateTopic(ctx context.Context, t task.Topic, exec ...core.DBExecutor) (task.Topic, error) {
	t.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO topics (id, title, section, topic_date, duration, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		t.ID, t.Title, t.Section, t.TopicDate.UTC(), t.Duration, t.Status, t.CreatedAt.UTC())
	if err != nil {
		return task.Topic{}, errors.Wrap(err, "inserting topic")
	}
	return t, nil
}

func (repo *taskRepository) QueryTopics(ctx context.Context, filter *task.TopicFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]task.Topic, error) {
	b := psql.Select(topicCols).From("topics")
	if filter != nil {
		if filter.Section != "" {
			b = b.Where(sq.Eq{"section": filter.Section})
		}
		if filter.Status != "" {
			b = b.Where(sq.Eq{"status": filter.Status})
		}
	}
	for _, ord := range ordering {
		b = b.OrderBy(ord.String())
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building topics query")
	}
	var rows []topicRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying topics")
	}
	topics := make([]task.Topic, 0, len(rows))
	for _, r := range rows {
		topics = append(topics, r.toTopic())
	}
	return topics, nil
}

func (repo *taskRepository) GetTopicByID(ctx context.Context, id string, exec ...core.DBExecutor) (task.Topic, error) {
	var r topicRow
	err := repo.getExec(exec).GetContext(ctx, &r, "SELECT "+topicCols+" FROM topics WHERE id = $1", id)
	if err != nil {
		return task.Topic{}, trapNoRowsErr(err, task.ErrTopicNotFound, "getting topic")
	}
	return r.toTopic(), nil
}

func (repo *taskRepository) SetTopicNotesLink(ctx context.Context, topicID, link string, exec ...core.DBExecutor) (task.Topic, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE topics SET notes_link = $1 WHERE id = $2", link, topicID)
	if err != nil {
		return task.Topic{}, errors.Wrap(err, "updating topic notes link")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return task.Topic{}, task.ErrTopicNotFound
	}
	return repo.GetTopicByID(ctx, topicID, exec...)
}

func (repo *taskRepository) CreateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	t.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO tasks (id, title, description, topic_id, section, due_date, max_marks, difficulty, resource_link, status, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		t.ID, t.Title, null.NewString(t.Description, t.Description != ""), t.TopicID, t.Section,
		t.DueDate.UTC(), t.MaxMarks, t.Difficulty, t.ResourceLink, t.Status, t.CreatedAt.UTC())
	if err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo *taskRepository) QueryTasks(ctx context.Context, filter *task.TaskFilter, exec ...core.DBExecutor) ([]task.Task, error) {
	b := psql.Select(taskCols).From("tasks").OrderBy("created_at DESC")
	if filter != nil {
		if filter.Section != "" {
			b = b.Where(sq.Eq{"section": filter.Section})
		}
		if filter.TopicID != "" {
			b = b.Where(sq.Eq{"topic_id": filter.TopicID})
		}
		if filter.Status != "" {
			b = b.Where(sq.Eq{"status": filter.Status})
		}
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building tasks query")
	}
	var rows []taskRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toTask())
	}
	return tasks, nil
}

func (repo *taskRepository) GetTaskByID(ctx context.Context, id string, exec ...core.DBExecutor) (task.Task, error) {
	var r taskRow
	err := repo.getExec(exec).GetContext(ctx, &r, "SELECT "+taskCols+" FROM tasks WHERE id = $1", id)
	if err != nil {
		return task.Task{}, trapNoRowsErr(err, task.ErrTaskNotFound, "getting task")
	}
	return r.toTask(), nil
}

// CreateAssignments bulk-inserts assignment rows. The (user_id, task_id)
// unique constraint rejects duplicates for the whole batch.
func (repo *taskRepository) CreateAssignments(ctx context.Context, taskID string, userIDs []string, assignedAt time.Time, exec ...core.DBExecutor) ([]task.AssignedTask, error) {
	if len(userIDs) == 0 {
		return []task.AssignedTask{}, nil
	}

	b := psql.Insert("assigned_tasks").Columns("id", "user_id", "task_id", "mark", "completed", "assigned_at")
	assigned := make([]task.AssignedTask, 0, len(userIDs))
	for _, uid := range userIDs {
		at := task.AssignedTask{
			ID:         uuid.New().String(),
			UserID:     uid,
			TaskID:     taskID,
			AssignedAt: assignedAt.UTC(),
		}
		b = b.Values(at.ID, at.UserID, at.TaskID, at.Mark, at.Completed, at.AssignedAt)
		assigned = append(assigned, at)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building assignments insert")
	}
	if _, err := repo.getExec(exec).ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, task.ErrAlreadyAssigned
		}
		return nil, errors.Wrap(err, "inserting assignments")
	}
	return assigned, nil
}

func (repo *taskRepository) QueryAssignments(ctx context.Context, filter *task.AssignmentFilter, exec ...core.DBExecutor) ([]task.AssignedTask, error) {
	join := filter != nil && filter.JoinTask

	cols := "at.id, at.user_id, at.task_id, at.mark, at.completed, at.assigned_at"
	b := psql.Select(cols).From("assigned_tasks at")
	if join {
		// aliases quoted as "t.<col>" so sqlx maps them onto the nested taskRow
		b = psql.Select(cols + `, ` +
			`t.id AS "t.id", t.title AS "t.title", t.description AS "t.description", t.topic_id AS "t.topic_id", ` +
			`t.section AS "t.section", t.due_date AS "t.due_date", t.max_marks AS "t.max_marks", ` +
			`t.difficulty AS "t.difficulty", t.resource_link AS "t.resource_link", t.status AS "t.status", t.created_at AS "t.created_at"`).
			From("assigned_tasks at").
			Join("tasks t ON t.id = at.task_id")
	}
	if filter != nil {
		if filter.UserID != "" {
			b = b.Where(sq.Eq{"at.user_id": filter.UserID})
		}
		if filter.TaskID != "" {
			b = b.Where(sq.Eq{"at.task_id": filter.TaskID})
		}
		if filter.Completed != nil {
			b = b.Where(sq.Eq{"at.completed": *filter.Completed})
		}
	}
	b = b.OrderBy("at.assigned_at DESC")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building assignments query")
	}

	if !join {
		var rows []assignedRow
		if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, errors.Wrap(err, "querying assignments")
		}
		assigned := make([]task.AssignedTask, 0, len(rows))
		for _, r := range rows {
			assigned = append(assigned, task.AssignedTask{
				ID: r.ID, UserID: r.UserID, TaskID: r.TaskID,
				Mark: r.Mark, Completed: r.Completed, AssignedAt: r.AssignedAt,
			})
		}
		return assigned, nil
	}

	var rows []struct {
		assignedRow
		T taskRow `db:"t"`
	}
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments with tasks")
	}
	assigned := make([]task.AssignedTask, 0, len(rows))
	for _, r := range rows {
		t := r.T.toTask()
		assigned = append(assigned, task.AssignedTask{
			ID: r.ID, UserID: r.UserID, TaskID: r.TaskID,
			Mark: r.Mark, Completed: r.Completed, AssignedAt: r.AssignedAt,
			Task: &t,
		})
	}
	return assigned, nil
}

func (repo *taskRepository) GetAssignment(ctx context.Context, userID, taskID string, exec ...core.DBExecutor) (task.AssignedTask, error) {
	var r assignedRow
	err := repo.getExec(exec).GetContext(ctx, &r,
		"SELECT "+assignedCols+" FROM assigned_tasks WHERE user_id = $1 AND task_id = $2", userID, taskID)
	if err != nil {
		return task.AssignedTask{}, trapNoRowsErr(err, task.ErrAssignmentNotFound, "getting assignment")
	}
	return task.AssignedTask{
		ID: r.ID, UserID: r.UserID, TaskID: r.TaskID,
		Mark: r.Mark, Completed: r.Completed, AssignedAt: r.AssignedAt,
	}, nil
}

func (repo *taskRepository) SetAssignmentMark(ctx context.Context, id string, mark int, completed bool, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE assigned_tasks SET mark = $1, completed = $2 WHERE id = $3", mark, completed, id)
	if err != nil {
		return errors.Wrap(err, "setting assignment mark")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return task.ErrAssignmentNotFound
	}
	return nil
}
