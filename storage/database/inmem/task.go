package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/task"
)

type taskRepository struct {
	db *DB
}

var _ task.Repository = (*taskRepository)(nil)

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateTopic(ctx context.Context, t task.Topic, exec ...core.DBExecutor) (task.Topic, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	repo.db.topics[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) QueryTopics(ctx context.Context, filter *task.TopicFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]task.Topic, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	topics := make([]task.Topic, 0, len(repo.db.topics))
	for _, t := range repo.db.topics {
		if filter != nil {
			if filter.Section != "" && t.Section != filter.Section {
				continue
			}
			if filter.Status != "" && t.Status != filter.Status {
				continue
			}
		}
		topics = append(topics, *t)
	}
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].TopicDate.Before(topics[j].TopicDate) })
	return topics, nil
}

func (repo *taskRepository) GetTopicByID(ctx context.Context, id string, exec ...core.DBExecutor) (task.Topic, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.topics[id]; ok {
		return *t, nil
	}
	return task.Topic{}, task.ErrTopicNotFound
}

func (repo *taskRepository) SetTopicNotesLink(ctx context.Context, topicID, link string, exec ...core.DBExecutor) (task.Topic, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	t, ok := repo.db.topics[topicID]
	if !ok {
		return task.Topic{}, task.ErrTopicNotFound
	}
	t.NotesLink.SetValid(link)
	return *t, nil
}

func (repo *taskRepository) CreateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) QueryTasks(ctx context.Context, filter *task.TaskFilter, exec ...core.DBExecutor) ([]task.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	tasks := make([]task.Task, 0, len(repo.db.tasks))
	for _, t := range repo.db.tasks {
		if filter != nil {
			if filter.Section != "" && t.Section != filter.Section {
				continue
			}
			if filter.TopicID != "" && t.TopicID.String != filter.TopicID {
				continue
			}
			if filter.Status != "" && t.Status != filter.Status {
				continue
			}
		}
		tasks = append(tasks, *t)
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(tasks[j].DueDate) })
	return tasks, nil
}

func (repo *taskRepository) GetTaskByID(ctx context.Context, id string, exec ...core.DBExecutor) (task.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.tasks[id]; ok {
		return *t, nil
	}
	return task.Task{}, task.ErrTaskNotFound
}

func (repo *taskRepository) CreateAssignments(ctx context.Context, taskID string, userIDs []string, assignedAt time.Time, exec ...core.DBExecutor) ([]task.AssignedTask, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// unique per (user, task)
	for _, uid := range userIDs {
		for _, at := range repo.db.assignments {
			if at.UserID == uid && at.TaskID == taskID {
				return nil, task.ErrAlreadyAssigned
			}
		}
	}

	created := make([]task.AssignedTask, 0, len(userIDs))
	for _, uid := range userIDs {
		at := task.AssignedTask{
			ID:         uuid.New().String(),
			UserID:     uid,
			TaskID:     taskID,
			AssignedAt: assignedAt,
		}
		repo.db.assignments[at.ID] = &at
		created = append(created, at)
	}
	return created, nil
}

func (repo *taskRepository) QueryAssignments(ctx context.Context, filter *task.AssignmentFilter, exec ...core.DBExecutor) ([]task.AssignedTask, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	assigned := make([]task.AssignedTask, 0)
	for _, at := range repo.db.assignments {
		if filter != nil {
			if filter.UserID != "" && at.UserID != filter.UserID {
				continue
			}
			if filter.TaskID != "" && at.TaskID != filter.TaskID {
				continue
			}
			if filter.Completed != nil && at.Completed != *filter.Completed {
				continue
			}
		}
		cp := *at
		if filter != nil && filter.JoinTask {
			if t, ok := repo.db.tasks[at.TaskID]; ok {
				tcp := *t
				cp.Task = &tcp
			}
		}
		assigned = append(assigned, cp)
	}
	sort.SliceStable(assigned, func(i, j int) bool { return assigned[i].AssignedAt.Before(assigned[j].AssignedAt) })
	return assigned, nil
}

func (repo *taskRepository) GetAssignment(ctx context.Context, userID, taskID string, exec ...core.DBExecutor) (task.AssignedTask, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, at := range repo.db.assignments {
		if at.UserID == userID && at.TaskID == taskID {
			return *at, nil
		}
	}
	return task.AssignedTask{}, task.ErrAssignmentNotFound
}

func (repo *taskRepository) SetAssignmentMark(ctx context.Context, id string, mark int, completed bool, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	at, ok := repo.db.assignments[id]
	if !ok {
		return task.ErrAssignmentNotFound
	}
	at.Mark = mark
	at.Completed = completed
	return nil
}
