package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/task"
	"github.com/vairaa/kazi/core/user"
)

type userRepository struct {
	db *DB
}

var (
	_ user.Repository    = (*userRepository)(nil)
	_ task.UserDirectory = (*userRepository)(nil)
)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email != email {
			continue
		}
		excluded := false
		for _, ex := range excludedUsers {
			if ex.ID == usr.ID {
				excluded = true
				break
			}
		}
		if !excluded {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if filter != nil {
			if filter.Role != "" && usr.Role != filter.Role {
				continue
			}
			if s := strings.ToLower(filter.Search); s != "" {
				if !strings.Contains(strings.ToLower(usr.FullName), s) &&
					!strings.Contains(strings.ToLower(usr.StudentID), s) &&
					!strings.Contains(strings.ToLower(usr.Email), s) {
					continue
				}
			}
		}
		users = append(users, usr)
	}

	sortUsers(users, ordering)
	return users, nil
}

func sortUsers(users []user.User, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	ord := ordering[0]
	sort.SliceStable(users, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "student_id":
			less = users[i].StudentID < users[j].StudentID
		case "full_name":
			less = users[i].FullName < users[j].FullName
		case "email":
			less = users[i].Email < users[j].Email
		default:
			less = users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		if ord.Ascending {
			return less
		}
		return !less
	})
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	// only save set fields
	if usr.FullName != "" {
		orig.FullName = usr.FullName
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.Role != "" {
		orig.Role = usr.Role
	}
	if usr.Remark != "" {
		orig.Remark = usr.Remark
	}
	orig.UpdatedAt = usr.UpdatedAt
	return *orig, nil
}

func (repo *userRepository) SetPasswordHash(ctx context.Context, userID string, hash []byte, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	usr.PasswordHash = hash
	return nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, userID string, t time.Time, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = t
	return nil
}

func (repo *userRepository) NextStudentSeq(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.studentSeq++
	return repo.db.studentSeq, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}

// password resets

func (repo *userRepository) CreateReset(ctx context.Context, rst user.PasswordReset, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.resets[rst.Token] = &rst
	return nil
}

func (repo *userRepository) GetResetByToken(ctx context.Context, token string, exec ...core.DBExecutor) (user.PasswordReset, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rst, ok := repo.db.resets[token]; ok {
		return *rst, nil
	}
	return user.PasswordReset{}, user.ErrResetNotFound
}

func (repo *userRepository) DeleteReset(ctx context.Context, token string, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.resets, token)
	return nil
}

// task.UserDirectory

func (repo *userRepository) GetRemark(ctx context.Context, userID string, exec ...core.DBExecutor) (string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	usr, ok := repo.db.users[userID]
	if !ok {
		return "", user.ErrNotFound
	}
	return usr.Remark, nil
}

func (repo *userRepository) SetRemark(ctx context.Context, userID, remark string, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	usr.Remark = remark
	return nil
}

func (repo *userRepository) ListUsers(ctx context.Context, role string) ([]user.User, error) {
	return repo.QueryUsers(ctx, &user.QueryFilter{Role: role}, nil)
}

func (repo *userRepository) GetUsersByID(ctx context.Context, ids []string) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.users[id]; ok {
			users = append(users, *usr)
		}
	}
	return users, nil
}
