package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
)

type profileRepository struct {
	db *DB
}

var (
	_ user.ProfileRepository  = (*profileRepository)(nil)
	_ user.ActivityRepository = (*profileRepository)(nil)
)

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) GetProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (user.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if pf, ok := repo.db.profiles[userID]; ok {
		return *pf, nil
	}
	return user.Profile{}, user.ErrProfileNotFound
}

func (repo *profileRepository) UpsertProfile(ctx context.Context, pf user.Profile, exec ...core.DBExecutor) (user.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if orig, ok := repo.db.profiles[pf.UserID]; ok {
		pf.ID = orig.ID
		pf.CreatedAt = orig.CreatedAt
	} else {
		pf.ID = uuid.New().String()
		pf.CreatedAt = pf.UpdatedAt
	}
	repo.db.profiles[pf.UserID] = &pf
	return pf, nil
}

func (repo *profileRepository) LogActivity(ctx context.Context, entry user.Activity, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	entry.ID = uuid.New().String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	repo.db.activities = append(repo.db.activities, entry)
	return nil
}

// Activities returns the audit trail for assertions in tests.
func (repo *profileRepository) Activities() []user.Activity {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]user.Activity, len(repo.db.activities))
	copy(out, repo.db.activities)
	return out
}
