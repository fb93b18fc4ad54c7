package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
)

type profileRow struct {
	ID                 string      `db:"id"`
	UserID             string      `db:"user_id"`
	Phone              null.String `db:"phone"`
	Location           null.String `db:"location"`
	Bio                null.String `db:"bio"`
	Department         null.String `db:"department"`
	LinkedinURL        null.String `db:"linkedin_url"`
	TwitterURL         null.String `db:"twitter_url"`
	GithubURL          null.String `db:"github_url"`
	EmailNotifications bool        `db:"email_notifications"`
	PushNotifications  bool        `db:"push_notifications"`
	TwoFactorAuth      bool        `db:"two_factor_auth"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func (r profileRow) toProfile() user.Profile {
	return user.Profile{
		ID:                 r.ID,
		UserID:             r.UserID,
		Phone:              r.Phone.String,
		Location:           r.Location.String,
		Bio:                r.Bio.String,
		Department:         r.Department.String,
		LinkedinURL:        r.LinkedinURL.String,
		TwitterURL:         r.TwitterURL.String,
		GithubURL:          r.GithubURL.String,
		EmailNotifications: r.EmailNotifications,
		PushNotifications:  r.PushNotifications,
		TwoFactorAuth:      r.TwoFactorAuth,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

const profileCols = "id, user_id, phone, location, bio, department, linkedin_url, twitter_url, github_url, " +
	"email_notifications, push_notifications, two_factor_auth, created_at, updated_at"

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

func (repo *profileRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

func (repo *profileRepository) GetProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (user.Profile, error) {
	var r profileRow
	err := repo.getExec(exec).GetContext(ctx, &r,
		"SELECT "+profileCols+" FROM user_profiles WHERE user_id = $1", userID)
	if err != nil {
		return user.Profile{}, trapNoRowsErr(err, user.ErrProfileNotFound, "getting profile")
	}
	return r.toProfile(), nil
}

// UpsertProfile creates the row lazily on first update; user_id carries a
// unique constraint.
func (repo *profileRepository) UpsertProfile(ctx context.Context, pf user.Profile, exec ...core.DBExecutor) (user.Profile, error) {
	if pf.ID == "" {
		pf.ID = uuid.New().String()
	}
	now := pf.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	_, err := repo.getExec(exec).ExecContext(ctx, `
		INSERT INTO user_profiles
			(id, user_id, phone, location, bio, department, linkedin_url, twitter_url, github_url,
			 email_notifications, push_notifications, two_factor_auth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (user_id) DO UPDATE SET
			phone = EXCLUDED.phone,
			location = EXCLUDED.location,
			bio = EXCLUDED.bio,
			department = EXCLUDED.department,
			linkedin_url = EXCLUDED.linkedin_url,
			twitter_url = EXCLUDED.twitter_url,
			github_url = EXCLUDED.github_url,
			email_notifications = EXCLUDED.email_notifications,
			push_notifications = EXCLUDED.push_notifications,
			two_factor_auth = EXCLUDED.two_factor_auth,
			updated_at = EXCLUDED.updated_at`,
		pf.ID, pf.UserID, pf.Phone, pf.Location, pf.Bio, pf.Department,
		pf.LinkedinURL, pf.TwitterURL, pf.GithubURL,
		pf.EmailNotifications, pf.PushNotifications, pf.TwoFactorAuth, now)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "upserting profile")
	}
	return repo.GetProfile(ctx, pf.UserID, exec...)
}

func (repo *profileRepository) LogActivity(ctx context.Context, entry user.Activity, exec ...core.DBExecutor) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO activity_logs (id, user_id, action, details, created_at) VALUES ($1, $2, $3, $4, $5)",
		entry.ID, entry.UserID, entry.Action, entry.Details, time.Now().UTC())
	return errors.Wrap(err, "inserting activity log")
}
