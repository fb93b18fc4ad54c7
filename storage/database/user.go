package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type userRow struct {
	ID           string      `db:"id"`
	StudentID    null.String `db:"student_id"`
	FullName     null.String `db:"full_name"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	Remark       null.String `db:"remark"`
	Passcode     null.String `db:"passcode"`
	PasswordHash null.Bytes  `db:"password_hash"`
	Confirmed    bool        `db:"confirm_at"`
	CreatedBy    null.String `db:"created_by"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		StudentID:    r.StudentID.String,
		FullName:     r.FullName.String,
		Email:        r.Email,
		Role:         r.Role,
		Remark:       r.Remark.String,
		Passcode:     r.Passcode.String,
		PasswordHash: r.PasswordHash.Bytes,
		Confirmed:    r.Confirmed,
		CreatedBy:    r.CreatedBy.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		StudentID:    null.NewString(usr.StudentID, usr.StudentID != ""),
		FullName:     null.NewString(usr.FullName, usr.FullName != ""),
		Email:        usr.Email,
		Role:         usr.Role,
		Remark:       null.NewString(usr.Remark, usr.Remark != ""),
		Passcode:     null.NewString(usr.Passcode, usr.Passcode != ""),
		PasswordHash: null.BytesFrom(usr.PasswordHash),
		Confirmed:    usr.Confirmed,
		CreatedBy:    null.NewString(usr.CreatedBy, usr.CreatedBy != ""),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

const userCols = "id, student_id, full_name, email, role, remark, passcode, password_hash, confirm_at, created_by, created_at, updated_at, last_login"

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

// trapNoRowsErr maps psql "no rows" to the given sentinel.
func trapNoRowsErr(err error, sentinel error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	b := psql.Select("COUNT(*)").From("users").Where(sq.Eq{"email": email})
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		b = b.Where(sq.NotEq{"id": ids})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var count int
	if err := repo.getExec(exec).GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	r := toUserRow(usr)

	query, args, err := psql.Insert("users").
		Columns("id", "student_id", "full_name", "email", "role", "remark", "passcode",
			"password_hash", "confirm_at", "created_by", "created_at", "updated_at").
		Values(r.ID, r.StudentID, r.FullName, r.Email, r.Role, r.Remark, r.Passcode,
			r.PasswordHash, r.Confirmed, r.CreatedBy, r.CreatedAt, r.UpdatedAt).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building insert")
	}
	if _, err := repo.getExec(exec).ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	var r userRow
	err := repo.getExec(exec).GetContext(ctx, &r, "SELECT "+userCols+" FROM users WHERE id = $1", id)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user by id")
	}
	return r.toUser(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	var r userRow
	err := repo.getExec(exec).GetContext(ctx, &r, "SELECT "+userCols+" FROM users WHERE email = $1", email)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user by email")
	}
	return r.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	b := psql.Select(userCols).From("users")

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			b = b.Where(sq.Or{
				sq.ILike{"full_name": val},
				sq.ILike{"student_id": val},
				sq.ILike{"email": val},
			})
		}
		if filter.Role != "" {
			b = b.Where(sq.Eq{"role": filter.Role})
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	for _, ord := range ordering {
		b = b.OrderBy(ord.String())
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}

	var rows []userRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.UpdatedAt = time.Now().UTC()
	r := toUserRow(usr)

	query, args, err := psql.Update("users").
		Set("full_name", r.FullName).
		Set("email", r.Email).
		Set("role", r.Role).
		Set("confirm_at", r.Confirmed).
		Set("updated_at", r.UpdatedAt).
		Where(sq.Eq{"id": usr.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building update")
	}
	res, err := repo.getExec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) SetPasswordHash(ctx context.Context, userID string, hash []byte, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE users SET password_hash = $1, confirm_at = true, updated_at = $2 WHERE id = $3",
		hash, time.Now().UTC(), userID)
	if err != nil {
		return errors.Wrap(err, "setting password hash")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, userID string, t time.Time, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE users SET last_login = $1 WHERE id = $2", t.UTC(), userID)
	return errors.Wrap(err, "setting last login")
}

// NextStudentSeq reserves the next student ID off a store-side sequence, so
// concurrent provisioning requests cannot observe the same value.
func (repo *userRepository) NextStudentSeq(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var seq int
	err := repo.getExec(exec).GetContext(ctx, &seq, "SELECT nextval('student_id_seq')")
	if err != nil {
		return 0, errors.Wrap(err, "reserving student sequence")
	}
	return seq, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	query, args, err := psql.Delete("users").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building delete")
	}
	_, err = repo.getExec(exec).ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting users")
}

// password resets

type resetRow struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (repo *userRepository) CreateReset(ctx context.Context, rst user.PasswordReset, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO password_resets (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)",
		rst.Token, rst.UserID, rst.ExpiresAt.UTC(), rst.CreatedAt.UTC())
	return errors.Wrap(err, "inserting reset token")
}

func (repo *userRepository) GetResetByToken(ctx context.Context, token string, exec ...core.DBExecutor) (user.PasswordReset, error) {
	var r resetRow
	err := repo.getExec(exec).GetContext(ctx, &r,
		"SELECT token, user_id, expires_at, created_at FROM password_resets WHERE token = $1", token)
	if err != nil {
		return user.PasswordReset{}, trapNoRowsErr(err, user.ErrResetNotFound, "getting reset token")
	}
	return user.PasswordReset{Token: r.Token, UserID: r.UserID, ExpiresAt: r.ExpiresAt, CreatedAt: r.CreatedAt}, nil
}

func (repo *userRepository) DeleteReset(ctx context.Context, token string, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM password_resets WHERE token = $1", token)
	return errors.Wrap(err, "deleting reset token")
}

// task.UserDirectory

func (repo *userRepository) GetRemark(ctx context.Context, userID string, exec ...core.DBExecutor) (string, error) {
	var remark null.String
	err := repo.getExec(exec).GetContext(ctx, &remark, "SELECT remark FROM users WHERE id = $1", userID)
	if err != nil {
		return "", trapNoRowsErr(err, user.ErrNotFound, "getting user total")
	}
	return remark.String, nil
}

func (repo *userRepository) SetRemark(ctx context.Context, userID, remark string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE users SET remark = $1, updated_at = $2 WHERE id = $3", remark, time.Now().UTC(), userID)
	if err != nil {
		return errors.Wrap(err, "setting user total")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) ListUsers(ctx context.Context, role string) ([]user.User, error) {
	return repo.QueryUsers(ctx, &user.QueryFilter{Role: role}, nil)
}

func (repo *userRepository) GetUsersByID(ctx context.Context, ids []string) ([]user.User, error) {
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	query, args, err := psql.Select(userCols).From("users").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users by id")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}
