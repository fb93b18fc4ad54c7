package user

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vairaa/kazi/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleStudent}

// Student IDs are human-readable and sequential: VCMERN102, VCMERN103, ...
// The offset keeps them clear of legacy hand-issued IDs.
const (
	StudentIDPrefix = "VCMERN"
	studentIDOffset = 101
)

// FormatStudentID renders the student ID for the given sequence number (1-based).
func FormatStudentID(seq int) string {
	return fmt.Sprintf("%s%03d", StudentIDPrefix, studentIDOffset+seq)
}

type User struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id,omitempty"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`

	// Remark is the user's cumulative score across completed assigned tasks,
	// text-encoded as the store keeps it.
	Remark string `json:"remark"`

	// Passcode is the one-time setup code emailed on provisioning.
	Passcode string `json:"-"`
	// PasswordHash mirrors the identity provider's credential.
	PasswordHash []byte `json:"-"`

	Confirmed bool      `json:"confirmed"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	LastLogin time.Time `json:"last_login"` // UTC
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// TotalMark parses the text-encoded cumulative score. Empty or garbage reads as 0.
func (u *User) TotalMark() int {
	total, err := strconv.Atoi(u.Remark)
	if err != nil {
		return 0
	}
	return total
}

// NewUser contains information needed to provision a new User.
type NewUser struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,anyrole"`
}

func (nu *NewUser) Validate() error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleStudent
	}
	return core.Validate.Struct(nu)
}

// ProvisionResult reports the outcome for one entry of a provisioning batch.
// Batches are not atomic; callers inspect per-item outcomes instead of
// comparing input and output lengths.
type ProvisionResult struct {
	Input     NewUser `json:"input"`
	OK        bool    `json:"ok"`
	StudentID string  `json:"student_id,omitempty"`
	Passcode  string  `json:"passcode,omitempty"`
	User      *User   `json:"user,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Signup is the self-service registration input.
type Signup struct {
	FullName        string `json:"full_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (su *Signup) Validate() error {
	su.FullName = core.CleanString(su.FullName)
	su.Email = core.CleanString(su.Email, true /* lower */)
	return core.Validate.Struct(su)
}

// Profile carries the extended, optional profile fields, created lazily on
// first profile update.
type Profile struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Phone              string    `json:"phone"`
	Location           string    `json:"location"`
	Bio                string    `json:"bio"`
	Department         string    `json:"department"`
	LinkedinURL        string    `json:"linkedin_url"`
	TwitterURL         string    `json:"twitter_url"`
	GithubURL          string    `json:"github_url"`
	EmailNotifications bool      `json:"email_notifications"`
	PushNotifications  bool      `json:"push_notifications"`
	TwoFactorAuth      bool      `json:"two_factor_auth"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UpdateProfile defines what may be provided to modify a User and their Profile.
type UpdateProfile struct {
	Phone              string `json:"phone"`
	Location           string `json:"location"`
	Bio                string `json:"bio"`
	Department         string `json:"department"`
	LinkedinURL        string `json:"linkedin_url" validate:"omitempty,url"`
	TwitterURL         string `json:"twitter_url" validate:"omitempty,url"`
	GithubURL          string `json:"github_url" validate:"omitempty,url"`
	EmailNotifications bool   `json:"email_notifications"`
	PushNotifications  bool   `json:"push_notifications"`
	TwoFactorAuth      bool   `json:"two_factor_auth"`
}

func (up *UpdateProfile) Validate() error {
	up.Phone = core.CleanString(up.Phone)
	up.Location = core.CleanString(up.Location)
	up.Bio = core.CleanString(up.Bio)
	up.Department = core.CleanString(up.Department)
	return core.Validate.Struct(up)
}

// Activity is one audit log entry.
type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// SetUserPassword is the password-setup confirmation input.
type SetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (sp SetUserPassword) Validate() error { return core.Validate.Struct(sp) }

type QueryFilter struct {
	Search string `query:"search"`
	Role   string `query:"role"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
