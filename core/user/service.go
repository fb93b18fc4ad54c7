package user

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/vairaa/kazi/core"
)

var (
	// errors
	ErrNotFound      = errors.New("user not found")
	ErrEmailExists   = errors.New("a user with this email already exists")
	ErrResetNotFound = errors.New("password setup token not found")
	ErrResetExpired  = errors.New("password setup token expired")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on FullName, StudentID or Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		SetPasswordHash(ctx context.Context, userID string, hash []byte, exec ...core.DBExecutor) error
		SetLastLogin(ctx context.Context, userID string, t time.Time, exec ...core.DBExecutor) error
		// NextStudentSeq reserves the next value of the store-side student ID
		// sequence. Concurrent callers never observe the same value.
		NextStudentSeq(ctx context.Context, exec ...core.DBExecutor) (int, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error

		CreateReset(ctx context.Context, rst PasswordReset, exec ...core.DBExecutor) error
		GetResetByToken(ctx context.Context, token string, exec ...core.DBExecutor) (PasswordReset, error)
		DeleteReset(ctx context.Context, token string, exec ...core.DBExecutor) error
	}

	ProfileRepository interface {
		GetProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (Profile, error)
		UpsertProfile(ctx context.Context, pf Profile, exec ...core.DBExecutor) (Profile, error)
	}

	ActivityRepository interface {
		LogActivity(ctx context.Context, entry Activity, exec ...core.DBExecutor) error
	}

	Service struct {
		db           core.Atomic
		repo         Repository
		profileRepo  ProfileRepository
		activityRepo ActivityRepository
		identity     core.IdentityProvider
		mailSvc      core.EmailService
		logger       core.Logger
	}
)

// ErrProfileNotFound is returned before the lazily-created profile row exists.
var ErrProfileNotFound = errors.New("profile not found")

func NewService(
	db core.Atomic,
	repo Repository,
	profileRepo ProfileRepository,
	activityRepo ActivityRepository,
	identity core.IdentityProvider,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		db:           db,
		repo:         repo,
		profileRepo:  profileRepo,
		activityRepo: activityRepo,
		identity:     identity,
		mailSvc:      mailSvc,
		logger:       logger,
	}
}

func (svc *Service) checkUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Provision creates accounts for a batch of users: a sequential student ID, a
// random one-time passcode, an identity-provider account and the matching store
// row, plus a credentials email when sendMail is set. The batch is not atomic;
// a failed item is reported in its ProvisionResult and the loop continues.
func (svc *Service) Provision(ctx context.Context, items []NewUser, sendMail bool) []ProvisionResult {
	results := make([]ProvisionResult, 0, len(items))

	for _, nu := range items {
		res := ProvisionResult{Input: nu}

		if err := nu.Validate(); err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		usr, passcode, err := svc.provisionOne(ctx, nu)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("provisioning %s: %v", nu.Email, err), err)
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		res.OK = true
		res.StudentID = usr.StudentID
		res.Passcode = passcode
		res.User = &usr
		results = append(results, res)

		if sendMail {
			svc.sendCredentialsMail(usr, passcode)
		}
	}
	return results
}

func (svc *Service) provisionOne(ctx context.Context, nu NewUser) (User, string, error) {
	seq, err := svc.repo.NextStudentSeq(ctx)
	if err != nil {
		return User{}, "", errors.Wrap(err, "reserving student sequence")
	}
	studentID := FormatStudentID(seq)
	passcode := core.RandomCode(8)

	acct, err := svc.identity.CreateAccount(ctx, nu.Email, passcode, map[string]string{
		"full_name":  nu.FullName,
		"role":       nu.Role,
		"student_id": studentID,
	})
	if err != nil {
		return User{}, "", errors.Wrap(err, "creating identity account")
	}

	now := NowFunc().UTC()
	usr := User{
		ID:        acct.ID,
		StudentID: studentID,
		FullName:  nu.FullName,
		Email:     nu.Email,
		Role:      nu.Role,
		Remark:    "0",
		Passcode:  passcode,
		Confirmed: true,
		CreatedBy: "admin",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(passcode); err != nil {
		return User{}, "", errors.Wrap(err, "hashing passcode")
	}
	usr, err = svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, "", errors.Wrap(err, "inserting user")
	}

	if err := svc.activityRepo.LogActivity(ctx, Activity{
		UserID:  usr.ID,
		Action:  "user_provisioned",
		Details: "Provisioned " + usr.StudentID,
	}); err != nil {
		svc.logger.Warn(fmt.Sprintf("logging provisioning activity: %v", err))
	}
	return usr, passcode, nil
}

// Signup registers a self-service student account.
func (svc *Service) Signup(ctx context.Context, su Signup) (User, error) {
	if err := svc.checkUniqueness(su.Email); err != nil {
		return User{}, err
	}

	acct, err := svc.identity.CreateAccount(ctx, su.Email, su.Password, map[string]string{
		"full_name": su.FullName,
		"role":      RoleStudent,
	})
	if err != nil {
		if errors.Cause(err) == core.ErrAccountExists {
			return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return User{}, errors.Wrap(err, "creating identity account")
	}

	now := NowFunc().UTC()
	usr := User{
		ID:        acct.ID,
		FullName:  su.FullName,
		Email:     su.Email,
		Role:      RoleStudent,
		Remark:    "0",
		Confirmed: false,
		CreatedBy: "self",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(su.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

// RequestPasswordSetup issues a fresh single-use token for the account behind
// email and mails a link embedding it. The token expires after
// core.Conf.PasswordResetTimeout (24h).
func (svc *Service) RequestPasswordSetup(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}

	token, err := MakeResetToken()
	if err != nil {
		return err
	}
	now := NowFunc().UTC()
	rst := PasswordReset{
		Token:     token,
		UserID:    usr.ID,
		ExpiresAt: now.Add(core.Conf.PasswordResetTimeout),
		CreatedAt: now,
	}
	if err := svc.repo.CreateReset(ctx, rst); err != nil {
		return errors.Wrap(err, "storing reset token")
	}

	svc.sendPasswordSetupMail(usr, token)
	return nil
}

// ConfirmPasswordSetup consumes a setup token: the identity provider's
// credential is replaced, the store's mirrored hash is updated and the token
// row is deleted. The mirror update and token delete share one transaction;
// an expired token is purged on lookup and rejected with ErrResetExpired.
func (svc *Service) ConfirmPasswordSetup(ctx context.Context, sp SetUserPassword) error {
	rst, err := svc.repo.GetResetByToken(ctx, sp.Token)
	if err != nil {
		return err
	}
	if rst.Expired(NowFunc().UTC()) {
		if err := svc.repo.DeleteReset(ctx, rst.Token); err != nil {
			svc.logger.Warn(fmt.Sprintf("purging expired reset token: %v", err))
		}
		return ErrResetExpired
	}

	if err := svc.identity.UpdatePassword(ctx, rst.UserID, sp.Password); err != nil {
		return errors.Wrap(err, "updating identity credential")
	}

	usr := User{}
	if err := usr.SetPassword(sp.Password); err != nil {
		return err
	}
	return svc.db.RunInTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.SetPasswordHash(ctx, rst.UserID, usr.PasswordHash, exec); err != nil {
			return errors.Wrap(err, "mirroring password hash")
		}
		if err := svc.repo.DeleteReset(ctx, rst.Token, exec); err != nil {
			return errors.Wrap(err, "consuming reset token")
		}
		return nil
	})
}

// ResetPassword force-sets a user's password: the identity credential is
// replaced and the mirrored hash follows. Meant for operators; the API flow
// goes through the token-based password setup instead.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return User{}, err
	}
	if err := svc.identity.UpdatePassword(ctx, usr.ID, pwd); err != nil {
		return User{}, errors.Wrap(err, "updating identity credential")
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	if err := svc.repo.SetPasswordHash(ctx, usr.ID, usr.PasswordHash); err != nil {
		return User{}, errors.Wrap(err, "mirroring password hash")
	}
	return usr, nil
}

// SendCredentials emails every student their login code in one sweep.
// Individual mail failures are logged by the email service, not retried.
func (svc *Service) SendCredentials(ctx context.Context) (int, error) {
	students, err := svc.repo.QueryUsers(ctx, &QueryFilter{Role: RoleStudent}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying students")
	}
	for _, usr := range students {
		svc.sendCredentialsMail(usr, usr.Passcode)
	}
	return len(students), nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids)
}

// SetRole changes a user's role. Used by the admin CLI to promote an existing
// account.
func (svc *Service) SetRole(ctx context.Context, userID, role string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := NowFunc().UTC()
	if err := svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return usr, err
	}
	usr.LastLogin = now
	return usr, nil
}

// GetProfile returns the user row plus its lazily-created profile, which may
// not exist yet.
func (svc *Service) GetProfile(ctx context.Context, userID string) (User, *Profile, error) {
	usr, err := svc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return User{}, nil, err
	}
	pf, err := svc.profileRepo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrProfileNotFound {
			return usr, nil, nil
		}
		return User{}, nil, err
	}
	return usr, &pf, nil
}

// UpdateProfile upserts the profile row and records an audit entry.
func (svc *Service) UpdateProfile(ctx context.Context, userID string, up UpdateProfile) (User, Profile, error) {
	usr, err := svc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return User{}, Profile{}, err
	}

	now := NowFunc().UTC()
	pf, err := svc.profileRepo.UpsertProfile(ctx, Profile{
		UserID:             userID,
		Phone:              up.Phone,
		Location:           up.Location,
		Bio:                up.Bio,
		Department:         up.Department,
		LinkedinURL:        up.LinkedinURL,
		TwitterURL:         up.TwitterURL,
		GithubURL:          up.GithubURL,
		EmailNotifications: up.EmailNotifications,
		PushNotifications:  up.PushNotifications,
		TwoFactorAuth:      up.TwoFactorAuth,
		UpdatedAt:          now,
	})
	if err != nil {
		return User{}, Profile{}, errors.Wrap(err, "upserting profile")
	}

	if err := svc.activityRepo.LogActivity(ctx, Activity{
		UserID:  userID,
		Action:  "profile_updated",
		Details: "Updated profile information",
	}); err != nil {
		svc.logger.Warn(fmt.Sprintf("logging profile activity: %v", err))
	}
	return usr, pf, nil
}

// TotalOf reports the text-encoded running total as an int.
func TotalOf(remark string) int {
	total, _ := strconv.Atoi(remark)
	return total
}

// mails

func (svc *Service) sendCredentialsMail(usr User, passcode string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Student Login Details",
		TemplateName: "credentials",
		TemplateData: struct {
			FullName  string
			Email     string
			StudentID string
			Passcode  string
		}{usr.FullName, usr.Email, usr.StudentID, passcode},
	})
}

func (svc *Service) sendPasswordSetupMail(usr User, token string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Set your account password",
		TemplateName: "password-setup",
		TemplateData: struct {
			FullName string
			Token    string
			Hours    int
		}{usr.FullName, token, int(core.Conf.PasswordResetTimeout.Hours())},
	})
}
