package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core"
)

var (
	// errors
	ErrNotFound     = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid token")
)

type (
	Repository interface {
		GetUserByUID(ctx context.Context, uid string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// SaveUser creates the user, or updates the one with the same email.
		SaveUser(ctx context.Context, usr User) (User, error)
		// TouchUser records activity for uid, creating the user when unknown and email is set.
		TouchUser(ctx context.Context, uid, email string, at time.Time) error
		DeleteUsersByEmail(ctx context.Context, emails ...string) (int64, error)
	}

	// TokenVerifier authenticates bearer tokens.
	TokenVerifier interface {
		// Verify returns the token's Identity, or ErrInvalidToken.
		Verify(ctx context.Context, token string) (Identity, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		now      func() time.Time
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Touch records that the identified caller is active.
func (svc *Service) Touch(ctx context.Context, id Identity) error {
	if id.Anonymous() {
		return nil
	}
	return errors.Wrap(
		svc.repo.TouchUser(ctx, id.UID, core.CleanString(id.Email, true /* lower */), svc.now()),
		"touching user",
	)
}

// SetRole grants sr.Role to the user with sr.Email, creating the user when needed.
func (svc *Service) SetRole(ctx context.Context, sr SetRole) (User, error) {
	if err := sr.Validate(svc.validate); err != nil {
		return User{}, err
	}

	now := svc.now()
	usr, err := svc.repo.GetUserByEmail(ctx, sr.Email)
	switch errors.Cause(err) {
	case nil:
	case ErrNotFound:
		usr = User{Email: sr.Email, LastActive: now, CreatedAt: now}
	default:
		return User{}, errors.Wrap(err, "finding user by email")
	}

	usr.Role = sr.Role
	if sr.UID != "" {
		usr.UID = sr.UID
	}
	usr.UpdatedAt = now
	usr, err = svc.repo.SaveUser(ctx, usr)
	return usr, errors.Wrap(err, "saving user")
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByUID(ctx context.Context, uid string) (User, error) {
	return svc.repo.GetUserByUID(ctx, uid)
}

// Seed recreates the given users, replacing any with the same email.
func (svc *Service) Seed(ctx context.Context, users []User) error {
	emails := make([]string, 0, len(users))
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	if _, err := svc.repo.DeleteUsersByEmail(ctx, emails...); err != nil {
		return errors.Wrap(err, "deleting seed users")
	}
	now := svc.now()
	for _, u := range users {
		u.CreatedAt, u.UpdatedAt = now, now
		if u.Role == "" {
			u.Role = RoleStudent
		}
		if _, err := svc.repo.SaveUser(ctx, u); err != nil {
			return errors.Wrap(err, "creating seed user")
		}
	}
	return nil
}
