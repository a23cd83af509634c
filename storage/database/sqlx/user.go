package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/homeworkhelper/api/core/user"
)

type userRow struct {
	ID         string      `db:"id"`
	UID        null.String `db:"uid"`
	Email      string      `db:"email"`
	Role       string      `db:"role"`
	LastActive time.Time   `db:"last_active"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

var userColumns = []string{"id", "uid", "email", "role", "last_active", "created_at", "updated_at"}

func (r userRow) toUser() user.User {
	return user.User{
		ID:         r.ID,
		UID:        r.UID.String,
		Email:      r.Email,
		Role:       r.Role,
		LastActive: r.LastActive.UTC(),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) getUser(ctx context.Context, pred sq.Sqlizer) (user.User, error) {
	var row userRow
	if err := getx(ctx, repo.db, &row, psql.Select(userColumns...).From("app_user").Where(pred)); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, storageErr(err, "selecting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByUID(ctx context.Context, uid string) (user.User, error) {
	if uid == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(ctx, sq.Eq{"uid": uid})
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, sq.Expr("lower(email) = lower(?)", email))
}

func (repo *userRepository) SaveUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	b := psql.Insert("app_user").Columns(userColumns...).
		Values(uuid.NewString(), null.NewString(usr.UID, usr.UID != ""), usr.Email, usr.Role,
			usr.LastActive, usr.CreatedAt, usr.UpdatedAt).
		Suffix(`ON CONFLICT (email) DO UPDATE SET
			uid = EXCLUDED.uid, role = EXCLUDED.role, last_active = EXCLUDED.last_active, updated_at = EXCLUDED.updated_at
			RETURNING id, uid, email, role, last_active, created_at, updated_at`)
	if err := getx(ctx, repo.db, &row, b); err != nil {
		return user.User{}, storageErr(err, "saving user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) TouchUser(ctx context.Context, uid, email string, at time.Time) error {
	res, err := execx(ctx, repo.db, psql.Update("app_user").
		Set("uid", uid).
		Set("last_active", at).
		Set("updated_at", at).
		Where(sq.Or{sq.Eq{"uid": uid}, sq.And{sq.NotEq{"email": ""}, sq.Expr("lower(email) = lower(?)", email)}}))
	if err != nil {
		return storageErr(err, "touching user")
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return errors.Wrap(err, "counting touched users")
	}

	// unknown users start as students; without an email there is nothing to record
	if email == "" {
		return nil
	}
	_, err = execx(ctx, repo.db, psql.Insert("app_user").Columns(userColumns...).
		Values(uuid.NewString(), uid, email, user.RoleStudent, at, at, at).
		Suffix("ON CONFLICT DO NOTHING"))
	return storageErr(err, "creating touched user")
}

func (repo *userRepository) DeleteUsersByEmail(ctx context.Context, emails ...string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	res, err := execx(ctx, repo.db, psql.Delete("app_user").Where(sq.Eq{"email": emails}))
	if err != nil {
		return 0, storageErr(err, "deleting users")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting deleted users")
}
