package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homeworkhelper/api/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) find(match func(u *user.User) bool) (*user.User, bool) {
	for _, u := range repo.db.table {
		if match(u) {
			return u, true
		}
	}
	return nil, false
}

func (repo *userRepository) GetUserByUID(_ context.Context, uid string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if u, ok := repo.find(func(u *user.User) bool { return u.UID != "" && u.UID == uid }); ok {
		return *u, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if u, ok := repo.find(func(u *user.User) bool { return strings.EqualFold(u.Email, email) }); ok {
		return *u, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) SaveUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if existing, ok := repo.find(func(u *user.User) bool { return strings.EqualFold(u.Email, usr.Email) }); ok {
		usr.ID = existing.ID
		usr.CreatedAt = existing.CreatedAt
	} else {
		usr.ID = uuid.NewString()
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) TouchUser(_ context.Context, uid, email string, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	u, ok := repo.find(func(u *user.User) bool {
		return u.UID == uid || (email != "" && strings.EqualFold(u.Email, email))
	})
	if !ok {
		if email == "" {
			return nil
		}
		u = &user.User{
			ID:        uuid.NewString(),
			Email:     email,
			Role:      user.RoleStudent,
			CreatedAt: at,
		}
		repo.db.table[u.ID] = u
	}
	u.UID = uid
	u.LastActive = at
	u.UpdatedAt = at
	return nil
}

func (repo *userRepository) DeleteUsersByEmail(_ context.Context, emails ...string) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int64
	for id, u := range repo.db.table {
		for _, email := range emails {
			if strings.EqualFold(u.Email, email) {
				delete(repo.db.table, id)
				n++
				break
			}
		}
	}
	return n, nil
}
