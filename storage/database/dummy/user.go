package dummydb

import (
	"context"
	"time"

	"github.com/homeworkhelper/api/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) GetUserByUID(context.Context, string) (user.User, error) {
	return user.User{}, repo.db.err()
}

func (repo *userRepository) GetUserByEmail(context.Context, string) (user.User, error) {
	return user.User{}, repo.db.err()
}

func (repo *userRepository) SaveUser(context.Context, user.User) (user.User, error) {
	return user.User{}, repo.db.err()
}

func (repo *userRepository) TouchUser(context.Context, string, string, time.Time) error {
	return repo.db.err()
}

func (repo *userRepository) DeleteUsersByEmail(context.Context, ...string) (int64, error) {
	return 0, repo.db.err()
}
