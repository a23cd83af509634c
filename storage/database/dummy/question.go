package dummydb

import (
	"context"
	"time"

	"github.com/homeworkhelper/api/core/question"
)

type questionRepository struct {
	db *DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) *questionRepository {
	return &questionRepository{db: db}
}

func (repo *questionRepository) Create(context.Context, question.Question) (question.Question, error) {
	return question.Question{}, repo.db.err()
}

func (repo *questionRepository) FindAsked(context.Context, string, question.Subject, string) (question.Question, error) {
	return question.Question{}, repo.db.err()
}

func (repo *questionRepository) RecordReask(context.Context, string, string, time.Time) (question.Question, error) {
	return question.Question{}, repo.db.err()
}

func (repo *questionRepository) Get(context.Context, string) (question.Question, error) {
	return question.Question{}, repo.db.err()
}

func (repo *questionRepository) UpdateVotes(context.Context, string, func(q *question.Question) error) (question.Question, error) {
	return question.Question{}, repo.db.err()
}

func (repo *questionRepository) Query(context.Context, question.QueryFilter) ([]question.Question, error) {
	return nil, repo.db.err()
}

func (repo *questionRepository) DeleteUnowned(context.Context) (int64, error) {
	return 0, repo.db.err()
}
