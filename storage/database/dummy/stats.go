package dummydb

import (
	"context"

	"github.com/homeworkhelper/api/core/analytics"
	"github.com/homeworkhelper/api/core/question"
)

type statsRepository struct {
	db *DB
}

var _ analytics.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) CountActiveAskers(context.Context, analytics.Window) (int, error) {
	return 0, repo.db.err()
}

func (repo *statsRepository) AverageAccuracy(context.Context, analytics.Window) (float64, error) {
	return 0, repo.db.err()
}

func (repo *statsRepository) TopTopics(context.Context, analytics.Filter, int) ([]analytics.TopicCount, error) {
	return nil, repo.db.err()
}

func (repo *statsRepository) CountBySubject(context.Context, analytics.Window) ([]analytics.SubjectCount, error) {
	return nil, repo.db.err()
}

func (repo *statsRepository) TopQuestions(context.Context, analytics.Filter, int) ([]question.Question, error) {
	return nil, repo.db.err()
}
