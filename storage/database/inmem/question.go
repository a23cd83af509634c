package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
)

type questionRepository struct {
	db *questionTable
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) *questionRepository {
	return &questionRepository{db: db.question}
}

// copyOf returns a copy of q that does not share its ledger.
func copyOf(q *question.Question) question.Question {
	c := *q
	c.Votes = q.Votes.Clone()
	if q.AccuracyRating != nil {
		r := *q.AccuracyRating
		c.AccuracyRating = &r
	}
	return c
}

func (repo *questionRepository) query() []question.Question {
	questions := make([]question.Question, 0, len(repo.db.table))
	for _, q := range repo.db.table {
		questions = append(questions, copyOf(q))
	}
	return questions
}

func (repo *questionRepository) Create(_ context.Context, q question.Question) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q.ID = uuid.NewString()
	q.Version = 1
	stored := copyOf(&q)
	repo.db.table[q.ID] = &stored
	return copyOf(&stored), nil
}

func (repo *questionRepository) FindAsked(_ context.Context, text string, subject question.Subject, askedBy string) (question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, q := range repo.db.table {
		if q.Text == text && q.Subject == subject && q.AskedBy == askedBy {
			return copyOf(q), nil
		}
	}
	return question.Question{}, question.ErrNotFound
}

func (repo *questionRepository) RecordReask(_ context.Context, id, answer string, at time.Time) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q, ok := repo.db.table[id]
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	q.AskCount++
	q.Answer = answer
	q.AskedAt = at
	q.UpdatedAt = at
	q.Version++
	return copyOf(q), nil
}

func (repo *questionRepository) Get(_ context.Context, id string) (question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.table[id]; ok {
		return copyOf(q), nil
	}
	return question.Question{}, question.ErrNotFound
}

func (repo *questionRepository) UpdateVotes(_ context.Context, id string, mutate func(q *question.Question) error) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[id]
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	q := copyOf(stored)
	if err := mutate(&q); err != nil {
		return question.Question{}, err
	}
	stored.Votes = q.Votes.Clone()
	stored.Upvotes = q.Upvotes
	stored.UpdatedAt = time.Now().UTC()
	stored.Version++
	return copyOf(stored), nil
}

func (repo *questionRepository) Query(_ context.Context, filter question.QueryFilter) ([]question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var questions []question.Question
	for _, q := range repo.query() {
		if matches(q, filter) {
			questions = append(questions, q)
		}
	}
	sortQuestions(questions, filter.Orderings)
	return paginate(questions, filter.Skip, filter.Limit), nil
}

func (repo *questionRepository) DeleteUnowned(_ context.Context) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int64
	for id, q := range repo.db.table {
		if q.AskedBy == "" {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}

func matches(q question.Question, filter question.QueryFilter) bool {
	switch {
	case filter.Subject != "" && q.Subject != filter.Subject:
		return false
	case filter.AskedBy != "" && q.AskedBy != filter.AskedBy:
		return false
	case filter.ExcludeAsker != "" && q.AskedBy == filter.ExcludeAsker:
		return false
	case filter.AnsweredOnly && !q.Answered():
		return false
	case filter.FeaturedOnly && !q.Featured():
		return false
	}
	return true
}

func sortQuestions(questions []question.Question, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		orderings = core.Desc(question.FieldAskedAt)
	}
	sort.SliceStable(questions, func(i, j int) bool {
		for _, ord := range orderings {
			c := compareField(questions[i], questions[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareField(a, b question.Question, field string) int {
	switch field {
	case question.FieldAskCount:
		return compareInt(a.AskCount, b.AskCount)
	case question.FieldUpvotes:
		return compareInt(a.Upvotes, b.Upvotes)
	case question.FieldAskedAt:
		return compareTime(a.AskedAt, b.AskedAt)
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func paginate(questions []question.Question, skip, limit int) []question.Question {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(questions) {
		return []question.Question{}
	}
	questions = questions[skip:]
	if limit > 0 && limit < len(questions) {
		questions = questions[:limit]
	}
	return questions
}
