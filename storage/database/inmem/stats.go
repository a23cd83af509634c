package inmemdb

import (
	"context"
	"sort"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/analytics"
	"github.com/homeworkhelper/api/core/question"
)

type statsRepository struct {
	db *questionTable
}

var _ analytics.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) *statsRepository {
	return &statsRepository{db: db.question}
}

// each calls fn on every in-window question.
func (repo *statsRepository) each(w analytics.Window, fn func(q *question.Question)) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, q := range repo.db.table {
		if w.Includes(*q) {
			fn(q)
		}
	}
}

func (repo *statsRepository) CountActiveAskers(_ context.Context, w analytics.Window) (int, error) {
	askers := make(map[string]struct{})
	repo.each(w, func(q *question.Question) {
		if q.AskedBy != "" {
			askers[q.AskedBy] = struct{}{}
		}
	})
	return len(askers), nil
}

func (repo *statsRepository) AverageAccuracy(_ context.Context, w analytics.Window) (float64, error) {
	var sum, n int
	repo.each(w, func(q *question.Question) {
		if q.AccuracyRating != nil {
			sum += *q.AccuracyRating
			n++
		}
	})
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}

func (repo *statsRepository) TopTopics(_ context.Context, f analytics.Filter, limit int) ([]analytics.TopicCount, error) {
	counts := make(map[string]int)
	repo.each(f.Window, func(q *question.Question) {
		if q.Topic == "" || (f.Subject != "" && q.Subject != f.Subject) {
			return
		}
		if f.Search != "" && !core.ContainsFold(q.Topic, f.Search) {
			return
		}
		counts[q.Topic]++
	})

	topics := make([]analytics.TopicCount, 0, len(counts))
	for topic, n := range counts {
		topics = append(topics, analytics.TopicCount{Topic: topic, StudentCount: n})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].StudentCount != topics[j].StudentCount {
			return topics[i].StudentCount > topics[j].StudentCount
		}
		return topics[i].Topic < topics[j].Topic
	})
	if limit > 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics, nil
}

func (repo *statsRepository) CountBySubject(_ context.Context, w analytics.Window) ([]analytics.SubjectCount, error) {
	counts := make(map[question.Subject]int)
	repo.each(w, func(q *question.Question) {
		if q.Answered() {
			counts[q.Subject]++
		}
	})

	subjects := make([]analytics.SubjectCount, 0, len(counts))
	for subj, n := range counts {
		subjects = append(subjects, analytics.SubjectCount{Name: string(subj), Count: n})
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Count != subjects[j].Count {
			return subjects[i].Count > subjects[j].Count
		}
		return subjects[i].Name < subjects[j].Name
	})
	return subjects, nil
}

func (repo *statsRepository) TopQuestions(_ context.Context, f analytics.Filter, limit int) ([]question.Question, error) {
	var questions []question.Question
	repo.each(f.Window, func(q *question.Question) {
		if !q.Answered() || (f.Subject != "" && q.Subject != f.Subject) {
			return
		}
		if f.Search != "" && !core.ContainsFold(q.Text, f.Search) {
			return
		}
		questions = append(questions, copyOf(q))
	})

	sort.SliceStable(questions, func(i, j int) bool {
		a, b := questions[i], questions[j]
		if a.AskCount != b.AskCount {
			return a.AskCount > b.AskCount
		}
		if an, bn := a.NetVotes(), b.NetVotes(); an != bn {
			return an > bn
		}
		return a.AskedAt.After(b.AskedAt)
	})
	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}
