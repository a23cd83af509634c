package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/homeworkhelper/api/core/analytics"
	"github.com/homeworkhelper/api/core/question"
)

// netVotes is the display score of a question row joined with its vote totals.
const netVotes = "CASE WHEN COALESCE(v.n, 0) > 0 THEN v.net ELSE q.upvotes END"

const voteTotals = `(SELECT question_id, COUNT(*) AS n,
	SUM(CASE WHEN direction = 'up' THEN 1 ELSE -1 END) AS net
	FROM question_vote GROUP BY question_id) v ON v.question_id = q.id`

type statsRepository struct {
	db *sqlx.DB
}

var _ analytics.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *sqlx.DB) *statsRepository {
	return &statsRepository{db: db}
}

// inWindow matches the questions asked or created within w.
func inWindow(w analytics.Window, prefix string) sq.Sqlizer {
	if w.IsZero() {
		return sq.And{}
	}
	between := func(col string) sq.And {
		pred := sq.And{}
		if !w.From.IsZero() {
			pred = append(pred, sq.GtOrEq{prefix + col: w.From})
		}
		if !w.To.IsZero() {
			pred = append(pred, sq.LtOrEq{prefix + col: w.To})
		}
		return pred
	}
	return sq.Or{between("asked_at"), between("created_at")}
}

func (repo *statsRepository) CountActiveAskers(ctx context.Context, w analytics.Window) (int, error) {
	var n int
	err := getx(ctx, repo.db, &n, psql.Select("COUNT(DISTINCT asked_by)").From("question").Where(sq.And{
		sq.NotEq{"asked_by": nil},
		sq.NotEq{"asked_by": ""},
		inWindow(w, ""),
	}))
	return n, storageErr(err, "counting active askers")
}

func (repo *statsRepository) AverageAccuracy(ctx context.Context, w analytics.Window) (float64, error) {
	var avg float64
	err := getx(ctx, repo.db, &avg, psql.Select("COALESCE(AVG(accuracy_rating), 0)").From("question").Where(sq.And{
		sq.NotEq{"accuracy_rating": nil},
		inWindow(w, ""),
	}))
	return avg, storageErr(err, "averaging accuracy")
}

func (repo *statsRepository) TopTopics(ctx context.Context, f analytics.Filter, limit int) ([]analytics.TopicCount, error) {
	pred := sq.And{sq.NotEq{"topic": nil}, sq.NotEq{"topic": ""}, inWindow(f.Window, "")}
	if f.Subject != "" {
		pred = append(pred, sq.Eq{"subject": string(f.Subject)})
	}
	if f.Search != "" {
		pred = append(pred, sq.ILike{"topic": likePattern(f.Search)})
	}

	var topics []analytics.TopicCount
	b := psql.Select("topic", "COUNT(*) AS student_count").From("question").
		Where(pred).
		GroupBy("topic").
		OrderBy("student_count DESC", "topic ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	var rows []struct {
		Topic        string `db:"topic"`
		StudentCount int    `db:"student_count"`
	}
	if err := selectx(ctx, repo.db, &rows, b); err != nil {
		return nil, storageErr(err, "finding top topics")
	}
	topics = make([]analytics.TopicCount, 0, len(rows))
	for _, r := range rows {
		topics = append(topics, analytics.TopicCount{Topic: r.Topic, StudentCount: r.StudentCount})
	}
	return topics, nil
}

func (repo *statsRepository) CountBySubject(ctx context.Context, w analytics.Window) ([]analytics.SubjectCount, error) {
	var rows []struct {
		Name  string `db:"name"`
		Count int    `db:"count"`
	}
	b := psql.Select("subject AS name", "COUNT(*) AS count").From("question").
		Where(sq.And{sq.NotEq{"answer": ""}, inWindow(w, "")}).
		GroupBy("subject").
		OrderBy("count DESC", "name ASC")
	if err := selectx(ctx, repo.db, &rows, b); err != nil {
		return nil, storageErr(err, "counting questions by subject")
	}
	counts := make([]analytics.SubjectCount, 0, len(rows))
	for _, r := range rows {
		counts = append(counts, analytics.SubjectCount{Name: r.Name, Count: r.Count})
	}
	return counts, nil
}

// topQuestionsPredicate selects answered in-window questions; the search term
// matches the question text only.
func topQuestionsPredicate(f analytics.Filter) sq.And {
	pred := sq.And{sq.NotEq{"q.answer": ""}, inWindow(f.Window, "q.")}
	if f.Subject != "" {
		pred = append(pred, sq.Eq{"q.subject": string(f.Subject)})
	}
	if f.Search != "" {
		pred = append(pred, sq.ILike{"q.text": likePattern(f.Search)})
	}
	return pred
}

func (repo *statsRepository) TopQuestions(ctx context.Context, f analytics.Filter, limit int) ([]question.Question, error) {
	pred := topQuestionsPredicate(f)

	cols := make([]string, 0, len(questionColumns))
	for _, c := range questionColumns {
		cols = append(cols, "q."+c)
	}
	b := psql.Select(cols...).From("question q").
		LeftJoin(voteTotals).
		Where(pred).
		OrderBy("q.ask_count DESC", netVotes+" DESC", "q.asked_at DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	var rows []questionRow
	if err := selectx(ctx, repo.db, &rows, b); err != nil {
		return nil, storageErr(err, "finding top questions")
	}
	ledgers, err := loadVotes(ctx, repo.db, rowIDs(rows)...)
	if err != nil {
		return nil, storageErr(err, "loading votes")
	}
	questions := make([]question.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.toQuestion(ledgers[r.ID]))
	}
	return questions, nil
}

func rowIDs(rows []questionRow) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}
