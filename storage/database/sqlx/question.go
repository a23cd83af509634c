package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/vote"
)

type questionRow struct {
	ID             string      `db:"id"`
	Text           string      `db:"text"`
	Subject        string      `db:"subject"`
	Topic          null.String `db:"topic"`
	Answer         string      `db:"answer"`
	AskCount       int         `db:"ask_count"`
	Upvotes        int         `db:"upvotes"`
	AskedBy        null.String `db:"asked_by"`
	AskedAt        time.Time   `db:"asked_at"`
	AccuracyRating null.Int    `db:"accuracy_rating"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
	Version        int64       `db:"version"`
}

var questionColumns = []string{
	"id", "text", "subject", "topic", "answer", "ask_count", "upvotes", "asked_by",
	"asked_at", "accuracy_rating", "created_at", "updated_at", "version",
}

func (r questionRow) toQuestion(votes vote.Ledger) question.Question {
	q := question.Question{
		ID:        r.ID,
		Text:      r.Text,
		Subject:   question.Subject(r.Subject),
		Topic:     r.Topic.String,
		Answer:    r.Answer,
		AskCount:  r.AskCount,
		Votes:     votes,
		Upvotes:   r.Upvotes,
		AskedBy:   r.AskedBy.String,
		AskedAt:   r.AskedAt.UTC(),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Version:   r.Version,
	}
	if q.Votes == nil {
		q.Votes = vote.Ledger{}
	}
	if r.AccuracyRating.Valid {
		rating := r.AccuracyRating.Int
		q.AccuracyRating = &rating
	}
	return q
}

// askedBy is the asked_by predicate value: guests and seeds are stored as NULL.
func askedBy(uid string) interface{} {
	if uid == "" {
		return nil
	}
	return uid
}

type voteRow struct {
	QuestionID string `db:"question_id"`
	Voter      string `db:"voter"`
	Direction  string `db:"direction"`
}

type questionRepository struct {
	db *sqlx.DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *sqlx.DB) *questionRepository {
	return &questionRepository{db: db}
}

// loadVotes returns the ledgers of the given questions, keyed by question id.
func loadVotes(ctx context.Context, q sqlx.QueryerContext, ids ...string) (map[string]vote.Ledger, error) {
	ledgers := make(map[string]vote.Ledger, len(ids))
	if len(ids) == 0 {
		return ledgers, nil
	}
	var rows []voteRow
	b := psql.Select("question_id", "voter", "direction").From("question_vote").Where(sq.Eq{"question_id": ids})
	if err := selectx(ctx, q, &rows, b); err != nil {
		return nil, err
	}
	for _, r := range rows {
		d, err := vote.ParseDirection(r.Direction)
		if err != nil || d == vote.None {
			continue
		}
		if ledgers[r.QuestionID] == nil {
			ledgers[r.QuestionID] = vote.Ledger{}
		}
		ledgers[r.QuestionID][r.Voter] = d
	}
	return ledgers, nil
}

func (repo *questionRepository) withVotes(ctx context.Context, rows []questionRow) ([]question.Question, error) {
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

func (repo *questionRepository) one(ctx context.Context, b sq.SelectBuilder) (question.Question, error) {
	var row questionRow
	if err := getx(ctx, repo.db, &row, b); err != nil {
		if err == sql.ErrNoRows {
			return question.Question{}, question.ErrNotFound
		}
		return question.Question{}, storageErr(err, "selecting question")
	}
	questions, err := repo.withVotes(ctx, []questionRow{row})
	if err != nil {
		return question.Question{}, err
	}
	return questions[0], nil
}

func (repo *questionRepository) Create(ctx context.Context, q question.Question) (question.Question, error) {
	q.ID = uuid.NewString()
	q.Version = 1

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return question.Question{}, storageErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var rating null.Int
	if q.AccuracyRating != nil {
		rating = null.IntFrom(*q.AccuracyRating)
	}
	_, err = execx(ctx, tx, psql.Insert("question").Columns(questionColumns...).Values(
		q.ID, q.Text, string(q.Subject), null.NewString(q.Topic, q.Topic != ""), q.Answer, q.AskCount, q.Upvotes,
		askedBy(q.AskedBy), q.AskedAt, rating, q.CreatedAt, q.UpdatedAt, q.Version,
	))
	if err != nil {
		return question.Question{}, storageErr(err, "inserting question")
	}
	if err = saveVotes(ctx, tx, q.ID, vote.Diff(nil, q.Votes)); err != nil {
		return question.Question{}, err
	}
	if err = tx.Commit(); err != nil {
		return question.Question{}, storageErr(err, "committing question")
	}
	q.Votes = q.Votes.Clone()
	return q, nil
}

func (repo *questionRepository) FindAsked(ctx context.Context, text string, subject question.Subject, uid string) (question.Question, error) {
	return repo.one(ctx, psql.Select(questionColumns...).From("question").
		Where(sq.Eq{"text": text, "subject": string(subject), "asked_by": askedBy(uid)}).
		OrderBy("created_at").
		Limit(1))
}

func (repo *questionRepository) RecordReask(ctx context.Context, id, answer string, at time.Time) (question.Question, error) {
	if _, err := uuid.Parse(id); err != nil {
		return question.Question{}, question.ErrNotFound
	}
	var row questionRow
	b := psql.Update("question").
		Set("ask_count", sq.Expr("ask_count + 1")).
		Set("answer", answer).
		Set("asked_at", at).
		Set("updated_at", at).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + columnList())
	if err := getx(ctx, repo.db, &row, b); err != nil {
		if err == sql.ErrNoRows {
			return question.Question{}, question.ErrNotFound
		}
		return question.Question{}, storageErr(err, "recording re-ask")
	}
	questions, err := repo.withVotes(ctx, []questionRow{row})
	if err != nil {
		return question.Question{}, err
	}
	return questions[0], nil
}

func (repo *questionRepository) Get(ctx context.Context, id string) (question.Question, error) {
	if _, err := uuid.Parse(id); err != nil {
		return question.Question{}, question.ErrNotFound
	}
	return repo.one(ctx, psql.Select(questionColumns...).From("question").Where(sq.Eq{"id": id}))
}

// UpdateVotes locks the question row for the duration of the read-modify-write.
func (repo *questionRepository) UpdateVotes(ctx context.Context, id string, mutate func(q *question.Question) error) (question.Question, error) {
	if _, err := uuid.Parse(id); err != nil {
		return question.Question{}, question.ErrNotFound
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return question.Question{}, storageErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var row questionRow
	err = getx(ctx, tx, &row, psql.Select(questionColumns...).From("question").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
	switch {
	case err == sql.ErrNoRows:
		return question.Question{}, question.ErrNotFound
	case err != nil:
		return question.Question{}, storageErr(err, "locking question")
	}
	ledgers, err := loadVotes(ctx, tx, id)
	if err != nil {
		return question.Question{}, storageErr(err, "loading votes")
	}

	q := row.toQuestion(ledgers[id])
	before := q.Votes.Clone()
	if err = mutate(&q); err != nil {
		return question.Question{}, err
	}
	if err = saveVotes(ctx, tx, id, vote.Diff(before, q.Votes)); err != nil {
		return question.Question{}, err
	}

	q.UpdatedAt = time.Now().UTC()
	q.Version++
	_, err = execx(ctx, tx, psql.Update("question").
		Set("upvotes", q.Upvotes).
		Set("updated_at", q.UpdatedAt).
		Set("version", q.Version).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return question.Question{}, storageErr(err, "updating upvotes")
	}
	if err = tx.Commit(); err != nil {
		return question.Question{}, storageErr(err, "committing votes")
	}
	return q, nil
}

// saveVotes applies the ledger changes of one question.
func saveVotes(ctx context.Context, tx *sqlx.Tx, id string, changes []vote.Change) error {
	for _, c := range changes {
		var b sq.Sqlizer
		if c.To == vote.None {
			b = psql.Delete("question_vote").Where(sq.Eq{"question_id": id, "voter": c.Voter})
		} else {
			b = psql.Insert("question_vote").
				Columns("question_id", "voter", "direction").
				Values(id, c.Voter, string(c.To)).
				Suffix("ON CONFLICT (question_id, voter) DO UPDATE SET direction = EXCLUDED.direction")
		}
		if _, err := execx(ctx, tx, b); err != nil {
			return storageErr(err, "saving vote")
		}
	}
	return nil
}

func (repo *questionRepository) Query(ctx context.Context, filter question.QueryFilter) ([]question.Question, error) {
	b := psql.Select(questionColumns...).From("question").Where(queryPredicate(filter))
	for _, ord := range orderings(filter.Orderings) {
		b = b.OrderBy(ord.String())
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	if filter.Skip > 0 {
		b = b.Offset(uint64(filter.Skip))
	}

	var rows []questionRow
	if err := selectx(ctx, repo.db, &rows, b); err != nil {
		return nil, storageErr(err, "querying questions")
	}
	return repo.withVotes(ctx, rows)
}

func queryPredicate(filter question.QueryFilter) sq.And {
	pred := sq.And{}
	if filter.Subject != "" {
		pred = append(pred, sq.Eq{"subject": string(filter.Subject)})
	}
	if filter.AskedBy != "" {
		pred = append(pred, sq.Eq{"asked_by": filter.AskedBy})
	}
	if filter.ExcludeAsker != "" {
		pred = append(pred, sq.Or{sq.Eq{"asked_by": nil}, sq.NotEq{"asked_by": filter.ExcludeAsker}})
	}
	if filter.AnsweredOnly {
		pred = append(pred, sq.NotEq{"answer": ""})
	}
	if filter.FeaturedOnly {
		pred = append(pred, sq.Or{
			sq.GtOrEq{"upvotes": question.FeaturedMinUpvotes},
			sq.GtOrEq{"ask_count": question.FeaturedMinAskCount},
		})
	}
	return pred
}

// orderings keeps the known columns, defaulting to the most recent first.
func orderings(ords []core.DBOrdering) []core.DBOrdering {
	known := map[string]bool{question.FieldAskedAt: true, question.FieldAskCount: true, question.FieldUpvotes: true}
	out := make([]core.DBOrdering, 0, len(ords))
	for _, ord := range ords {
		if known[ord.Field] {
			out = append(out, ord)
		}
	}
	if len(out) == 0 {
		out = core.Desc(question.FieldAskedAt)
	}
	return out
}

func (repo *questionRepository) DeleteUnowned(ctx context.Context) (int64, error) {
	res, err := execx(ctx, repo.db, psql.Delete("question").Where(sq.Eq{"asked_by": nil}))
	if err != nil {
		return 0, storageErr(err, "deleting unowned questions")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting deleted questions")
}

func columnList() string {
	return strings.Join(questionColumns, ", ")
}
