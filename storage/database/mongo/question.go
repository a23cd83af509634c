package mongodb

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/vote"
)

// maxVoteAttempts bounds the optimistic retries of a contended vote.
const maxVoteAttempts = 10

var errVersionConflict = errors.New("question changed concurrently")

type questionDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Text           string             `bson:"text"`
	Subject        string             `bson:"subject"`
	Topic          string             `bson:"topic,omitempty"`
	AIResponse     string             `bson:"aiResponse,omitempty"`
	Answer         string             `bson:"answer,omitempty"` // legacy alias of aiResponse
	AskCount       int                `bson:"askCount"`
	Upvotes        int                `bson:"upvotes"`
	VotesMap       bson.M             `bson:"votesMap"`
	AskedBy        string             `bson:"askedBy,omitempty"`
	AskedAt        time.Time          `bson:"askedAt"`
	AccuracyRating *int               `bson:"accuracyRating,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
	Version        int64              `bson:"version"`
}

func newQuestionDoc(q question.Question) questionDoc {
	return questionDoc{
		Text:           q.Text,
		Subject:        string(q.Subject),
		Topic:          q.Topic,
		AIResponse:     q.Answer,
		Answer:         q.Answer,
		AskCount:       q.AskCount,
		Upvotes:        q.Upvotes,
		VotesMap:       votesMap(q.Votes),
		AskedBy:        q.AskedBy,
		AskedAt:        q.AskedAt,
		AccuracyRating: q.AccuracyRating,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
		Version:        q.Version,
	}
}

func (d questionDoc) toQuestion() question.Question {
	answer := d.AIResponse
	if answer == "" {
		answer = d.Answer
	}
	subject, ok := question.ParseSubject(d.Subject)
	if !ok {
		subject = question.Other
	}
	return question.Question{
		ID:             d.ID.Hex(),
		Text:           d.Text,
		Subject:        subject,
		Topic:          d.Topic,
		Answer:         answer,
		AskCount:       d.AskCount,
		Votes:          vote.FromRaw(d.VotesMap),
		Upvotes:        d.Upvotes,
		AskedBy:        d.AskedBy,
		AskedAt:        d.AskedAt.UTC(),
		AccuracyRating: d.AccuracyRating,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
		Version:        d.Version,
	}
}

func votesMap(l vote.Ledger) bson.M {
	m := bson.M{}
	for voter, d := range l.Strings() {
		m[voter] = d
	}
	return m
}

// askedByFilter matches the asker; guests and seeds have no askedBy.
func askedByFilter(uid string) interface{} {
	if uid == "" {
		return bson.M{"$in": bson.A{nil, ""}}
	}
	return uid
}

// answeredFilter matches questions with a non-empty answer in either field.
func answeredFilter() bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"aiResponse": bson.M{"$nin": bson.A{nil, ""}}},
		bson.M{"answer": bson.M{"$nin": bson.A{nil, ""}}},
	}}
}

// versionFilter matches the document version read; documents written before
// versioning have none.
func versionFilter(version int64) bson.M {
	if version == 0 {
		return bson.M{"$or": bson.A{bson.M{"version": bson.M{"$exists": false}}, bson.M{"version": 0}}}
	}
	return bson.M{"version": version}
}

type questionRepository struct {
	db *DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) *questionRepository {
	return &questionRepository{db: db}
}

func (repo *questionRepository) findOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (questionDoc, error) {
	var doc questionDoc
	err := repo.db.questions().FindOne(ctx, filter, opts...).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return questionDoc{}, question.ErrNotFound
	case err != nil:
		return questionDoc{}, storageErr(err, "finding question")
	}
	return doc, nil
}

func (repo *questionRepository) Create(ctx context.Context, q question.Question) (question.Question, error) {
	q.Version = 1
	if q.Votes == nil {
		q.Votes = vote.Ledger{}
	}
	res, err := repo.db.questions().InsertOne(ctx, newQuestionDoc(q))
	if err != nil {
		return question.Question{}, storageErr(err, "inserting question")
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return question.Question{}, errors.Errorf("unexpected inserted id %v", res.InsertedID)
	}
	q.ID = oid.Hex()
	q.Votes = q.Votes.Clone()
	return q, nil
}

func (repo *questionRepository) FindAsked(ctx context.Context, text string, subject question.Subject, askedBy string) (question.Question, error) {
	doc, err := repo.findOne(ctx,
		bson.M{"text": text, "subject": string(subject), "askedBy": askedByFilter(askedBy)},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return question.Question{}, err
	}
	return doc.toQuestion(), nil
}

func (repo *questionRepository) RecordReask(ctx context.Context, id, answer string, at time.Time) (question.Question, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return question.Question{}, question.ErrNotFound
	}
	var doc questionDoc
	err = repo.db.questions().FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$inc": bson.M{"askCount": 1, "version": 1},
			"$set": bson.M{"aiResponse": answer, "answer": answer, "askedAt": at, "updatedAt": at},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return question.Question{}, question.ErrNotFound
	case err != nil:
		return question.Question{}, storageErr(err, "recording re-ask")
	}
	return doc.toQuestion(), nil
}

func (repo *questionRepository) Get(ctx context.Context, id string) (question.Question, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return question.Question{}, question.ErrNotFound
	}
	doc, err := repo.findOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return question.Question{}, err
	}
	return doc.toQuestion(), nil
}

// UpdateVotes writes the mutated ledger only if the document version is the
// one read, retrying the whole read-modify-write when another writer won.
func (repo *questionRepository) UpdateVotes(ctx context.Context, id string, mutate func(q *question.Question) error) (question.Question, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return question.Question{}, question.ErrNotFound
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	var q question.Question
	err = backoff.Retry(func() error {
		doc, err := repo.findOne(ctx, bson.M{"_id": oid})
		if err != nil {
			return backoff.Permanent(err)
		}
		q = doc.toQuestion()
		if err = mutate(&q); err != nil {
			return backoff.Permanent(err)
		}

		q.UpdatedAt = time.Now().UTC()
		q.Version = doc.Version + 1
		res, err := repo.db.questions().UpdateOne(ctx,
			bson.M{"$and": bson.A{bson.M{"_id": oid}, versionFilter(doc.Version)}},
			bson.M{"$set": bson.M{
				"votesMap":  votesMap(q.Votes),
				"upvotes":   q.Upvotes,
				"updatedAt": q.UpdatedAt,
				"version":   q.Version,
			}},
		)
		if err != nil {
			return backoff.Permanent(storageErr(err, "updating votes"))
		}
		if res.MatchedCount == 0 {
			return errVersionConflict
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(b, maxVoteAttempts-1), ctx))
	if err != nil {
		return question.Question{}, err
	}
	return q, nil
}

func (repo *questionRepository) Query(ctx context.Context, filter question.QueryFilter) ([]question.Question, error) {
	opts := options.Find().SetSort(sortDoc(filter.Orderings))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Skip > 0 {
		opts.SetSkip(int64(filter.Skip))
	}

	cur, err := repo.db.questions().Find(ctx, queryFilter(filter), opts)
	if err != nil {
		return nil, storageErr(err, "querying questions")
	}
	var docs []questionDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, storageErr(err, "decoding questions")
	}
	questions := make([]question.Question, 0, len(docs))
	for _, d := range docs {
		questions = append(questions, d.toQuestion())
	}
	return questions, nil
}

func queryFilter(filter question.QueryFilter) bson.M {
	and := bson.A{}
	if filter.Subject != "" {
		and = append(and, bson.M{"subject": string(filter.Subject)})
	}
	if filter.AskedBy != "" {
		and = append(and, bson.M{"askedBy": filter.AskedBy})
	}
	if filter.ExcludeAsker != "" {
		and = append(and, bson.M{"askedBy": bson.M{"$ne": filter.ExcludeAsker}})
	}
	if filter.AnsweredOnly {
		and = append(and, answeredFilter())
	}
	if filter.FeaturedOnly {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"upvotes": bson.M{"$gte": question.FeaturedMinUpvotes}},
			bson.M{"askCount": bson.M{"$gte": question.FeaturedMinAskCount}},
		}})
	}
	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

var sortFields = map[string]string{
	question.FieldAskedAt:  "askedAt",
	question.FieldAskCount: "askCount",
	question.FieldUpvotes:  "upvotes",
}

func sortDoc(ords []core.DBOrdering) bson.D {
	sort := bson.D{}
	for _, ord := range ords {
		field, ok := sortFields[ord.Field]
		if !ok {
			continue
		}
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	if len(sort) == 0 {
		sort = bson.D{{Key: "askedAt", Value: -1}}
	}
	return sort
}

func (repo *questionRepository) DeleteUnowned(ctx context.Context) (int64, error) {
	res, err := repo.db.questions().DeleteMany(ctx, bson.M{"askedBy": askedByFilter("")})
	if err != nil {
		return 0, storageErr(err, "deleting unowned questions")
	}
	return res.DeletedCount, nil
}
