package mongodb

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

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

// windowFilter matches the questions asked or created within w.
func windowFilter(w analytics.Window) bson.M {
	if w.IsZero() {
		return bson.M{}
	}
	between := bson.M{}
	if !w.From.IsZero() {
		between["$gte"] = w.From
	}
	if !w.To.IsZero() {
		between["$lte"] = w.To
	}
	return bson.M{"$or": bson.A{bson.M{"askedAt": between}, bson.M{"createdAt": between}}}
}

func containsFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// netVotesStage adds _net: the ledger total, or the stored upvotes when nobody voted.
func netVotesStage() bson.A {
	return bson.A{
		bson.M{"$addFields": bson.M{
			"_votes": bson.M{"$objectToArray": bson.M{"$ifNull": bson.A{"$votesMap", bson.M{}}}},
		}},
		bson.M{"$addFields": bson.M{
			"_net": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{bson.M{"$size": "$_votes"}, 0}},
				bson.M{"$sum": bson.M{"$map": bson.M{
					"input": "$_votes",
					"as":    "v",
					"in": bson.M{"$switch": bson.M{
						"branches": bson.A{
							bson.M{"case": bson.M{"$eq": bson.A{"$$v.v", "up"}}, "then": 1},
							bson.M{"case": bson.M{"$eq": bson.A{"$$v.v", "down"}}, "then": -1},
						},
						"default": 0,
					}},
				}}},
				bson.M{"$ifNull": bson.A{"$upvotes", 0}},
			}},
		}},
	}
}

func (repo *statsRepository) aggregate(ctx context.Context, pipeline bson.A, results interface{}, msg string) error {
	cur, err := repo.db.questions().Aggregate(ctx, pipeline)
	if err != nil {
		return storageErr(err, msg)
	}
	return storageErr(cur.All(ctx, results), msg)
}

func (repo *statsRepository) CountActiveAskers(ctx context.Context, w analytics.Window) (int, error) {
	askers, err := repo.db.questions().Distinct(ctx, "askedBy", bson.M{"$and": bson.A{
		bson.M{"askedBy": bson.M{"$nin": bson.A{nil, ""}}},
		windowFilter(w),
	}})
	if err != nil {
		return 0, storageErr(err, "counting active askers")
	}
	return len(askers), nil
}

func (repo *statsRepository) AverageAccuracy(ctx context.Context, w analytics.Window) (float64, error) {
	var rows []struct {
		Avg float64 `bson:"avg"`
	}
	err := repo.aggregate(ctx, bson.A{
		bson.M{"$match": bson.M{"$and": bson.A{
			bson.M{"accuracyRating": bson.M{"$type": "number"}},
			windowFilter(w),
		}}},
		bson.M{"$group": bson.M{"_id": nil, "avg": bson.M{"$avg": "$accuracyRating"}}},
	}, &rows, "averaging accuracy")
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return rows[0].Avg, nil
}

func (repo *statsRepository) TopTopics(ctx context.Context, f analytics.Filter, limit int) ([]analytics.TopicCount, error) {
	match := bson.A{bson.M{"topic": bson.M{"$nin": bson.A{nil, ""}}}, windowFilter(f.Window)}
	if f.Subject != "" {
		match = append(match, bson.M{"subject": string(f.Subject)})
	}
	if f.Search != "" {
		match = append(match, bson.M{"topic": containsFold(f.Search)})
	}
	pipeline := bson.A{
		bson.M{"$match": bson.M{"$and": match}},
		bson.M{"$group": bson.M{"_id": "$topic", "count": bson.M{"$sum": 1}}},
		bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.M{"$limit": limit})
	}

	var rows []struct {
		Topic string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := repo.aggregate(ctx, pipeline, &rows, "finding top topics"); err != nil {
		return nil, err
	}
	topics := make([]analytics.TopicCount, 0, len(rows))
	for _, r := range rows {
		topics = append(topics, analytics.TopicCount{Topic: r.Topic, StudentCount: r.Count})
	}
	return topics, nil
}

func (repo *statsRepository) CountBySubject(ctx context.Context, w analytics.Window) ([]analytics.SubjectCount, error) {
	var rows []struct {
		Name  string `bson:"_id"`
		Count int    `bson:"count"`
	}
	err := repo.aggregate(ctx, bson.A{
		bson.M{"$match": bson.M{"$and": bson.A{answeredFilter(), windowFilter(w)}}},
		bson.M{"$group": bson.M{"_id": "$subject", "count": bson.M{"$sum": 1}}},
		bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
	}, &rows, "counting questions by subject")
	if err != nil {
		return nil, err
	}
	counts := make([]analytics.SubjectCount, 0, len(rows))
	for _, r := range rows {
		counts = append(counts, analytics.SubjectCount{Name: r.Name, Count: r.Count})
	}
	return counts, nil
}

// topQuestionsMatch selects answered in-window questions; the search term
// matches the question text only.
func topQuestionsMatch(f analytics.Filter) bson.M {
	match := bson.A{answeredFilter(), windowFilter(f.Window)}
	if f.Subject != "" {
		match = append(match, bson.M{"subject": string(f.Subject)})
	}
	if f.Search != "" {
		match = append(match, bson.M{"text": containsFold(f.Search)})
	}
	return bson.M{"$and": match}
}

func (repo *statsRepository) TopQuestions(ctx context.Context, f analytics.Filter, limit int) ([]question.Question, error) {
	pipeline := bson.A{bson.M{"$match": topQuestionsMatch(f)}}
	pipeline = append(pipeline, netVotesStage()...)
	pipeline = append(pipeline,
		bson.M{"$sort": bson.D{{Key: "askCount", Value: -1}, {Key: "_net", Value: -1}, {Key: "askedAt", Value: -1}}},
	)
	if limit > 0 {
		pipeline = append(pipeline, bson.M{"$limit": limit})
	}
	pipeline = append(pipeline, bson.M{"$project": bson.M{"_votes": 0, "_net": 0}})

	var docs []questionDoc
	if err := repo.aggregate(ctx, pipeline, &docs, "finding top questions"); err != nil {
		return nil, err
	}
	questions := make([]question.Question, 0, len(docs))
	for _, d := range docs {
		questions = append(questions, d.toQuestion())
	}
	return questions, nil
}
