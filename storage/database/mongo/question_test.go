package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/analytics"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/vote"
)

func TestQuestionDoc_legacyDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	askedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	raw, err := bson.Marshal(bson.M{
		"_id":      oid,
		"text":     "What is a verb?",
		"subject":  "English",
		"answer":   "A doing word.",
		"askCount": 4,
		"upvotes":  7,
		"votesMap": bson.M{"u1": "up", "u2": "down", "u3": "sideways", "u4": 1},
		"askedBy":  nil,
		"askedAt":  askedAt,
	})
	require.NoError(t, err)

	var doc questionDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	q := doc.toQuestion()

	assert.Equal(t, oid.Hex(), q.ID)
	assert.Equal(t, question.English, q.Subject)
	assert.Equal(t, "A doing word.", q.Answer, "the legacy answer field is read")
	assert.Equal(t, vote.Ledger{"u1": vote.Up, "u2": vote.Down}, q.Votes)
	assert.Equal(t, 0, q.NetVotes())
	assert.Empty(t, q.AskedBy)
	assert.Equal(t, askedAt, q.AskedAt)
	assert.Zero(t, q.Version)
}

func TestQuestionDoc_roundTrip(t *testing.T) {
	rating := 88
	now := time.Now().UTC().Truncate(time.Millisecond)
	q := question.Question{
		Text:           "What is photosynthesis?",
		Subject:        question.Science,
		Topic:          "Biology",
		Answer:         "Light to chemical energy.",
		AskCount:       2,
		Votes:          vote.Ledger{"u1": vote.Up},
		Upvotes:        1,
		AskedBy:        "u9",
		AskedAt:        now,
		AccuracyRating: &rating,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        3,
	}

	raw, err := bson.Marshal(newQuestionDoc(q))
	require.NoError(t, err)
	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, q.Answer, m["aiResponse"])
	assert.Equal(t, q.Answer, m["answer"])
	assert.NotContains(t, m, "_id")

	var doc questionDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.toQuestion()
	got.ID = ""
	assert.Equal(t, q, got)
}

func TestQueryFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, queryFilter(question.QueryFilter{}))

	f := queryFilter(question.QueryFilter{Subject: question.Math, ExcludeAsker: "u1", FeaturedOnly: true})
	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{"subject": "Math"},
		bson.M{"askedBy": bson.M{"$ne": "u1"}},
		bson.M{"$or": bson.A{
			bson.M{"upvotes": bson.M{"$gte": question.FeaturedMinUpvotes}},
			bson.M{"askCount": bson.M{"$gte": question.FeaturedMinAskCount}},
		}},
	}}, f)
}

func TestSortDoc(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "askedAt", Value: -1}}, sortDoc(nil))
	assert.Equal(t,
		bson.D{{Key: "upvotes", Value: -1}, {Key: "askCount", Value: 1}},
		sortDoc([]core.DBOrdering{{Field: question.FieldUpvotes}, {Field: "bogus"}, {Field: question.FieldAskCount, Ascending: true}}),
	)
}

func TestWindowFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, windowFilter(analytics.Window{}))

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	between := bson.M{"$gte": from, "$lte": to}
	assert.Equal(t,
		bson.M{"$or": bson.A{bson.M{"askedAt": between}, bson.M{"createdAt": between}}},
		windowFilter(analytics.Window{From: from, To: to}),
	)
}

func TestTopQuestionsMatch(t *testing.T) {
	assert.Equal(t,
		bson.M{"$and": bson.A{answeredFilter(), bson.M{}}},
		topQuestionsMatch(analytics.Filter{}),
	)
	assert.Equal(t,
		bson.M{"$and": bson.A{
			answeredFilter(),
			bson.M{},
			bson.M{"subject": "Math"},
			bson.M{"text": containsFold("deriv")},
		}},
		topQuestionsMatch(analytics.Filter{Subject: question.Math, Search: "deriv"}),
		"questions are searched by text only",
	)
}

func TestVersionFilter(t *testing.T) {
	assert.Equal(t, bson.M{"version": int64(4)}, versionFilter(4))
	assert.Contains(t, versionFilter(0), "$or")
}

func TestContainsFold(t *testing.T) {
	re := containsFold("a+b (c)")
	assert.Equal(t, `a\+b \(c\)`, re.Pattern)
	assert.Equal(t, "i", re.Options)
}
