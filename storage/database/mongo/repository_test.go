package mongodb

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/vote"
	testutil "github.com/homeworkhelper/api/tests"
)

// testDB connects to the MongoDB named by TEST_MONGO_URI and drops the test
// database once done. The test is skipped when no server is configured.
func testDB(t *testing.T) *DB {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" || testing.Short() {
		t.Skip("skipping integration test: TEST_MONGO_URI is not set")
	}

	conf := core.NewTestConfig()
	conf.Database.Engine = core.EngineMongo
	conf.Database.URI = uri

	ctx := context.Background()
	db, err := Open(ctx, conf)
	require.NoError(t, err)
	db.db = db.client.Database("homeworkhelper_test") // whatever the URI names
	require.NoError(t, db.db.Drop(ctx))
	require.NoError(t, db.EnsureIndexes(ctx))
	t.Cleanup(func() {
		_ = db.db.Drop(ctx)
		_ = db.Close(ctx)
	})
	return db
}

func TestQuestionRepository(t *testing.T) {
	db := testDB(t)
	repo := NewQuestionRepository(db)
	testutil.QuestionRepositoryTests(t, repo)

	t.Run("stored layout", func(t *testing.T) {
		ctx := context.Background()
		q := testutil.CreateQuestion(t, repo, "What is a verb?", question.English,
			testutil.Votes(vote.Ledger{"u1": vote.Up, "u2": vote.Down, "u3": vote.Up}))
		_, err := repo.RecordReask(ctx, q.ID, "A doing word.", q.AskedAt)
		require.NoError(t, err)

		var raw struct {
			VotesMap   map[string]string `bson:"votesMap"`
			AskCount   int               `bson:"askCount"`
			Upvotes    int               `bson:"upvotes"`
			AIResponse string            `bson:"aiResponse"`
			Answer     string            `bson:"answer"`
		}
		require.NoError(t, db.questions().FindOne(ctx, bson.M{"text": "What is a verb?"}).Decode(&raw))
		assert.Equal(t, map[string]string{"u1": "up", "u2": "down", "u3": "up"}, raw.VotesMap)
		assert.Equal(t, 2, raw.AskCount)
		assert.Equal(t, 1, raw.Upvotes)
		assert.Equal(t, "A doing word.", raw.AIResponse)
		assert.Equal(t, "A doing word.", raw.Answer)
	})
}
