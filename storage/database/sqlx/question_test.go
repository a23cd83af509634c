package sqlxrepos_test

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/storage/database"
	sqlxrepos "github.com/homeworkhelper/api/storage/database/sqlx"
	testutil "github.com/homeworkhelper/api/tests"
)

// testDB connects to the Postgres named by TEST_DATABASE_HOST, migrates it and
// empties its tables. The test is skipped when no server is configured.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" || testing.Short() {
		t.Skip("skipping integration test: TEST_DATABASE_HOST is not set")
	}

	conf := core.NewTestConfig()
	conf.Database.Engine = core.EnginePostgres
	conf.Database.Host = host
	for env, field := range map[string]*string{
		"TEST_DATABASE_PORT":     &conf.Database.Port,
		"TEST_DATABASE_NAME":     &conf.Database.Name,
		"TEST_DATABASE_USER":     &conf.Database.User,
		"TEST_DATABASE_PASSWORD": &conf.Database.Password,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}

	ctx := context.Background()
	db, err := database.Open(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db.DB))
	db.MustExec("TRUNCATE question_vote, question, app_user")
	return db
}

func TestQuestionRepository(t *testing.T) {
	db := testDB(t)
	testutil.QuestionRepositoryTests(t, sqlxrepos.NewQuestionRepository(db))
}
