package inmemdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	testutil "github.com/homeworkhelper/api/tests"
)

func TestQuestionRepository(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)
	testutil.QuestionRepositoryTests(t, NewQuestionRepository(db))
}
