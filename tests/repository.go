package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/vote"
)

// concurrentVoters stays below the Mongo repository's retry budget.
const concurrentVoters = 8

// castVote is the mutation question.Service.Vote applies.
func castVote(voter string, d vote.Direction) func(q *question.Question) error {
	return func(q *question.Question) error {
		if q.Votes == nil {
			q.Votes = vote.Ledger{}
		}
		q.Votes.Cast(voter, d)
		q.Upvotes = vote.CacheValue(q.Votes.Net())
		return nil
	}
}

// QuestionRepositoryTests runs the behaviour every question.Repository shares
// against repo. Each subtest creates its own questions.
func QuestionRepositoryTests(t *testing.T, repo question.Repository) {
	ctx := context.Background()

	cast := func(t *testing.T, id, voter string, d vote.Direction) question.Question {
		t.Helper()
		q, err := repo.UpdateVotes(ctx, id, castVote(voter, d))
		require.NoError(t, err)
		return q
	}

	t.Run("toggle", func(t *testing.T) {
		q := CreateQuestion(t, repo, "What is 2+2?", question.Math)

		q = cast(t, q.ID, "u1", vote.Up)
		assert.Equal(t, 1, q.NetVotes())
		assert.Equal(t, 1, q.Upvotes)

		q = cast(t, q.ID, "u1", vote.Up)
		assert.Equal(t, 0, q.NetVotes())
		assert.Empty(t, q.Votes)

		stored, err := repo.Get(ctx, q.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Votes)
		assert.Equal(t, 0, stored.Upvotes)
	})

	t.Run("flip", func(t *testing.T) {
		q := CreateQuestion(t, repo, "What is a noun?", question.English)

		cast(t, q.ID, "u1", vote.Up)
		q = cast(t, q.ID, "u1", vote.Down)
		assert.Equal(t, -1, q.NetVotes())

		stored, err := repo.Get(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, vote.Down, stored.Votes.Get("u1"))
		assert.Len(t, stored.Votes, 1)
	})

	t.Run("negative net clamps the cached upvotes", func(t *testing.T) {
		q := CreateQuestion(t, repo, "Who was Napoleon?", question.History)
		for _, voter := range []string{"u1", "u2", "u3"} {
			q = cast(t, q.ID, voter, vote.Down)
		}
		cast(t, q.ID, "u4", vote.Up)

		stored, err := repo.Get(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, -2, stored.NetVotes())
		assert.Equal(t, 0, stored.Upvotes)
		assert.Len(t, stored.Votes, 4)
	})

	t.Run("concurrent voters", func(t *testing.T) {
		q := CreateQuestion(t, repo, "What is an atom?", question.Science)

		var wg sync.WaitGroup
		errs := make(chan error, concurrentVoters)
		for i := 0; i < concurrentVoters; i++ {
			wg.Add(1)
			go func(voter string) {
				defer wg.Done()
				if _, err := repo.UpdateVotes(ctx, q.ID, castVote(voter, vote.Up)); err != nil {
					errs <- err
				}
			}(fmt.Sprintf("voter-%d", i))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}

		stored, err := repo.Get(ctx, q.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Votes, concurrentVoters, "no vote was lost")
		assert.Equal(t, concurrentVoters, stored.NetVotes())
		assert.Equal(t, concurrentVoters, stored.Upvotes)
	})

	t.Run("re-ask", func(t *testing.T) {
		q := CreateQuestion(t, repo, "What is a cell?", question.Science, AskedBy("u1"))
		at := time.Now().UTC().Add(time.Minute).Truncate(time.Millisecond)

		got, err := repo.RecordReask(ctx, q.ID, "The unit of life.", at)
		require.NoError(t, err)
		assert.Equal(t, 2, got.AskCount)
		assert.Equal(t, "The unit of life.", got.Answer)
		assert.Greater(t, got.Version, q.Version)

		found, err := repo.FindAsked(ctx, "What is a cell?", question.Science, "u1")
		require.NoError(t, err)
		assert.Equal(t, q.ID, found.ID)
		assert.Equal(t, 2, found.AskCount)
		assert.True(t, at.Equal(found.AskedAt))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		assert.Equal(t, question.ErrNotFound, errors.Cause(err))
		_, err = repo.UpdateVotes(ctx, "missing", castVote("u1", vote.Up))
		assert.Equal(t, question.ErrNotFound, errors.Cause(err))
		_, err = repo.RecordReask(ctx, "missing", "", time.Now())
		assert.Equal(t, question.ErrNotFound, errors.Cause(err))
	})
}
