package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/user"
	"github.com/homeworkhelper/api/core/vote"
	logsvc "github.com/homeworkhelper/api/services/logger"
)

// NewLogger returns a logger that reports nothing.
func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), core.NewTestConfig())
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with every app validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	question.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// QuestionOpt customizes a question created by CreateQuestion.
type QuestionOpt func(q *question.Question)

func AskedBy(uid string) QuestionOpt { return func(q *question.Question) { q.AskedBy = uid } }

func Topic(topic string) QuestionOpt { return func(q *question.Question) { q.Topic = topic } }

func Answer(answer string) QuestionOpt { return func(q *question.Question) { q.Answer = answer } }

func AskCount(n int) QuestionOpt { return func(q *question.Question) { q.AskCount = n } }

func Upvotes(n int) QuestionOpt { return func(q *question.Question) { q.Upvotes = n } }

func Votes(l vote.Ledger) QuestionOpt {
	return func(q *question.Question) {
		q.Votes = l
		q.Upvotes = vote.CacheValue(l.Net())
	}
}

func Accuracy(rating int) QuestionOpt { return func(q *question.Question) { q.AccuracyRating = &rating } }

func AskedAt(t time.Time) QuestionOpt {
	return func(q *question.Question) {
		q.AskedAt = t.UTC()
		q.CreatedAt = t.UTC()
		q.UpdatedAt = t.UTC()
	}
}

// CreateQuestion stores an answered question with sane defaults.
func CreateQuestion(
	t *testing.T,
	repo question.Repository,
	text string,
	subject question.Subject,
	opts ...QuestionOpt,
) question.Question {
	t.Helper()

	tstamp := time.Now().UTC()
	q := question.Question{
		Text:      text,
		Subject:   subject,
		Answer:    "answer to " + text,
		AskCount:  1,
		Votes:     vote.Ledger{},
		AskedAt:   tstamp,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	for _, opt := range opts {
		opt(&q)
	}
	q, err := repo.Create(context.Background(), q)
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return q
}

// CreateUser stores a user with the given role.
func CreateUser(t *testing.T, repo user.Repository, uid, email, role string) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	usr, err := repo.SaveUser(context.Background(), user.User{
		UID:        uid,
		Email:      email,
		Role:       role,
		LastActive: tstamp,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
