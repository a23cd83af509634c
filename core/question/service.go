package question

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/tutor"
	"github.com/homeworkhelper/api/core/vote"
)

var (
	// errors
	ErrNotFound = errors.New("question not found")
)

const (
	communityAlias = "community"
	featuredAlias  = "anonymous"
)

type (
	Repository interface {
		Create(ctx context.Context, q Question) (Question, error)
		// FindAsked returns the question with the exact text, subject and asker, or ErrNotFound.
		FindAsked(ctx context.Context, text string, subject Subject, askedBy string) (Question, error)
		// RecordReask atomically increments the ask count and replaces the answer.
		RecordReask(ctx context.Context, id, answer string, at time.Time) (Question, error)
		// Get reads one question back, or returns ErrNotFound. No API route reads
		// a single question; tests and the admin tooling use it to check stored state.
		Get(ctx context.Context, id string) (Question, error)
		// UpdateVotes runs mutate on the current question and persists its Votes and
		// Upvotes in one atomic read-modify-write. Concurrent calls never lose updates.
		UpdateVotes(ctx context.Context, id string, mutate func(q *Question) error) (Question, error)
		Query(ctx context.Context, filter QueryFilter) ([]Question, error)
		// DeleteUnowned removes the questions that have no asker (seed data).
		DeleteUnowned(ctx context.Context) (int64, error)
	}

	Service struct {
		repo       Repository
		gen        tutor.Generator
		validate   *validator.Validate
		logger     core.Logger
		metrics    core.Metrics
		genTimeout time.Duration
		now        func() time.Time
	}
)

func NewService(
	repo Repository,
	gen tutor.Generator,
	validate *validator.Validate,
	logger core.Logger,
	metrics core.Metrics,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		gen:        gen,
		validate:   validate,
		logger:     logger,
		metrics:    metrics,
		genTimeout: conf.OpenAI.Timeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ask generates an answer to the question and records it.
// Once an answer exists it is always returned: failing to save it only leaves QuestionID empty.
func (svc *Service) Ask(ctx context.Context, req AskRequest, asker string) (AskResult, error) {
	if err := req.Validate(svc.validate); err != nil {
		return AskResult{}, err
	}
	if !svc.gen.Configured() {
		svc.metrics.QuestionAsked("not_configured")
		return AskResult{}, tutor.ErrNotConfigured
	}
	subject, _ := ParseSubject(req.Subject)

	answer, err := svc.generate(ctx, req)
	if err != nil {
		svc.metrics.QuestionAsked("upstream_error")
		return AskResult{}, errors.Wrap(err, "generating answer")
	}

	now := svc.now()
	res := AskResult{
		Success:   true,
		Question:  req.Question,
		Answer:    answer,
		Subject:   subject,
		Timestamp: now,
	}
	if req.Topic != "" {
		res.Topic = &req.Topic
	}

	q, err := svc.save(ctx, req.Question, subject, req.Topic, asker, answer, now)
	if err != nil {
		svc.metrics.QuestionAsked("unsaved")
		svc.logger.Warn(fmt.Sprintf("answer returned without being saved: %v", err), err)
		return res, nil
	}
	svc.metrics.QuestionAsked("saved")
	res.QuestionID = &q.ID
	return res, nil
}

func (svc *Service) generate(ctx context.Context, req AskRequest) (string, error) {
	if svc.genTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.genTimeout)
		defer cancel()
	}
	answer, err := svc.gen.Answer(ctx, tutor.Prompt{Question: req.Question, Subject: req.Subject, Topic: req.Topic})
	if err != nil {
		var upErr *tutor.UpstreamError
		if errors.As(err, &upErr) {
			svc.metrics.UpstreamFailure(string(upErr.Kind))
		} else {
			svc.metrics.UpstreamFailure(string(tutor.Generic))
		}
		return "", err
	}
	if answer == "" {
		answer = tutor.FallbackAnswer
	}
	return answer, nil
}

// save upserts the asked question: an identified asker asking the same thing
// again bumps the existing record, anybody else gets a new one.
func (svc *Service) save(ctx context.Context, text string, subject Subject, topic, asker, answer string, now time.Time) (Question, error) {
	if asker != "" {
		existing, err := svc.repo.FindAsked(ctx, text, subject, asker)
		switch errors.Cause(err) {
		case nil:
			q, err := svc.repo.RecordReask(ctx, existing.ID, answer, now)
			return q, errors.Wrap(err, "recording re-ask")
		case ErrNotFound:
		default:
			return Question{}, errors.Wrap(err, "finding asked question")
		}
	}

	q, err := svc.repo.Create(ctx, Question{
		Text:      text,
		Subject:   subject,
		Topic:     topic,
		Answer:    answer,
		AskCount:  1,
		Votes:     vote.Ledger{},
		AskedBy:   asker,
		AskedAt:   now,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return q, errors.Wrap(err, "creating question")
}

// Vote applies voter's up or down vote on the question.
func (svc *Service) Vote(ctx context.Context, id, voter string, d vote.Direction) (VoteResult, error) {
	if voter == "" {
		return VoteResult{}, core.ErrUnauthenticated
	}
	if !d.Valid() {
		return VoteResult{}, core.NewValidationError(errors.Errorf("invalid vote direction %q", d))
	}

	var prev, next vote.Direction
	q, err := svc.repo.UpdateVotes(ctx, id, func(q *Question) error {
		if q.Votes == nil {
			q.Votes = vote.Ledger{}
		}
		prev, next = q.Votes.Cast(voter, d)
		q.Upvotes = vote.CacheValue(q.Votes.Net())
		return nil
	})
	if err != nil {
		svc.metrics.VoteCast(string(d), "failed")
		return VoteResult{}, errors.Wrap(err, "updating votes")
	}
	svc.metrics.VoteCast(string(d), "applied")

	return VoteResult{
		Success:  true,
		Message:  voteMessage(prev, d),
		NetVotes: q.Votes.Net(),
		UserVote: next,
		Upvotes:  q.Upvotes,
	}, nil
}

func voteMessage(prev, requested vote.Direction) string {
	switch {
	case requested == vote.Up && prev == vote.Up:
		return "Upvote removed"
	case requested == vote.Up:
		return "Question upvoted"
	case prev == vote.Down:
		return "Downvote removed"
	default:
		return "Question downvoted"
	}
}

// Mine lists the questions asked by viewer, most recent first.
func (svc *Service) Mine(ctx context.Context, viewer string, req ListRequest) ([]View, error) {
	if viewer == "" {
		return nil, core.ErrUnauthenticated
	}
	return svc.list(ctx, ScopeMine, viewer, req)
}

// Community lists answered questions asked by anybody but viewer.
func (svc *Service) Community(ctx context.Context, viewer string, req ListRequest) ([]View, error) {
	return svc.list(ctx, ScopeCommunity, viewer, req)
}

// Featured lists popular answered questions.
func (svc *Service) Featured(ctx context.Context, viewer string, req ListRequest) ([]View, error) {
	return svc.list(ctx, ScopeFeatured, viewer, req)
}

func (svc *Service) list(ctx context.Context, scope Scope, viewer string, req ListRequest) ([]View, error) {
	if err := req.Validate(svc.validate); err != nil {
		return nil, err
	}

	filter := QueryFilter{Limit: req.Limit, Skip: req.Skip}
	if req.Subject != "" {
		filter.Subject, _ = ParseSubject(req.Subject)
	}

	var alias string
	switch scope {
	case ScopeMine:
		filter.AskedBy = viewer
		filter.Orderings = core.Desc(FieldAskedAt)
	case ScopeCommunity:
		alias = communityAlias
		filter.ExcludeAsker = viewer
		filter.AnsweredOnly = true
		filter.Orderings = core.Desc(FieldAskedAt, FieldAskCount, FieldUpvotes)
	case ScopeFeatured:
		alias = featuredAlias
		filter.AnsweredOnly = true
		filter.FeaturedOnly = true
		filter.Orderings = core.Desc(FieldUpvotes, FieldAskCount, FieldAskedAt)
	}

	questions, err := svc.repo.Query(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	views := make([]View, 0, len(questions))
	for _, q := range questions {
		views = append(views, NewView(q, viewer, alias))
	}
	return views, nil
}

// Seed inserts the given questions when no unowned question with the same text and subject exists.
func (svc *Service) Seed(ctx context.Context, questions []Question) (int, error) {
	var created int
	for _, q := range questions {
		_, err := svc.repo.FindAsked(ctx, q.Text, q.Subject, "")
		if err == nil {
			continue
		}
		if errors.Cause(err) != ErrNotFound {
			return created, errors.Wrap(err, "finding seed question")
		}
		now := svc.now()
		q.AskedBy = ""
		if q.AskCount < 1 {
			q.AskCount = 1
		}
		if q.Votes == nil {
			q.Votes = vote.Ledger{}
		}
		if q.AskedAt.IsZero() {
			q.AskedAt = now
		}
		q.CreatedAt, q.UpdatedAt = now, now
		if _, err = svc.repo.Create(ctx, q); err != nil {
			return created, errors.Wrap(err, "creating seed question")
		}
		created++
	}
	return created, nil
}

// PurgeSeeds deletes the questions without an asker.
func (svc *Service) PurgeSeeds(ctx context.Context) (int64, error) {
	n, err := svc.repo.DeleteUnowned(ctx)
	return n, errors.Wrap(err, "deleting seed questions")
}
