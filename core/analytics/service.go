// Package analytics computes the admin dashboards. Storage failures never
// surface to callers: a dashboard that cannot be computed is served from
// fixed fallback data.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
)

// Dashboards
const (
	DashboardUsageTrends     = "usage_trends"
	DashboardSystemDashboard = "system_dashboard"
)

type (
	Repository interface {
		// CountActiveAskers counts the distinct non-empty askers of in-window questions.
		CountActiveAskers(ctx context.Context, w Window) (int, error)
		// AverageAccuracy is the mean accuracyRating of rated in-window questions, 0 when none.
		AverageAccuracy(ctx context.Context, w Window) (float64, error)
		// TopTopics counts in-window questions per non-empty topic matching the subject
		// and topic search, ordered by count desc then topic.
		TopTopics(ctx context.Context, f Filter, limit int) ([]TopicCount, error)
		// CountBySubject counts answered in-window questions per subject, ordered by count desc then name.
		CountBySubject(ctx context.Context, w Window) ([]SubjectCount, error)
		// TopQuestions returns answered in-window questions matching the subject and a text or topic
		// search, ordered by askCount desc, NetVotes desc, askedAt desc.
		TopQuestions(ctx context.Context, f Filter, limit int) ([]question.Question, error)
	}

	Service struct {
		repo         Repository
		validate     *validator.Validate
		logger       core.Logger
		metrics      core.Metrics
		queryTimeout time.Duration
		now          func() time.Time
	}
)

func NewService(
	repo Repository,
	validate *validator.Validate,
	logger core.Logger,
	metrics core.Metrics,
	conf *core.Config,
) *Service {
	return &Service{
		repo:         repo,
		validate:     validate,
		logger:       logger,
		metrics:      metrics,
		queryTimeout: conf.Database.QueryTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// withTimeout bounds a single dashboard query.
func (svc *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if svc.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, svc.queryTimeout)
}

// UsageTrends returns active students, average accuracy and the most asked topics.
// Only an invalid request is reported as an error.
func (svc *Service) UsageTrends(ctx context.Context, req Request) (UsageTrends, error) {
	f, err := req.Filter(svc.validate, svc.now())
	if err != nil {
		return UsageTrends{}, err
	}

	var (
		res = UsageTrends{CommonStruggles: []TopicCount{}}
		avg float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		qctx, cancel := svc.withTimeout(gctx)
		defer cancel()
		n, err := svc.repo.CountActiveAskers(qctx, f.Window)
		res.ActiveStudents = n
		return errors.Wrap(err, "counting active askers")
	})
	g.Go(func() error {
		qctx, cancel := svc.withTimeout(gctx)
		defer cancel()
		var err error
		avg, err = svc.repo.AverageAccuracy(qctx, f.Window)
		return errors.Wrap(err, "averaging accuracy")
	})
	g.Go(func() error {
		qctx, cancel := svc.withTimeout(gctx)
		defer cancel()
		topics, err := svc.repo.TopTopics(qctx, f, f.Limit())
		if topics != nil {
			res.CommonStruggles = topics
		}
		return errors.Wrap(err, "finding top topics")
	})
	if err := g.Wait(); err != nil {
		svc.fallback(DashboardUsageTrends, err)
		return FallbackUsageTrends(), nil
	}

	res.AvgAccuracy = int(math.Round(avg))
	return res, nil
}

// SystemDashboard returns the category distribution and the top questions.
// Only an invalid request is reported as an error.
func (svc *Service) SystemDashboard(ctx context.Context, req Request) (SystemDashboard, error) {
	f, err := req.Filter(svc.validate, svc.now())
	if err != nil {
		return SystemDashboard{}, err
	}

	res := SystemDashboard{CategoryDistribution: []SubjectCount{}, TopQuestions: []TopQuestion{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		qctx, cancel := svc.withTimeout(gctx)
		defer cancel()
		counts, err := svc.repo.CountBySubject(qctx, f.Window)
		if counts != nil {
			res.CategoryDistribution = counts
		}
		return errors.Wrap(err, "counting questions by subject")
	})
	g.Go(func() error {
		qctx, cancel := svc.withTimeout(gctx)
		defer cancel()
		questions, err := svc.repo.TopQuestions(qctx, f, f.Limit())
		for _, q := range questions {
			res.TopQuestions = append(res.TopQuestions, NewTopQuestion(q))
		}
		return errors.Wrap(err, "finding top questions")
	})
	if err := g.Wait(); err != nil {
		svc.fallback(DashboardSystemDashboard, err)
		return FallbackSystemDashboard(), nil
	}
	return res, nil
}

func (svc *Service) fallback(dashboard string, err error) {
	svc.metrics.DashboardFallback(dashboard)
	svc.logger.Warn(fmt.Sprintf("%s served from fallback data: %v", dashboard, err), err)
}

// FallbackUsageTrends is served when usage trends cannot be computed.
func FallbackUsageTrends() UsageTrends {
	return UsageTrends{
		ActiveStudents: 3,
		AvgAccuracy:    85,
		CommonStruggles: []TopicCount{
			{Topic: "Calculus Derivatives", StudentCount: 250},
			{Topic: "Biology", StudentCount: 200},
			{Topic: "Algebra", StudentCount: 150},
			{Topic: "World War I", StudentCount: 180},
			{Topic: "Grammar", StudentCount: 120},
		},
	}
}

// FallbackSystemDashboard is served when the system dashboard cannot be computed.
func FallbackSystemDashboard() SystemDashboard {
	top := func(id, text string, askCount, upvotes int) TopQuestion {
		return TopQuestion{ID: id, Text: text, AskCount: askCount, Upvotes: upvotes, NetVotes: upvotes}
	}
	return SystemDashboard{
		CategoryDistribution: []SubjectCount{
			{Name: string(question.Math), Count: 560},
			{Name: string(question.Science), Count: 515},
			{Name: string(question.English), Count: 250},
			{Name: string(question.History), Count: 340},
		},
		TopQuestions: []TopQuestion{
			top("1", "What are Calculus Derivatives?", 250, 75),
			top("2", "What is the powerhouse of the cell?", 200, 60),
			top("3", "Explain the main causes of WWI", 180, 55),
			top("4", "How do I solve quadratic equations?", 150, 45),
			top("5", "What is a verb?", 120, 35),
		},
	}
}
