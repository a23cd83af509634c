package dig_container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/homeworkhelper/api/apps/api/echo"
	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/analytics"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/tutor"
	"github.com/homeworkhelper/api/core/user"
	aisvc "github.com/homeworkhelper/api/services/ai"
	identitysvc "github.com/homeworkhelper/api/services/identity"
	logsvc "github.com/homeworkhelper/api/services/logger"
	metricsvc "github.com/homeworkhelper/api/services/metrics"
	"github.com/homeworkhelper/api/storage/database"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newStore never fails: an unreachable engine yields a Store that reports core.ErrUnavailable.
func newStore(conf *core.Config, loggerParam DBLoggerParam, prom *metricsvc.Prometheus) *database.Store {
	store := database.OpenStore(context.Background(), conf, loggerParam.Logger)
	if store.SQL != nil {
		prom.RegisterDB(store.SQL, conf.Database.Name)
	}
	return store
}

func newMetrics(prom *metricsvc.Prometheus) core.Metrics { return prom }

func newQuestionService(
	store *database.Store,
	gen tutor.Generator,
	validate *validator.Validate,
	logger core.Logger,
	metrics core.Metrics,
	conf *core.Config,
) *question.Service {
	return question.NewService(store.Questions, gen, validate, logger, metrics, conf)
}

func newAnalyticsService(
	store *database.Store,
	validate *validator.Validate,
	logger core.Logger,
	metrics core.Metrics,
	conf *core.Config,
) *analytics.Service {
	return analytics.NewService(store.Stats, validate, logger, metrics, conf)
}

func newUserService(store *database.Store, validate *validator.Validate) *user.Service {
	return user.NewService(store.Users, validate)
}

// verifier wraps the configured user.TokenVerifier, which is nil when no identity provider is set up.
type verifier struct {
	user.TokenVerifier
}

func newVerifier(conf *core.Config, logger core.Logger) verifier {
	return verifier{identitysvc.New(conf, logger)}
}

type ServerParams struct {
	dig.In

	Conf         *core.Config
	Logger       core.Logger
	Translator   ut.Translator
	Store        *database.Store
	QuestionSvc  *question.Service
	AnalyticsSvc *analytics.Service
	UserSvc      *user.Service
	Verifier     verifier
	Prometheus   *metricsvc.Prometheus
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:         p.Conf,
		Logger:       p.Logger,
		Translator:   p.Translator,
		Storage:      p.Store,
		QuestionSvc:  p.QuestionSvc,
		AnalyticsSvc: p.AnalyticsSvc,
		UserSvc:      p.UserSvc,
		Verifier:     p.Verifier.TokenVerifier,
		Metrics:      p.Prometheus.Middleware(),
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(metricsvc.NewPrometheus))
	must(c.Provide(newMetrics))
	must(c.Provide(newStore))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(aisvc.NewOpenAI, dig.As(new(tutor.Generator))))
	must(c.Provide(newVerifier))
	must(c.Provide(newQuestionService))
	must(c.Provide(newAnalyticsService))
	must(c.Provide(newUserService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
