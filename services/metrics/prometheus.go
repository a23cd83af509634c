// Package metricsvc exposes application metrics to Prometheus.
package metricsvc

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homeworkhelper/api/core"
)

const namespace = "homeworkhelper"

// Prometheus records domain and HTTP metrics on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	questionsAsked     *prometheus.CounterVec
	votesCast          *prometheus.CounterVec
	upstreamFailures   *prometheus.CounterVec
	dashboardFallbacks *prometheus.CounterVec

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
}

var _ core.Metrics = (*Prometheus)(nil) // interface compliance check

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		questionsAsked: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_asked_total",
			Help:      "Questions asked, by outcome (saved, unsaved, upstream_error, not_configured).",
		}, []string{"outcome"}),
		votesCast: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Votes cast, by direction and outcome.",
		}, []string{"direction", "outcome"}),
		upstreamFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_failures_total",
			Help:      "Failed answer generations, by kind.",
		}, []string{"kind"}),
		dashboardFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_fallbacks_total",
			Help:      "Dashboards served from fallback data.",
		}, []string{"dashboard"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of requests",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of requests currently being processed",
		}),
	}
}

func (p *Prometheus) QuestionAsked(outcome string) {
	p.questionsAsked.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) VoteCast(direction, outcome string) {
	p.votesCast.WithLabelValues(direction, outcome).Inc()
}

func (p *Prometheus) UpstreamFailure(kind string) {
	p.upstreamFailures.WithLabelValues(kind).Inc()
}

func (p *Prometheus) DashboardFallback(dashboard string) {
	p.dashboardFallbacks.WithLabelValues(dashboard).Inc()
}

// RegisterDB exports the connection pool statistics of db.
func (p *Prometheus) RegisterDB(db *sql.DB, name string) {
	p.registry.MustRegister(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Middleware records the count, duration and concurrency of requests.
// Routes are labelled by their path template to keep cardinality bounded.
func (p *Prometheus) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p.requestsInFlight.Inc()
			defer p.requestsInFlight.Dec()

			start := time.Now()
			if err := next(ctx); err != nil {
				// write the error response now to record its status
				ctx.Error(err)
			}

			status := ctx.Response().Status
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			p.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
