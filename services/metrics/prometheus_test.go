package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_domainCounters(t *testing.T) {
	p := NewPrometheus()
	p.QuestionAsked("saved")
	p.QuestionAsked("saved")
	p.VoteCast("up", "applied")
	p.UpstreamFailure("rate_limited")
	p.DashboardFallback("usage_trends")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.questionsAsked.WithLabelValues("saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.votesCast.WithLabelValues("up", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.upstreamFailures.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.dashboardFallbacks.WithLabelValues("usage_trends")))
}

func TestPrometheus_Middleware(t *testing.T) {
	p := NewPrometheus()
	e := echo.New()
	e.Use(p.Middleware())
	e.GET("/questions/:id", func(ctx echo.Context) error {
		if ctx.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return ctx.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/questions/a", "/questions/b", "/questions/missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(p.requests.WithLabelValues("GET", "/questions/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.requests.WithLabelValues("GET", "/questions/:id", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.requestsInFlight))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "homeworkhelper_http_requests_total"))
}
