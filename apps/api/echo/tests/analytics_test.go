package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/homeworkhelper/api/apps/api/echo"
	"github.com/homeworkhelper/api/core/analytics"
	"github.com/homeworkhelper/api/core/question"
	testutil "github.com/homeworkhelper/api/tests"
)

func Test_analyticsApi_auth(t *testing.T) {
	ta := setup(t)
	student, admin := ta.token(t, "s1", false), ta.token(t, "a1", true)

	for _, path := range []string{"/api/analytics/usage-trends", "/api/analytics/system-dashboard"} {
		t.Run(path, func(t *testing.T) {
			runHTTPTests(t, ta, []httpTest{
				{
					name: "no token", path: path, wantCode: http.StatusUnauthorized,
					wantData: marchallObj(t, ErrorResponse{
						Error: "Unauthorized", Code: "UNAUTHENTICATED", Message: "Unauthorized: No token provided",
					}),
				},
				{
					name: "invalid token", path: path, token: "garbage", wantCode: http.StatusUnauthorized,
					wantData: marchallObj(t, ErrorResponse{
						Error: "Unauthorized", Code: "UNAUTHENTICATED", Message: "Unauthorized: Invalid token",
					}),
				},
				{
					name: "student", path: path, token: student, wantCode: http.StatusForbidden,
					wantData: marchallObj(t, ErrorResponse{
						Error: "Forbidden", Code: "FORBIDDEN", Message: "Forbidden: Not an admin",
					}),
				},
				{name: "admin", path: path, token: admin, wantCode: http.StatusOK},
			})
		})
	}
}

func Test_analyticsApi_usageTrends(t *testing.T) {
	ta := setup(t)
	admin := ta.token(t, "a1", true)
	old := time.Now().UTC().AddDate(0, -2, 0)

	testutil.CreateQuestion(t, ta.store.Questions, "Derivative of x^2", question.Math,
		testutil.AskedBy("u1"), testutil.Topic("Calculus"), testutil.Accuracy(80))
	testutil.CreateQuestion(t, ta.store.Questions, "Derivative of sin", question.Math,
		testutil.AskedBy("u2"), testutil.Topic("Calculus"), testutil.Accuracy(90))
	testutil.CreateQuestion(t, ta.store.Questions, "Causes of WWI", question.History,
		testutil.AskedBy("u3"), testutil.Topic("World War I"), testutil.AskedAt(old))

	t.Run("all time", func(t *testing.T) {
		rec := ta.do(http.MethodGet, "/api/analytics/usage-trends?dateRange=all", admin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res analytics.UsageTrends
		unmarshall(t, rec, &res)
		assert.Equal(t, 3, res.ActiveStudents)
		assert.Equal(t, 85, res.AvgAccuracy)
		require.NotEmpty(t, res.CommonStruggles)
		assert.Equal(t, analytics.TopicCount{Topic: "Calculus", StudentCount: 2}, res.CommonStruggles[0])
	})

	t.Run("last 7 days", func(t *testing.T) {
		rec := ta.do(http.MethodGet, "/api/analytics/usage-trends?dateRange=7days", admin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res analytics.UsageTrends
		unmarshall(t, rec, &res)
		assert.Equal(t, 2, res.ActiveStudents)
	})

	runHTTPTests(t, ta, []httpTest{
		{name: "unknown date range", path: "/api/analytics/usage-trends?dateRange=90days", token: admin, wantCode: http.StatusBadRequest},
		{name: "unknown category", path: "/api/analytics/usage-trends?category=Art", token: admin, wantCode: http.StatusBadRequest},
		{
			name: "bad start date", path: "/api/analytics/usage-trends?startDate=yesterday", token: admin,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{
				Error: "Validation failed", Code: "VALIDATION_ERROR", Fields: map[string]string{"startDate": "invalid date"},
			}),
		},
	})
}

func Test_analyticsApi_systemDashboard(t *testing.T) {
	ta := setup(t)
	admin := ta.token(t, "a1", true)

	popular := testutil.CreateQuestion(t, ta.store.Questions, "What is a verb?", question.English, testutil.AskCount(4))
	testutil.CreateQuestion(t, ta.store.Questions, "What is a cell?", question.Science, testutil.AskedBy("u1"))
	testutil.CreateQuestion(t, ta.store.Questions, "What is an atom?", question.Science, testutil.AskedBy("u2"))

	rec := ta.do(http.MethodGet, "/api/analytics/system-dashboard", admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res analytics.SystemDashboard
	unmarshall(t, rec, &res)
	assert.ElementsMatch(t, []analytics.SubjectCount{
		{Name: "Science", Count: 2},
		{Name: "English", Count: 1},
	}, res.CategoryDistribution)
	require.Len(t, res.TopQuestions, 3)
	assert.Equal(t, popular.ID, res.TopQuestions[0].ID)
	assert.Equal(t, 4, res.TopQuestions[0].AskCount)

	t.Run("search", func(t *testing.T) {
		rec := ta.do(http.MethodGet, "/api/analytics/system-dashboard?search=ATOM", admin)
		require.Equal(t, http.StatusOK, rec.Code)

		var res analytics.SystemDashboard
		unmarshall(t, rec, &res)
		require.Len(t, res.TopQuestions, 1)
		assert.Equal(t, "What is an atom?", res.TopQuestions[0].Text)
	})
}

func Test_analyticsApi_openMode(t *testing.T) {
	ta := setup(t, openMode)
	runHTTPTests(t, ta, []httpTest{
		{name: "usage trends", path: "/api/analytics/usage-trends", wantCode: http.StatusOK},
		{name: "system dashboard", path: "/api/analytics/system-dashboard", wantCode: http.StatusOK},
	})
}

func Test_analyticsApi_unavailableStorage(t *testing.T) {
	ta := setup(t, openMode, unavailableStore)
	runHTTPTests(t, ta, []httpTest{
		{
			name: "usage trends", path: "/api/analytics/usage-trends", wantCode: http.StatusOK,
			wantData: marchallObj(t, analytics.FallbackUsageTrends()),
		},
		{
			name: "system dashboard", path: "/api/analytics/system-dashboard", wantCode: http.StatusOK,
			wantData: marchallObj(t, analytics.FallbackSystemDashboard()),
		},
	})
}
