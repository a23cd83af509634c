package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/homeworkhelper/api/apps/api/echo"
)

func TestServer_health(t *testing.T) {
	ta := setup(t)
	down := setup(t, unavailableStore)

	tests := []struct {
		ta       *testApp
		httpTest httpTest
	}{
		{
			ta: ta,
			httpTest: httpTest{
				name: "connected", path: "/health", wantCode: http.StatusOK,
				wantData: []byte(`{"status":"OK","message":"HomeworkHelper AI API is running","storage":"connected"}`),
			},
		},
		{
			ta: ta,
			httpTest: httpTest{
				name: "trailing slash", path: "/health/", wantCode: http.StatusOK,
				wantData: []byte(`{"status":"OK","message":"HomeworkHelper AI API is running","storage":"connected"}`),
			},
		},
		{
			ta: down,
			httpTest: httpTest{
				name: "storage unavailable", path: "/health", wantCode: http.StatusOK,
				wantData: []byte(`{"status":"OK","message":"HomeworkHelper AI API is running","storage":"unavailable"}`),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.httpTest.name, func(t *testing.T) {
			checkCodeAndData(t, tt.httpTest, tt.ta.do(http.MethodGet, tt.httpTest.path, ""))
		})
	}
}

func TestServer_routing(t *testing.T) {
	ta := setup(t)

	runHTTPTests(t, ta, []httpTest{
		{
			name: "login stub", method: http.MethodPost, path: "/api/student/auth/login", wantCode: http.StatusOK,
			wantData: []byte(`{"message":"STUB: Student login"}`),
		},
		{
			name: "unknown route", path: "/api/nope", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Error: "Not Found", Code: "NOT_FOUND", Message: "Not Found"}),
		},
		{
			name: "method not allowed", method: http.MethodPost, path: "/health", wantCode: http.StatusMethodNotAllowed,
			wantData: marchallObj(t, ErrorResponse{
				Error: "Method Not Allowed", Code: "METHOD_NOT_ALLOWED", Message: "Method Not Allowed",
			}),
		},
	})
}

func TestServer_recordsActivity(t *testing.T) {
	ta := setup(t)
	ctx := context.Background()

	rec := ta.do(http.MethodGet, "/api/student/questions/my", ta.token(t, "u1", false))
	require.Equal(t, http.StatusOK, rec.Code)

	usr, err := ta.store.Users.GetUserByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", usr.Email)
	assert.False(t, usr.LastActive.IsZero())

	t.Run("guests are not recorded", func(t *testing.T) {
		rec := ta.do(http.MethodGet, "/api/student/questions/community", "")
		require.Equal(t, http.StatusOK, rec.Code)
		_, err := ta.store.Users.GetUserByUID(ctx, "")
		assert.Error(t, err)
	})

	t.Run("unavailable storage does not fail requests", func(t *testing.T) {
		down := setup(t, unavailableStore)
		rec := down.do(http.MethodPost, "/api/student/auth/login", down.token(t, "u1", false))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
