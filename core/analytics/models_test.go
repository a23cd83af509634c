package analytics_test

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeworkhelper/api/core"
	. "github.com/homeworkhelper/api/core/analytics"
	"github.com/homeworkhelper/api/core/question"
	testutil "github.com/homeworkhelper/api/tests"
)

func TestRequest_Filter(t *testing.T) {
	validate, _ := testutil.NewValidator()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		req        Request
		want       Filter
		wantFields []string
	}{
		{name: "defaults to all time", req: Request{}, want: Filter{}},
		{name: "all", req: Request{DateRange: "all", Category: "all"}, want: Filter{}},
		{
			name: "7 days",
			req:  Request{DateRange: "7days"},
			want: Filter{Window: Window{From: now.Add(-7 * 24 * time.Hour)}},
		},
		{
			name: "30 days, case insensitive",
			req:  Request{DateRange: " 30Days "},
			want: Filter{Window: Window{From: now.Add(-30 * 24 * time.Hour)}},
		},
		{
			name: "category and search",
			req:  Request{Category: "Science", Search: " bio "},
			want: Filter{Subject: question.Science, Search: "bio"},
		},
		{
			name: "explicit dates win over range",
			req:  Request{DateRange: "7days", StartDate: "2024-01-01", EndDate: "2024-01-31"},
			want: Filter{Window: Window{
				From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC),
			}},
		},
		{
			name: "rfc3339 start only",
			req:  Request{StartDate: "2024-02-01T10:00:00Z"},
			want: Filter{Window: Window{From: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)}},
		},
		{name: "unknown range", req: Request{DateRange: "yesterday"}, wantFields: []string{"dateRange"}},
		{name: "unknown category", req: Request{Category: "Art"}, wantFields: []string{"category"}},
		{name: "bad start date", req: Request{StartDate: "01/02/2024"}, wantFields: []string{"startDate"}},
		{name: "bad both dates", req: Request{StartDate: "x", EndDate: "y"}, wantFields: []string{"startDate", "endDate"}},
		{name: "end before start", req: Request{StartDate: "2024-02-01", EndDate: "2024-01-01"}, wantFields: []string{"endDate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Filter(validate, now)
			if tt.wantFields == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}

			var fields []string
			var vErrs validator.ValidationErrors
			var vErr *core.ValidationError
			switch {
			case errors.As(err, &vErrs):
				for _, fe := range vErrs {
					fields = append(fields, fe.Field())
				}
			case errors.As(err, &vErr):
				for _, fe := range vErr.Fields {
					fields = append(fields, fe.Field)
				}
			default:
				t.Fatalf("Filter() error = %v, want a validation error", err)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestFilter_Limit(t *testing.T) {
	assert.Equal(t, 5, Filter{}.Limit())
	assert.Equal(t, 20, Filter{Search: "calc"}.Limit())
}

func TestWindow_Includes(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC) }
	w := Window{From: day(10), To: day(20)}

	tests := []struct {
		name string
		w    Window
		q    question.Question
		want bool
	}{
		{name: "unbounded includes everything", w: Window{}, q: question.Question{}, want: true},
		{name: "asked inside", w: w, q: question.Question{AskedAt: day(15), CreatedAt: day(1)}, want: true},
		{name: "created inside", w: w, q: question.Question{AskedAt: day(25), CreatedAt: day(12)}, want: true},
		{name: "bounds are inclusive", w: w, q: question.Question{AskedAt: day(20)}, want: true},
		{name: "before", w: w, q: question.Question{AskedAt: day(5), CreatedAt: day(5)}, want: false},
		{name: "after", w: w, q: question.Question{AskedAt: day(21), CreatedAt: day(21)}, want: false},
		{name: "open ended", w: Window{From: day(10)}, q: question.Question{AskedAt: day(28)}, want: true},
		{name: "no timestamps", w: w, q: question.Question{}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.Includes(tt.q))
		})
	}
}
