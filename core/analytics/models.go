package analytics

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
)

// Date ranges
const (
	Last7Days  = "7days"
	Last30Days = "30days"
	AllTime    = "all"
)

const (
	defaultLimit = 5
	searchLimit  = 20
)

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// Window is an inclusive time range. A zero bound is unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) IsZero() bool { return w.From.IsZero() && w.To.IsZero() }

func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// Includes reports whether a question falls in the window: when it was
// either asked or created within it.
func (w Window) Includes(q question.Question) bool {
	if w.IsZero() {
		return true
	}
	return w.Contains(q.AskedAt) || w.Contains(q.CreatedAt)
}

// Filter narrows the questions a dashboard aggregates.
type Filter struct {
	Window  Window
	Subject question.Subject // zero value: any
	Search  string           // case-insensitive substring
}

// Limit is the size of top-N lists: wider when searching.
func (f Filter) Limit() int {
	if f.Search != "" {
		return searchLimit
	}
	return defaultLimit
}

// Request holds the dashboards query parameters.
type Request struct {
	DateRange string `query:"dateRange" validate:"omitempty,oneof=7days 30days all"`
	StartDate string `query:"startDate"`
	EndDate   string `query:"endDate"`
	Category  string `query:"category" validate:"omitempty,subject"`
	Search    string `query:"search" validate:"max=200"`
}

func (r *Request) Clean() {
	r.DateRange = core.CleanString(r.DateRange, true /* lower */)
	r.StartDate = core.CleanString(r.StartDate)
	r.EndDate = core.CleanString(r.EndDate)
	r.Category = core.CleanString(r.Category)
	if strings.EqualFold(r.Category, question.AllSubjects) {
		r.Category = ""
	}
	r.Search = core.CleanString(r.Search)
}

// Filter validates the request and resolves it against now.
// An explicit startDate/endDate wins over dateRange.
func (r *Request) Filter(validate *validator.Validate, now time.Time) (Filter, error) {
	r.Clean()
	if err := validate.Struct(r); err != nil {
		return Filter{}, err
	}

	f := Filter{Search: r.Search}
	if r.Category != "" {
		f.Subject, _ = question.ParseSubject(r.Category)
	}

	if r.StartDate != "" || r.EndDate != "" {
		var fldErrs []core.FieldError
		from, ok := parseDate(r.StartDate, false)
		if !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: "startDate", Error: "invalid date"})
		}
		to, ok := parseDate(r.EndDate, true)
		if !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: "endDate", Error: "invalid date"})
		}
		if fldErrs == nil && !from.IsZero() && !to.IsZero() && to.Before(from) {
			fldErrs = append(fldErrs, core.FieldError{Field: "endDate", Error: "endDate must not be before startDate"})
		}
		if fldErrs != nil {
			return Filter{}, core.NewValidationError(nil, fldErrs...)
		}
		f.Window = Window{From: from, To: to}
		return f, nil
	}

	switch r.DateRange {
	case Last7Days:
		f.Window = Window{From: now.Add(-7 * 24 * time.Hour)}
	case Last30Days:
		f.Window = Window{From: now.Add(-30 * 24 * time.Hour)}
	}
	return f, nil
}

// parseDate parses s as RFC 3339 or a bare date. A bare end date covers its whole day.
func parseDate(s string, end bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	for i, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if end && i > 0 {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

type (
	TopicCount struct {
		Topic        string `json:"topic"`
		StudentCount int    `json:"studentCount"`
	}

	SubjectCount struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	TopQuestion struct {
		ID       string           `json:"_id"`
		Text     string           `json:"text"`
		Subject  question.Subject `json:"subject,omitempty"`
		Topic    string           `json:"topic,omitempty"`
		AskCount int              `json:"askCount"`
		Upvotes  int              `json:"upvotes"` // net votes, may be negative
		NetVotes int              `json:"netVotes"`
		AskedAt  *time.Time       `json:"askedAt,omitempty"`
	}

	UsageTrends struct {
		ActiveStudents  int          `json:"activeStudents"`
		AvgAccuracy     int          `json:"avgAccuracy"`
		CommonStruggles []TopicCount `json:"commonStruggles"`
	}

	SystemDashboard struct {
		CategoryDistribution []SubjectCount `json:"categoryDistribution"`
		TopQuestions         []TopQuestion  `json:"topQuestions"`
	}
)

func NewTopQuestion(q question.Question) TopQuestion {
	net := q.NetVotes()
	tq := TopQuestion{
		ID:       q.ID,
		Text:     q.Text,
		Subject:  q.Subject,
		Topic:    q.Topic,
		AskCount: q.AskCount,
		Upvotes:  net,
		NetVotes: net,
	}
	if !q.AskedAt.IsZero() {
		askedAt := q.AskedAt
		tq.AskedAt = &askedAt
	}
	return tq
}
