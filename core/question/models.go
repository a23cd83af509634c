package question

import (
	"strings"
	"time"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/vote"
)

type Subject string

// Subjects
const (
	Math    Subject = "Math"
	Science Subject = "Science"
	English Subject = "English"
	History Subject = "History"
	Other   Subject = "Other"

	// AllSubjects is the query value meaning "no subject filter".
	AllSubjects = "all"
)

var Subjects = []Subject{Math, Science, English, History, Other}

// ParseSubject returns the Subject named s. An empty s is Other.
func ParseSubject(s string) (Subject, bool) {
	if s == "" {
		return Other, true
	}
	for _, subj := range Subjects {
		if string(subj) == s {
			return subj, true
		}
	}
	return "", false
}

type Question struct {
	ID             string
	Text           string
	Subject        Subject
	Topic          string
	Answer         string
	AskCount       int
	Votes          vote.Ledger
	Upvotes        int // max(0, Votes.Net()) after each vote; may hold seeded popularity
	AskedBy        string
	AskedAt        time.Time // UTC
	AccuracyRating *int
	CreatedAt      time.Time // UTC
	UpdatedAt      time.Time // UTC
	Version        int64
}

// NetVotes is the display score: the ledger's net total, or the stored
// upvotes of questions that were never voted on.
func (q Question) NetVotes() int {
	if len(q.Votes) > 0 {
		return q.Votes.Net()
	}
	return q.Upvotes
}

func (q Question) Answered() bool { return q.Answer != "" }

// Featured reports whether q qualifies for the featured listing.
func (q Question) Featured() bool {
	return q.Answered() && (q.Upvotes >= FeaturedMinUpvotes || q.AskCount >= FeaturedMinAskCount)
}

const (
	FeaturedMinUpvotes  = 5
	FeaturedMinAskCount = 3
)

// AskRequest is what a student submits to get an answer.
type AskRequest struct {
	Question string `json:"question" validate:"required,notblank,max=2000"`
	Subject  string `json:"subject" validate:"omitempty,subject"`
	Topic    string `json:"topic" validate:"max=200"`
}

func (ar *AskRequest) Clean() {
	ar.Question = core.CleanString(ar.Question)
	ar.Subject = core.CleanString(ar.Subject)
	ar.Topic = core.CleanString(ar.Topic)
}

// Scope selects one of the history listings.
type Scope int

const (
	ScopeMine Scope = iota
	ScopeCommunity
	ScopeFeatured
)

// QueryFilter applies AND operation on its set fields.
type QueryFilter struct {
	Subject      Subject // zero value: any
	AskedBy      string  // only questions asked by this identity
	ExcludeAsker string  // hide questions asked by this identity
	AnsweredOnly bool
	FeaturedOnly bool
	Orderings    []core.DBOrdering
	Limit        int
	Skip         int
}

// Ordering fields understood by every Repository.
const (
	FieldAskedAt  = "asked_at"
	FieldAskCount = "ask_count"
	FieldUpvotes  = "upvotes"
)

// ListRequest holds the history query parameters.
type ListRequest struct {
	Subject string `query:"subject" validate:"omitempty,subject"`
	Limit   int    `query:"limit" validate:"gte=0"`
	Skip    int    `query:"skip" validate:"gte=0"`
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

func (lr *ListRequest) Clean() {
	lr.Subject = core.CleanString(lr.Subject)
	if strings.EqualFold(lr.Subject, AllSubjects) {
		lr.Subject = ""
	}
	if lr.Limit <= 0 {
		lr.Limit = DefaultListLimit
	}
	if lr.Limit > MaxListLimit {
		lr.Limit = MaxListLimit
	}
}

// View is a question as listed to a given viewer.
type View struct {
	ID       string         `json:"_id"`
	Text     string         `json:"text"`
	Subject  Subject        `json:"subject"`
	Topic    *string        `json:"topic"`
	Answer   string         `json:"answer"`
	AskedAt  time.Time      `json:"askedAt"`
	AskCount int            `json:"askCount"`
	Upvotes  int            `json:"upvotes"`
	NetVotes int            `json:"netVotes"`
	UserVote vote.Direction `json:"userVote"`
	AskedBy  *string        `json:"askedBy"`
}

// NewView renders q for viewer. When alias is set, a non-empty asker is
// replaced by it.
func NewView(q Question, viewer, alias string) View {
	net := q.NetVotes()
	v := View{
		ID:       q.ID,
		Text:     q.Text,
		Subject:  q.Subject,
		Answer:   q.Answer,
		AskedAt:  q.AskedAt,
		AskCount: q.AskCount,
		Upvotes:  vote.CacheValue(net),
		NetVotes: net,
		UserVote: q.Votes.Get(viewer),
	}
	if q.Topic != "" {
		topic := q.Topic
		v.Topic = &topic
	}
	if q.AskedBy != "" {
		askedBy := q.AskedBy
		if alias != "" {
			askedBy = alias
		}
		v.AskedBy = &askedBy
	}
	return v
}

// AskResult is returned once an answer was generated.
type AskResult struct {
	Success    bool      `json:"success"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Subject    Subject   `json:"subject"`
	Topic      *string   `json:"topic"`
	QuestionID *string   `json:"questionId"`
	Timestamp  time.Time `json:"timestamp"`
}

// VoteResult is returned after a vote was applied.
type VoteResult struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	NetVotes int            `json:"netVotes"`
	UserVote vote.Direction `json:"userVote"`
	Upvotes  int            `json:"upvotes"`
}
