// Package tutor defines how answers to student questions are generated.
package tutor

import (
	"context"
	"fmt"
	"strings"
)

const (
	SystemPrompt = "You are a helpful homework assistant. Provide clear, concise, and accurate answers to " +
		"student questions. Keep responses educational and easy to understand. If the question is unclear, " +
		"ask for clarification."

	// FallbackAnswer is used when the completion comes back empty.
	FallbackAnswer = "Sorry, I could not generate a response."

	// DefaultRetryAfter (seconds) is used when a rate limited upstream does not say when to retry.
	DefaultRetryAfter = 60
)

// Prompt is what a student asked.
type Prompt struct {
	Question string
	Subject  string
	Topic    string
}

// UserMessage renders the prompt sent along the system prompt.
func (p Prompt) UserMessage() string {
	if p.Subject == "" && p.Topic == "" {
		return p.Question
	}
	var b strings.Builder
	b.WriteString("Subject: ")
	b.WriteString(p.Subject)
	if p.Topic != "" {
		b.WriteString(", Topic: ")
		b.WriteString(p.Topic)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(p.Question)
	return b.String()
}

// Generator produces answers.
type Generator interface {
	// Configured reports whether the generator has credentials to run.
	Configured() bool
	// Answer returns the generated answer or an *UpstreamError.
	Answer(ctx context.Context, p Prompt) (string, error)
}

// Kind classifies upstream failures.
type Kind string

const (
	QuotaExceeded      Kind = "quota_exceeded"
	RateLimited        Kind = "rate_limited"
	AccessDenied       Kind = "access_denied"
	InvalidCredentials Kind = "invalid_credentials"
	NotConfigured      Kind = "not_configured"
	Generic            Kind = "generic"
)

// UpstreamError is returned by a Generator when the completion API fails.
type UpstreamError struct {
	Kind       Kind
	Message    string
	Model      string
	RetryAfter int // seconds, RateLimited only
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = &UpstreamError{
	Kind:    NotConfigured,
	Message: "The OpenAI API key is missing. Please add OPENAI_API_KEY to your backend .env file.",
}
