// Package aisvc answers student questions with the OpenAI chat completion API.
package aisvc

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/tutor"
)

const (
	codeInvalidAPIKey     = "invalid_api_key"
	codeInsufficientQuota = "insufficient_quota"
	codeModelNotFound     = "model_not_found"
	codeRateLimitExceeded = "rate_limit_exceeded"
)

type OpenAI struct {
	client *openai.Client
	conf   core.OpenAIConfig
	logger core.Logger
}

var _ tutor.Generator = (*OpenAI)(nil) // interface compliance check

func NewOpenAI(conf *core.Config, logger core.Logger) *OpenAI {
	cfg := openai.DefaultConfig(strings.TrimSpace(conf.OpenAI.APIKey))
	if conf.OpenAI.BaseURL != "" {
		cfg.BaseURL = conf.OpenAI.BaseURL
	}
	cfg.HTTPClient = &http.Client{Transport: &retryAfterTransport{next: http.DefaultTransport}}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		conf:   conf.OpenAI,
		logger: logger,
	}
}

func (o *OpenAI) Configured() bool {
	return o.conf.Configured()
}

func (o *OpenAI) Answer(ctx context.Context, p tutor.Prompt) (string, error) {
	if !o.Configured() {
		return "", tutor.ErrNotConfigured
	}

	hdr := &retryAfterHeader{}
	ctx = context.WithValue(ctx, retryAfterKey{}, hdr)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.conf.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: tutor.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: p.UserMessage()},
		},
		MaxTokens:   o.conf.MaxTokens,
		Temperature: o.conf.Temperature,
	})
	if err != nil {
		upErr := classify(err, o.conf.Model, hdr.get())
		o.logger.Error(fmt.Sprintf("openai: chat completion failed (%s)", upErr.Kind), err)
		return "", upErr
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify maps a client error to the kind the API reports to students.
func classify(err error, model, retryAfter string) *tutor.UpstreamError {
	var (
		status         int
		code, typ, msg string
		apiErr         *openai.APIError
		reqErr         *openai.RequestError
	)
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		typ = apiErr.Type
		msg = apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		msg = err.Error()
	default:
		msg = err.Error()
	}

	switch {
	case status == http.StatusUnauthorized || code == codeInvalidAPIKey:
		return &tutor.UpstreamError{
			Kind:    tutor.InvalidCredentials,
			Message: "The OpenAI API key is invalid or expired. Please check your OPENAI_API_KEY in the backend .env file.",
			Err:     err,
		}
	case status == http.StatusTooManyRequests && (code == codeInsufficientQuota || typ == codeInsufficientQuota):
		return &tutor.UpstreamError{
			Kind: tutor.QuotaExceeded,
			Message: "You have exceeded your OpenAI API quota. Please:\n" +
				"1. Add payment method to your OpenAI account at https://platform.openai.com/account/billing\n" +
				"2. Check your usage limits at https://platform.openai.com/usage\n" +
				"3. Upgrade your plan if needed.",
			Err: err,
		}
	case status == http.StatusForbidden || strings.Contains(msg, "does not have access") || code == codeModelNotFound:
		return &tutor.UpstreamError{
			Kind:  tutor.AccessDenied,
			Model: model,
			Message: fmt.Sprintf("Your OpenAI project does not have access to the model %q. Please either:\n"+
				"1. Check which models you have access to at https://platform.openai.com/playground\n"+
				"2. Try using \"gpt-4\" or contact OpenAI support to enable model access\n"+
				"3. Update OPENAI_MODEL in your .env file with a model you have access to", model),
			Err: err,
		}
	case status == http.StatusTooManyRequests || code == codeRateLimitExceeded:
		wait := parseRetryAfter(retryAfter)
		return &tutor.UpstreamError{
			Kind:       tutor.RateLimited,
			RetryAfter: wait,
			Message:    fmt.Sprintf("Too many requests to OpenAI. Please wait %d seconds before trying again.", wait),
			Err:        err,
		}
	}

	if msg == "" {
		msg = "Failed to generate AI response. Please try again later."
	}
	return &tutor.UpstreamError{Kind: tutor.Generic, Message: msg, Err: err}
}

// parseRetryAfter reads a Retry-After value in seconds, defaulting when absent or unreadable.
func parseRetryAfter(v string) int {
	v = strings.TrimSpace(v)
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return int(secs + 0.999)
	}
	return tutor.DefaultRetryAfter
}

// The client does not expose response headers on errors, so the transport
// hands the Retry-After of a throttled response back to the caller through the request context.

type retryAfterKey struct{}

type retryAfterHeader struct {
	mu    sync.Mutex
	value string
}

func (h *retryAfterHeader) set(v string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value = v
}

func (h *retryAfterHeader) get() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value
}

type retryAfterTransport struct {
	next http.RoundTripper
}

func (t *retryAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusTooManyRequests {
		return resp, err
	}
	if hdr, ok := req.Context().Value(retryAfterKey{}).(*retryAfterHeader); ok {
		hdr.set(resp.Header.Get("Retry-After"))
	}
	return resp, err
}
