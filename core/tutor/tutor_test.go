package tutor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrompt_UserMessage(t *testing.T) {
	tests := []struct {
		name   string
		prompt Prompt
		want   string
	}{
		{name: "question only", prompt: Prompt{Question: "What is 2+2?"}, want: "What is 2+2?"},
		{
			name:   "subject",
			prompt: Prompt{Question: "What is 2+2?", Subject: "Math"},
			want:   "Subject: Math\n\nQuestion: What is 2+2?",
		},
		{
			name:   "subject and topic",
			prompt: Prompt{Question: "What is 2+2?", Subject: "Math", Topic: "Addition"},
			want:   "Subject: Math, Topic: Addition\n\nQuestion: What is 2+2?",
		},
		{
			name:   "topic only",
			prompt: Prompt{Question: "What is 2+2?", Topic: "Addition"},
			want:   "Subject: , Topic: Addition\n\nQuestion: What is 2+2?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.prompt.UserMessage())
		})
	}
}

func TestUpstreamError(t *testing.T) {
	inner := errors.New("boom")
	err := &UpstreamError{Kind: Generic, Err: inner}

	assert.Equal(t, "generic: boom", err.Error())
	assert.True(t, errors.Is(err, inner))

	var upErr *UpstreamError
	assert.True(t, errors.As(ErrNotConfigured, &upErr))
	assert.Equal(t, NotConfigured, upErr.Kind)
}
