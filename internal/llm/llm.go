// Package llm adapts text-generation backends to one capability interface
// with a single-shot call and an incremental fragment stream.
//
// All backends share one HTTP transport (backend) and differ only in their
// wire dialect. Construction fails fast when a credential is missing.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashita-ai/quill/internal/model"
)

// Role tags a message in a request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged request message.
type Message struct {
	Role    Role
	Content string
}

// Request is a generation request. MaxTokens and Temperature are passed to
// the backend unchanged.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// NewRequest builds a request from a system instruction and a user prompt.
func NewRequest(system, user string, maxTokens int, temperature float64) Request {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})
	return Request{Messages: msgs, MaxTokens: maxTokens, Temperature: temperature}
}

// Completion is the result of a single-shot call. Tokens is the number of
// output tokens the backend reported.
type Completion struct {
	Text   string
	Tokens int
	Model  string
}

// Provider is a text-generation backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Completion, error)
	// Stream starts a generation and returns its fragments. The caller must
	// drain the stream or Close it.
	Stream(ctx context.Context, req Request) (*Stream, error)
}

// PromptDelimiter separates system text from user text when a backend
// only accepts a single prompt.
const PromptDelimiter = "\n\n---\n\n"

// SystemText joins all system messages in order.
func SystemText(msgs []Message) string {
	return joinRole(msgs, RoleSystem)
}

// FlattenPrompt folds messages into one prompt: system text first, then
// the delimiter, then user text. Assistant messages are dropped.
func FlattenPrompt(msgs []Message) string {
	system := joinRole(msgs, RoleSystem)
	user := joinRole(msgs, RoleUser)
	if system == "" {
		return user
	}
	return system + PromptDelimiter + user
}

func joinRole(msgs []Message, role Role) string {
	var parts []string
	for _, m := range msgs {
		if m.Role == role && m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// ErrMissingCredential is returned by constructors when no API key is set.
var ErrMissingCredential = errors.New("llm: missing api key")

// Error is a normalized backend failure.
type Error struct {
	Provider   string
	Kind       model.FailureKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("llm: %s: %s", e.Provider, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode implements model.ErrorCoder.
func (e *Error) ErrorCode() string { return e.Kind.Code() }

// PublicMessage is the message shown across the API boundary.
func (e *Error) PublicMessage() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// IsRetryable reports whether err is a transient backend failure.
func IsRetryable(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind.Retryable()
}
