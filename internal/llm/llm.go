// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm abstracts the hosted language model behind a Completer so the
// stages that use it can be exercised with a deterministic stub.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnavailable is returned when the model cannot be reached, rejects
	// the request, or does not answer in time.
	ErrUnavailable = errors.New("language model unavailable")

	// ErrOutputInvalid is returned when the model answers with output that
	// cannot be parsed or fails structural validation.
	ErrOutputInvalid = errors.New("language model output invalid")
)

// Message is one turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Completer returns the model's text reply to a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Stub is a deterministic Completer. Reply computes the answer for each
// request; a nil Reply behaves like an unreachable model.
type Stub struct {
	Reply func(req Request) (string, error)

	mu    sync.Mutex
	calls []Request
}

// Fixed returns a Stub that always answers text.
func Fixed(text string) *Stub {
	return &Stub{Reply: func(Request) (string, error) { return text, nil }}
}

// Unavailable returns a Stub that always fails with ErrUnavailable.
func Unavailable() *Stub {
	return &Stub{}
}

// Complete records req and returns Reply's answer.
func (s *Stub) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if s.Reply == nil {
		return "", fmt.Errorf("%w: stub offline", ErrUnavailable)
	}
	return s.Reply(req)
}

// Calls returns the requests seen so far.
func (s *Stub) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}
