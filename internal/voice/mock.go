package voice

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a local fallback used when no speech backend is configured.
// It produces deterministic transcripts so the relay path stays exercisable
// in development.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Start(_ context.Context) (RecognitionStream, error) {
	return &mockStream{results: make(chan Result, 64)}, nil
}

func (p *MockProvider) Synthesize(_ context.Context, voice, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("mock voice %q: empty text", voice)
	}
	return []byte("mock-audio:" + text), nil
}

type mockStream struct {
	mu      sync.Mutex
	results chan Result
	chunks  int
	closed  bool
}

func (s *mockStream) Write(_ context.Context, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(audio) == 0 {
		return nil
	}
	s.chunks++
	s.push(Result{Transcript: "simulated voice input"})
	if s.chunks%8 == 0 {
		s.push(Result{Transcript: "simulated voice input", Final: true})
	}
	return nil
}

// push drops the result when the buffer is full so a slow consumer can never
// wedge Write against Close.
func (s *mockStream) push(res Result) {
	select {
	case s.results <- res:
	default:
	}
}

func (s *mockStream) Results() <-chan Result { return s.results }

func (s *mockStream) Err() error { return nil }

func (s *mockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.results)
	return nil
}
