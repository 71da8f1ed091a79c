package deploy

import (
	"context"
	"errors"
	"time"
)

// Service builds a per-call client around the caller's token and runs the
// deployment state machine.
type Service struct {
	BaseURL  string
	Interval time.Duration
	Timeout  time.Duration
	Observe  PollObserver
}

func (s Service) Deploy(ctx context.Context, token, repoFullName, branch string) (string, error) {
	if token == "" {
		return "", &TriggerError{Err: errors.New("vercel token is required")}
	}
	client := NewClient(s.BaseURL, token)
	poller := NewPoller(client, s.Interval, s.Timeout)
	if s.Observe != nil {
		poller.SetPollObserver(s.Observe)
	}
	return poller.Deploy(ctx, repoFullName, branch)
}
