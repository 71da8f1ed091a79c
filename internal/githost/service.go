package githost

import (
	"context"
	"errors"
	"time"

	"github.com/nakulbh/sanka/internal/archive"
)

// Service builds a per-call client around the caller's token and runs the
// publish sequence. Credentials arrive with each command, so clients are
// short-lived.
type Service struct {
	BaseURL     string
	Branch      string
	RefAttempts int
	RefDelay    time.Duration
}

func (s Service) Publish(ctx context.Context, token, name string, files []archive.File) (Result, error) {
	if token == "" {
		return Result{}, &PublishError{Step: "validate input", Err: errors.New("github token is required")}
	}
	client := NewClient(s.BaseURL, token)
	pub := NewPublisher(client, s.Branch, s.RefAttempts, s.RefDelay)
	return pub.Publish(ctx, name, files)
}
