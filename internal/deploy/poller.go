package deploy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nakulbh/sanka/internal/session"
)

// Deployment lifecycle states. READY, ERROR and CANCELED are terminal.
const (
	StateQueued   = "QUEUED"
	StateBuilding = "BUILDING"
	StateReady    = "READY"
	StateError    = "ERROR"
	StateCanceled = "CANCELED"
)

// TriggerError means the deployment could not be created at all.
type TriggerError struct {
	Err error
}

func (e *TriggerError) Error() string {
	return "failed to trigger deployment: " + e.Err.Error()
}

func (e *TriggerError) Unwrap() error { return e.Err }

// FailedError carries the remote error message of a terminal failure.
type FailedError struct {
	Status  string
	Message string
}

func (e *FailedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown"
	}
	return fmt.Sprintf("deployment failed with status=%s. Reason: %s", e.Status, msg)
}

// TimeoutError means no terminal state was observed within the wait budget.
type TimeoutError struct {
	Waited     time.Duration
	LastStatus string
}

func (e *TimeoutError) Error() string {
	status := e.LastStatus
	if status == "" {
		status = "unknown"
	}
	return fmt.Sprintf("timed out waiting for deployment to be READY (waited %ds). Current status: %s",
		int(e.Waited.Seconds()), status)
}

// API is the slice of the platform client the poller depends on.
type API interface {
	CreateProject(ctx context.Context, name, repoFullName string) error
	CreateDeployment(ctx context.Context, name, owner, repo, ref string) (Deployment, error)
	GetDeployment(ctx context.Context, id string) (Deployment, error)
}

// PollObserver is notified on every status fetch; used for metrics.
type PollObserver func()

// Poller drives the create, poll-until-terminal deployment state machine.
type Poller struct {
	api      API
	interval time.Duration
	timeout  time.Duration
	observe  PollObserver
}

func NewPoller(api API, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Poller{api: api, interval: interval, timeout: timeout}
}

// SetPollObserver registers a callback fired on each poll iteration.
func (p *Poller) SetPollObserver(fn PollObserver) { p.observe = fn }

// Deploy produces a live URL for the given repository and branch, or fails
// with one of the typed errors above.
func (p *Poller) Deploy(ctx context.Context, repoFullName, branch string) (string, error) {
	ref, err := session.ParseRepoRef(repoFullName)
	if err != nil {
		return "", &TriggerError{Err: err}
	}
	if branch == "" {
		branch = "main"
	}

	// Project creation is best effort: "already exists" and permission
	// conflicts must not block the deployment itself.
	if err := p.api.CreateProject(ctx, ref.Name, repoFullName); err != nil {
		log.Printf("createProject warning: %v", err)
	}

	dep, err := p.api.CreateDeployment(ctx, ref.Name, ref.Owner, ref.Name, branch)
	if err != nil {
		return "", &TriggerError{Err: err}
	}
	if dep.ID == "" {
		return "", &TriggerError{Err: errors.New("platform returned a deployment without an id")}
	}

	return p.poll(ctx, dep)
}

func (p *Poller) poll(ctx context.Context, dep Deployment) (string, error) {
	start := time.Now()
	last := dep

	for {
		elapsed := time.Since(start)
		if elapsed > p.timeout {
			return "", &TimeoutError{Waited: p.timeout, LastStatus: last.State()}
		}

		switch last.State() {
		case StateReady:
			url := last.CanonicalURL()
			if url == "" {
				return "", &FailedError{Status: StateReady, Message: "deployment ready but no url reported"}
			}
			return url, nil
		case StateError, StateCanceled:
			return "", &FailedError{Status: last.State(), Message: last.ErrorMessage}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.interval):
		}

		if p.observe != nil {
			p.observe()
		}
		fetched, err := p.api.GetDeployment(ctx, dep.ID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// Transient fetch failures never abort the poll loop.
			log.Printf("fetchDeployment error: %v", err)
			continue
		}
		last = fetched
	}
}
