package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoGeneratedApp = errors.New("no app found to push. Please generate one first")
	ErrNoRepo         = errors.New("no GitHub repo found. Please push your app before deploying")
	ErrBusy           = errors.New("another command is still running. Please wait for it to finish")
)

// GeneratedApp holds the output of a successful generate step.
type GeneratedApp struct {
	Name    string
	Archive []byte
}

// RepoRef identifies the repository produced by a successful push step.
type RepoRef struct {
	Owner string
	Name  string
}

func (r RepoRef) FullName() string { return r.Owner + "/" + r.Name }

// ParseRepoRef splits "owner/name" into a RepoRef.
func ParseRepoRef(fullName string) (RepoRef, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("repository reference must be owner/name, got %q", fullName)
	}
	return RepoRef{Owner: parts[0], Name: parts[1]}, nil
}

// Session is the per-connection pipeline state linking generate, push and
// deploy. It is owned by one connection handler; the mutex covers the action
// goroutines that handler spawns.
type Session struct {
	ID        string
	StartedAt time.Time

	mu       sync.Mutex
	app      *GeneratedApp
	repo     *RepoRef
	inFlight bool
}

func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// TryBegin marks an action as in flight. It reports false when another action
// is already running; the caller must reject the new command in that case.
func (s *Session) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

// End clears the in-flight marker. Safe to call without a matching TryBegin.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// SetGeneratedApp replaces the stored app. Called on generate success only.
func (s *Session) SetGeneratedApp(name string, archive []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app = &GeneratedApp{Name: name, Archive: archive}
}

// GeneratedApp returns a copy of the stored app, or an error when the push
// precondition is not met.
func (s *Session) GeneratedApp() (GeneratedApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.app == nil {
		return GeneratedApp{}, ErrNoGeneratedApp
	}
	return *s.app, nil
}

// SetRepo records the published repository. Called on push success only.
func (s *Session) SetRepo(ref RepoRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repo = &ref
}

// Repo returns the published repository reference, or an error when the
// deploy precondition is not met.
func (s *Session) Repo() (RepoRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil {
		return RepoRef{}, ErrNoRepo
	}
	return *s.repo, nil
}
