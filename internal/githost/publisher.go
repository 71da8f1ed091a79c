package githost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nakulbh/sanka/internal/archive"
)

// ErrBackendNotReady means the default branch ref never became resolvable
// within the bounded retry budget. It escalates into a PublishError.
var ErrBackendNotReady = errors.New("repository backend not ready")

// PublishError wraps any failure in the publish sequence with the step that
// caused it. No partial repository is referenced by the session on failure.
type PublishError struct {
	Step string
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed at %s: %v", e.Step, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// API is the slice of the repo host client the publisher depends on.
type API interface {
	AuthenticatedUser(ctx context.Context) (string, error)
	CreateRepo(ctx context.Context, name string, autoInit bool) (Repo, error)
	RefSHA(ctx context.Context, owner, repo, branch string) (string, error)
	CommitTreeSHA(ctx context.Context, owner, repo, commitSHA string) (string, error)
	CreateBlob(ctx context.Context, owner, repo, content, encoding string) (string, error)
	CreateTree(ctx context.Context, owner, repo, baseTree string, entries []TreeEntry) (string, error)
	CreateCommit(ctx context.Context, owner, repo, message, treeSHA string, parents []string) (string, error)
	UpdateRef(ctx context.Context, owner, repo, branch, sha string, force bool) error
}

// Result identifies the published repository and its head commit.
type Result struct {
	FullName      string
	HeadCommitSHA string
}

// Publisher drives the create, wait-for-ref, upload, commit sequence.
type Publisher struct {
	api         API
	branch      string
	refAttempts int
	refDelay    time.Duration
	sleep       func(time.Duration)
}

func NewPublisher(api API, branch string, refAttempts int, refDelay time.Duration) *Publisher {
	if branch == "" {
		branch = "main"
	}
	if refAttempts < 1 {
		refAttempts = 1
	}
	return &Publisher{
		api:         api,
		branch:      branch,
		refAttempts: refAttempts,
		refDelay:    refDelay,
		sleep:       time.Sleep,
	}
}

// Publish creates a public repository containing exactly the given files as
// one commit on the default branch.
func (p *Publisher) Publish(ctx context.Context, name string, files []archive.File) (Result, error) {
	if len(files) == 0 {
		return Result{}, &PublishError{Step: "validate input", Err: errors.New("no files to publish")}
	}

	owner, err := p.api.AuthenticatedUser(ctx)
	if err != nil {
		return Result{}, &PublishError{Step: "resolve account", Err: err}
	}

	// auto_init gives the repo a resolvable default branch to commit onto;
	// the host provisions it asynchronously, hence the bounded ref wait.
	repo, err := p.api.CreateRepo(ctx, name, true)
	if err != nil {
		return Result{}, &PublishError{Step: "create repository", Err: err}
	}
	if repo.Owner.Login != "" {
		owner = repo.Owner.Login
	}
	repoName := repo.Name
	if repoName == "" {
		repoName = name
	}

	baseSHA, err := p.waitForRef(ctx, owner, repoName)
	if err != nil {
		return Result{}, &PublishError{Step: "wait for branch ref", Err: err}
	}

	baseTree, err := p.api.CommitTreeSHA(ctx, owner, repoName, baseSHA)
	if err != nil {
		return Result{}, &PublishError{Step: "resolve base tree", Err: err}
	}

	entries, err := p.uploadBlobs(ctx, owner, repoName, files)
	if err != nil {
		return Result{}, &PublishError{Step: "upload blobs", Err: err}
	}

	treeSHA, err := p.api.CreateTree(ctx, owner, repoName, baseTree, entries)
	if err != nil {
		return Result{}, &PublishError{Step: "create tree", Err: err}
	}

	commitSHA, err := p.api.CreateCommit(ctx, owner, repoName, "Initial project push", treeSHA, []string{baseSHA})
	if err != nil {
		return Result{}, &PublishError{Step: "create commit", Err: err}
	}

	if err := p.api.UpdateRef(ctx, owner, repoName, p.branch, commitSHA, true); err != nil {
		return Result{}, &PublishError{Step: "update ref", Err: err}
	}

	fullName := repo.FullName
	if fullName == "" {
		fullName = owner + "/" + repoName
	}
	return Result{FullName: fullName, HeadCommitSHA: commitSHA}, nil
}

// waitForRef polls the default branch ref for a bounded attempt count.
func (p *Publisher) waitForRef(ctx context.Context, owner, repo string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= p.refAttempts; attempt++ {
		sha, err := p.api.RefSHA(ctx, owner, repo, p.branch)
		if err == nil {
			return sha, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < p.refAttempts {
			p.sleep(p.refDelay)
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrBackendNotReady, p.refAttempts, lastErr)
}

// uploadBlobs stores every file's content as an immutable object, in parallel.
func (p *Publisher) uploadBlobs(ctx context.Context, owner, repo string, files []archive.File) ([]TreeEntry, error) {
	entries := make([]TreeEntry, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f archive.File) {
			defer wg.Done()
			encoding := f.Encoding
			if encoding == "" {
				encoding = archive.EncodingUTF8
			}
			sha, err := p.api.CreateBlob(ctx, owner, repo, f.Content, encoding)
			if err != nil {
				errs[i] = fmt.Errorf("blob %s: %w", f.Path, err)
				return
			}
			entries[i] = TreeEntry{Path: f.Path, Mode: "100644", Type: "blob", SHA: sha}
		}(i, f)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}
