package githost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nakulbh/sanka/internal/reliability"
)

const (
	maxAttempts = 3
	backoffBase = 500 * time.Millisecond
	backoffCap  = 5 * time.Second
)

// APIError is a non-2xx response from the repo host.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api status %d: %s", e.StatusCode, e.Message)
}

var ErrRefNotFound = errors.New("branch ref not found")

// Client is a minimal GitHub REST v3 client covering the publish sequence.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Repo is the subset of repository metadata the publisher needs.
type Repo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// TreeEntry references one uploaded blob in a new tree.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	var out struct {
		Login string `json:"login"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, &out); err != nil {
		return "", err
	}
	return out.Login, nil
}

func (c *Client) CreateRepo(ctx context.Context, name string, autoInit bool) (Repo, error) {
	body := map[string]any{
		"name":      name,
		"private":   false,
		"auto_init": autoInit,
	}
	var repo Repo
	if err := c.do(ctx, http.MethodPost, "/user/repos", body, &repo); err != nil {
		return Repo{}, err
	}
	return repo, nil
}

// RefSHA resolves the head commit of a branch. Returns ErrRefNotFound while
// the host is still provisioning the default branch.
func (c *Client) RefSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	var out struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return "", ErrRefNotFound
	}
	if err != nil {
		return "", err
	}
	return out.Object.SHA, nil
}

func (c *Client) CommitTreeSHA(ctx context.Context, owner, repo, commitSHA string) (string, error) {
	var out struct {
		Tree struct {
			SHA string `json:"sha"`
		} `json:"tree"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/commits/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(commitSHA))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Tree.SHA, nil
}

func (c *Client) CreateBlob(ctx context.Context, owner, repo, content, encoding string) (string, error) {
	body := map[string]any{
		"content":  content,
		"encoding": encoding,
	}
	var out struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/blobs", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

func (c *Client) CreateTree(ctx context.Context, owner, repo, baseTree string, entries []TreeEntry) (string, error) {
	body := map[string]any{
		"tree": entries,
	}
	if baseTree != "" {
		body["base_tree"] = baseTree
	}
	var out struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/trees", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

func (c *Client) CreateCommit(ctx context.Context, owner, repo, message, treeSHA string, parents []string) (string, error) {
	if parents == nil {
		parents = []string{}
	}
	body := map[string]any{
		"message": message,
		"tree":    treeSHA,
		"parents": parents,
	}
	var out struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/commits", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

func (c *Client) UpdateRef(ctx context.Context, owner, repo, branch, sha string, force bool) error {
	body := map[string]any{
		"sha":   sha,
		"force": force,
	}
	path := fmt.Sprintf("/repos/%s/%s/git/refs/heads/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// do issues one API call, retrying transient statuses with capped backoff.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, backoffBase, backoffCap)):
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send request: %w", err)
			continue
		}

		if res.StatusCode >= 200 && res.StatusCode < 300 {
			if out == nil {
				res.Body.Close()
				return nil
			}
			err := json.NewDecoder(res.Body).Decode(out)
			res.Body.Close()
			if err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}

		msg := readAPIMessage(res.Body)
		res.Body.Close()
		lastErr = &APIError{StatusCode: res.StatusCode, Message: msg}
		if !reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return lastErr
		}
	}
	return lastErr
}

func readAPIMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4<<10))
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
