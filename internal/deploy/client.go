package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response from the deployment platform.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vercel api status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Deployment is the subset of deployment state the poller tracks. The
// platform reports status under either "status" or "readyState" depending on
// the endpoint.
type Deployment struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	ReadyState   string   `json:"readyState"`
	URL          string   `json:"url"`
	AliasFinal   string   `json:"aliasFinal"`
	Aliases      []string `json:"alias"`
	ErrorMessage string   `json:"errorMessage"`
}

// State normalizes the reported status to the upper-case lifecycle names.
func (d Deployment) State() string {
	s := d.Status
	if s == "" {
		s = d.ReadyState
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// CanonicalURL prefers the primary url, falling back to aliases.
func (d Deployment) CanonicalURL() string {
	switch {
	case d.URL != "":
		return d.URL
	case d.AliasFinal != "":
		return d.AliasFinal
	case len(d.Aliases) > 0:
		return d.Aliases[0]
	default:
		return ""
	}
}

// Client is a minimal deployment platform REST client.
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

// CreateProject links a platform project to the given repository. Callers
// treat "already exists" failures as non-fatal.
func (c *Client) CreateProject(ctx context.Context, name, repoFullName string) error {
	body := map[string]any{
		"name":      name,
		"framework": "nextjs",
		"gitRepository": map[string]any{
			"repo": repoFullName,
			"type": "github",
		},
	}
	return c.do(ctx, http.MethodPost, "/v10/projects", body, nil)
}

// CreateDeployment triggers a git-based production deployment.
func (c *Client) CreateDeployment(ctx context.Context, name, owner, repo, ref string) (Deployment, error) {
	body := map[string]any{
		"name":   name,
		"target": "production",
		"gitSource": map[string]any{
			"type": "github",
			"repo": repo,
			"org":  owner,
			"ref":  ref,
		},
		"gitMetadata": map[string]any{
			"remoteUrl": "https://github.com/" + owner + "/" + repo,
			"commitRef": ref,
		},
	}
	var d Deployment
	if err := c.do(ctx, http.MethodPost, "/v13/deployments", body, &d); err != nil {
		return Deployment{}, err
	}
	return d, nil
}

// GetDeployment fetches current deployment state by id.
func (c *Client) GetDeployment(ctx context.Context, id string) (Deployment, error) {
	var d Deployment
	path := "/v13/deployments/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &d); err != nil {
		return Deployment{}, err
	}
	return d, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return readAPIError(res)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readAPIError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	apiErr := &APIError{StatusCode: res.StatusCode, Message: string(raw)}
	var obj struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Error.Message != "" {
		apiErr.Code = obj.Error.Code
		apiErr.Message = obj.Error.Message
	}
	return apiErr
}
