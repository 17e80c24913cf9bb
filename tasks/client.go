package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// BasePath is the collection endpoint of the Tasks API
const BasePath = "/api/tasks"

const maxErrorBody = 64 << 10

// Task is a to-do item owned by the authenticated user
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask is the payload used to create a task
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
	Category    string `json:"category,omitempty"`
}

// ListOptions filters List results
type ListOptions struct {
	// Completed filters on completion status when set
	Completed *bool
}

// Client calls the Tasks API. The HTTP client is expected to sign requests,
// see authclient.Signer.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Tasks API client rooted at baseURL
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// List returns the tasks of the authenticated user
func (c *Client) List(ctx context.Context, opts ...ListOptions) ([]Task, error) {
	endpoint := c.baseURL + BasePath
	if len(opts) > 0 && opts[0].Completed != nil {
		q := url.Values{}
		q.Set("completed", strconv.FormatBool(*opts[0].Completed))
		endpoint += "?" + q.Encode()
	}

	var out []Task
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Task{}
	}
	return out, nil
}

// Create adds a task. Title is required.
func (c *Client) Create(ctx context.Context, task NewTask) (*Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return nil, goerrors.New("task title is required", goerrors.CategoryValidation)
	}
	out := &Task{}
	if err := c.do(ctx, http.MethodPost, c.baseURL+BasePath, task, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleComplete flips the completion status of a task
func (c *Client) ToggleComplete(ctx context.Context, id string) (*Task, error) {
	out := &Task{}
	endpoint := fmt.Sprintf("%s%s/%s/complete", c.baseURL, BasePath, url.PathEscape(id))
	if err := c.do(ctx, http.MethodPatch, endpoint, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a task
func (c *Client) Delete(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s%s/%s", c.baseURL, BasePath, url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "tasks request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode tasks response")
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := http.StatusText(resp.StatusCode)
	var payload struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if s, ok := payload.Detail.(string); ok && strings.TrimSpace(s) != "" {
			message = s
		}
	}

	category := goerrors.CategoryOperation
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		category = goerrors.CategoryAuth
	case resp.StatusCode == http.StatusForbidden:
		category = goerrors.CategoryAuthz
	case resp.StatusCode == http.StatusNotFound:
		category = goerrors.CategoryNotFound
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		category = goerrors.CategoryValidation
	}

	return goerrors.New(message, category).
		WithMetadata(map[string]any{
			"status": resp.StatusCode,
		})
}

// Status returns the HTTP status carried by a Tasks API error, or 0
func Status(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return 0
	}
	status, _ := richErr.Metadata["status"].(int)
	return status
}
