package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	LoginPath    = "/api/auth/login"
	RegisterPath = "/api/auth/register"
	ProbePath    = "/api/tasks"
)

// maxErrorBody bounds how much of an error response is read for detail
const maxErrorBody = 64 << 10

// HTTPAuthService talks to the remote Auth Service over HTTP.
type HTTPAuthService struct {
	baseURL    string
	probePath  string
	httpClient *http.Client
	logger     Logger
}

var _ AuthService = (*HTTPAuthService)(nil)

// HTTPAuthServiceOption customizes the client
type HTTPAuthServiceOption func(*HTTPAuthService)

// WithHTTPClient sets the HTTP client. The client should not sign
// requests itself; the service sets its own headers.
func WithHTTPClient(c *http.Client) HTTPAuthServiceOption {
	return func(s *HTTPAuthService) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithProbePath overrides the protected endpoint used as liveness probe.
func WithProbePath(path string) HTTPAuthServiceOption {
	return func(s *HTTPAuthService) {
		if path != "" {
			s.probePath = path
		}
	}
}

// WithServiceLogger sets the logger
func WithServiceLogger(l Logger) HTTPAuthServiceOption {
	return func(s *HTTPAuthService) {
		s.logger = normalizeLogger(l)
	}
}

// NewHTTPAuthService returns a client for the Auth Service rooted at baseURL
func NewHTTPAuthService(baseURL string, opts ...HTTPAuthServiceOption) (*HTTPAuthService, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, goerrors.New("invalid auth service base URL", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"base_url": baseURL})
	}

	s := &HTTPAuthService{
		baseURL:    strings.TrimRight(u.String(), "/"),
		probePath:  ProbePath,
		httpClient: http.DefaultClient,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// BaseURL returns the normalized base URL
func (s *HTTPAuthService) BaseURL() string {
	return s.baseURL
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login submits the credentials as a form and returns the access token.
func (s *HTTPAuthService) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+LoginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("login request failed", "error", err)
		return "", NewAuthError(0, "", defaultLoginFailure)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", NewAuthError(resp.StatusCode, readDetail(resp.Body), defaultLoginFailure)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode login response")
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", ErrNoToken
	}
	return payload.AccessToken, nil
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register submits a JSON registration and returns the created user record.
func (s *HTTPAuthService) Register(ctx context.Context, email, password, name string) (*UserRecord, error) {
	body, err := json.Marshal(registerRequest{Email: email, Password: password, Name: name})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode registration")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+RegisterPath, bytes.NewReader(body))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build registration request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("registration request failed", "error", err)
		return nil, NewAuthError(0, "", defaultRegisterFailure)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, NewAuthError(resp.StatusCode, readDetail(resp.Body), defaultRegisterFailure)
	}

	record := &UserRecord{}
	if err := json.NewDecoder(resp.Body).Decode(record); err != nil {
		// the account exists; the record is informational only
		s.logger.Warn("failed to decode registration response", "error", err)
	}
	return record, nil
}

// Probe performs an authenticated GET against the protected endpoint.
// Any non-2xx status or transport failure is a ProbeFailure.
func (s *HTTPAuthService) Probe(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+s.probePath, nil)
	if err != nil {
		return probeFailure(0, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return probeFailure(0, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if !isSuccess(resp.StatusCode) {
		return probeFailure(resp.StatusCode, fmt.Errorf("probe returned status %d", resp.StatusCode))
	}
	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// readDetail extracts the server's human readable reason. The body is
// expected as {"detail": "..."}; validation failures send a list of
// {"msg": "..."} entries instead.
func readDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		return detail
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
