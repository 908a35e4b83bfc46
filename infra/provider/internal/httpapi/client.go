// Package httpapi is the HTTP plumbing shared by the aggregation
// adapters: OAuth client-credentials tokens with expiry caching, JSON
// round-trips, and mapping of provider HTTP statuses onto the domain's
// error kinds so the resilience layer can classify them.
package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/pkg/domain"
)

// Client wraps one provider's HTTP API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	now func() time.Time
}

// New builds a Client from the provider config.
func New(cfg config.BankProvider, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.ApiUrl, "/"),
		clientID:     cfg.ClientId,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger:       logger,
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a cached client-credentials token, refreshing it one
// minute before expiry.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := classifyStatus(resp.StatusCode); err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: decode token: %v", domain.ErrProviderUnavailable, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrProviderAuth)
	}

	c.token = tok.AccessToken
	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.tokenExpiry = c.now().Add(time.Duration(expiresIn) * time.Second)
	return c.token, nil
}

// DoJSON performs a bearer-authenticated request and decodes the 2xx
// response body into out. Non-2xx statuses become classified errors.
func (c *Client) DoJSON(ctx context.Context, method, path, token string, body, out any) error {
	resp, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := classifyStatus(resp.StatusCode); err != nil {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("provider request failed",
			"method", method, "path", path, "status", resp.StatusCode, "body", string(payload))
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", domain.ErrProviderUnavailable, method, path, err)
	}
	return nil
}

// DoStatus performs a bearer-authenticated request and returns the HTTP
// status. Auth, rate-limit and server-side failures still surface as
// classified errors; other statuses are the caller's to interpret.
func (c *Client) DoStatus(ctx context.Context, method, path, token string, body any) (int, error) {
	resp, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return resp.StatusCode, classifyStatus(resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return resp.StatusCode, classifyStatus(resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrProviderUnavailable, method, path, err)
	}
	return resp, nil
}

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", domain.ErrProviderAuth, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", domain.ErrRateLimitExceeded, status)
	case status >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, status)
	default:
		return fmt.Errorf("provider rejected request: status %d", status)
	}
}
