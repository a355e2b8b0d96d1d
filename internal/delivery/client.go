package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Remote API paths, relative to the server base URL.
const (
	PathToken  = "/api/mac"
	PathMeals  = "/api/comidas"
	PathLogout = "/api/logout_mac"
)

// DefaultHTTPTimeout bounds each request to the server.
const DefaultHTTPTimeout = 10 * time.Second

// Client talks to the nutrition server.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithClientLogger sets the logger. Default: slog.Default().
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: DefaultHTTPTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenRequest struct {
	MAC string `json:"mac"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Token exchanges the device identity for a bearer token.
func (c *Client) Token(ctx context.Context, mac string) (string, error) {
	body, err := json.Marshal(tokenRequest{MAC: mac})
	if err != nil {
		return "", fmt.Errorf("encode token request: %w", err)
	}
	resp, err := c.post(ctx, "token", PathToken, "", body)
	if err != nil {
		return "", err
	}
	var tr tokenResponse
	if err := json.Unmarshal(resp, &tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.Token == "" {
		return "", fmt.Errorf("token response: empty token")
	}
	return tr.Token, nil
}

// Upload posts one meal document.
func (c *Client) Upload(ctx context.Context, token string, doc []byte) error {
	_, err := c.post(ctx, "upload", PathMeals, token, doc)
	return err
}

// Logout releases the token.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.post(ctx, "logout", PathLogout, token, nil)
	return err
}

func (c *Client) post(ctx context.Context, op, path, token string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, classify(err))
	}
	c.logger.Debug("server response", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UploadError{Op: op, Status: resp.StatusCode}
	}
	return data, nil
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", ErrRemoteTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNoNetwork, err)
}
