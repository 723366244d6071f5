// Package registry talks to the linked-data registry that publishes the
// compiled taxonomy.
package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wmo-im/codelists/internal/apperr"
)

const (
	// ContentType is sent with every document payload.
	ContentType = "text/turtle; charset=UTF-8"

	loginPath = "/system/security/apilogin"
	userIDURL = "https://api.github.com/users/"
	maxBody   = 4 << 10
)

// Publication statuses accepted by the registry.
const (
	StatusExperimental = "experimental"
	StatusStable       = "stable"
)

// Config configures a Client.
type Config struct {
	BaseURL  string
	Status   string
	User     string
	Password string
	DryRun   bool
	Timeout  time.Duration
	// Retries bounds additional attempts after a transport error or a 5xx
	// response. Zero disables retry.
	Retries   uint64
	RetryWait time.Duration
	Logger    *slog.Logger
}

// Client is a registry session. Authentication state lives in its cookie
// jar, so a Client must be logged in before it can write.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a client with an empty session.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: registry base url is required", apperr.ErrInvalidConfig)
	}
	if cfg.Status != StatusExperimental && cfg.Status != StatusStable {
		return nil, fmt.Errorf("%w: status must be %q or %q, got %q",
			apperr.ErrInvalidConfig, StatusExperimental, StatusStable, cfg.Status)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("registry: cookie jar: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Jar: jar, Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// BaseURL returns the registry root without a trailing slash.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Login opens an authenticated session. The user is a GitHub user id unless
// it is already given as a URL.
func (c *Client) Login(ctx context.Context) error {
	userID := c.cfg.User
	if !strings.Contains(userID, "://") {
		userID = userIDURL + userID
	}
	form := url.Values{"userid": {userID}, "password": {c.cfg.Password}}
	target := c.cfg.BaseURL + loginPath

	c.logger.Info("registry: authenticating", slog.String("url", target))
	status, body, err := c.do(ctx, http.MethodPost, target, nil,
		[]byte(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrAuthFailed, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d: %s", apperr.ErrAuthFailed, target, status, body)
	}
	return nil
}

// Fetch returns the current definition of the entry at address. found is
// false when the registry answers 404; any status other than 200 or 404 is
// an *UnexpectedStatusError.
func (c *Client) Fetch(ctx context.Context, address string) (data []byte, found bool, err error) {
	target := strings.TrimRight(address, "/") + "/"
	status, body, err := c.do(ctx, http.MethodGet, target, nil, nil, "")
	if err != nil {
		return nil, false, err
	}
	switch status {
	case http.StatusOK:
		return body, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, &UnexpectedStatusError{Method: http.MethodGet, URL: target, Status: status, Body: truncate(body)}
	}
}

// Create registers payload as a new member of the register at parent.
func (c *Client) Create(ctx context.Context, parent string, payload []byte) error {
	params := url.Values{"status": {c.cfg.Status}}
	return c.write(ctx, http.MethodPost, parent, params, payload, http.StatusCreated)
}

// Update replaces the definition of the entry at address, leaving its
// members untouched.
func (c *Client) Update(ctx context.Context, address string, payload []byte) error {
	params := url.Values{"status": {c.cfg.Status}, "non-member-properties": {"true"}}
	return c.write(ctx, http.MethodPut, address, params, payload, http.StatusNoContent)
}

func (c *Client) write(ctx context.Context, method, target string, params url.Values, payload []byte, want int) error {
	if c.cfg.DryRun {
		c.logger.Info("registry: dry run",
			slog.String("method", method),
			slog.String("url", target),
			slog.String("content_type", ContentType),
			slog.String("params", params.Encode()))
		return nil
	}
	c.logger.Debug("registry: sending",
		slog.String("method", method),
		slog.String("url", target),
		slog.String("params", params.Encode()))

	status, body, err := c.do(ctx, method, target, params, payload, ContentType)
	if err != nil {
		return err
	}
	if status != want {
		return &UnexpectedStatusError{Method: method, URL: target, Status: status, Body: truncate(body)}
	}
	return nil
}

// do sends one request, retrying transport errors and 5xx responses with
// exponential backoff. A POST answered with 5xx is not resent since the
// registry may already have created the item. The returned body is fully read.
func (c *Client) do(ctx context.Context, method, target string, params url.Values, payload []byte, contentType string) (int, []byte, error) {
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var (
		status int
		body   []byte
	)
	op := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("registry: build request: %w", err))
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if method == http.MethodGet {
			req.Header.Set("Accept", "text/turtle")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("registry: request failed",
				slog.String("method", method), slog.String("url", target), slog.String("error", err.Error()))
			return fmt.Errorf("registry: %s %s: %w", method, target, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("registry: read response: %w", err)
		}
		status, body = resp.StatusCode, data
		if status >= http.StatusInternalServerError && method != http.MethodPost {
			c.logger.Warn("registry: server error",
				slog.String("method", method), slog.String("url", target), slog.Int("status", status))
			return &UnexpectedStatusError{Method: method, URL: target, Status: status, Body: truncate(data)}
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryWait
	b.MaxElapsedTime = 0
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.Retries), ctx)); err != nil {
		return 0, nil, err
	}
	return status, body, nil
}

func truncate(body []byte) string {
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return strings.TrimSpace(string(body))
}
