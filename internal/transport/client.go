// ===============================
// FILE: internal/transport/client.go
// ===============================

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// antiHijackPrefix guards JSON payloads against script inclusion; the
// service prepends it to every response and it must be stripped before
// parsing.
const antiHijackPrefix = "for (;;);"

// Session error codes reported by the service when the login state is no
// longer valid.
const (
	errCodeNotLoggedIn    = 1357001
	errCodeSessionExpired = 1357004
)

// ErrLoggedOut indicates the session cookies or form token were rejected.
var ErrLoggedOut = errors.New("session is no longer valid")

// Client posts form requests to the remote service. Every response passes
// through the session validator before it is handed back.
type Client interface {
	PostForm(ctx context.Context, endpoint string, fields url.Values) (*Response, error)
	PostMultipart(ctx context.Context, endpoint string, fields url.Values, fileField string, file io.Reader) (*Response, error)
}

// Response is a validated service response with the anti-hijack prefix
// already stripped. Raw is kept verbatim so error payloads can be passed
// through to callers untouched.
type Response struct {
	Raw []byte
}

// Get extracts a value from the response by dotted path.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Raw, path)
}

// Session carries the authenticated identity used on every request. Login
// and token refresh are the caller's concern.
type Session struct {
	// UserID is the numeric id of the authenticated account.
	UserID string

	// DTSG is the anti-CSRF form token attached to every post.
	DTSG string

	// Cookies are seeded into the client's jar on construction.
	Cookies []*http.Cookie
}

// Config holds transport configuration.
type Config struct {
	Timeout    time.Duration
	MaxRetries uint64
	UserAgent  string
}

// DefaultConfig provides default transport configuration values.
func DefaultConfig() *Config {
	return &Config{
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
}

type client struct {
	http    *http.Client
	session *Session
	cfg     *Config
	logger  *zap.Logger
}

// NewClient builds a cookie-jarred HTTP client bound to a session.
func NewClient(session *Session, cfg *Config, logger *zap.Logger) (Client, error) {
	if session == nil {
		return nil, errors.New("transport: session is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to create cookie jar: %w", err)
	}
	for _, c := range session.Cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			continue
		}
		jar.SetCookies(&url.URL{Scheme: "https", Host: domain, Path: "/"}, []*http.Cookie{c})
	}

	return &client{
		http:    &http.Client{Timeout: cfg.Timeout, Jar: jar},
		session: session,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// PostForm sends a urlencoded form post and validates the response.
func (c *client) PostForm(ctx context.Context, endpoint string, fields url.Values) (*Response, error) {
	form := url.Values{}
	for k, vs := range fields {
		form[k] = vs
	}
	c.applySession(form)
	encoded := form.Encode()

	return c.do(ctx, endpoint, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		return req, nil
	})
}

// PostMultipart sends a multipart form post carrying one file part. The
// file is buffered up front so the request can be rebuilt across retries.
func (c *client) PostMultipart(ctx context.Context, endpoint string, fields url.Values, fileField string, file io.Reader) (*Response, error) {
	form := url.Values{}
	for k, vs := range fields {
		form[k] = vs
	}
	c.applySession(form)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, vs := range form {
		for _, v := range vs {
			if err := writer.WriteField(k, v); err != nil {
				return nil, fmt.Errorf("transport: failed to write form field: %w", err)
			}
		}
	}
	part, err := writer.CreateFormFile(fileField, fileField)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("transport: failed to read attachment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("transport: failed to finalize multipart body: %w", err)
	}

	body := buf.Bytes()
	contentType := writer.FormDataContentType()

	return c.do(ctx, endpoint, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		return req, nil
	})
}

// applySession merges the session identity into the outgoing form.
func (c *client) applySession(form url.Values) {
	if c.session.DTSG != "" {
		form.Set("fb_dtsg", c.session.DTSG)
	}
	if c.session.UserID != "" {
		form.Set("__user", c.session.UserID)
	}
}

// do runs one request with retry on transient failures. Retry policy lives
// here, never in the pipeline above.
func (c *client) do(ctx context.Context, endpoint string, build func() (*http.Request, error)) (*Response, error) {
	var resp *Response
	operation := func() error {
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}
		httpResp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return err
		}
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("transport: server error %d from %s", httpResp.StatusCode, endpoint)
		}
		if httpResp.StatusCode >= http.StatusBadRequest {
			return backoff.Permanent(fmt.Errorf("transport: request to %s failed with status %d", endpoint, httpResp.StatusCode))
		}

		validated, err := validate(body)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp = validated
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.MaxRetries), ctx)
	err := backoff.RetryNotify(operation, b, func(err error, d time.Duration) {
		c.logger.Warn("Request attempt failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
			zap.Duration("backoff", d))
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// validate strips the anti-hijack prefix and rejects payloads reporting an
// invalid session. Everything else is handed back verbatim; error shapes
// specific to an operation are the caller's concern.
func validate(body []byte) (*Response, error) {
	trimmed := bytes.TrimPrefix(bytes.TrimSpace(body), []byte(antiHijackPrefix))
	code := gjson.GetBytes(trimmed, "error")
	if code.Type == gjson.Number {
		switch code.Int() {
		case errCodeNotLoggedIn, errCodeSessionExpired:
			summary := gjson.GetBytes(trimmed, "errorSummary").String()
			return nil, fmt.Errorf("%w (error %d: %s)", ErrLoggedOut, code.Int(), summary)
		}
	}
	return &Response{Raw: trimmed}, nil
}
