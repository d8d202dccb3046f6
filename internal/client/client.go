package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrsinham/medbrain/internal/auth"
)

// RequestIDHeader carries the per-request id on every outbound call.
const RequestIDHeader = "X-Request-ID"

// Paths are the record and session service routes, relative to the API URL.
type Paths struct {
	Records string
	Session string
	Profile string
	Login   string
}

// DefaultPaths are the routes served by the MedBrain backend.
var DefaultPaths = Paths{
	Records: "/auth/prescriptions",
	Session: "/auth/check",
	Profile: "/auth/update-profile",
	Login:   "/auth/login",
}

// Options configures a Client.
type Options struct {
	APIURL     string
	PredictURL string
	ChatURL    string
	Paths      Paths
	Token      string
	Timeout    time.Duration
	Logger     zerolog.Logger
	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the record, session, prediction and chat services.
type Client struct {
	http       *http.Client
	apiURL     string
	predictURL string
	chatURL    string
	paths      Paths
	token      string
	logger     zerolog.Logger
}

// New creates a client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	paths := opts.Paths
	if paths.Records == "" {
		paths.Records = DefaultPaths.Records
	}
	if paths.Session == "" {
		paths.Session = DefaultPaths.Session
	}
	if paths.Profile == "" {
		paths.Profile = DefaultPaths.Profile
	}
	if paths.Login == "" {
		paths.Login = DefaultPaths.Login
	}

	return &Client{
		http:       hc,
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		predictURL: opts.PredictURL,
		chatURL:    opts.ChatURL,
		paths:      paths,
		token:      opts.Token,
		logger:     opts.Logger,
	}
}

// WithToken returns a copy of c authenticating with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the session token the client sends.
func (c *Client) Token() string {
	return c.token
}

// NetworkError reports a request that never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap maps 401 and 403 to auth.ErrUnauthenticated.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return auth.ErrUnauthenticated
	}
	return nil
}

// IsRetryable reports whether err is a failure the user may simply try again.
func IsRetryable(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// request describes one outbound call.
type request struct {
	op          string
	method      string
	url         string
	body        io.Reader
	contentType string
	auth        bool
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(op, method, url string, in any, withAuth bool) (request, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return request{}, fmt.Errorf("%s: encoding request: %w", op, err)
	}
	return request{
		op:          op,
		method:      method,
		url:         url,
		body:        bytes.NewReader(payload),
		contentType: "application/json",
		auth:        withAuth,
	}, nil
}

// do sends r and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, r request, out any) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", r.op, err)
	}

	rid := uuid.NewString()
	req.Header.Set(RequestIDHeader, rid)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.auth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: c.token})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().
			Str("request_id", rid).
			Str("op", r.op).
			Str("method", r.method).
			Str("url", r.url).
			Dur("latency", time.Since(start)).
			Err(err).
			Msg("request failed")
		return nil, &NetworkError{Op: r.op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug().
		Str("request_id", rid).
		Str("op", r.op).
		Str("method", r.method).
		Str("url", r.url).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request")

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return resp, &NetworkError{Op: r.op, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, &StatusError{Op: r.op, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp, fmt.Errorf("%s: decoding response: %w", r.op, err)
		}
	}
	return resp, nil
}

// errorMessage extracts a readable message from an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
