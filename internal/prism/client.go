// Package prism is a small Prism Central v3 REST client covering what the
// reconciler needs: paged listing, policy updates and task polling.
package prism

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/micrictor/flowbase/internal/config"
	"github.com/micrictor/flowbase/internal/policy"
	"github.com/micrictor/flowbase/internal/token"
)

// A session cookie is dropped this long before its exp claim.
const SESSION_MARGIN = 30 * time.Second

var errTaskPending = errors.New("task pending")

type Client struct {
	http     *resty.Client
	user     string
	password string

	pollInterval time.Duration
	pollAttempts int

	session       string
	sessionExpiry time.Time
	now           func() time.Time
}

type Option func(*Client)

// WithPolling sets the AwaitTask interval and attempt cap.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.pollAttempts = attempts
	}
}

// WithBaseURL overrides the API root derived from the config.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.http.SetBaseURL(url)
	}
}

func NewClient(cfg config.PrismConfig, password string, opts ...Option) *Client {
	c := &Client{
		http:         resty.New(),
		user:         cfg.User,
		password:     password,
		pollInterval: config.DEFAULT_POLL_INTERVAL,
		pollAttempts: config.DEFAULT_POLL_ATTEMPTS,
		now:          time.Now,
	}
	c.http.
		SetBaseURL(cfg.BaseURL()).
		SetTimeout(cfg.Timeout).
		SetCookieJar(nil).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		OnBeforeRequest(c.authenticate).
		OnAfterResponse(c.captureSession)
	if cfg.Insecure {
		c.http.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) authenticate(_ *resty.Client, r *resty.Request) error {
	if c.session != "" && c.now().Add(SESSION_MARGIN).Before(c.sessionExpiry) {
		r.SetCookie(&http.Cookie{Name: token.SESSION_COOKIE, Value: c.session})
		return nil
	}
	c.session = ""
	r.SetBasicAuth(c.user, c.password)
	return nil
}

func (c *Client) captureSession(_ *resty.Client, resp *resty.Response) error {
	if resp.StatusCode() == http.StatusUnauthorized {
		c.session = ""
		return nil
	}
	for _, ck := range resp.Cookies() {
		if ck.Name != token.SESSION_COOKIE || ck.Value == "" {
			continue
		}
		exp, err := token.SessionExpiry(ck.Value)
		if err != nil {
			// Unreadable token: keep using basic auth.
			continue
		}
		c.session, c.sessionExpiry = ck.Value, exp
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode(), Body: string(resp.Body())}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("unexpected response from %s %s, response: %s, err: %w", method, path, string(resp.Body()), err)
	}
	return nil
}

type listRequest struct {
	Kind   string `json:"kind"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

type listResponse struct {
	Metadata struct {
		TotalMatches int `json:"total_matches"`
	} `json:"metadata"`
	Entities []policy.Record `json:"entities"`
}

// ListPage fetches one page of kind starting at offset.
func (c *Client) ListPage(ctx context.Context, kind string, offset, length int) (Page, error) {
	var out listResponse
	err := c.do(ctx, http.MethodPost, "/"+kind+"s/list", listRequest{Kind: kind, Offset: offset, Length: length}, &out)
	if err != nil {
		return Page{}, fmt.Errorf("list %s: %w", kind, err)
	}
	return Page{Entities: out.Entities, TotalMatches: out.Metadata.TotalMatches}, nil
}

type updateResponse struct {
	Status struct {
		ExecutionContext struct {
			TaskUUID string `json:"task_uuid"`
		} `json:"execution_context"`
	} `json:"status"`
}

// Update replaces the entity and returns the uuid of the task applying it.
func (c *Client) Update(ctx context.Context, kind, uuid string, payload policy.Record) (string, error) {
	var out updateResponse
	if err := c.do(ctx, http.MethodPut, "/"+kind+"s/"+uuid, payload, &out); err != nil {
		return "", fmt.Errorf("update %s %s: %w", kind, uuid, err)
	}
	task := out.Status.ExecutionContext.TaskUUID
	if task == "" {
		return "", fmt.Errorf("update %s %s: response carries no task uuid", kind, uuid)
	}
	return task, nil
}

type taskResponse struct {
	Status      string `json:"status"`
	Percent     int    `json:"percentage_complete"`
	ErrorDetail string `json:"error_detail"`
}

func (c *Client) taskStatus(ctx context.Context, taskUUID string) (TaskStatus, error) {
	var out taskResponse
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskUUID, nil, &out); err != nil {
		return TaskStatus{}, err
	}
	return TaskStatus{State: out.Status, Percent: out.Percent, Detail: out.ErrorDetail}, nil
}

// AwaitTask polls the task at a fixed interval until it is terminal, the
// attempt cap is reached (ErrTaskTimeout) or ctx is done. Transient errors
// are retried; credential failures are not.
func (c *Client) AwaitTask(ctx context.Context, taskUUID string) (TaskStatus, error) {
	var last TaskStatus
	attempts := c.pollAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.pollInterval), uint64(attempts-1)),
		ctx,
	)

	err := backoff.Retry(func() error {
		st, err := c.taskStatus(ctx, taskUUID)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.Unauthorized() {
				return backoff.Permanent(err)
			}
			return err
		}
		last = st
		if !st.Terminal() {
			return errTaskPending
		}
		return nil
	}, b)

	switch {
	case err == nil:
		return last, nil
	case errors.Is(err, errTaskPending):
		return last, fmt.Errorf("task %s at %d%%: %w", taskUUID, last.Percent, ErrTaskTimeout)
	default:
		return last, fmt.Errorf("task %s: %w", taskUUID, err)
	}
}
