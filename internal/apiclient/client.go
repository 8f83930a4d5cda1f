// Package apiclient is the thin HTTP client opsctl uses to talk to the
// ops API. Reads retry briefly on transient failures; writes are sent
// exactly once.
package apiclient

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

	"github.com/cenkalti/backoff/v4"

	"github.com/example/wrapshop-ops/api-go/internal/model"
)

type Client struct {
	BaseURL string
	Session string
	HTTP    *http.Client
}

func New(baseURL, session string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Session: session,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Task is the worklist item as served by the API: the derived task
// plus its stable dismissal key.
type Task struct {
	Key string `json:"key"`
	model.Task
}

type CreateJob struct {
	Title            string        `json:"title"`
	Status           string        `json:"status,omitempty"`
	PipeStage        string        `json:"pipeStage,omitempty"`
	VehicleDesc      string        `json:"vehicleDesc,omitempty"`
	Material         string        `json:"material,omitempty"`
	Revenue          float64       `json:"revenue,omitempty"`
	DepositReceived  bool          `json:"depositReceived,omitempty"`
	ContractSigned   bool          `json:"contractSigned,omitempty"`
	InstallDate      string        `json:"installDate,omitempty"`
	BidStatus        string        `json:"bidStatus,omitempty"`
	Agent            *model.Person `json:"agent,omitempty"`
	Installer        *model.Person `json:"installer,omitempty"`
	ProductionPerson *model.Person `json:"productionPerson,omitempty"`
}

func (c *Client) Tasks(ctx context.Context, role, assignee string) ([]Task, error) {
	q := url.Values{}
	if role != "" {
		q.Set("role", role)
	}
	if assignee != "" {
		q.Set("assignee", assignee)
	}
	var out []Task
	if err := c.getJSON(ctx, "/v1/tasks", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Jobs(ctx context.Context, status, stage string, limit int) ([]model.Job, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if stage != "" {
		q.Set("stage", stage)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []model.Job
	if err := c.getJSON(ctx, "/v1/jobs", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateJob(ctx context.Context, req CreateJob) (model.Job, error) {
	var out model.Job
	err := c.postJSON(ctx, "/v1/jobs", req, &out)
	return out, err
}

func (c *Client) Advance(ctx context.Context, jobID string) (model.Job, error) {
	var out model.Job
	err := c.postJSON(ctx, "/v1/jobs/"+url.PathEscape(jobID)+"/advance", nil, &out)
	return out, err
}

func (c *Client) SendBack(ctx context.Context, jobID, toStage, reason string) (model.RollbackEvent, error) {
	var out model.RollbackEvent
	err := c.postJSON(ctx, "/v1/jobs/"+url.PathEscape(jobID)+"/rollback",
		map[string]string{"toStage": toStage, "reason": reason}, &out)
	return out, err
}

func (c *Client) Dismiss(ctx context.Context, key string) error {
	return c.postJSON(ctx, "/v1/tasks/dismiss", map[string]string{"key": key}, nil)
}

// getJSON retries on connection errors and 5xx responses; 4xx stops
// immediately.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	op := func() error {
		u := c.BaseURL + path
		if len(q) > 0 {
			u += "?" + q.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req)
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return apiError(resp)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(apiError(resp))
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(op, policy)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.Session != "" {
		req.Header.Set("X-Session-ID", c.Session)
	}
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return fmt.Errorf("api: %s (status %d)", body.Error, resp.StatusCode)
	}
	return fmt.Errorf("api: status %d", resp.StatusCode)
}
