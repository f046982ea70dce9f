// Package sim talks to the remote simulation collaborator. The editor
// sends a serialized graph snapshot and receives an opaque result; it
// never interprets the result beyond success or failure.
package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nuno18084/Ampflux-sub000/pkg/httputil"
)

// Result is the outcome of one simulation run. Raw carries the service's
// response body untouched for display by the host UI.
type Result struct {
	OK     bool            `json:"ok"`
	Detail string          `json:"detail,omitempty"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

// Runner runs a simulation for a project. The editor depends on this
// interface, not on the HTTP transport.
type Runner interface {
	Run(ctx context.Context, projectID, graph string) (Result, error)
}

// Client is the HTTP Runner. Transient failures (timeouts, 5xx) are
// retried with exponential backoff before being reported.
type Client struct {
	url        string
	http       *http.Client
	retryDelay time.Duration
}

// NewClient creates a simulation client for the given endpoint URL.
func NewClient(url string) *Client {
	return &Client{
		url:        url,
		http:       &http.Client{Timeout: 30 * time.Second},
		retryDelay: time.Second,
	}
}

type runRequest struct {
	ProjectID string `json:"project_id"`
	Graph     string `json:"graph"`
}

// Run posts the serialized graph to the simulation service.
func (c *Client) Run(ctx context.Context, projectID, graph string) (Result, error) {
	body, err := json.Marshal(runRequest{ProjectID: projectID, Graph: graph})
	if err != nil {
		return Result{}, fmt.Errorf("encode simulation request: %w", err)
	}

	var result Result
	err = httputil.Retry(ctx, 3, c.retryDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return httputil.Retryable(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return httputil.Retryable(err)
		}

		switch {
		case resp.StatusCode >= 500:
			return httputil.Retryable(fmt.Errorf("simulation service: %s", resp.Status))
		case resp.StatusCode >= 400:
			return fmt.Errorf("simulation rejected: %s", resp.Status)
		}

		result = Result{OK: true, Raw: raw}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

var _ Runner = (*Client)(nil)
