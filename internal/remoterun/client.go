// Package remoterun executes non-embedded languages through a remote
// compile-and-run service, with a model-driven terminal simulation as the
// fallback when the service is unreachable.
package remoterun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RunRequest is the payload sent to the compile service: the source plus
// every input value supplied so far, in order.
type RunRequest struct {
	Code   string   `json:"code"`
	Inputs []string `json:"inputs"`
}

// RunResponse is the compile service's answer. On Success, Stdout and
// Stderr hold the program's output; otherwise Error describes the compile
// or runtime failure.
type RunResponse struct {
	Success bool   `json:"success"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
	Error   string `json:"error"`
}

// Client talks to the remote compile-and-run service.
type Client struct {
	url  string
	http *http.Client
}

// NewClient builds a client for the service at url.
func NewClient(url string) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run submits code plus accumulated inputs. A transport or protocol error
// means the service is unavailable and the caller should fall back; a
// decoded response, successful or not, is authoritative.
func (c *Client) Run(ctx context.Context, code string, inputs []string) (RunResponse, error) {
	body, err := json.Marshal(RunRequest{Code: code, Inputs: inputs})
	if err != nil {
		return RunResponse{}, fmt.Errorf("encode run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return RunResponse{}, fmt.Errorf("build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return RunResponse{}, fmt.Errorf("run service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RunResponse{}, fmt.Errorf("run service: status %d", resp.StatusCode)
	}

	var out RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RunResponse{}, fmt.Errorf("decode run response: %w", err)
	}
	return out, nil
}
