// Package judge talks to the external code runner that grades submissions.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"anoa.com/clubportal/pkg/apperror"
)

var ErrUnavailable = fmt.Errorf("judge %w", apperror.ErrUnavailable)

// Request is one run of code against a challenge's test cases. Input and
// Output hold every case, in the runner's own separator format.
type Request struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Input    string `json:"input"`
	Output   string `json:"output"`
}

type Case struct {
	Success bool   `json:"success"`
	Test    string `json:"test"`
	Output  string `json:"output"`
}

type Response struct {
	Results []Case `json:"res"`
}

type Client interface {
	// Submit is a single call with no retry.
	Submit(ctx context.Context, req Request) (*Response, error)
}

type httpClient struct {
	endpoint string
	http     *http.Client
}

// NewHTTPClient posts to {baseURL}/submit.
func NewHTTPClient(baseURL string, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/submit",
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) Submit(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode judge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return &out, nil
}
