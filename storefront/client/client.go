// Package client fetches the case assignment for a storefront page view.
// The network is treated as hostile: every failure mode collapses into a
// nil assignment so the page always renders, at worst unmodified.
package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopmorph/Kaleido/utils"
)

// Assignment is the server's decision for one (product, session) pair
type Assignment struct {
	Active   bool     `json:"active"`
	TestID   string   `json:"test_id,omitempty"`
	Case     string   `json:"case,omitempty"`
	Images   []string `json:"images,omitempty"`
	TenantID uint     `json:"tenant_id,omitempty"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    *Assignment `json:"data,omitempty"`
}

// AssignmentClient calls the assignment endpoint with bounded retries and
// caches the result for the page's trackers.
type AssignmentClient struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	backoffStep time.Duration
	sleep       func(time.Duration)

	mu      sync.Mutex
	current *Assignment
}

func New(baseURL string, httpClient *http.Client) *AssignmentClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &AssignmentClient{
		baseURL:     baseURL,
		httpClient:  httpClient,
		maxAttempts: utils.AssignmentMaxAttempts,
		backoffStep: utils.AssignmentBackoffStep,
		sleep:       time.Sleep,
	}
}

// Fetch resolves the assignment for a product and session. force, when
// non-empty, pins the returned case regardless of the bucketing outcome.
// Exhausted retries and inactive tests both yield nil; Fetch never returns
// an error.
func (c *AssignmentClient) Fetch(ctx context.Context, productID, sessionID, force string) *Assignment {
	if productID == "" || sessionID == "" {
		return nil
	}

	endpoint := c.baseURL + "/api/v1/assignment"
	q := url.Values{}
	q.Set("product_id", productID)
	q.Set("session_id", sessionID)
	if force != "" {
		q.Set("force", force)
	}
	endpoint += "?" + q.Encode()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			// Linear backoff between attempts
			c.sleep(c.backoffStep * time.Duration(attempt-1))
		}
		if ctx.Err() != nil {
			return nil
		}

		assignment, retryable := c.fetchOnce(ctx, endpoint)
		if assignment != nil {
			c.mu.Lock()
			c.current = assignment
			c.mu.Unlock()
			return assignment
		}
		if !retryable {
			return nil
		}
	}
	return nil
}

// fetchOnce performs one request. A nil assignment with retryable=false
// means the server answered definitively (no active test, bad request).
func (c *AssignmentClient) fetchOnce(ctx context.Context, endpoint string) (*Assignment, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, true
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, false
	}

	var body envelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, true
	}
	if !body.Success || body.Data == nil || !body.Data.Active {
		return nil, false
	}
	return body.Data, false
}

// Current returns the last successful assignment, nil before any Fetch
func (c *AssignmentClient) Current() *Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
