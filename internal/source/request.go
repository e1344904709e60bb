package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// apiRequest is the RPC envelope the upstream expects.
type apiRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params,omitempty"`
	Fields  string            `json:"fields,omitempty"`
}

// apiResponse wraps every upstream reply.
type apiResponse struct {
	Code int        `json:"code"`
	Msg  string     `json:"msg"`
	Data *resultSet `json:"data"`
}

// resultSet is the columnar payload: one fields header, rows as
// positional item arrays.
type resultSet struct {
	Fields []string `json:"fields"`
	Items  [][]any  `json:"items"`
}

func (rs *resultSet) empty() bool {
	return rs == nil || len(rs.Items) == 0
}

// rows pairs each item with the shared field index.
func (rs *resultSet) rows() []row {
	idx := make(map[string]int, len(rs.Fields))
	for i, f := range rs.Fields {
		idx[f] = i
	}
	out := make([]row, len(rs.Items))
	for i, item := range rs.Items {
		out[i] = row{idx: idx, vals: item}
	}
	return out
}

// row is one positional item with named access.
type row struct {
	idx  map[string]int
	vals []any
}

func (r row) str(name string) string {
	i, ok := r.idx[name]
	if !ok || i >= len(r.vals) {
		return ""
	}
	s, _ := r.vals[i].(string)
	return s
}

func (r row) float(name string) float64 {
	i, ok := r.idx[name]
	if !ok || i >= len(r.vals) {
		return 0
	}
	switch v := r.vals[i].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

func (r row) date(name string) time.Time {
	return parseWireDate(r.str(name))
}

// parseWireDate parses an upstream YYYYMMDD date. Empty or malformed
// values map to the zero time.
func parseWireDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(wireDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// APIError represents an error from the upstream API. StatusCode is
// zero for application-level failures reported inside a 200 reply.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source api http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("source api error %d: %s", e.Code, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// call performs one rate-limited RPC and decodes the result set. An
// empty result set comes back as a non-nil *resultSet with no items.
func (c *Client) call(ctx context.Context, apiName string, params map[string]string, fields string) (*resultSet, error) {
	body, err := c.doWithRetry(ctx, apiName, params, fields)
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Code != 0 {
		return nil, &APIError{Code: resp.Code, Message: resp.Msg}
	}

	return resp.Data, nil
}

// doRequest performs a single RPC POST.
func (c *Client) doRequest(ctx context.Context, apiName string, params map[string]string, fields string) ([]byte, error) {
	payload, err := json.Marshal(apiRequest{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
		Fields:  fields,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, apiName string, params map[string]string, fields string) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"api", apiName,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		// Every attempt takes a limiter token, so retries cannot
		// exceed the per-window call budget.
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, err := c.doRequest(ctx, apiName, params, fields)
		if err == nil {
			return body, nil
		}

		lastErr = err

		// Check if error is retryable
		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
