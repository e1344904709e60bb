package source

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frozenquant/frozen-data/internal/ratelimit"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com", "test-token", nil)

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.token != "test-token" {
			t.Errorf("token = %q, want %q", c.token, "test-token")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.retryBackoff != time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, time.Second)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		hc := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://api.example.com", "tok", nil,
			WithTimeout(5*time.Second),
			WithRetries(5, 2*time.Second),
			WithLogger(logger),
		)
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
		}
		if c.maxRetries != 5 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 5)
		}
		if c.retryBackoff != 2*time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 2*time.Second)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}

		c = NewClient("https://api.example.com", "", nil, WithHTTPClient(hc))
		if c.httpClient != hc {
			t.Error("custom HTTP client not set")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	t.Run("http error message", func(t *testing.T) {
		err := &APIError{StatusCode: 503, Message: "Service Unavailable"}
		want := "source api http 503: Service Unavailable"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("application error message", func(t *testing.T) {
		err := &APIError{Code: 40001, Message: "token invalid"}
		want := "source api error 40001: token invalid"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
		tests := []struct {
			status   int
			expected bool
		}{
			{500, true},
			{502, true},
			{503, true},
			{429, true},
			{400, false},
			{404, false},
			{0, false}, // application-level errors do not retry
		}
		for _, tt := range tests {
			err := &APIError{StatusCode: tt.status}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() for status %d = %v, want %v", tt.status, got, tt.expected)
			}
		}
	})
}

// TestCall tests the RPC envelope and result decoding.
func TestCall(t *testing.T) {
	t.Run("successful call", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %q, want POST", r.Method)
			}
			var req apiRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.APIName != "daily" {
				t.Errorf("api_name = %q, want %q", req.APIName, "daily")
			}
			if req.Token != "test-token" {
				t.Errorf("token = %q, want %q", req.Token, "test-token")
			}
			if req.Params["ts_code"] != "000001.SZ" {
				t.Errorf("ts_code param = %q, want %q", req.Params["ts_code"], "000001.SZ")
			}
			json.NewEncoder(w).Encode(apiResponse{
				Code: 0,
				Data: &resultSet{
					Fields: []string{"ts_code", "close"},
					Items:  [][]any{{"000001.SZ", 10.5}},
				},
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, "test-token", nil)
		rs, err := c.call(context.Background(), "daily", map[string]string{"ts_code": "000001.SZ"}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rs.empty() {
			t.Fatal("result set should not be empty")
		}
		rows := rs.rows()
		if got := rows[0].str("ts_code"); got != "000001.SZ" {
			t.Errorf("ts_code = %q, want %q", got, "000001.SZ")
		}
		if got := rows[0].float("close"); got != 10.5 {
			t.Errorf("close = %v, want 10.5", got)
		}
	})

	t.Run("application error code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(apiResponse{Code: 40001, Msg: "token invalid"})
		}))
		defer server.Close()

		c := NewClient(server.URL, "bad-token", nil)
		_, err := c.call(context.Background(), "daily", nil, "")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.Code != 40001 {
			t.Errorf("Code = %d, want 40001", apiErr.Code)
		}
	})

	t.Run("empty result set", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(apiResponse{
				Code: 0,
				Data: &resultSet{Fields: []string{"ts_code"}, Items: [][]any{}},
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok", nil)
		rs, err := c.call(context.Background(), "daily", nil, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !rs.empty() {
			t.Error("result set should be empty")
		}
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not valid json`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok", nil)
		_, err := c.call(context.Background(), "daily", nil, "")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "unmarshal") {
			t.Errorf("error should contain 'unmarshal', got %v", err)
		}
	})
}

// TestDoWithRetry tests the retry logic.
func TestDoWithRetry(t *testing.T) {
	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(apiResponse{Code: 0})
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok", nil, WithRetries(3, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), "daily", nil, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("does not retry application errors", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			json.NewEncoder(w).Encode(apiResponse{Code: 40001, Msg: "token invalid"})
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok", nil, WithRetries(3, 10*time.Millisecond))
		_, err := c.call(context.Background(), "daily", nil, "")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok", nil, WithRetries(2, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), "daily", nil, "")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error should contain 'max retries exceeded', got %v", err)
		}
		// 1 initial + 2 retries = 3 attempts
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("every attempt consumes a limiter token", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			json.NewEncoder(w).Encode(apiResponse{Code: 0})
		}))
		defer server.Close()

		// Budget of one call per window: the retry after the 429 must
		// wait for the next window instead of going straight out.
		window := 150 * time.Millisecond
		limiter := ratelimit.New(1, window)
		c := NewClient(server.URL, "tok", limiter, WithRetries(2, time.Millisecond))

		start := time.Now()
		_, err := c.call(context.Background(), "daily", nil, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		elapsed := time.Since(start)

		if attempts != 2 {
			t.Errorf("attempts = %d, want 2", attempts)
		}
		if elapsed < 100*time.Millisecond {
			t.Errorf("retry went out after %v, want it held until the next window (%v)", elapsed, window)
		}
	})

	t.Run("context cancellation during retry", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok", nil, WithRetries(5, 50*time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
		defer cancel()

		_, err := c.doWithRetry(ctx, "daily", nil, "")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "context") {
			t.Errorf("error should be context-related, got %v", err)
		}
	})
}

// TestParseWireDate tests upstream date decoding.
func TestParseWireDate(t *testing.T) {
	got := parseWireDate("20230104")
	want := time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseWireDate(20230104) = %v, want %v", got, want)
	}
	if !parseWireDate("").IsZero() {
		t.Error("parseWireDate(empty) should be zero")
	}
	if !parseWireDate("not-a-date").IsZero() {
		t.Error("parseWireDate(malformed) should be zero")
	}
}
