// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package slskd is a client for the slskd REST API. It serves as the
// search provider, the download sink and the transfer-queue oracle.
package slskd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/soulseekarr/soulseekarr/internal/buildinfo"
)

const (
	apiPrefix = "api/v0"

	defaultRateLimit     = 5
	defaultTimeout       = 30 * time.Second
	defaultSearchTimeout = 45 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond

	maxErrorBody = 512
)

// sharedTransport enables connection pooling across clients.
var sharedTransport = func() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 10
	t.IdleConnTimeout = 90 * time.Second
	return t
}()

// StatusError is returned when slskd answers with an unexpected status.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("slskd %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("slskd %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Config configures a Client.
type Config struct {
	URL    string
	APIKey string
	// RateLimit is the maximum number of requests per second.
	RateLimit int
	// Timeout bounds a single HTTP request.
	Timeout time.Duration
	// SearchTimeout is the search duration slskd is asked to honor.
	SearchTimeout time.Duration
	// RetryAttempts applies to idempotent reads only.
	RetryAttempts uint
	RetryDelay    time.Duration
}

type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	limiter       *rate.Limiter
	searchTimeout time.Duration
	retryAttempts uint
	retryDelay    time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("slskd url is required")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid slskd url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.Errorf("unsupported slskd url scheme %q", parsed.Scheme)
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	searchTimeout := cfg.SearchTimeout
	if searchTimeout <= 0 {
		searchTimeout = defaultSearchTimeout
	}
	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = defaultRetryAttempts
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: sharedTransport,
		},
		limiter:       rate.NewLimiter(rate.Every(time.Second/time.Duration(rateLimit)), 1),
		searchTimeout: searchTimeout,
		retryAttempts: attempts,
		retryDelay:    delay,
	}, nil
}

// do sends one request. in is JSON-encoded when non-nil and the response
// body is decoded into out when non-nil. Any status outside accepted is a
// *StatusError.
func (c *Client) do(ctx context.Context, method, endpoint string, in, out any, accepted ...int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait failed")
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encode request for %s", endpoint)
		}
		body = bytes.NewReader(payload)
	}

	reqURL := fmt.Sprintf("%s/%s/%s", c.baseURL, apiPrefix, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return errors.Wrapf(err, "create request for %s", endpoint)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request to %s", endpoint)
	}
	defer resp.Body.Close()

	if len(accepted) == 0 {
		accepted = []int{http.StatusOK}
	}
	ok := false
	for _, code := range accepted {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode response from %s", endpoint)
	}
	return nil
}

// get is do for idempotent reads, retried on transport errors and on
// temporary statuses.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	return retry.Do(
		func() error {
			return c.do(ctx, http.MethodGet, endpoint, nil, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Str("endpoint", endpoint).Uint("attempt", n+1).Msg("Retrying slskd request")
		}),
	)
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}
