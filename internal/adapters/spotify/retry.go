package spotify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBackoffMs  = 500

	// Longer Retry-After hints are relayed to the caller instead of waited out.
	maxRetryWait = 30 * time.Second
)

// doRequestWithRetry sends req up to maxRetries times. Transport errors, 429
// and 5xx are retried with exponential backoff or the server's Retry-After.
// When the budget runs out, or the server asks for a wait longer than
// maxRetryWait, the last response is returned so the caller can relay it.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	attempts := c.maxRetries
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}
	base := c.baseBackoff
	if base <= 0 {
		base = time.Duration(defaultBackoffMs) * time.Millisecond
	}
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	ctx := req.Context()
	var (
		lastErr error
		delay   time.Duration
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if err := sleepWithContext(ctx, delay); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("spotify adapter: rate limiter: %w", err)
			}
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("spotify adapter: reset request body: %w", err)
			}
			req.Body = body
		}

		// #nosec G107 -- URL constructed from the configured API base URL
		resp, err := c.httpClient.Do(req)
		delay = backoff(base, attempt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("spotify adapter: request canceled: %w", ctx.Err())
			}
			lastErr = err
			c.logger.Warn("request failed", "attempt", attempt+1, "max", attempts, "error", err)
			continue
		}
		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		wait := retryAfter(resp.Header.Get("Retry-After"), time.Now())
		if attempt == attempts-1 || wait > maxRetryWait {
			return resp, nil
		}
		_ = resp.Body.Close()
		c.logger.Warn("retryable status", "attempt", attempt+1, "max", attempts, "status", resp.StatusCode, "retry_after", wait)
		if wait > 0 {
			delay = wait
		}
	}
	return nil, fmt.Errorf("spotify adapter: request failed after %d attempts: %w", attempts, lastErr)
}

// bufferBody makes the request body replayable across attempts.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("spotify adapter: read request body: %w", err)
	}
	_ = req.Body.Close()
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// backoff doubles base for every previous retry.
func backoff(base time.Duration, retry int) time.Duration {
	return base * time.Duration(1<<retry)
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP date.
func retryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if until := when.Sub(now); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("spotify adapter: request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
