package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

// HTTPError is a non-2xx reply from a provider.
type HTTPError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s api error: status=%d %s", e.Provider, e.StatusCode, e.Message)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

type transport struct {
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	pacer      *rate.Limiter
	log        *logger.Logger
	sleep      func(context.Context, time.Duration) error
}

func newTransport(opt Options, log *logger.Logger) *transport {
	if log == nil {
		log = logger.Nop()
	}
	timeout := opt.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	retries := opt.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &transport{
		// No client-wide timeout: streamed bodies are bounded by the caller's context.
		httpClient: &http.Client{},
		timeout:    timeout,
		maxRetries: retries,
		pacer:      newPacer(opt.RequestsPerSecond),
		log:        log,
		sleep:      sleepCtx,
	}
}

// open sends a JSON POST and returns the open response on 2xx. Failed attempts
// are retried with jittered exponential backoff while nothing has been read
// from the body, so streamed responses are never replayed.
func (t *transport) open(ctx context.Context, provider, url string, headers map[string]string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		if err := t.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := t.once(ctx, provider, url, headers, body)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryable(err) || attempt >= t.maxRetries {
			return nil, err
		}

		wait := jitter(retryAfter(resp, backoff, 10*time.Second))
		t.log.WithContext(ctx).Warn("llm request retrying",
			"provider", provider,
			"attempt", attempt+1,
			"max_retries", t.maxRetries,
			"sleep", wait.String(),
			"error", err.Error(),
		)
		if err := t.sleep(ctx, wait); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func (t *transport) once(ctx context.Context, provider, url string, headers map[string]string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	return resp, &HTTPError{Provider: provider, StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
}

// postJSON performs a buffered request bounded by the request timeout and
// decodes the reply into out.
func (t *transport) postJSON(ctx context.Context, provider, url string, headers map[string]string, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.open(ctx, provider, url, headers, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode error: %w", provider, err)
	}
	return nil
}

func errorMessage(raw []byte, fallback string) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && len(env.Error) > 0 {
		var msg string
		if json.Unmarshal(env.Error, &msg) == nil && msg != "" {
			return msg
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(env.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return fallback
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
	}
	return false
}

func retryAfter(resp *http.Response, fallback, max time.Duration) time.Duration {
	wait := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && wait > max {
		wait = max
	}
	return wait
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := float64(base) * 0.2
	return time.Duration(float64(base) - delta + rand.Float64()*2*delta)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
