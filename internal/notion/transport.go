package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// transport sits under notionapi. It points requests at the configured base
// URL, bounds each attempt with a timeout, and retries. A 429 is retried for
// every request since the API rejected it unprocessed. Server errors and
// network failures are retried only for reads, so a create is never sent
// twice.
type transport struct {
	base     http.RoundTripper
	baseURL  *url.URL
	attempts int
	delay    time.Duration
	timeout  time.Duration
}

func newTransport(base http.RoundTripper, baseURL string, attempts int, delay, timeout time.Duration) *transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &transport{base: base, attempts: attempts, delay: delay, timeout: timeout}
	if baseURL != "" && strings.TrimRight(baseURL, "/") != DefaultBaseURL {
		u, err := url.Parse(strings.TrimRight(baseURL, "/"))
		if err == nil {
			t.baseURL = u
		} else {
			slog.Warn("ignoring invalid notion base url", "url", baseURL, "error", err)
		}
	}
	return t
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		r, err := t.prepare(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := t.send(r)
		if err != nil {
			if attempt < t.attempts && readOnly(req) && req.Context().Err() == nil {
				slog.Debug("notion request failed, retrying", "path", req.URL.Path, "attempt", attempt+1, "error", err)
				if werr := t.wait(req.Context(), attempt, ""); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, err
		}

		if attempt < t.attempts && retryable(req, resp.StatusCode) {
			slog.Debug("notion rate limited or unavailable, retrying",
				"path", req.URL.Path, "status", resp.StatusCode, "attempt", attempt+1)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if werr := t.wait(req.Context(), attempt, resp.Header.Get("Retry-After")); werr != nil {
				return nil, werr
			}
			continue
		}

		if resp.StatusCode >= 400 {
			return errorBody(resp)
		}
		return resp, nil
	}
}

// prepare clones the request for one attempt, rewinding the body and
// rewriting the host when a base URL is configured.
func (t *transport) prepare(req *http.Request, attempt int) (*http.Request, error) {
	r := req.Clone(req.Context())
	if attempt > 0 && req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, fmt.Errorf("notion %s %s: request body cannot be replayed", req.Method, req.URL.Path)
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		r.Body = body
	}
	if t.baseURL != nil {
		r.URL.Scheme = t.baseURL.Scheme
		r.URL.Host = t.baseURL.Host
		r.URL.Path = t.baseURL.Path + strings.TrimPrefix(r.URL.Path, "/v1")
		r.URL.RawPath = ""
		r.Host = t.baseURL.Host
	}
	return r, nil
}

// send performs one attempt under the per-attempt timeout. The timeout
// context is released when the caller closes the body.
func (t *transport) send(r *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		return t.base.RoundTrip(r)
	}
	ctx, cancel := context.WithTimeout(r.Context(), t.timeout)
	resp, err := t.base.RoundTrip(r.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func (t *transport) wait(ctx context.Context, attempt int, retryAfter string) error {
	delay := t.delay * time.Duration(attempt+1)
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
		delay = time.Duration(secs) * time.Second
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// readOnly reports requests that are safe to repeat. Database queries are
// reads sent as POST.
func readOnly(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		return true
	case http.MethodPost:
		return strings.HasSuffix(req.URL.Path, "/query")
	}
	return false
}

func retryable(req *http.Request, status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && readOnly(req)
}

// errorBody rewrites a failed response into the API's error object so the
// status survives gateways that answer with HTML or an empty body.
func errorBody(resp *http.Response) (*http.Response, error) {
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiErr := APIError{}
	if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	apiErr.Status = resp.StatusCode

	body, err := json.Marshal(struct {
		Object string `json:"object"`
		APIError
	}{Object: "error", APIError: apiErr})
	if err != nil {
		return nil, fmt.Errorf("failed to encode error response: %w", err)
	}
	resp.Body = io.NopCloser(strings.NewReader(string(body)))
	resp.ContentLength = int64(len(body))
	resp.Header.Del("Content-Length")
	return resp, nil
}
