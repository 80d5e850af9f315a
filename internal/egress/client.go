package egress

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// HeaderProvider injects per-request headers.
type HeaderProvider func() map[string]string

const (
	headerReplayID       = "X-Replay-Id"
	headerReplayPly      = "X-Replay-Ply"
	headerFrameType      = "X-Replay-Frame"
	headerIdempotencyKey = "Idempotency-Key"

	maxRetryAfter = 5 * time.Second
	maxErrorBody  = 512
)

// Client posts snapshot and summary frames to the HTTP endpoint. Each frame
// carries an idempotency key (replay id plus ply, or "summary"), so a 409
// from the endpoint means the frame already landed.
type Client struct {
	url      string
	http     *fasthttp.Client
	headers  HeaderProvider
	timeout  time.Duration
	attempts int
}

type Option func(*Client)

// WithTimeout bounds each delivery attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the number of delivery attempts per frame.
func WithRetry(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
	}
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:      strings.TrimSpace(url),
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		timeout:  10 * time.Second,
		attempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeliveryError reports a frame the endpoint did not accept.
type DeliveryError struct {
	ReplayID string
	Frame    string
	Ply      int
	Status   int
	Body     string
	Err      error
}

func (e *DeliveryError) Error() string {
	what := e.Frame
	if e.Frame == FrameSnapshot {
		what = fmt.Sprintf("snapshot ply %d", e.Ply)
	}
	if e.Err != nil {
		return fmt.Sprintf("deliver %s of replay %s: %v", what, e.ReplayID, e.Err)
	}
	return fmt.Sprintf("deliver %s of replay %s: status=%d body=%s", what, e.ReplayID, e.Status, e.Body)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

type verdict int

const (
	delivered verdict = iota
	retryLater
	rejected
)

// classify maps an endpoint status to what the sink does with the frame.
func classify(status int) verdict {
	switch {
	case status >= 200 && status < 300, status == fasthttp.StatusConflict:
		return delivered
	case status == fasthttp.StatusTooManyRequests, status == fasthttp.StatusRequestTimeout:
		return retryLater
	case status >= 500 && status != fasthttp.StatusNotImplemented:
		return retryLater
	default:
		return rejected
	}
}

// Post delivers one frame, retrying transport failures, 408, 429 and 5xx.
func (c *Client) Post(ctx context.Context, frame *Frame) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}
	body, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", frame.Type, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	c.prepare(req, frame, body)

	failure := &DeliveryError{ReplayID: frame.replayID(), Frame: frame.Type, Ply: frame.ply()}
	for attempt := 1; ; attempt++ {
		var wait time.Duration
		if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
			failure.Err, failure.Status, failure.Body = err, 0, ""
			wait = backoffDuration(attempt)
		} else {
			status := resp.StatusCode()
			v := classify(status)
			if v == delivered {
				return nil
			}
			failure.Err, failure.Status, failure.Body = nil, status, truncate(string(resp.Body()), maxErrorBody)
			if v == rejected {
				return failure
			}
			wait = retryAfter(resp, attempt)
		}
		if attempt >= c.attempts {
			return failure
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return failure
		case <-t.C:
		}
		resp.Reset()
	}
}

func (c *Client) prepare(req *fasthttp.Request, frame *Frame, body []byte) {
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	req.Header.Set(headerFrameType, frame.Type)
	if id := frame.replayID(); id != "" {
		req.Header.Set(headerReplayID, id)
		req.Header.Set(headerIdempotencyKey, frame.idempotencyKey())
	}
	if frame.Type == FrameSnapshot {
		req.Header.Set(headerReplayPly, strconv.Itoa(frame.ply()))
	}
	req.SetBody(body)
}

func (c *Client) deadline(ctx context.Context) time.Time {
	dl := time.Now().Add(c.timeout)
	if ctxDL, ok := ctx.Deadline(); ok && ctxDL.Before(dl) {
		return ctxDL
	}
	return dl
}

// retryAfter honours a Retry-After seconds header, capped, and otherwise
// falls back to the backoff schedule.
func retryAfter(resp *fasthttp.Response, attempt int) time.Duration {
	if v := strings.TrimSpace(string(resp.Header.Peek("Retry-After"))); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return min(time.Duration(secs)*time.Second, maxRetryAfter)
		}
	}
	return backoffDuration(attempt)
}

// backoffDuration doubles from 100ms and stops growing after the sixth attempt.
func backoffDuration(attempt int) time.Duration {
	attempt = max(1, min(attempt, 6))
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
