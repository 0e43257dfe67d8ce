// Package engine talks to the out-of-process check/capture engine over
// HTTP. Commands are plain JSON request/response calls; bulk progress
// arrives on a newline-delimited JSON event stream.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ganot/sitewatch/internal/domain/capture"
)

// Client implements capture.Engine and capture.ProgressSource against a
// remote engine process.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates an engine client. Command calls share one timeout;
// the event stream request is exempt since it stays open for the whole
// session.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// CheckSite requests a health check for one URL.
func (c *Client) CheckSite(ctx context.Context, url string) (capture.CheckResult, error) {
	var result capture.CheckResult
	err := c.post(ctx, "/check", map[string]string{"url": url}, &result)
	if err != nil {
		return capture.CheckResult{}, err
	}
	return result, nil
}

// CaptureScreenshot requests a screenshot for one URL and returns the
// encoded image.
func (c *Client) CaptureScreenshot(ctx context.Context, url string) (string, error) {
	var result struct {
		Screenshot string `json:"screenshot"`
	}
	if err := c.post(ctx, "/screenshot", map[string]string{"url": url}, &result); err != nil {
		return "", err
	}
	return result.Screenshot, nil
}

// StartBulkCapture asks the engine to begin a batch over its stored
// registry. The response is an ack only; progress arrives on the stream.
func (c *Client) StartBulkCapture(ctx context.Context) error {
	return c.post(ctx, "/bulk/start", struct{}{}, nil)
}

// CancelBulkCapture asks the engine to stop the running batch.
func (c *Client) CancelBulkCapture(ctx context.Context) error {
	return c.post(ctx, "/bulk/cancel", struct{}{}, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling engine %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine %s returned %s: %s", path, resp.Status, readErrorBody(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(data) == 0 {
		return "no detail"
	}
	return string(bytes.TrimSpace(data))
}

type streamSubscription struct {
	events chan capture.Progress
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *streamSubscription) Events() <-chan capture.Progress { return s.events }

func (s *streamSubscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}

// Subscribe opens the progress event stream. Lines that fail to decode
// are skipped so one malformed event cannot kill the whole session; the
// stream ends when the connection drops or the subscription is closed.
func (c *Client) Subscribe(ctx context.Context) (capture.Subscription, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("building event stream request: %w", err)
	}

	// The shared client would time the long-lived stream out.
	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("opening event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("event stream returned %s", resp.Status)
	}

	sub := &streamSubscription{
		events: make(chan capture.Progress, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(sub.events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var p capture.Progress
			if err := json.Unmarshal(line, &p); err != nil {
				c.logger.Warn("skipping malformed progress event", "error", err)
				continue
			}
			select {
			case sub.events <- p:
			case <-streamCtx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && streamCtx.Err() == nil {
			c.logger.Error("progress stream ended", "error", err)
		}
	}()

	return sub, nil
}
