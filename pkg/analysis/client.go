package analysis

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"snapvalue-be/internal/pkg/logger"
)

const maxResultBytes = 16 << 20

// PayloadTooLargeError means the server rejected the request body size. The
// caller can act on it (drop items, lower quality); retrying the same body
// cannot succeed.
type PayloadTooLargeError struct {
	Hint string `json:"hint"`
}

func (e *PayloadTooLargeError) Error() string {
	return "analysis payload too large: " + e.Hint
}

// ClientConfig points the client at the valuation backend.
type ClientConfig struct {
	StreamURL      string
	FallbackURL    string
	RequestTimeout time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 90 * time.Second
	}
}

// Client talks to the valuation backend over HTTP: a streaming submission
// endpoint (SSE) and a blocking fallback endpoint.
type Client struct {
	httpClient *http.Client
	cfg        ClientConfig
	logger     logger.ILogger
}

func NewClient(cfg ClientConfig, log logger.ILogger) (*Client, error) {
	cfg.applyDefaults()
	if cfg.StreamURL == "" || cfg.FallbackURL == "" {
		return nil, fmt.Errorf("analysis client requires stream and fallback URLs")
	}
	// No client-level timeout: it would cap the total read time of the event
	// stream. Each call is bounded by its context instead.
	return &Client{httpClient: &http.Client{}, cfg: cfg, logger: log}, nil
}

// OpenStream submits the job to the streaming endpoint and hands back the
// event stream. The stream stays open until a terminal event, a transport
// failure, or ctx cancellation.
func (c *Client) OpenStream(ctx context.Context, req *JobRequest) (*EventStream, error) {
	resp, err := c.post(ctx, c.cfg.StreamURL, req, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}
	return newEventStream(resp.Body), nil
}

// Analyze submits the job to the blocking endpoint and returns the raw,
// pre-normalization result body.
func (c *Client) Analyze(ctx context.Context, req *JobRequest) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.post(callCtx, c.cfg.FallbackURL, req, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes))
	if err != nil {
		return nil, fmt.Errorf("read analysis response: %w", err)
	}
	if resp.StatusCode == http.StatusRequestEntityTooLarge || looksPayloadTooLarge(body) {
		return nil, &PayloadTooLargeError{Hint: "remove items or recapture at lower quality"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis request failed: status %d: %s", resp.StatusCode, truncateBody(body))
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, url string, req *JobRequest, accept string) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if req.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.AuthToken)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("reach analysis backend: %w", err)
	}
	return resp, nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	if resp.StatusCode == http.StatusRequestEntityTooLarge || looksPayloadTooLarge(body) {
		return &PayloadTooLargeError{Hint: "remove items or recapture at lower quality"}
	}
	return fmt.Errorf("analysis stream rejected: status %d: %s", resp.StatusCode, truncateBody(body))
}

// Some gateways answer an oversized body with 200 plus an error document, so
// the status code alone is not trusted.
func looksPayloadTooLarge(body []byte) bool {
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte("payload too large")) ||
		bytes.Contains(lower, []byte("request entity too large"))
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// EventStream decodes server-sent events: "data:" prefixed lines, one JSON
// event per frame, blank lines between frames. Malformed frames are skipped
// without aborting the stream; a trailing partial frame on a dropped
// connection is tolerated the same way.
type EventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	skipped int
}

func newEventStream(body io.ReadCloser) *EventStream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &EventStream{body: body, scanner: sc}
}

// Next returns the next well-formed event. io.EOF means the server closed
// the stream; any other error is a transport failure.
func (s *EventStream) Next() (Event, error) {
	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if line == "" {
			continue
		}
		// Keepalive comments and SSE metadata fields carry nothing for us;
		// the event type travels inside the JSON payload.
		if strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") ||
			strings.HasPrefix(line, "id:") || strings.HasPrefix(line, "retry:") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			s.skipped++
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &ev); err != nil || ev.Type == "" {
			s.skipped++
			continue
		}
		return ev, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// Skipped reports how many malformed frames were dropped so far.
func (s *EventStream) Skipped() int {
	return s.skipped
}

func (s *EventStream) Close() error {
	return s.body.Close()
}
