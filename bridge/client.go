package bridge

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

	"vozflow/apperr"
	"vozflow/encoder"
	"vozflow/transcriber"
)

// Client calls a host's bridge over loopback HTTP. Failed envelopes come
// back as *apperr.Error with the host's kind.
type Client struct {
	base string
	http *http.Client
}

func NewClient(addr string) *Client {
	return &Client{base: "http://" + addr + "/v1", http: &http.Client{}}
}

type wireResult struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Kind  apperr.Kind     `json:"kind"`
}

// Ping reports whether a host answers within timeout.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	_, err := c.Hello(ctx, timeout)
	return err
}

// Hello pings the host and returns its topic and capture owner.
func (c *Client) Hello(ctx context.Context, timeout time.Duration) (Hello, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var h Hello
	err := c.do(ctx, http.MethodGet, "/ping", "", nil, &h)
	return h, err
}

func (c *Client) GetShortcut(ctx context.Context) (string, error) {
	var s string
	err := c.do(ctx, http.MethodGet, "/shortcut", "", nil, &s)
	return s, err
}

func (c *Client) SetShortcut(ctx context.Context, raw string) (string, error) {
	var s string
	err := c.doJSON(ctx, http.MethodPut, "/shortcut", shortcutBody{Shortcut: raw}, &s)
	return s, err
}

func (c *Client) SetRecordingState(ctx context.Context, recording bool) error {
	return c.doJSON(ctx, http.MethodPost, "/recording-state", recordingBody{Recording: &recording}, nil)
}

func (c *Client) TypeText(ctx context.Context, text string) error {
	return c.doJSON(ctx, http.MethodPost, "/type-text", textBody{Text: text}, nil)
}

func (c *Client) TranscribeAudio(ctx context.Context, data []byte, format string) (transcriber.Result, error) {
	var res transcriber.Result
	err := c.do(ctx, http.MethodPost, "/transcribe", encoder.ContentType(format), bytes.NewReader(data), &res)
	return res, err
}

// Toggles subscribes to the host's toggle topic. The channel closes when ctx
// ends or the stream breaks.
func (c *Client) Toggles(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{}, 1)
	err := c.subscribe(ctx, func(event, _ string) {
		if event != ToggleTopic {
			return
		}
		select {
		case out <- struct{}{}:
		case <-ctx.Done():
		}
	}, func() { close(out) })
	if err != nil {
		return nil, err
	}
	return out, nil
}

// States streams the host's recording state, starting with the current one.
// The channel closes when ctx ends or the stream breaks.
func (c *Client) States(ctx context.Context) (<-chan string, error) {
	out := make(chan string, 4)
	err := c.subscribe(ctx, func(event, data string) {
		if event != StateTopic {
			return
		}
		var body stateBody
		if err := json.Unmarshal([]byte(data), &body); err != nil || body.State == "" {
			return
		}
		select {
		case out <- body.State:
		case <-ctx.Done():
		}
	}, func() { close(out) })
	if err != nil {
		return nil, err
	}
	return out, nil
}

// subscribe opens /events and calls fn for every event until the stream
// ends, then calls done.
func (c *Client) subscribe(ctx context.Context, fn func(event, data string), done func()) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: subscribe: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("bridge: subscribe: status %d", resp.StatusCode)
	}
	go func() {
		defer done()
		defer resp.Body.Close()
		readEvents(resp.Body, fn)
	}()
	return nil
}

// readEvents calls fn with the name and data of each complete SSE event.
func readEvents(r io.Reader, fn func(event, data string)) {
	sc := bufio.NewScanner(r)
	var event string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if event != "" {
				fn(event, strings.Join(data, "\n"))
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(buf), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var res wireResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("bridge: %s %s: status %d: %w", method, path, resp.StatusCode, err)
	}
	if !res.OK {
		return apperr.New(res.Kind, strings.TrimPrefix(path, "/"), res.Error)
	}
	if out != nil && len(res.Data) > 0 {
		if err := json.Unmarshal(res.Data, out); err != nil {
			return fmt.Errorf("bridge: decode %s: %w", path, err)
		}
	}
	return nil
}
