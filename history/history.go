// Package history hands each finished transcription to an external record
// store with a single best-effort POST.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const StatusRefined = "refined"

type Record struct {
	ID           string   `json:"id"`
	OriginalText string   `json:"original_text"`
	RefinedText  string   `json:"refined_text"`
	Status       string   `json:"status"`
	Metadata     Metadata `json:"metadata"`
}

type Metadata struct {
	SessionID    string  `json:"session_id"`
	Format       string  `json:"format"`
	AudioSeconds float64 `json:"audio_seconds"`
	CreatedAt    string  `json:"created_at"`
}

type Client struct {
	url  string
	http *http.Client
}

// New returns nil when url is empty; a nil *Client discards records.
func New(url string, timeout time.Duration) *Client {
	if url == "" {
		return nil
	}
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

// NewRecord stamps a fresh id and the creation time.
func NewRecord(original, refined string, meta Metadata) Record {
	if meta.CreatedAt == "" {
		meta.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return Record{
		ID:           uuid.NewString(),
		OriginalText: original,
		RefinedText:  refined,
		Status:       StatusRefined,
		Metadata:     meta,
	}
}

func (c *Client) Save(ctx context.Context, rec Record) error {
	if c == nil {
		return nil
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: encode record: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("history: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("history: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("history: post failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
