package transcriber

import (
	"context"
	"sync"
)

// Fake implements Transcriber and Refiner with canned answers. When Gate is
// non-nil, Transcribe blocks until it is closed or ctx is done.
type Fake struct {
	Text      string
	Refined   string
	STTErr    error
	RefineErr error
	Gate      chan struct{}

	mu          sync.Mutex
	sttCalls    int
	refineCalls int
	lastFormat  string
	lastInput   string
}

func NewFake(text, refined string) *Fake {
	return &Fake{Text: text, Refined: refined}
}

func (f *Fake) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	f.mu.Lock()
	f.sttCalls++
	f.lastFormat = format
	gate := f.Gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.STTErr != nil {
		return "", f.STTErr
	}
	return f.Text, nil
}

func (f *Fake) Refine(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.refineCalls++
	f.lastInput = text
	f.mu.Unlock()
	if f.RefineErr != nil {
		return "", f.RefineErr
	}
	return f.Refined, nil
}

func (f *Fake) Calls() (stt, refine int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sttCalls, f.refineCalls
}

func (f *Fake) LastFormat() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFormat
}

func (f *Fake) LastRefineInput() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastInput
}
