package delivery

import (
	"errors"
	"sync"
)

// FakeClipboard is an in-memory clipboard. WriteErr makes every write fail.
type FakeClipboard struct {
	mu       sync.Mutex
	text     string
	writes   int
	WriteErr error
}

func NewFakeClipboard(initial string) *FakeClipboard {
	return &FakeClipboard{text: initial}
}

func (f *FakeClipboard) ReadAll() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *FakeClipboard) WriteAll(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.text = text
	f.writes++
	return nil
}

func (f *FakeClipboard) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

var ErrPasteFailed = errors.New("paste failed")

// FakeStrategy records pasted text. Fail makes Paste return ErrPasteFailed.
type FakeStrategy struct {
	mu     sync.Mutex
	pasted []string
	Fail   bool
}

func (f *FakeStrategy) Name() string { return "fake" }

func (f *FakeStrategy) Paste(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pasted = append(f.pasted, text)
	if f.Fail {
		return ErrPasteFailed
	}
	return nil
}

func (f *FakeStrategy) Pasted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pasted...)
}
