package audio

import (
	"os"
	"sync"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays fixed PCM into every capture it creates. Set
// NewCaptureErr or StartErr to simulate a missing or denied microphone.
type FakeContext struct {
	pcm []byte

	NewCaptureErr error
	StartErr      error

	mu       sync.Mutex
	captures []*FakeCapture
}

func NewFakeContext(pcm []byte) *FakeContext {
	return &FakeContext{pcm: pcm}
}

// NewFakeContextFromWAV strips the canonical 44-byte header.
func NewFakeContextFromWAV(wavPath string) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return NewFakeContext(data), nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake-0", Name: "Fake Microphone"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.NewCaptureErr != nil {
		return nil, f.NewCaptureErr
	}
	c := &FakeCapture{pcm: f.pcm, startErr: f.StartErr}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

// Created counts every capture ever created.
func (f *FakeContext) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.captures)
}

// Open counts captures that were created but not closed.
func (f *FakeContext) Open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.captures {
		if !c.Closed() {
			n++
		}
	}
	return n
}

type FakeCapture struct {
	pcm      []byte
	startErr error

	mu      sync.Mutex
	cb      DataCallback
	running bool
	closed  bool
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

// Start delivers the whole PCM buffer synchronously in frame-sized chunks.
func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.running = true
	cb := f.cb
	f.mu.Unlock()
	if cb == nil {
		return nil
	}
	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	for pos := 0; pos < len(f.pcm); pos += chunkBytes {
		end := min(pos+chunkBytes, len(f.pcm))
		chunk := make([]byte, end-pos)
		copy(chunk, f.pcm[pos:end])
		cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	}
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {
	f.mu.Lock()
	f.running = false
	f.closed = true
	f.mu.Unlock()
}

func (f *FakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
