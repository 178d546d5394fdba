package encoder

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// Stream encodes little-endian 16-bit PCM while it is still being captured.
// Write splits input into BlockSize blocks and hands them to a background
// goroutine; Close flushes the partial block and returns the finished file.
type Stream struct {
	format     string
	enc        Encoder
	blockChan  chan []int16
	encodeDone chan struct{}

	bufMu     sync.Mutex
	sampleBuf []int16
	closed    bool

	// Owned by run until encodeDone closes.
	encErr     error
	encodeTime time.Duration
}

func NewStream(format string) (*Stream, error) {
	enc, err := New(format)
	if err != nil {
		return nil, err
	}
	s := &Stream{
		format:     format,
		enc:        enc,
		blockChan:  make(chan []int16, 64),
		encodeDone: make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *Stream) run() {
	defer close(s.encodeDone)
	for block := range s.blockChan {
		start := time.Now()
		if err := s.enc.EncodeBlock(block); err != nil && s.encErr == nil {
			s.encErr = err
		}
		s.encodeTime += time.Since(start)
	}
}

func (s *Stream) Write(pcm []byte) {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	if s.closed {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		s.sampleBuf = append(s.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	for len(s.sampleBuf) >= BlockSize {
		block := make([]int16, BlockSize)
		copy(block, s.sampleBuf[:BlockSize])
		s.sampleBuf = s.sampleBuf[BlockSize:]
		s.blockChan <- block
	}
}

type Result struct {
	Data       []byte
	Format     string
	Frames     uint64
	EncodeTime time.Duration
}

func (r Result) Duration() time.Duration {
	return time.Duration(r.Frames) * time.Second / SampleRate
}

func (s *Stream) Close() (Result, error) {
	s.bufMu.Lock()
	if s.closed {
		s.bufMu.Unlock()
		return Result{}, fmt.Errorf("encoder stream already closed")
	}
	s.closed = true
	if len(s.sampleBuf) > 0 {
		partial := make([]int16, len(s.sampleBuf))
		copy(partial, s.sampleBuf)
		s.sampleBuf = nil
		s.blockChan <- partial
	}
	close(s.blockChan)
	s.bufMu.Unlock()

	<-s.encodeDone
	if s.encErr != nil {
		return Result{}, fmt.Errorf("encode %s: %w", s.format, s.encErr)
	}
	if err := s.enc.Close(); err != nil {
		return Result{}, fmt.Errorf("finish %s: %w", s.format, err)
	}
	return Result{
		Data:       s.enc.Bytes(),
		Format:     s.format,
		Frames:     s.enc.Frames(),
		EncodeTime: s.encodeTime,
	}, nil
}
