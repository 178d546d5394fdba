package audio

import (
	"errors"
	"sync"

	"vozflow/apperr"
	"vozflow/encoder"
)

var ErrNotRecording = errors.New("not recording")

// Recorder acquires the microphone for exactly one recording at a time:
// Start opens and starts the stream, Stop stops and releases it and returns
// the encoded audio.
type Recorder struct {
	ctx    Context
	device *DeviceInfo
	format string

	mu      sync.Mutex
	capture CaptureDevice
	stream  *encoder.Stream
}

func NewRecorder(ctx Context, device *DeviceInfo, format string) *Recorder {
	return &Recorder{ctx: ctx, device: device, format: format}
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capture != nil
}

// Start returns a Capture error when the microphone cannot be opened or
// started; nothing is left open in that case.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capture != nil {
		return nil
	}

	stream, err := encoder.NewStream(r.format)
	if err != nil {
		return apperr.Wrap(apperr.Capture, "prepare encoder", err)
	}

	capture, err := r.ctx.NewCapture(r.device, CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		stream.Close()
		return &apperr.Error{Kind: apperr.Capture, Op: "open microphone", Msg: "microphone unavailable", Err: err}
	}

	capture.SetCallback(func(data []byte, _ uint32) { stream.Write(data) })
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		stream.Close()
		return &apperr.Error{Kind: apperr.Capture, Op: "start microphone", Msg: "microphone unavailable or permission denied", Err: err}
	}

	r.capture = capture
	r.stream = stream
	return nil
}

// Stop releases the microphone before waiting for the encoder to finish.
func (r *Recorder) Stop() (Payload, error) {
	r.mu.Lock()
	capture, stream := r.capture, r.stream
	r.capture, r.stream = nil, nil
	r.mu.Unlock()

	if capture == nil {
		return Payload{}, ErrNotRecording
	}
	capture.Stop()
	capture.ClearCallback()
	capture.Close()

	return stream.Close()
}
