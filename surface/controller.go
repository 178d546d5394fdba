package surface

import (
	"context"
	"sync"
	"time"

	"vozflow/apperr"
	"vozflow/bridge"
	"vozflow/encoder"
	"vozflow/log"
	"vozflow/transcriber"
)

const (
	StateIdle       = "idle"
	StateRecording  = "recording"
	StateProcessing = "processing"
)

type Recorder interface {
	Start() error
	Stop() (encoder.Result, error)
}

// Event reports a state change, a finished transcription or an error.
type Event struct {
	State  string
	Result *transcriber.Result
	Err    error
}

// Controller owns capture for a surface: it records locally, sends audio to
// the backend for transcription and asks the backend to type the result.
// When the host owns capture the controller only follows the host's state.
type Controller struct {
	backend Backend
	rec     Recorder
	emit    func(Event)
	timeout time.Duration
	follow  bool

	mu       sync.Mutex
	state    string
	inflight sync.WaitGroup
}

func NewController(b Backend, rec Recorder, emit func(Event)) *Controller {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Controller{
		backend: b,
		rec:     rec,
		emit:    emit,
		timeout: 90 * time.Second,
		follow:  b.CaptureOwner() == bridge.OwnerHost,
		state:   StateIdle,
	}
}

// Following reports whether the host records and this surface only mirrors
// its state.
func (c *Controller) Following() bool { return c.follow }

func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Listen toggles on every host shortcut press until ctx ends. When the host
// owns capture it mirrors the host's state instead.
func (c *Controller) Listen(ctx context.Context) error {
	if c.follow {
		return c.mirror(ctx)
	}
	toggles, err := c.backend.Toggles(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-toggles:
			if !ok {
				return nil
			}
			c.Toggle(ctx)
		}
	}
}

func (c *Controller) mirror(ctx context.Context) error {
	states, err := c.backend.States(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-states:
			if !ok {
				return nil
			}
			switch s {
			case StateRecording, StateProcessing:
			default:
				s = StateIdle
			}
			c.mu.Lock()
			if c.state != s {
				c.setLocked(s)
			}
			c.mu.Unlock()
		}
	}
}

// Toggle mirrors the host's state machine: start from idle, stop from
// recording, ignore while processing. It refuses when the host owns
// capture.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.follow {
		err := apperr.New(apperr.Configuration, "toggle", "the host owns the microphone, use the shortcut to record")
		c.emit(Event{Err: err})
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateIdle:
		if err := c.rec.Start(); err != nil {
			if apperr.KindOf(err) == "" {
				err = apperr.Wrap(apperr.Capture, "start recording", err)
			}
			c.emit(Event{State: c.state, Err: err})
			return err
		}
		if err := c.backend.SetRecordingState(ctx, true); err != nil {
			log.Warnf("show overlay: %v", err)
		}
		c.setLocked(StateRecording)
	case StateRecording:
		c.setLocked(StateProcessing)
		if err := c.backend.SetRecordingState(ctx, false); err != nil {
			log.Warnf("hide overlay: %v", err)
		}
		payload, err := c.rec.Stop()
		if err != nil {
			err = apperr.Wrap(apperr.Capture, "stop recording", err)
			c.setLocked(StateIdle)
			c.emit(Event{State: c.state, Err: err})
			return err
		}
		c.inflight.Add(1)
		go c.process(payload)
	}
	return nil
}

// Wait blocks until no transcription is in flight.
func (c *Controller) Wait() { c.inflight.Wait() }

func (c *Controller) process(payload encoder.Result) {
	defer c.inflight.Done()
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	res, err := c.backend.TranscribeAudio(ctx, payload.Data, payload.Format)
	if err != nil {
		c.finish(Event{Err: err})
		return
	}
	ev := Event{Result: &res}
	if err := c.backend.TypeText(ctx, res.Refined); err != nil {
		ev.Err = err
	}
	c.finish(ev)
}

func (c *Controller) finish(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	ev.State = StateIdle
	c.emit(ev)
}

func (c *Controller) setLocked(s string) {
	c.state = s
	c.emit(Event{State: s})
}
