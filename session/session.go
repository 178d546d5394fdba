// Package session runs the recording state machine:
//
//	Idle --Toggle--> Recording --Toggle|Stop--> Processing --done--> Idle
//
// Every transition holds one mutex. The pipeline runs on its own goroutine
// so hotkey handling never waits on the network.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"vozflow/apperr"
	"vozflow/encoder"
	"vozflow/history"
	"vozflow/log"
	"vozflow/overlay"
	"vozflow/transcriber"
)

type State int32

const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	}
	return "unknown"
}

type Recorder interface {
	Start() error
	Stop() (encoder.Result, error)
}

type Pipeline interface {
	Run(ctx context.Context, sessionID string, payload encoder.Result) (transcriber.Result, error)
}

type Deliverer interface {
	Deliver(text string) error
}

type Archive interface {
	Save(ctx context.Context, rec history.Record) error
}

type Notifier interface {
	RecordingStarted()
	RecordingStopped()
	Error(err error)
}

type Options struct {
	Recorder Recorder
	Pipeline Pipeline
	Overlay  overlay.Overlay
	Delivery Deliverer
	// Archive and Notify are optional.
	Archive Archive
	Notify  Notifier
	// Timeout bounds one pipeline run. Zero means 60s.
	Timeout time.Duration
}

type Coordinator struct {
	opts Options

	mu        sync.Mutex
	state     atomic.Int32
	sessionID string

	lmu      sync.Mutex
	onChange []func(State, string)
	onResult []func(transcriber.Result)
	onError  []func(error)
	inflight sync.WaitGroup
}

func New(opts Options) *Coordinator {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Overlay == nil {
		opts.Overlay = overlay.NewLogged()
	}
	return &Coordinator{opts: opts}
}

func (c *Coordinator) State() State { return State(c.state.Load()) }

// OnChange listeners run synchronously inside the transition and must not
// call Toggle or Stop.
func (c *Coordinator) OnChange(fn func(state State, sessionID string)) {
	c.lmu.Lock()
	c.onChange = append(c.onChange, fn)
	c.lmu.Unlock()
}

func (c *Coordinator) OnResult(fn func(transcriber.Result)) {
	c.lmu.Lock()
	c.onResult = append(c.onResult, fn)
	c.lmu.Unlock()
}

func (c *Coordinator) OnError(fn func(error)) {
	c.lmu.Lock()
	c.onError = append(c.onError, fn)
	c.lmu.Unlock()
}

// Toggle starts a recording from Idle and stops one from Recording. It does
// nothing while Processing. A microphone failure returns a Capture error and
// leaves the state at Idle.
func (c *Coordinator) Toggle() error {
	c.mu.Lock()
	var err error
	switch c.State() {
	case Idle:
		err = c.startLocked()
	case Recording:
		err = c.stopLocked()
	}
	c.mu.Unlock()
	if err != nil {
		c.fail(err)
	}
	return err
}

// Stop ends a recording. It does nothing unless Recording.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	var err error
	if c.State() == Recording {
		err = c.stopLocked()
	}
	c.mu.Unlock()
	if err != nil {
		c.fail(err)
	}
	return err
}

// Wait blocks until no pipeline run or history hand-off is in flight.
func (c *Coordinator) Wait() { c.inflight.Wait() }

func (c *Coordinator) startLocked() error {
	id := uuid.NewString()
	if err := c.opts.Recorder.Start(); err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Wrap(apperr.Capture, "start recording", err)
		}
		log.Errorf("session %s: %v", id, err)
		return err
	}
	c.sessionID = id
	c.setLocked(Recording)
	if c.opts.Notify != nil {
		c.opts.Notify.RecordingStarted()
	}
	return nil
}

// stopLocked hides the overlay and releases the microphone before the
// pipeline goroutine starts.
func (c *Coordinator) stopLocked() error {
	c.setLocked(Processing)
	if c.opts.Notify != nil {
		c.opts.Notify.RecordingStopped()
	}
	id := c.sessionID

	payload, err := c.opts.Recorder.Stop()
	if err != nil {
		err = apperr.Wrap(apperr.Capture, "stop recording", err)
		log.Errorf("session %s: %v", id, err)
		c.setLocked(Idle)
		return err
	}

	c.inflight.Add(1)
	go c.process(id, payload)
	return nil
}

func (c *Coordinator) process(id string, payload encoder.Result) {
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	defer cancel()

	res, err := c.opts.Pipeline.Run(ctx, id, payload)
	if err != nil {
		log.Errorf("session %s: %v", id, err)
		c.finish()
		c.fail(err)
		return
	}

	if err := c.opts.Delivery.Deliver(res.Refined); err != nil {
		log.Errorf("session %s: %v", id, err)
		c.fail(err)
	}
	c.finish()

	c.lmu.Lock()
	listeners := append([]func(transcriber.Result){}, c.onResult...)
	c.lmu.Unlock()
	for _, fn := range listeners {
		fn(res)
	}

	if c.opts.Archive != nil {
		rec := history.NewRecord(res.Original, res.Refined, history.Metadata{
			SessionID:    id,
			Format:       payload.Format,
			AudioSeconds: payload.Duration().Seconds(),
		})
		c.inflight.Add(1)
		go c.archive(id, rec)
	}
}

// archive hands the record to the store once the session is back to Idle.
func (c *Coordinator) archive(id string, rec history.Record) {
	defer c.inflight.Done()
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	defer cancel()
	if err := c.opts.Archive.Save(ctx, rec); err != nil {
		log.Warnf("session %s: %v", id, err)
	}
}

func (c *Coordinator) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(Idle)
}

// setLocked records the transition and recomputes overlay visibility.
func (c *Coordinator) setLocked(s State) {
	from := c.State()
	c.state.Store(int32(s))
	if s == Recording {
		c.opts.Overlay.Show()
	} else {
		c.opts.Overlay.Hide()
	}
	log.StateChange(c.sessionID, from.String(), s.String())

	c.lmu.Lock()
	listeners := append([]func(State, string){}, c.onChange...)
	c.lmu.Unlock()
	for _, fn := range listeners {
		fn(s, c.sessionID)
	}
}

func (c *Coordinator) fail(err error) {
	if c.opts.Notify != nil {
		c.opts.Notify.Error(err)
	}
	c.lmu.Lock()
	listeners := append([]func(error){}, c.onError...)
	c.lmu.Unlock()
	for _, fn := range listeners {
		fn(err)
	}
}
