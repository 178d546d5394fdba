// Package bridge is the privileged channel between UI surfaces and the host.
// The API is the in-process form; Server exposes the same operations over
// loopback HTTP and Client consumes them from another process.
package bridge

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vozflow/apperr"
	"vozflow/encoder"
	"vozflow/history"
	"vozflow/log"
	"vozflow/overlay"
	"vozflow/transcriber"
)

// Capture owners. Exactly one side of the bridge records at a time.
const (
	OwnerHost    = "host"
	OwnerSurface = "surface"
)

// StateTopic carries the recording state of whichever side owns capture.
const StateTopic = "state"

const archiveTimeout = 60 * time.Second

type Shortcuts interface {
	Current() string
	SetUserShortcut(raw string) (string, error)
}

type Deliverer interface {
	Deliver(text string) error
}

type Pipeline interface {
	Run(ctx context.Context, sessionID string, payload encoder.Result) (transcriber.Result, error)
}

type Archive interface {
	Save(ctx context.Context, rec history.Record) error
}

type Deps struct {
	Shortcuts Shortcuts
	Overlay   overlay.Overlay
	Delivery  Deliverer
	// Pipeline may be nil when no API key is configured; TranscribeAudio
	// then reports PipelineErr.
	Pipeline    Pipeline
	PipelineErr error
	Bus         *Bus
	// Archive receives every transcription made through the bridge.
	Archive Archive
	// CaptureOwner is OwnerHost when the host records on shortcut presses
	// itself. Empty means OwnerSurface.
	CaptureOwner string
}

type API struct {
	d      Deps
	states *Bus

	mu    sync.Mutex
	state string

	pending sync.WaitGroup
}

func NewAPI(d Deps) *API {
	if d.Bus == nil {
		d.Bus = NewBus(ToggleTopic)
	}
	if d.Overlay == nil {
		d.Overlay = overlay.NewLogged()
	}
	if d.CaptureOwner != OwnerHost {
		d.CaptureOwner = OwnerSurface
	}
	return &API{d: d, states: NewBus(StateTopic), state: "idle"}
}

func (a *API) Bus() *Bus { return a.d.Bus }

func (a *API) CaptureOwner() string { return a.d.CaptureOwner }

// OnToggleRecording subscribes handler to toggle events.
func (a *API) OnToggleRecording(handler func(), alive func() bool) (unsubscribe func()) {
	return a.d.Bus.Subscribe(handler, alive)
}

// State is the last published recording state.
func (a *API) State() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// PublishState records state and passes it to every state subscriber.
func (a *API) PublishState(state string) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
	a.states.Publish()
}

// OnState subscribes handler to recording state changes.
func (a *API) OnState(handler func(state string), alive func() bool) (unsubscribe func()) {
	return a.states.Subscribe(func() { handler(a.State()) }, alive)
}

// StateSubscribers counts live state subscriptions.
func (a *API) StateSubscribers() int { return a.states.Len() }

// Wait blocks until every pending history hand-off has finished.
func (a *API) Wait() { a.pending.Wait() }

// SetRecordingState shows or hides the overlay. When a surface owns capture
// it also drives the published state.
func (a *API) SetRecordingState(recording bool) Result {
	return guard("setRecordingState", func() (any, error) {
		if recording {
			a.d.Overlay.Show()
		} else {
			a.d.Overlay.Hide()
		}
		if a.d.CaptureOwner == OwnerSurface {
			if recording {
				a.PublishState("recording")
			} else {
				a.PublishState("processing")
			}
		}
		return nil, nil
	})
}

func (a *API) TypeText(text string) Result {
	return guard("typeText", func() (any, error) {
		if strings.TrimSpace(text) == "" {
			return nil, apperr.New(apperr.Delivery, "type text", "nothing to type")
		}
		return nil, a.d.Delivery.Deliver(text)
	})
}

func (a *API) TranscribeAudio(ctx context.Context, data []byte, format string) Result {
	r := a.transcribe(ctx, data, format)
	if a.d.CaptureOwner == OwnerSurface {
		if r.OK {
			a.PublishState("idle")
		} else {
			a.PublishState("error")
		}
	}
	return r
}

func (a *API) transcribe(ctx context.Context, data []byte, format string) Result {
	return guard("transcribeAudio", func() (any, error) {
		if a.d.Pipeline == nil {
			if a.d.PipelineErr != nil {
				return nil, a.d.PipelineErr
			}
			return nil, apperr.New(apperr.Pipeline, "transcribe", "transcription is not configured")
		}
		if format != encoder.FormatFLAC && format != encoder.FormatWAV {
			return nil, apperr.New(apperr.Pipeline, "transcribe", "unsupported audio format "+format)
		}
		id := uuid.NewString()
		res, err := a.d.Pipeline.Run(ctx, id, encoder.Result{Data: data, Format: format})
		if err != nil {
			return nil, err
		}
		a.archive(history.NewRecord(res.Original, res.Refined, history.Metadata{SessionID: id, Format: format}))
		return res, nil
	})
}

func (a *API) archive(rec history.Record) {
	if a.d.Archive == nil {
		return
	}
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := a.d.Archive.Save(ctx, rec); err != nil {
			log.Warnf("bridge session %s: %v", rec.Metadata.SessionID, err)
		}
	}()
}

func (a *API) GetShortcut() Result {
	return guard("getShortcut", func() (any, error) {
		return a.d.Shortcuts.Current(), nil
	})
}

func (a *API) SetShortcut(raw string) Result {
	return guard("setShortcut", func() (any, error) {
		s, err := a.d.Shortcuts.SetUserShortcut(raw)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
