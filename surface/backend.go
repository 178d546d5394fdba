// Package surface is the terminal UI. It runs against a host's bridge when
// one answers, and otherwise degrades to a standalone mode that calls the
// pipeline directly and leaves text on the clipboard.
package surface

import (
	"context"
	"fmt"
	"time"

	"vozflow/apperr"
	"vozflow/bridge"
	"vozflow/transcriber"
)

const (
	ModeHosted     = "hosted"
	ModeStandalone = "standalone"
)

// Backend is everything a surface asks of the host.
type Backend interface {
	Mode() string
	GetShortcut(ctx context.Context) (string, error)
	SetShortcut(ctx context.Context, raw string) (string, error)
	SetRecordingState(ctx context.Context, recording bool) error
	TypeText(ctx context.Context, text string) error
	TranscribeAudio(ctx context.Context, data []byte, format string) (transcriber.Result, error)
	// Toggles delivers host shortcut presses. Standalone backends return a
	// channel that never fires.
	Toggles(ctx context.Context) (<-chan struct{}, error)
	// CaptureOwner is bridge.OwnerHost when the host records on its own
	// shortcut and the surface only shows what the host is doing.
	CaptureOwner() string
	// States streams the host's recording state.
	States(ctx context.Context) (<-chan string, error)
}

// Detect pings the bridge at addr and returns a hosted backend when it
// answers, else the result of standalone.
func Detect(ctx context.Context, addr string, timeout time.Duration, standalone func() (Backend, error)) (Backend, error) {
	c := bridge.NewClient(addr)
	if h, err := c.Hello(ctx, timeout); err == nil {
		return Remote{Client: c, owner: h.CaptureOwner}, nil
	}
	return standalone()
}

// DetectLocal uses api when the host is in the same process.
func DetectLocal(api *bridge.API, standalone func() (Backend, error)) (Backend, error) {
	if api == nil {
		return standalone()
	}
	return Local{api}, nil
}

// Remote is a host reached over HTTP.
type Remote struct {
	*bridge.Client
	owner string
}

func (Remote) Mode() string { return ModeHosted }

func (r Remote) CaptureOwner() string { return r.owner }

// Local is a host in the same process.
type Local struct {
	API *bridge.API
}

func (Local) Mode() string { return ModeHosted }

func (l Local) CaptureOwner() string { return l.API.CaptureOwner() }

func (l Local) GetShortcut(context.Context) (string, error) {
	return stringResult("get shortcut", l.API.GetShortcut())
}

func (l Local) SetShortcut(_ context.Context, raw string) (string, error) {
	return stringResult("set shortcut", l.API.SetShortcut(raw))
}

func (l Local) SetRecordingState(_ context.Context, recording bool) error {
	return resultErr("recording state", l.API.SetRecordingState(recording))
}

func (l Local) TypeText(_ context.Context, text string) error {
	return resultErr("type text", l.API.TypeText(text))
}

func (l Local) TranscribeAudio(ctx context.Context, data []byte, format string) (transcriber.Result, error) {
	r := l.API.TranscribeAudio(ctx, data, format)
	if err := resultErr("transcribe", r); err != nil {
		return transcriber.Result{}, err
	}
	res, _ := r.Data.(transcriber.Result)
	return res, nil
}

func (l Local) Toggles(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{}, 1)
	unsubscribe := l.API.OnToggleRecording(func() {
		select {
		case out <- struct{}{}:
		default:
		}
	}, func() bool { return ctx.Err() == nil })
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return out, nil
}

func (l Local) States(ctx context.Context) (<-chan string, error) {
	out := make(chan string, 4)
	out <- l.API.State()
	unsubscribe := l.API.OnState(func(state string) {
		select {
		case out <- state:
		default:
		}
	}, func() bool { return ctx.Err() == nil })
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return out, nil
}

func resultErr(op string, r bridge.Result) error {
	if r.OK {
		return nil
	}
	return apperr.New(r.Kind, op, r.Error)
}

func stringResult(op string, r bridge.Result) (string, error) {
	if err := resultErr(op, r); err != nil {
		return "", err
	}
	s, ok := r.Data.(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected %T", op, r.Data)
	}
	return s, nil
}
