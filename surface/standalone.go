package surface

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vozflow/apperr"
	"vozflow/bridge"
	"vozflow/encoder"
	"vozflow/history"
	"vozflow/log"
	"vozflow/transcriber"
)

type Pipeline interface {
	Run(ctx context.Context, sessionID string, payload encoder.Result) (transcriber.Result, error)
}

type Deliverer interface {
	Deliver(text string) error
}

type Archive interface {
	Save(ctx context.Context, rec history.Record) error
}

// Standalone runs without a host: no global shortcut, no overlay, and the
// pipeline called in process. Pipeline may be nil with PipelineErr set when
// no API key is configured. Archive is optional.
type Standalone struct {
	Pipeline    Pipeline
	PipelineErr error
	Delivery    Deliverer
	Archive     Archive

	pending sync.WaitGroup
}

func (*Standalone) Mode() string { return ModeStandalone }

func (*Standalone) CaptureOwner() string { return bridge.OwnerSurface }

func (*Standalone) GetShortcut(context.Context) (string, error) { return "", nil }

func (*Standalone) SetShortcut(context.Context, string) (string, error) {
	return "", apperr.New(apperr.Configuration, "set shortcut", "no host running, shortcuts are unavailable in standalone mode")
}

func (*Standalone) SetRecordingState(context.Context, bool) error { return nil }

func (s *Standalone) TypeText(_ context.Context, text string) error {
	return s.Delivery.Deliver(text)
}

func (s *Standalone) TranscribeAudio(ctx context.Context, data []byte, format string) (transcriber.Result, error) {
	if s.Pipeline == nil {
		if s.PipelineErr != nil {
			return transcriber.Result{}, s.PipelineErr
		}
		return transcriber.Result{}, apperr.New(apperr.Pipeline, "transcribe", "transcription is not configured")
	}
	id := uuid.NewString()
	res, err := s.Pipeline.Run(ctx, id, encoder.Result{Data: data, Format: format})
	if err != nil {
		return res, err
	}
	if s.Archive != nil {
		rec := history.NewRecord(res.Original, res.Refined, history.Metadata{SessionID: id, Format: format})
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			if err := s.Archive.Save(ctx, rec); err != nil {
				log.Warnf("session %s: %v", id, err)
			}
		}()
	}
	return res, nil
}

// Wait blocks until every pending history hand-off has finished.
func (s *Standalone) Wait() { s.pending.Wait() }

func (*Standalone) Toggles(context.Context) (<-chan struct{}, error) {
	return make(chan struct{}), nil
}

func (*Standalone) States(context.Context) (<-chan string, error) {
	return make(chan string), nil
}
