package transcriber

import (
	"context"
	"time"

	"vozflow/apperr"
	"vozflow/encoder"
	"vozflow/log"
)

// Pipeline runs speech-to-text and then refinement. Refinement never starts
// unless transcription produced text.
type Pipeline struct {
	stt     Transcriber
	refiner Refiner
}

func NewPipeline(stt Transcriber, refiner Refiner) *Pipeline {
	return &Pipeline{stt: stt, refiner: refiner}
}

// Run returns a pipeline error for any stage failure or empty output.
func (p *Pipeline) Run(ctx context.Context, sessionID string, payload encoder.Result) (Result, error) {
	if len(payload.Data) == 0 {
		return Result{}, apperr.New(apperr.Pipeline, "transcribe", "no audio to transcribe")
	}
	start := time.Now()

	original, err := p.stt.Transcribe(ctx, payload.Data, payload.Format)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.Pipeline, "transcribe", err)
	}
	if original == "" {
		return Result{}, apperr.New(apperr.Pipeline, "transcribe", "no speech detected")
	}
	sttDone := time.Now()

	refined, err := p.refiner.Refine(ctx, original)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.Pipeline, "refine", err)
	}
	if refined == "" {
		return Result{}, apperr.New(apperr.Pipeline, "refine", "refinement returned no text")
	}
	end := time.Now()

	log.Pipeline(log.PipelineMetrics{
		SessionID:    sessionID,
		Format:       payload.Format,
		AudioS:       payload.Duration().Seconds(),
		PayloadKB:    float64(len(payload.Data)) / 1024,
		EncodeMs:     ms(payload.EncodeTime),
		TranscribeMs: ms(sttDone.Sub(start)),
		RefineMs:     ms(end.Sub(sttDone)),
		TotalMs:      ms(end.Sub(start)),
	})
	log.TranscriptionText(refined)
	return Result{Original: original, Refined: refined}, nil
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
