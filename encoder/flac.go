package encoder

import (
	"bytes"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// flacEncoder writes one FLAC frame per block. The stream header carries no
// sample count because the buffer cannot be rewound.
type flacEncoder struct {
	buf     bytes.Buffer
	enc     *flac.Encoder
	samples []int32
	frames  uint64
}

func newFlac() (*flacEncoder, error) {
	e := &flacEncoder{samples: make([]int32, 0, BlockSize)}
	enc, err := flac.NewEncoder(&e.buf, &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	})
	if err != nil {
		return nil, fmt.Errorf("flac header: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	e.enc = enc
	return e, nil
}

func (e *flacEncoder) EncodeBlock(block []int16) error {
	if len(block) == 0 {
		return nil
	}
	e.samples = e.samples[:0]
	for _, s := range block {
		e.samples = append(e.samples, int32(s))
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   e.samples,
			NSamples:  len(block),
		}},
	}
	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("flac frame %d: %w", e.frames/BlockSize, err)
	}
	e.frames += uint64(len(block))
	return nil
}

func (e *flacEncoder) Close() error   { return e.enc.Close() }
func (e *flacEncoder) Bytes() []byte  { return e.buf.Bytes() }
func (e *flacEncoder) Frames() uint64 { return e.frames }
