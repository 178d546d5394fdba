package encoder

import (
	"errors"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavEncoder writes 16-bit mono PCM. The RIFF sizes are patched on Close,
// so the output only becomes a valid file after Close returns.
type wavEncoder struct {
	buf    seekBuffer
	enc    *wav.Encoder
	intBuf *audio.IntBuffer
	frames uint64
}

func newWav() *wavEncoder {
	e := &wavEncoder{}
	e.enc = wav.NewEncoder(&e.buf, SampleRate, BitsPerSample, Channels, 1)
	e.intBuf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
		SourceBitDepth: BitsPerSample,
	}
	return e
}

func (e *wavEncoder) EncodeBlock(block []int16) error {
	data := e.intBuf.Data[:0]
	for _, s := range block {
		data = append(data, int(s))
	}
	e.intBuf.Data = data
	if err := e.enc.Write(e.intBuf); err != nil {
		return err
	}
	e.frames += uint64(len(block))
	return nil
}

func (e *wavEncoder) Close() error {
	if e.frames == 0 {
		// Forces the header out so an empty recording is still a valid file.
		e.intBuf.Data = e.intBuf.Data[:0]
		if err := e.enc.Write(e.intBuf); err != nil {
			return err
		}
	}
	return e.enc.Close()
}

func (e *wavEncoder) Bytes() []byte  { return e.buf.data }
func (e *wavEncoder) Frames() uint64 { return e.frames }

// seekBuffer is an in-memory io.WriteSeeker for the wav encoder.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	n := copy(b.data[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, errors.New("seekBuffer: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seekBuffer: negative position")
	}
	b.pos = int(abs)
	return abs, nil
}
