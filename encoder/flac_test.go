package encoder

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/mewkiz/flac"
)

func tone(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	return out
}

// decode reads every sample back with the mewkiz decoder.
func decode(t *testing.T, data []byte) []int32 {
	t.Helper()
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("flac.New: %v", err)
	}
	defer stream.Close()
	if stream.Info.SampleRate != SampleRate || stream.Info.NChannels != Channels {
		t.Errorf("stream info = %d Hz, %d ch", stream.Info.SampleRate, stream.Info.NChannels)
	}
	var samples []int32
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			return samples
		}
		if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
		samples = append(samples, f.Subframes[0].Samples...)
	}
}

func TestFlacRoundTrip(t *testing.T) {
	enc, err := newFlac()
	if err != nil {
		t.Fatal(err)
	}
	in := tone(BlockSize*2 + 300)
	for i := 0; i < len(in); i += BlockSize {
		end := min(i+BlockSize, len(in))
		if err := enc.EncodeBlock(in[i:end]); err != nil {
			t.Fatalf("block at %d: %v", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if enc.Frames() != uint64(len(in)) {
		t.Errorf("Frames = %d, want %d", enc.Frames(), len(in))
	}

	out := decode(t, enc.Bytes())
	if len(out) != len(in) {
		t.Fatalf("decoded %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != int32(in[i]) {
			t.Fatalf("sample %d = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestFlacEmpty(t *testing.T) {
	enc, err := newFlac()
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.EncodeBlock(nil); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close on empty encoder: %v", err)
	}
	if enc.Frames() != 0 {
		t.Errorf("Frames = %d, want 0", enc.Frames())
	}
	if !bytes.HasPrefix(enc.Bytes(), []byte("fLaC")) {
		t.Error("empty output should still carry the stream header")
	}
}
