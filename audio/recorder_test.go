package audio

import (
	"encoding/binary"
	"errors"
	"testing"

	"vozflow/apperr"
	"vozflow/encoder"
)

func sinePCM(samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16((i%200)*100-10000)))
	}
	return pcm
}

func TestRecorderProducesPayload(t *testing.T) {
	for _, format := range []string{encoder.FormatFLAC, encoder.FormatWAV} {
		t.Run(format, func(t *testing.T) {
			samples := encoder.BlockSize*2 + 500
			ctx := NewFakeContext(sinePCM(samples))
			rec := NewRecorder(ctx, nil, format)

			if err := rec.Start(); err != nil {
				t.Fatal(err)
			}
			if !rec.Recording() {
				t.Fatal("Recording() = false after Start")
			}
			p, err := rec.Stop()
			if err != nil {
				t.Fatal(err)
			}
			if p.Frames != uint64(samples) {
				t.Errorf("Frames = %d, want %d", p.Frames, samples)
			}
			if p.Format != format || len(p.Data) == 0 {
				t.Errorf("payload = %s, %d bytes", p.Format, len(p.Data))
			}
			if ctx.Open() != 0 {
				t.Error("microphone not released after Stop")
			}
			if rec.Recording() {
				t.Error("Recording() = true after Stop")
			}
		})
	}
}

func TestRecorderCaptureErrors(t *testing.T) {
	denied := errors.New("permission denied")
	for _, tt := range []struct {
		name  string
		setup func(*FakeContext)
	}{
		{"no device", func(c *FakeContext) { c.NewCaptureErr = denied }},
		{"start fails", func(c *FakeContext) { c.StartErr = denied }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewFakeContext(sinePCM(100))
			tt.setup(ctx)
			rec := NewRecorder(ctx, nil, encoder.FormatFLAC)

			err := rec.Start()
			if !apperr.Is(err, apperr.Capture) {
				t.Fatalf("err = %v, want capture error", err)
			}
			if !errors.Is(err, denied) {
				t.Error("cause not wrapped")
			}
			if rec.Recording() {
				t.Error("Recording() = true after failed Start")
			}
			if ctx.Open() != 0 {
				t.Error("failed Start left a capture open")
			}
		})
	}
}

func TestRecorderStopWithoutStart(t *testing.T) {
	rec := NewRecorder(NewFakeContext(nil), nil, encoder.FormatFLAC)
	if _, err := rec.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("err = %v, want ErrNotRecording", err)
	}
}

func TestFindDevice(t *testing.T) {
	ctx := NewFakeContext(nil)
	if d, err := FindDevice(ctx, ""); err != nil || d != nil {
		t.Errorf("empty name = %v, %v; want default", d, err)
	}
	if d, err := FindDevice(ctx, "fake microphone"); err != nil || d.ID != "fake-0" {
		t.Errorf("exact = %v, %v", d, err)
	}
	if d, err := FindDevice(ctx, "MICRO"); err != nil || d.ID != "fake-0" {
		t.Errorf("substring = %v, %v", d, err)
	}
	if _, err := FindDevice(ctx, "usb headset"); err == nil {
		t.Error("expected error for unknown device")
	}
}
