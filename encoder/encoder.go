package encoder

import (
	"fmt"
	"strings"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

const (
	FormatFLAC = "flac"
	FormatWAV  = "wav"
)

// Encoder turns mono 16-bit blocks into one file. Calls are not
// synchronized; Stream drives an Encoder from a single goroutine.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	Frames() uint64
}

func New(format string) (Encoder, error) {
	switch format {
	case FormatFLAC:
		return newFlac()
	case FormatWAV:
		return newWav(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// ContentType is the MIME type sent alongside an encoded payload.
func ContentType(format string) string {
	switch format {
	case FormatFLAC:
		return "audio/flac"
	case FormatWAV:
		return "audio/wav"
	}
	return "application/octet-stream"
}

// FormatFromContentType is the inverse of ContentType; parameters such as
// "; codecs=" are ignored.
func FormatFromContentType(ct string) (string, bool) {
	ct, _, _ = strings.Cut(ct, ";")
	switch strings.ToLower(strings.TrimSpace(ct)) {
	case "audio/flac", "audio/x-flac":
		return FormatFLAC, true
	case "audio/wav", "audio/x-wav", "audio/wave":
		return FormatWAV, true
	}
	return "", false
}
