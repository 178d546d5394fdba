package notify

import "math"

type Cue int

const (
	CueStart Cue = iota
	CueEnd
	CueError
)

const sampleRate = 44100

type tone struct {
	freq   float64
	dur    float64
	volume float64
	decay  float64
	double bool
}

var tones = map[Cue]tone{
	CueStart: {freq: 1200, dur: 0.03, volume: 0.5, decay: 60},
	CueEnd:   {freq: 900, dur: 0.05, volume: 0.5, decay: 40},
	CueError: {freq: 350, dur: 0.08, volume: 0.6, decay: 30, double: true},
}

const doubleGap = 0.05

// samples renders a mono decaying sine. Error cues repeat after a short gap.
func (t tone) samples(tail float64) []int16 {
	n := int(float64(sampleRate) * (t.dur + tail))
	out := make([]int16, n)
	for i := range out {
		ts := float64(i) / sampleRate
		env := math.Exp(-ts * t.decay)
		out[i] = int16(math.Sin(2*math.Pi*t.freq*ts) * 32767 * t.volume * env)
	}
	if !t.double {
		return out
	}
	gap := make([]int16, int(sampleRate*doubleGap))
	res := make([]int16, 0, 2*len(out)+len(gap))
	res = append(res, out...)
	res = append(res, gap...)
	return append(res, out...)
}

func le16(s []int16) []byte {
	buf := make([]byte, len(s)*2)
	for i, v := range s {
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	return buf
}
