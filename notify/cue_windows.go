//go:build windows

package notify

import (
	"time"

	"github.com/gen2brain/beeep"
)

func play(c Cue) {
	t := tones[c]
	ms := int(t.dur * 1000)
	go func() {
		beeep.Beep(t.freq, ms)
		if t.double {
			time.Sleep(time.Duration(doubleGap * float64(time.Second)))
			beeep.Beep(t.freq, ms)
		}
	}()
}
