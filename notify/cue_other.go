//go:build !darwin && !linux && !windows

package notify

func play(Cue) {}
