// Package notify gives the user feedback outside any window: short audio
// cues around a recording and desktop notifications for errors.
package notify

import (
	"github.com/gen2brain/beeep"

	"vozflow/apperr"
	"vozflow/log"
)

type Desktop struct {
	title  string
	sounds bool
	send   func(title, message string, icon any) error
	play   func(Cue)
}

// New returns a Desktop notifier. Cues are skipped when sounds is false.
func New(title string, sounds bool) *Desktop {
	beeep.AppName = title
	return &Desktop{title: title, sounds: sounds, send: beeep.Notify, play: play}
}

func (d *Desktop) RecordingStarted() { d.cue(CueStart) }
func (d *Desktop) RecordingStopped() { d.cue(CueEnd) }

// Error plays the error cue and shows err as a notification.
func (d *Desktop) Error(err error) {
	if err == nil {
		return
	}
	d.cue(CueError)
	if sendErr := d.send(d.title, Message(err), ""); sendErr != nil {
		log.Warnf("desktop notification failed: %v", sendErr)
	}
}

func (d *Desktop) cue(c Cue) {
	if d.sounds {
		d.play(c)
	}
}

// Message is the user-facing text for err.
func Message(err error) string {
	msg := apperr.Message(err)
	switch apperr.KindOf(err) {
	case apperr.Capture:
		return "Microphone unavailable: " + msg
	case apperr.Pipeline:
		return "Transcription failed: " + msg
	case apperr.Delivery:
		return "Could not copy text: " + msg
	case apperr.Conflict:
		return "Shortcut unavailable: " + msg
	}
	return msg
}
