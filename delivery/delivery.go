// Package delivery puts finished text where the user is: the clipboard
// first, then a synthetic paste into the focused application.
package delivery

import (
	cb "github.com/atotto/clipboard"

	"vozflow/apperr"
	"vozflow/log"
)

type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// Strategy pastes the clipboard contents into the focused application.
// text is the value just written, for strategies that need it.
type Strategy interface {
	Name() string
	Paste(text string) error
}

// SystemClipboard is the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error)   { return cb.ReadAll() }
func (SystemClipboard) WriteAll(text string) error { return cb.WriteAll(text) }

type Deliverer struct {
	clip  Clipboard
	paste Strategy
}

// New returns a Deliverer. A nil paste strategy means clipboard only.
func New(clip Clipboard, paste Strategy) *Deliverer {
	return &Deliverer{clip: clip, paste: paste}
}

// Deliver writes text to the clipboard, then pastes it. Only the clipboard
// write can fail the call; paste failures are logged.
func (d *Deliverer) Deliver(text string) error {
	if err := d.clip.WriteAll(text); err != nil {
		return apperr.Wrap(apperr.Delivery, "write clipboard", err)
	}
	if d.paste == nil {
		return nil
	}
	if err := d.paste.Paste(text); err != nil {
		log.Warnf("paste via %s failed: %v", d.paste.Name(), err)
	}
	return nil
}

// StrategyName reports the paste mechanism in use, or "none".
func (d *Deliverer) StrategyName() string {
	if d.paste == nil {
		return "none"
	}
	return d.paste.Name()
}
