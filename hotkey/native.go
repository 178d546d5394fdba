package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

var nativeKeys = map[string]hotkey.Key{
	"Space":  hotkey.KeySpace,
	"Enter":  hotkey.KeyReturn,
	"Escape": hotkey.KeyEscape,
	"Tab":    hotkey.KeyTab,
	"Delete": hotkey.KeyDelete,
	"Left":   hotkey.KeyLeft,
	"Right":  hotkey.KeyRight,
	"Up":     hotkey.KeyUp,
	"Down":   hotkey.KeyDown,
	"A":      hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD,
	"E": hotkey.KeyE, "F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH,
	"I": hotkey.KeyI, "J": hotkey.KeyJ, "K": hotkey.KeyK, "L": hotkey.KeyL,
	"M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO, "P": hotkey.KeyP,
	"Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
	"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX,
	"Y": hotkey.KeyY, "Z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4,
	"F5": hotkey.KeyF5, "F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8,
	"F9": hotkey.KeyF9, "F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,
}

// xHotkey forwards golang.design/x/hotkey events until Unregister.
type xHotkey struct {
	accel   Accelerator
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}

	mu   sync.Mutex
	done chan struct{}
}

// New parses accel and returns an unregistered OS hotkey for it.
func New(accel string) (Hotkey, error) {
	a, err := Parse(accel)
	if err != nil {
		return nil, err
	}
	key, ok := nativeKeys[a.Key]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKey, a.Key)
	}
	mods := make([]hotkey.Modifier, 0, len(a.Mods))
	for _, m := range a.Mods {
		mods = append(mods, modifierMap[m])
	}
	return &xHotkey{
		accel:   a,
		hk:      hotkey.New(mods, key),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}, nil
}

func (h *xHotkey) Register() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done != nil {
		return nil
	}
	if err := h.hk.Register(); err != nil {
		return fmt.Errorf("register %s: %w", h.accel, err)
	}
	done := make(chan struct{})
	h.done = done
	go forward(h.hk.Keydown(), h.keydown, done)
	go forward(h.hk.Keyup(), h.keyup, done)
	return nil
}

func forward(src <-chan hotkey.Event, dst chan struct{}, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-src:
			select {
			case dst <- struct{}{}:
			default:
			}
		}
	}
}

func (h *xHotkey) Unregister() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done == nil {
		return
	}
	close(h.done)
	h.done = nil
	h.hk.Unregister()
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *xHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

// Diagnose registers and immediately releases accel to check that the OS
// accepts it.
func Diagnose(accel string) (string, error) {
	hk, err := New(accel)
	if err != nil {
		return "", err
	}
	if err := hk.Register(); err != nil {
		return "", err
	}
	hk.Unregister()
	return fmt.Sprintf("hotkey support available (%s)", accel), nil
}
