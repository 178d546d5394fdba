// Package shortcut owns the single global hotkey binding: which key
// combination is live, what to fall back to when the OS refuses one, and
// what gets persisted.
package shortcut

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"vozflow/apperr"
	"vozflow/hotkey"
	"vozflow/log"
	"vozflow/settings"
)

// DefaultChain is tried in order after the preferred combination.
var DefaultChain = []string{
	"CommandOrControl+Shift+Space",
	"Control+Space",
	"Alt+Space",
}

type Store interface {
	LoadShortcut() (string, error)
	SaveShortcut(shortcut string) error
}

type Manager struct {
	newHotkey hotkey.Factory
	store     Store
	chain     []string
	onFire    func()

	mu        sync.Mutex
	active    string
	hk        hotkey.Hotkey
	stop      chan struct{}
	persisted string
	listeners []func(string)
}

// New reads the persisted shortcut once. An unreadable record is logged and
// treated as absent.
func New(factory hotkey.Factory, store Store, onFire func()) *Manager {
	m := &Manager{
		newHotkey: factory,
		store:     store,
		chain:     DefaultChain,
		onFire:    onFire,
	}
	saved, err := store.LoadShortcut()
	switch {
	case err == nil:
		m.persisted = saved
	case errors.Is(err, settings.ErrNoShortcut) && apperr.KindOf(err) == "":
	default:
		log.Warnf("ignoring saved shortcut: %v", err)
	}
	return m
}

// Start binds the persisted shortcut, or the first fallback that works.
func (m *Manager) Start() (string, bool) {
	m.mu.Lock()
	preferred := m.persisted
	m.mu.Unlock()
	return m.Register(preferred, true)
}

// OnChange is called with the new combination after every successful
// registration.
func (m *Manager) OnChange(fn func(string)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Register releases the current binding, then tries preferred followed (when
// allowFallback is set) by the fallback chain. The first combination the OS
// accepts becomes active. It is persisted only when nothing was saved
// before; later changes to the saved value go through SetUserShortcut.
func (m *Manager) Register(preferred string, allowFallback bool) (string, bool) {
	m.mu.Lock()
	m.releaseLocked()

	for i, cand := range candidates(strings.TrimSpace(preferred), allowFallback, m.chain) {
		hk, err := m.newHotkey(cand)
		if err != nil {
			log.Warnf("shortcut %q rejected: %v", cand, err)
			continue
		}
		if err := hk.Register(); err != nil {
			log.Warnf("shortcut %q unavailable: %v", cand, err)
			continue
		}

		m.hk = hk
		m.active = cand
		m.stop = make(chan struct{})
		go m.listen(hk, m.stop)

		if m.persisted == "" {
			m.persistLocked(cand)
		}
		listeners := append([]func(string){}, m.listeners...)
		m.mu.Unlock()

		log.ShortcutRegistered(cand, i > 0 || preferred == "")
		for _, fn := range listeners {
			fn(cand)
		}
		return cand, true
	}

	m.mu.Unlock()
	log.Error("no shortcut could be registered")
	return "", false
}

// SetUserShortcut binds raw with no fallback. Blank input fails before any
// OS call. If the OS refuses raw, the last persisted combination (or the
// fallback chain) is bound again and a RegistrationConflict is returned.
func (m *Manager) SetUserShortcut(raw string) (string, error) {
	accel := strings.TrimSpace(raw)
	if accel == "" {
		return "", apperr.New(apperr.Configuration, "set shortcut", "shortcut cannot be empty")
	}
	if _, err := hotkey.Parse(accel); err != nil {
		return "", &apperr.Error{Kind: apperr.Configuration, Op: "set shortcut", Msg: fmt.Sprintf("%q is not a valid shortcut", accel), Err: err}
	}

	if got, ok := m.Register(accel, false); ok {
		m.mu.Lock()
		m.persistLocked(got)
		m.mu.Unlock()
		return got, nil
	}

	m.mu.Lock()
	last := m.persisted
	m.mu.Unlock()
	restored, ok := m.Register(last, true)
	if ok {
		log.Warnf("restored shortcut %q after rejecting %q", restored, accel)
	}
	return "", apperr.New(apperr.Conflict, "set shortcut",
		fmt.Sprintf("%q is invalid or in use by another app, try %s", accel, m.chain[0]))
}

// Current is the live combination, else the persisted one, else the first
// fallback.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.active != "":
		return m.active
	case m.persisted != "":
		return m.persisted
	}
	return m.chain[0]
}

// Active is the live combination or "".
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Close releases the binding.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

func (m *Manager) persistLocked(shortcut string) {
	if shortcut == m.persisted {
		return
	}
	if err := m.store.SaveShortcut(shortcut); err != nil {
		log.Errorf("persist shortcut: %v", err)
		return
	}
	m.persisted = shortcut
}

func (m *Manager) releaseLocked() {
	if m.hk == nil {
		return
	}
	close(m.stop)
	m.hk.Unregister()
	m.hk = nil
	m.stop = nil
	m.active = ""
}

func (m *Manager) listen(hk hotkey.Hotkey, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-hk.Keydown():
			if m.onFire != nil {
				m.onFire()
			}
		}
	}
}

func candidates(preferred string, allowFallback bool, chain []string) []string {
	var out []string
	if preferred != "" {
		out = append(out, preferred)
	}
	if !allowFallback {
		return out
	}
	for _, c := range chain {
		if preferred != "" && same(c, preferred) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func same(a, b string) bool {
	pa, errA := hotkey.Parse(a)
	pb, errB := hotkey.Parse(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return pa.String() == pb.String()
}
