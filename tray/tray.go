// Package tray holds the tray menu model shared by the system tray and the
// GUI build's tray, plus the system tray renderer.
package tray

import (
	"sync"

	"vozflow/log"
)

type ItemID int

const (
	ItemShowHide ItemID = iota
	ItemToggle
	ItemLogin
	ItemQuit
)

type Item struct {
	ID       ItemID
	Label    string
	Checkbox bool
	Checked  bool
}

// Actions are the callbacks behind the menu. ShowHide may be nil when there
// is no main window; its item is then omitted. Login may be nil when launch
// at login is unsupported.
type Actions struct {
	ShowHide func()
	Toggle   func()
	Login    Login
	Quit     func()
}

type Login interface {
	Enabled() bool
	Set(on bool) error
}

type Model struct {
	actions Actions

	mu        sync.Mutex
	shortcut  string
	state     string
	listeners []func()
}

func NewModel(actions Actions) *Model {
	return &Model{actions: actions, state: "idle"}
}

// Tooltip is the hover text for shortcut.
func Tooltip(shortcut string) string {
	if shortcut == "" {
		return "Voz Flow"
	}
	return "Voz Flow - " + shortcut
}

func (m *Model) Tooltip() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Tooltip(m.shortcut)
}

func (m *Model) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Model) SetShortcut(s string) {
	m.mu.Lock()
	m.shortcut = s
	m.mu.Unlock()
	m.changed()
}

// SetState takes a session state name, or "error".
func (m *Model) SetState(s string) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.changed()
}

// OnChange is called after the tooltip, state or items change.
func (m *Model) OnChange(fn func()) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Model) Items() []Item {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	var items []Item
	if m.actions.ShowHide != nil {
		items = append(items, Item{ID: ItemShowHide, Label: "Show/Hide Voz Flow"})
	}
	toggle := "Start Recording"
	switch state {
	case "recording":
		toggle = "Stop Recording"
	case "processing":
		toggle = "Transcribing..."
	}
	items = append(items, Item{ID: ItemToggle, Label: toggle})
	if m.actions.Login != nil {
		items = append(items, Item{ID: ItemLogin, Label: "Launch at Login", Checkbox: true, Checked: m.actions.Login.Enabled()})
	}
	return append(items, Item{ID: ItemQuit, Label: "Quit"})
}

// Activate runs the action behind id.
func (m *Model) Activate(id ItemID) {
	switch id {
	case ItemShowHide:
		if m.actions.ShowHide != nil {
			m.actions.ShowHide()
		}
	case ItemToggle:
		if m.actions.Toggle != nil {
			m.actions.Toggle()
		}
	case ItemLogin:
		if m.actions.Login == nil {
			return
		}
		on := !m.actions.Login.Enabled()
		if err := m.actions.Login.Set(on); err != nil {
			log.Errorf("launch at login: %v", err)
		}
		m.changed()
	case ItemQuit:
		if m.actions.Quit != nil {
			m.actions.Quit()
		}
	}
}

func (m *Model) changed() {
	m.mu.Lock()
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
