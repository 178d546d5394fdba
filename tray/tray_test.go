package tray

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
)

type fakeLogin struct {
	on   bool
	fail bool
	sets int
}

func (f *fakeLogin) Enabled() bool { return f.on }

func (f *fakeLogin) Set(on bool) error {
	f.sets++
	if f.fail {
		return errors.New("denied")
	}
	f.on = on
	return nil
}

func ids(items []Item) []ItemID {
	var out []ItemID
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestItemsWithoutWindow(t *testing.T) {
	m := NewModel(Actions{Toggle: func() {}, Login: &fakeLogin{}, Quit: func() {}})
	got := ids(m.Items())
	if len(got) != 3 || got[0] != ItemToggle || got[2] != ItemQuit {
		t.Errorf("items = %v", got)
	}
}

func TestItemsWithWindow(t *testing.T) {
	m := NewModel(Actions{ShowHide: func() {}, Toggle: func() {}, Quit: func() {}})
	got := ids(m.Items())
	if len(got) != 3 || got[0] != ItemShowHide || got[1] != ItemToggle {
		t.Errorf("items = %v", got)
	}
}

func TestToggleLabelFollowsState(t *testing.T) {
	m := NewModel(Actions{})
	for state, want := range map[string]string{
		"idle":       "Start Recording",
		"recording":  "Stop Recording",
		"processing": "Transcribing...",
	} {
		m.SetState(state)
		if got := m.Items()[0].Label; got != want {
			t.Errorf("%s: label = %q, want %q", state, got, want)
		}
	}
}

func TestActivate(t *testing.T) {
	var toggles, quits, shows int
	login := &fakeLogin{}
	m := NewModel(Actions{
		ShowHide: func() { shows++ },
		Toggle:   func() { toggles++ },
		Login:    login,
		Quit:     func() { quits++ },
	})
	changes := 0
	m.OnChange(func() { changes++ })

	m.Activate(ItemToggle)
	m.Activate(ItemShowHide)
	m.Activate(ItemLogin)
	if !login.on || changes != 1 {
		t.Errorf("login = %v changes = %d", login.on, changes)
	}
	for _, it := range m.Items() {
		if it.ID == ItemLogin && !it.Checked {
			t.Error("login item not checked")
		}
	}
	m.Activate(ItemLogin)
	m.Activate(ItemQuit)
	if toggles != 1 || shows != 1 || quits != 1 || login.on {
		t.Errorf("toggles=%d shows=%d quits=%d login=%v", toggles, shows, quits, login.on)
	}
}

func TestLoginFailureKeepsState(t *testing.T) {
	login := &fakeLogin{fail: true}
	m := NewModel(Actions{Login: login})
	m.Activate(ItemLogin)
	if login.on || login.sets != 1 {
		t.Errorf("on = %v sets = %d", login.on, login.sets)
	}
}

func TestTooltip(t *testing.T) {
	m := NewModel(Actions{})
	if m.Tooltip() != "Voz Flow" {
		t.Errorf("empty tooltip = %q", m.Tooltip())
	}
	m.SetShortcut("CommandOrControl+Shift+Space")
	if m.Tooltip() != "Voz Flow - CommandOrControl+Shift+Space" {
		t.Errorf("tooltip = %q", m.Tooltip())
	}
}

func TestIconsDecode(t *testing.T) {
	for _, state := range []string{"idle", "recording", "processing", "error"} {
		cfg, err := png.DecodeConfig(bytes.NewReader(Icon(state)))
		if err != nil {
			t.Fatalf("%s: %v", state, err)
		}
		if cfg.Width != 44 || cfg.Height != 44 {
			t.Errorf("%s: %dx%d", state, cfg.Width, cfg.Height)
		}
	}
}
