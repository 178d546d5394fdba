package shortcut

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vozflow/apperr"
	"vozflow/hotkey"
	"vozflow/settings"
)

type memStore struct {
	mu    sync.Mutex
	value string
	saves int
}

func (s *memStore) LoadShortcut() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == "" {
		return "", settings.ErrNoShortcut
	}
	return s.value, nil
}

func (s *memStore) SaveShortcut(v string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.saves++
	return nil
}

func newManager(t *testing.T, store Store, fos *hotkey.FakeOS, onFire func()) *Manager {
	t.Helper()
	m := New(fos.New, store, onFire)
	t.Cleanup(m.Close)
	return m
}

func TestFreshStartUsesFirstFallback(t *testing.T) {
	fos := hotkey.NewFakeOS()
	store := &memStore{}
	m := newManager(t, store, fos, nil)

	got, ok := m.Start()
	if !ok || got != "CommandOrControl+Shift+Space" {
		t.Fatalf("Start = %q, %v", got, ok)
	}
	if m.Current() != "CommandOrControl+Shift+Space" {
		t.Errorf("Current = %q", m.Current())
	}
	if store.value != "CommandOrControl+Shift+Space" {
		t.Errorf("persisted = %q", store.value)
	}
}

func TestStartPrefersPersisted(t *testing.T) {
	fos := hotkey.NewFakeOS()
	m := newManager(t, &memStore{value: "F9"}, fos, nil)

	if got, _ := m.Start(); got != "F9" {
		t.Errorf("Start = %q, want F9", got)
	}
}

func TestStartFallsBackPastTakenCombinations(t *testing.T) {
	fos := hotkey.NewFakeOS("F9", "CommandOrControl+Shift+Space")
	store := &memStore{value: "F9"}
	m := newManager(t, store, fos, nil)

	got, ok := m.Start()
	if !ok || got != "Control+Space" {
		t.Fatalf("Start = %q, %v; want Control+Space", got, ok)
	}
	if store.value != "F9" || store.saves != 0 {
		t.Errorf("persisted = %q after %d saves, want the user's F9 kept", store.value, store.saves)
	}
	if m.Current() != "Control+Space" {
		t.Errorf("Current = %q", m.Current())
	}
}

func TestOnlyExplicitSavesOverwrite(t *testing.T) {
	fos := hotkey.NewFakeOS("F9", "Control+Space")
	store := &memStore{value: "F9"}
	m := newManager(t, store, fos, nil)
	m.Start()

	if _, err := m.SetUserShortcut("Control+Space"); !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if m.Active() != "CommandOrControl+Shift+Space" {
		t.Errorf("Active = %q after restore", m.Active())
	}
	if store.value != "F9" || store.saves != 0 {
		t.Errorf("persisted = %q after %d saves", store.value, store.saves)
	}

	if _, err := m.SetUserShortcut("Alt+Space"); err != nil {
		t.Fatal(err)
	}
	if store.value != "Alt+Space" || store.saves != 1 {
		t.Errorf("persisted = %q after %d saves", store.value, store.saves)
	}
}

func TestNothingRegistrable(t *testing.T) {
	fos := hotkey.NewFakeOS(DefaultChain...)
	store := &memStore{}
	m := newManager(t, store, fos, nil)

	if got, ok := m.Start(); ok {
		t.Fatalf("Start = %q, want failure", got)
	}
	if m.Active() != "" {
		t.Errorf("Active = %q, want none", m.Active())
	}
	if m.Current() != DefaultChain[0] {
		t.Errorf("Current = %q, want first fallback", m.Current())
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0", store.saves)
	}
}

func TestCandidatesDedupe(t *testing.T) {
	got := candidates("ctrl+space", true, DefaultChain)
	want := []string{"ctrl+space", "CommandOrControl+Shift+Space", "Alt+Space"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if got := candidates("F1", false, DefaultChain); len(got) != 1 {
		t.Errorf("no-fallback candidates = %v", got)
	}
	if got := candidates("", true, DefaultChain); len(got) != 3 {
		t.Errorf("empty preferred candidates = %v", got)
	}
}

func TestSetUserShortcutBlankFailsFast(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		fos := hotkey.NewFakeOS()
		m := newManager(t, &memStore{}, fos, nil)
		m.Start()
		calls := fos.RegisterCalls()

		_, err := m.SetUserShortcut(raw)
		if !apperr.Is(err, apperr.Configuration) {
			t.Errorf("SetUserShortcut(%q) err = %v, want configuration error", raw, err)
		}
		if fos.RegisterCalls() != calls {
			t.Errorf("SetUserShortcut(%q) touched the OS", raw)
		}
		if m.Active() != DefaultChain[0] {
			t.Errorf("binding changed to %q", m.Active())
		}
	}
}

func TestSetUserShortcutRoundTrip(t *testing.T) {
	fos := hotkey.NewFakeOS()
	store := &memStore{}
	m := newManager(t, store, fos, nil)
	m.Start()

	got, err := m.SetUserShortcut("  Alt+Space ")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Alt+Space" || m.Current() != "Alt+Space" {
		t.Errorf("got %q, Current %q", got, m.Current())
	}
	if store.value != "Alt+Space" {
		t.Errorf("persisted = %q", store.value)
	}
}

func TestSetUserShortcutConflictRestoresPrevious(t *testing.T) {
	fos := hotkey.NewFakeOS("Control+Space")
	store := &memStore{value: "Alt+Space"}
	m := newManager(t, store, fos, nil)
	m.Start()

	_, err := m.SetUserShortcut("Control+Space")
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("err = %v, want registration conflict", err)
	}
	if m.Current() != "Alt+Space" || m.Active() != "Alt+Space" {
		t.Errorf("Current = %q Active = %q, want Alt+Space", m.Current(), m.Active())
	}
	if store.value != "Alt+Space" {
		t.Errorf("persisted = %q, want unchanged", store.value)
	}
	if active := fos.Active(); len(active) != 1 || active[0] != "Alt+Space" {
		t.Errorf("OS bindings = %v", active)
	}
}

func TestSetUserShortcutInvalidCombination(t *testing.T) {
	fos := hotkey.NewFakeOS()
	m := newManager(t, &memStore{}, fos, nil)
	m.Start()
	calls := fos.RegisterCalls()

	_, err := m.SetUserShortcut("Ctrl+Hyper")
	if !apperr.Is(err, apperr.Configuration) {
		t.Errorf("err = %v, want configuration error", err)
	}
	if fos.RegisterCalls() != calls || m.Active() != DefaultChain[0] {
		t.Error("invalid combination should not touch the binding")
	}
}

func TestAtMostOneBinding(t *testing.T) {
	fos := hotkey.NewFakeOS("F2")
	m := newManager(t, &memStore{}, fos, nil)

	m.Start()
	m.SetUserShortcut("F1")
	m.SetUserShortcut("F2")
	m.SetUserShortcut("Alt+Space")
	m.Register("F3", true)

	if fos.MaxLive() != 1 {
		t.Errorf("MaxLive = %d, want 1", fos.MaxLive())
	}
	m.Close()
	if len(fos.Active()) != 0 {
		t.Errorf("Close left %v registered", fos.Active())
	}
}

func TestHotkeyFires(t *testing.T) {
	fos := hotkey.NewFakeOS()
	fired := make(chan struct{}, 1)
	m := newManager(t, &memStore{}, fos, func() { fired <- struct{}{} })
	m.Start()

	if !fos.Press(DefaultChain[0]) {
		t.Fatal("binding not registered")
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("onFire not called")
	}
}

func TestOnChange(t *testing.T) {
	fos := hotkey.NewFakeOS()
	m := newManager(t, &memStore{}, fos, nil)
	var seen []string
	m.OnChange(func(s string) { seen = append(seen, s) })

	m.Start()
	m.SetUserShortcut("F5")
	if len(seen) != 2 || seen[1] != "F5" {
		t.Errorf("seen = %v", seen)
	}
}

func TestCorruptSettingsFileIgnored(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, settings.FileName), []byte("{oops"), 0644); err != nil {
		t.Fatal(err)
	}
	store := settings.Open(dir)
	fos := hotkey.NewFakeOS()
	m := newManager(t, store, fos, nil)

	if got, ok := m.Start(); !ok || got != DefaultChain[0] {
		t.Errorf("Start = %q, %v", got, ok)
	}
	saved, err := store.LoadShortcut()
	if err != nil || saved != DefaultChain[0] {
		t.Errorf("saved = %q, %v", saved, err)
	}
	if errors.Is(err, settings.ErrNoShortcut) {
		t.Error("settings should be rewritten after registration")
	}
}
