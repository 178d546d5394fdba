//go:build !gui

package tray

import (
	"runtime"

	"fyne.io/systray"
	"golang.design/x/hotkey/mainthread"
)

// Start shows the system tray icon for m and returns a func that removes
// it. On macOS the tray runs on the main thread owned by mainthread.
func Start(m *Model) (stop func()) {
	onReady := func() { render(m) }
	if runtime.GOOS == "darwin" {
		start, end := systray.RunWithExternalLoop(onReady, func() {})
		mainthread.Call(start)
		return end
	}
	go systray.Run(onReady, func() {})
	return systray.Quit
}

func render(m *Model) {
	systray.SetTitle("")
	applyLook(m)

	items := map[ItemID]*systray.MenuItem{}
	for _, it := range m.Items() {
		if it.ID == ItemQuit {
			systray.AddSeparator()
		}
		var mi *systray.MenuItem
		if it.Checkbox {
			mi = systray.AddMenuItemCheckbox(it.Label, it.Label, it.Checked)
		} else {
			mi = systray.AddMenuItem(it.Label, it.Label)
		}
		items[it.ID] = mi
		go func(id ItemID, ch <-chan struct{}) {
			for range ch {
				m.Activate(id)
			}
		}(it.ID, mi.ClickedCh)
	}

	m.OnChange(func() {
		applyLook(m)
		for _, it := range m.Items() {
			mi, ok := items[it.ID]
			if !ok {
				continue
			}
			mi.SetTitle(it.Label)
			if it.Checkbox {
				if it.Checked {
					mi.Check()
				} else {
					mi.Uncheck()
				}
			}
			if it.ID == ItemToggle {
				if m.State() == "processing" {
					mi.Disable()
				} else {
					mi.Enable()
				}
			}
		}
	})
}

func applyLook(m *Model) {
	systray.SetTooltip(m.Tooltip())
	if state := m.State(); state == "idle" {
		systray.SetTemplateIcon(IconIdleHi, IconIdle)
	} else {
		systray.SetIcon(Icon(state))
	}
}
