//go:build gui

// Package gui is the desktop front end: the recording overlay, a main
// window for the shortcut and the last transcription, and the tray menu.
package gui

import (
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/go-gl/glfw/v3.3/glfw"

	"vozflow/apperr"
	"vozflow/login"
	"vozflow/overlay"
	"vozflow/transcriber"
	"vozflow/tray"
)

type Shortcuts interface {
	Current() string
	SetUserShortcut(raw string) (string, error)
}

type Options struct {
	Tray      *tray.Model
	Shortcuts Shortcuts
	// OnReady runs on its own goroutine once the event loop is about to
	// start.
	OnReady func()
}

type App struct {
	geom overlay.Geometry
	opts Options

	fyneApp fyne.App
	overlay fyne.Window
	main    fyne.Window
	ind     *Indicator
	posX    int
	posY    int

	ready    atomic.Bool
	visible  atomic.Bool
	mainOpen atomic.Bool

	shortcut *widget.Label
	entry    *widget.Entry
	status   *widget.Label
	refined  *widget.Label
	original *widget.Label
	problem  *widget.Label
}

// New returns an App whose overlay has size g. Nothing is shown until Run.
func New(g overlay.Geometry) *App {
	if g.Width == 0 {
		g = overlay.DefaultGeometry()
	}
	return &App{geom: g}
}

// Run owns the calling thread until Quit.
func (a *App) Run(opts Options) {
	a.opts = opts
	a.fyneApp = app.NewWithID(login.AppID)
	a.fyneApp.Settings().SetTheme(&darkTheme{})

	a.buildOverlay()
	a.buildMain()
	a.buildTray()
	a.ready.Store(true)

	if a.opts.OnReady != nil {
		go a.opts.OnReady()
	}
	// The overlay stays hidden until the first recording.
	a.fyneApp.Run()
}

func (a *App) Quit() {
	if a.ready.Load() {
		fyne.Do(a.fyneApp.Quit)
	}
}

func (a *App) buildOverlay() {
	g := a.geom
	area := overlay.Rect{W: 1920, H: 1080}
	if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
		area.X, area.Y, area.W, area.H = monitor.GetWorkarea()
	}
	a.posX, a.posY = overlay.Place(area, g)

	if drv, ok := a.fyneApp.Driver().(desktop.Driver); ok {
		a.overlay = drv.CreateSplashWindow()
	} else {
		a.overlay = a.fyneApp.NewWindow(login.AppName)
	}
	a.ind = NewIndicator(fyne.NewSize(float32(g.Width), float32(g.Height)))
	a.overlay.SetContent(a.ind)
	a.overlay.SetFixedSize(true)
	a.overlay.SetPadded(false)
	a.overlay.Resize(a.ind.MinSize())
}

// Show displays the overlay without taking focus. It is idempotent.
func (a *App) Show() {
	if a.visible.Swap(true) || !a.ready.Load() {
		return
	}
	fyne.Do(func() {
		a.ind.SetActive(true)
		if win := glfw.GetCurrentContext(); win != nil {
			win.SetPos(a.posX, a.posY)
			win.SetAttrib(glfw.FocusOnShow, glfw.False)
			win.SetAttrib(glfw.Floating, glfw.True)
			win.Show()
			return
		}
		a.overlay.Show()
	})
}

// Hide is idempotent.
func (a *App) Hide() {
	if !a.visible.Swap(false) || !a.ready.Load() {
		return
	}
	fyne.Do(func() {
		a.ind.SetActive(false)
		a.overlay.Hide()
	})
}

func (a *App) Visible() bool { return a.visible.Load() }

func (a *App) buildMain() {
	a.main = a.fyneApp.NewWindow(login.AppName)
	a.main.SetCloseIntercept(func() {
		a.mainOpen.Store(false)
		a.main.Hide()
	})

	a.shortcut = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	a.entry = widget.NewEntry()
	a.entry.SetPlaceHolder("e.g. CommandOrControl+Shift+Space")
	save := widget.NewButton("Save", func() { a.saveShortcut(a.entry.Text) })
	a.entry.OnSubmitted = a.saveShortcut

	a.status = widget.NewLabel("Idle")
	a.refined = widget.NewLabel("No transcriptions yet")
	a.refined.Wrapping = fyne.TextWrapWord
	a.original = widget.NewLabel("")
	a.original.Wrapping = fyne.TextWrapWord
	a.original.Importance = widget.LowImportance
	a.problem = widget.NewLabel("")
	a.problem.Wrapping = fyne.TextWrapWord
	a.problem.Importance = widget.DangerImportance

	if a.opts.Shortcuts != nil {
		a.shortcut.SetText(a.opts.Shortcuts.Current())
	}

	a.main.SetContent(container.NewVBox(
		widget.NewLabel("Shortcut"),
		a.shortcut,
		container.NewBorder(nil, nil, nil, save, a.entry),
		widget.NewSeparator(),
		a.status,
		a.refined,
		a.original,
		a.problem,
	))
	a.main.Resize(fyne.NewSize(420, 320))
}

func (a *App) saveShortcut(raw string) {
	if a.opts.Shortcuts == nil {
		return
	}
	go func() {
		got, err := a.opts.Shortcuts.SetUserShortcut(raw)
		fyne.Do(func() {
			if err != nil {
				a.problem.SetText(apperr.Message(err))
				a.shortcut.SetText(a.opts.Shortcuts.Current())
				return
			}
			a.problem.SetText("")
			a.entry.SetText("")
			a.shortcut.SetText(got)
		})
	}()
}

// ToggleMain shows the main window when hidden and hides it otherwise.
func (a *App) ToggleMain() {
	open := !a.mainOpen.Load()
	a.mainOpen.Store(open)
	fyne.Do(func() {
		if open {
			a.main.Show()
			a.main.RequestFocus()
		} else {
			a.main.Hide()
		}
	})
}

func (a *App) SetState(state string) {
	fyne.Do(func() {
		switch state {
		case "recording":
			a.status.SetText("Recording...")
			a.problem.SetText("")
		case "processing":
			a.status.SetText("Transcribing...")
		default:
			a.status.SetText("Idle")
		}
	})
}

func (a *App) SetShortcut(s string) {
	fyne.Do(func() { a.shortcut.SetText(s) })
}

func (a *App) ShowResult(res transcriber.Result) {
	fyne.Do(func() {
		a.refined.SetText(res.Refined)
		if res.Original != res.Refined {
			a.original.SetText(res.Original)
		} else {
			a.original.SetText("")
		}
	})
}

func (a *App) ShowError(err error) {
	fyne.Do(func() { a.problem.SetText(apperr.Message(err)) })
}

func (a *App) buildTray() {
	desk, ok := a.fyneApp.(desktop.App)
	if !ok || a.opts.Tray == nil {
		return
	}
	apply := func() {
		m := a.opts.Tray
		desk.SetSystemTrayMenu(a.trayMenu())
		desk.SetSystemTrayIcon(fyne.NewStaticResource("vozflow-"+m.State()+".png", tray.Icon(m.State())))
	}
	apply()
	a.opts.Tray.OnChange(func() { fyne.Do(apply) })
}

func (a *App) trayMenu() *fyne.Menu {
	m := a.opts.Tray
	var items []*fyne.MenuItem
	for _, it := range m.Items() {
		id := it.ID
		mi := fyne.NewMenuItem(it.Label, func() { m.Activate(id) })
		mi.Checked = it.Checked
		switch it.ID {
		case tray.ItemToggle:
			mi.Disabled = m.State() == "processing"
		case tray.ItemQuit:
			mi.IsQuit = true
			items = append(items, fyne.NewMenuItemSeparator())
		}
		items = append(items, mi)
	}
	return fyne.NewMenu(m.Tooltip(), items...)
}
