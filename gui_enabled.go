//go:build gui

package main

import (
	"runtime"

	"vozflow/config"
	"vozflow/gui"
	"vozflow/log"
	"vozflow/overlay"
	"vozflow/tray"
)

const guiEnabled = true

// runWindowed gives the calling thread to fyne and starts the host once the
// event loop is up.
func runWindowed(cfg *config.Config, o options) int {
	runtime.LockOSThread()

	app := gui.New(overlay.Geometry{
		Width:     cfg.Overlay.Width,
		Height:    cfg.Overlay.Height,
		TopOffset: cfg.Overlay.TopOffset,
	})
	h := newHost(cfg, o, app)
	app.Run(gui.Options{
		Tray:      h.tray,
		Shortcuts: h.shortcuts,
		OnReady: func() {
			h.start()
			<-h.ctx.Done()
			app.Quit()
		},
	})
	h.close()
	return 0
}

// The fyne tray replaces the system tray in this build.
func startTray(*tray.Model) (stop func()) {
	log.Info("system tray disabled in gui builds, run with -gui")
	return func() {}
}
