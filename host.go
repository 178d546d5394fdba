package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"vozflow/apperr"
	"vozflow/audio"
	"vozflow/bridge"
	"vozflow/config"
	"vozflow/delivery"
	"vozflow/history"
	"vozflow/hotkey"
	"vozflow/log"
	"vozflow/login"
	"vozflow/notify"
	"vozflow/overlay"
	"vozflow/session"
	"vozflow/settings"
	"vozflow/shortcut"
	"vozflow/shutdown"
	"vozflow/surface"
	"vozflow/transcriber"
	"vozflow/tray"
)

// frontend is the desktop window when the binary runs with -gui.
type frontend interface {
	overlay.Overlay
	ToggleMain()
	SetState(state string)
	SetShortcut(shortcut string)
	ShowResult(res transcriber.Result)
	ShowError(err error)
	Quit()
}

// host owns every long-lived piece of the process.
type host struct {
	cfg   *config.Config
	front frontend

	ctx    context.Context
	cancel context.CancelFunc

	actx      audio.Context
	api       *bridge.API
	server    *bridge.Server
	shortcuts *shortcut.Manager
	coord     *session.Coordinator
	tray      *tray.Model
	notifier  *notify.Desktop
	done      atomic.Int64
}

func newHost(cfg *config.Config, o options, front frontend) *host {
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	ctx, cancel := shutdown.Context(context.Background())
	h := &host{cfg: cfg, front: front, ctx: ctx, cancel: cancel}

	var ov overlay.Overlay = overlay.NewLogged()
	if front != nil {
		ov = front
	}

	var rec session.Recorder
	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		rec = failedRecorder{err}
	} else {
		h.actx = actx
		rec = audio.NewRecorder(actx, findDevice(actx, o.device), payloadFormat(cfg))
	}

	var pipeline session.Pipeline
	p, pipelineErr := newPipeline(cfg)
	if pipelineErr != nil {
		log.Warnf("transcription disabled: %v", pipelineErr)
		pipeline = unconfigured{pipelineErr}
	} else {
		pipeline = p
	}

	var paste delivery.Strategy
	if cfg.Paste {
		paste = delivery.NativeStrategy()
		if in, ok := paste.(interface{ Init() error }); ok {
			if err := in.Init(); err != nil {
				log.Warnf("paste init failed: %v", err)
				fmt.Fprintln(os.Stderr, "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
			}
		}
	}
	deliverer := delivery.New(delivery.SystemClipboard{}, paste)

	archive := history.New(cfg.HistoryURL, cfg.Timeout)
	h.notifier = notify.New(login.AppName, true)
	h.coord = session.New(session.Options{
		Recorder: rec,
		Pipeline: pipeline,
		Overlay:  ov,
		Delivery: deliverer,
		Archive:  archive,
		Notify:   h.notifier,
		Timeout:  cfg.Timeout,
	})

	bus := bridge.NewBus(bridge.ToggleTopic)
	store := settings.Open(settingsDir())
	h.shortcuts = shortcut.New(hotkey.New, store, func() { bus.Publish() })

	deps := bridge.Deps{
		Shortcuts:    h.shortcuts,
		Overlay:      ov,
		Delivery:     deliverer,
		Bus:          bus,
		Archive:      archive,
		CaptureOwner: captureOwner(cfg, o),
	}
	if pipelineErr != nil {
		deps.PipelineErr = pipelineErr
	} else {
		deps.Pipeline = p
	}
	h.api = bridge.NewAPI(deps)
	h.server = bridge.NewServer(h.api, cfg.BridgeAddr)

	actions := tray.Actions{
		Toggle: func() { bus.Publish() },
		Quit:   h.quit,
	}
	if front != nil {
		actions.ShowHide = front.ToggleMain
	}
	if login.Supported {
		actions.Login = login.Registration{}
	}
	h.tray = tray.NewModel(actions)

	h.wire()
	return h
}

// captureOwner decides who records on a shortcut press. An in-process
// terminal UI always records itself.
func captureOwner(cfg *config.Config, o options) string {
	if cfg.CaptureOwner == config.CaptureOwnerHost && !o.tui {
		return bridge.OwnerHost
	}
	return bridge.OwnerSurface
}

func settingsDir() string {
	dir, err := settings.DefaultDir()
	if err != nil {
		log.Warnf("settings dir: %v, using working directory", err)
		return "."
	}
	return dir
}

// wire connects listeners. Recording state reaches the tray and window
// through the bridge so it looks the same whichever side owns capture.
func (h *host) wire() {
	h.shortcuts.OnChange(func(s string) {
		h.tray.SetShortcut(s)
		if h.front != nil {
			h.front.SetShortcut(s)
		}
	})

	h.api.OnState(func(state string) {
		h.tray.SetState(state)
		if h.front != nil {
			h.front.SetState(state)
		}
	}, nil)

	h.coord.OnChange(func(state session.State, sessionID string) {
		h.api.PublishState(state.String())
	})
	h.coord.OnResult(func(res transcriber.Result) {
		h.done.Add(1)
		if h.front != nil {
			h.front.ShowResult(res)
		}
	})
	h.coord.OnError(func(err error) {
		h.api.PublishState("error")
		if h.front != nil {
			h.front.ShowError(err)
		}
	})

	if h.api.CaptureOwner() == bridge.OwnerHost {
		h.api.OnToggleRecording(func() { h.coord.Toggle() }, func() bool { return h.ctx.Err() == nil })
	}
}

// start registers the shortcut and opens the bridge.
func (h *host) start() {
	active, ok := h.shortcuts.Start()
	if !ok {
		err := apperr.New(apperr.Conflict, "register shortcut", "no shortcut could be registered, pick another one from the main window")
		h.notifier.Error(err)
		if h.front != nil {
			h.front.ShowError(err)
		}
	}
	log.SessionStart(active, payloadFormat(h.cfg))

	if err := h.server.Start(); err != nil {
		log.Errorf("bridge: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: bridge unavailable: %v\n", err)
	}
}

func (h *host) quit() {
	h.cancel()
	if h.front != nil {
		h.front.Quit()
	}
}

// close releases the binding, stops the bridge, waits for any in-flight
// pipeline and flushes the logs.
func (h *host) close() {
	h.cancel()
	h.shortcuts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		log.Warnf("bridge shutdown: %v", err)
	}

	h.coord.Stop()
	h.coord.Wait()
	h.api.Wait()
	if h.actx != nil {
		h.actx.Close()
	}
	log.SessionEnd(int(h.done.Load()))
	log.Close()
}

// runHost runs the headless host: the system tray, and the terminal UI
// in process when asked.
func runHost(cfg *config.Config, o options) int {
	h := newHost(cfg, o, nil)
	h.start()
	defer h.close()

	stopTray := startTray(h.tray)
	defer stopTray()

	if o.tui {
		backend, err := surface.DetectLocal(h.api, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		var rec surface.Recorder = failedRecorder{}
		if h.actx != nil {
			rec = audio.NewRecorder(h.actx, findDevice(h.actx, o.device), payloadFormat(cfg))
		}
		if err := surface.Run(h.ctx, backend, rec); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(os.Stderr, "vozflow %s running, press %s to dictate\n", version, h.shortcuts.Current())
	<-h.ctx.Done()
	return 0
}
