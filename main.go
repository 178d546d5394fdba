package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime/debug"
	"time"

	"vozflow/apperr"
	"vozflow/audio"
	"vozflow/config"
	"vozflow/delivery"
	"vozflow/doctor"
	"vozflow/encoder"
	"vozflow/history"
	"vozflow/hotkey"
	"vozflow/log"
	"vozflow/shortcut"
	"vozflow/shutdown"
	"vozflow/surface"
	"vozflow/transcriber"
)

var version = "dev"

type options struct {
	logPath string
	config  string
	device  string
	profile string
	doctor  bool
	version bool
	attach  bool
	tui     bool
	gui     bool
	crash   bool

	overrides map[string]any
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	flag.StringVar(&o.config, "config", "", "config file (default: config.yaml in the config directory)")
	flag.StringVar(&o.device, "device", "", "Use named microphone device")
	flag.StringVar(&o.profile, "profile", "", "Enable pprof profiling server (e.g., localhost:6060)")
	flag.BoolVar(&o.doctor, "doctor", false, "Run system diagnostics and exit")
	flag.BoolVar(&o.version, "version", false, "Print version and exit")
	flag.BoolVar(&o.attach, "attach", false, "Run the terminal UI against a running host, or standalone when none answers")
	flag.BoolVar(&o.tui, "tui", false, "Run the host with the terminal UI attached in process")
	flag.BoolVar(&o.gui, "gui", false, "Run the host with the desktop window and overlay (needs -tags gui)")
	flag.BoolVar(&o.crash, "crash", false, "Trigger synthetic panic for testing crash logging")
	noPaste := flag.Bool("nopaste", false, "Leave text on the clipboard instead of pasting it")
	format := flag.String("format", "", "Audio format: flac or wav")
	lang := flag.String("lang", "", "Language code for transcription (e.g., en, es). Empty = auto-detect")
	addr := flag.String("addr", "", "Bridge address (loopback host:port)")
	flag.Parse()

	o.overrides = map[string]any{}
	if *noPaste {
		o.overrides["paste"] = false
	}
	if *format != "" {
		o.overrides["format"] = *format
	}
	if *lang != "" {
		o.overrides["language"] = *lang
	}
	if *addr != "" {
		o.overrides["bridge_addr"] = *addr
	}
	return o
}

// start dispatches on the parsed flags. loop runs fn on the thread that
// must own hotkey registration.
func start(loop func(fn func())) int {
	o := parseFlags()

	if o.version {
		fmt.Printf("vozflow %s\n", version)
		return 0
	}
	if err := initLogDir(o.logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if o.crash {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}
	if o.profile != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", o.profile)
			if err := http.ListenAndServe(o.profile, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	cfg, cfgErr := config.Load(config.Options{File: o.config, Overrides: o.overrides})

	code := 0
	switch {
	case o.doctor:
		loop(func() { code = runDoctor(cfg, cfgErr) })
	case cfgErr != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", cfgErr)
		return 1
	case o.attach:
		code = runAttach(cfg, o)
	case o.gui:
		if !guiEnabled {
			fmt.Fprintln(os.Stderr, "Error: built without GUI support (rebuild with -tags gui)")
			return 1
		}
		code = runWindowed(cfg, o)
	default:
		loop(func() { code = runHost(cfg, o) })
	}
	return code
}

func initLogDir(flagPath string) error {
	dir, err := log.ResolveDir(flagPath)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(dir)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
		return nil
	}

	crashFile, err := os.OpenFile(log.CrashPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
		crashFile.Close()
	}
	return nil
}

// newPipeline returns the Groq pipeline, or the reason there is none.
func newPipeline(cfg *config.Config) (*transcriber.Pipeline, error) {
	g, err := transcriber.NewGroq(*cfg, transcriber.NewTracedClient(nil))
	if err != nil {
		return nil, err
	}
	return transcriber.NewPipeline(g, g), nil
}

func payloadFormat(cfg *config.Config) string {
	if cfg == nil || cfg.Format == "" {
		return encoder.FormatFLAC
	}
	return cfg.Format
}

func runDoctor(cfg *config.Config, cfgErr error) int {
	d := doctor.Deps{
		Config:    cfg,
		ConfigErr: cfgErr,
		Hotkeys:   hotkey.New,
		Chain:     shortcut.DefaultChain,
		Audio:     audio.NewContext,
		Clipboard: delivery.SystemClipboard{},
		Paste:     delivery.NativeStrategy(),
		Out:       os.Stdout,
	}
	if cfg != nil {
		if p, err := newPipeline(cfg); err == nil {
			d.Pipeline = p
		}
	}
	if doctor.Interactive() {
		d.Confirm = doctor.Prompt(os.Stdout)
	}
	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()
	return doctor.ExitCode(doctor.Run(ctx, d))
}

// runAttach drives the terminal UI against a host's bridge, falling back
// to a standalone pipeline when no host answers.
func runAttach(cfg *config.Config, o options) int {
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer actx.Close()
	dev := findDevice(actx, o.device)

	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	standalone := func() (surface.Backend, error) {
		s := &surface.Standalone{
			Delivery: delivery.New(delivery.SystemClipboard{}, nil),
			Archive:  history.New(cfg.HistoryURL, cfg.Timeout),
		}
		if p, err := newPipeline(cfg); err != nil {
			s.PipelineErr = err
		} else {
			s.Pipeline = p
		}
		return s, nil
	}
	backend, err := surface.Detect(ctx, cfg.BridgeAddr, 500*time.Millisecond, standalone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	log.Infof("surface attached in %s mode", backend.Mode())

	if err := surface.Run(ctx, backend, audio.NewRecorder(actx, dev, payloadFormat(cfg))); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func findDevice(actx audio.Context, name string) *audio.DeviceInfo {
	if name == "" {
		return nil
	}
	dev, err := audio.FindDevice(actx, name)
	if err != nil {
		log.Warnf("device %q: %v, using system default", name, err)
		fmt.Fprintf(os.Stderr, "Warning: %v, using system default\n", err)
		return nil
	}
	return dev
}

// failedRecorder stands in when the audio backend could not start so the
// host still runs and reports the problem on each attempt.
type failedRecorder struct{ err error }

func (f failedRecorder) Start() error {
	return &apperr.Error{Kind: apperr.Capture, Op: "start recording", Msg: "audio is unavailable, check your microphone", Err: f.err}
}

func (f failedRecorder) Stop() (encoder.Result, error) {
	return encoder.Result{}, errors.New("not recording")
}

// unconfigured stands in for the pipeline when no API key is set.
type unconfigured struct{ err error }

func (u unconfigured) Run(context.Context, string, encoder.Result) (transcriber.Result, error) {
	return transcriber.Result{}, u.err
}
