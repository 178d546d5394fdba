// Package doctor checks that the machine can run the host: a registrable
// shortcut, a working microphone, a reachable transcription API, and a
// clipboard that takes writes.
package doctor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"vozflow/apperr"
	"vozflow/audio"
	"vozflow/config"
	"vozflow/delivery"
	"vozflow/encoder"
	"vozflow/hotkey"
	"vozflow/transcriber"
)

type Status int

const (
	Pass Status = iota
	Warn
	Fail
	Skip
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "PASS"
	case Warn:
		return "WARN"
	case Fail:
		return "FAIL"
	}
	return "SKIP"
}

type Result struct {
	Name   string
	Status Status
	Detail string
}

type Pipeline interface {
	Run(ctx context.Context, sessionID string, payload encoder.Result) (transcriber.Result, error)
}

type Deps struct {
	Config    *config.Config
	ConfigErr error
	Hotkeys   hotkey.Factory
	Chain     []string
	Audio     func() (audio.Context, error)
	Clipboard delivery.Clipboard
	Paste     delivery.Strategy
	Out       io.Writer

	// Pipeline is nil when no API key is configured.
	Pipeline Pipeline
	// Sample is how long the microphone check records. Zero means 3s.
	Sample time.Duration
	// Confirm asks the user a yes/no question. Nil runs every check
	// unattended and skips the ones that need a person.
	Confirm func(question string) bool
}

type check struct {
	name string
	run  func(ctx context.Context, s *state) Result
}

type state struct {
	Deps
	payload *encoder.Result
}

var checks = []check{
	{"Configuration", checkConfig},
	{"Global shortcut", checkShortcut},
	{"Microphone", checkMicrophone},
	{"Transcription", checkTranscription},
	{"Clipboard", checkClipboard},
	{"Paste", checkPaste},
}

// Run executes every check in order, printing progress to d.Out.
func Run(ctx context.Context, d Deps) []Result {
	if d.Out == nil {
		d.Out = io.Discard
	}
	if d.Sample <= 0 {
		d.Sample = 3 * time.Second
	}
	s := &state{Deps: d}

	fmt.Fprintln(d.Out, "vozflow doctor")
	fmt.Fprintln(d.Out, "==============")
	results := make([]Result, 0, len(checks))
	for i, c := range checks {
		fmt.Fprintf(d.Out, "\n[%d/%d] %s\n", i+1, len(checks), c.name)
		r := c.run(ctx, s)
		r.Name = c.name
		fmt.Fprintf(d.Out, "  %s: %s\n", r.Status, r.Detail)
		results = append(results, r)
	}

	fmt.Fprintln(d.Out)
	if ExitCode(results) == 0 {
		fmt.Fprintln(d.Out, "All checks passed!")
	} else {
		fmt.Fprintln(d.Out, "Some checks failed. See details above.")
	}
	return results
}

// ExitCode is 1 when any check failed.
func ExitCode(results []Result) int {
	for _, r := range results {
		if r.Status == Fail {
			return 1
		}
	}
	return 0
}

func pass(format string, args ...any) Result {
	return Result{Status: Pass, Detail: fmt.Sprintf(format, args...)}
}

func warn(format string, args ...any) Result {
	return Result{Status: Warn, Detail: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	return Result{Status: Fail, Detail: fmt.Sprintf(format, args...)}
}

func skip(format string, args ...any) Result {
	return Result{Status: Skip, Detail: fmt.Sprintf(format, args...)}
}

func checkConfig(_ context.Context, s *state) Result {
	if s.ConfigErr != nil {
		return fail("%v", s.ConfigErr)
	}
	if s.Config == nil {
		return fail("no configuration loaded")
	}
	if s.Config.APIKey == "" {
		return fail("no API key, set GROQ_API_KEY or api_key in config.yaml")
	}
	return pass("%s + %s via %s", s.Config.STTModel, s.Config.RefineModel, s.Config.BaseURL)
}

func checkShortcut(ctx context.Context, s *state) Result {
	if s.Hotkeys == nil {
		return skip("no hotkey support in this build")
	}
	var free, taken []string
	for _, accel := range s.Chain {
		hk, err := s.Hotkeys(accel)
		if err == nil {
			err = hk.Register()
		}
		if err != nil {
			taken = append(taken, accel)
			continue
		}
		hk.Unregister()
		free = append(free, accel)
	}
	if len(free) == 0 {
		return fail("none of %v could be registered", s.Chain)
	}
	if s.Confirm != nil {
		if r, ok := awaitPress(ctx, s, free[0]); !ok {
			return r
		}
	}
	if len(taken) > 0 {
		return warn("%s available, %v taken by another app", free[0], taken)
	}
	return pass("%s available", free[0])
}

func awaitPress(ctx context.Context, s *state, accel string) (Result, bool) {
	hk, err := s.Hotkeys(accel)
	if err != nil {
		return fail("%v", err), false
	}
	if err := hk.Register(); err != nil {
		return fail("%v", err), false
	}
	defer hk.Unregister()

	fmt.Fprintf(s.Out, "  Press %s...\n", accel)
	select {
	case <-hk.Keydown():
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		return Result{}, true
	case <-time.After(10 * time.Second):
		return fail("timeout waiting for %s", accel), false
	case <-ctx.Done():
		return fail("%v", ctx.Err()), false
	}
}

func checkMicrophone(ctx context.Context, s *state) Result {
	if s.Audio == nil {
		return skip("no audio backend")
	}
	actx, err := s.Audio()
	if err != nil {
		return fail("cannot connect to audio: %v", err)
	}
	defer actx.Close()

	devices, err := actx.Devices()
	if err != nil {
		return fail("cannot list devices: %v", err)
	}
	if len(devices) == 0 {
		return fail("no capture devices found")
	}
	for _, d := range devices {
		fmt.Fprintf(s.Out, "  found: %s\n", d.Name)
	}

	format := encoder.FormatFLAC
	if s.Config != nil && s.Config.Format != "" {
		format = s.Config.Format
	}
	rec := audio.NewRecorder(actx, nil, format)
	if s.Confirm != nil {
		s.Confirm(fmt.Sprintf("Speak for %.0f seconds after pressing enter. Ready?", s.Sample.Seconds()))
	}
	if err := rec.Start(); err != nil {
		return fail("%s", apperr.Message(err))
	}
	select {
	case <-time.After(s.Sample):
	case <-ctx.Done():
	}
	payload, err := rec.Stop()
	if err != nil {
		return fail("%v", err)
	}
	if payload.Frames == 0 {
		return fail("no audio captured, check microphone permissions")
	}
	s.payload = &payload
	return pass("recorded %.1fs (%.1f KB %s) from the default device",
		payload.Duration().Seconds(), float64(len(payload.Data))/1024, payload.Format)
}

func checkTranscription(ctx context.Context, s *state) Result {
	if s.Pipeline == nil {
		return skip("no API key")
	}
	if s.payload == nil {
		return skip("no recording to transcribe")
	}
	res, err := s.Pipeline.Run(ctx, "doctor-"+uuid.NewString(), *s.payload)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Fprintf(s.Out, "  heard:   %s\n  refined: %s\n", res.Original, res.Refined)
	if s.Confirm != nil && !s.Confirm("Is this what you said?") {
		return fail("transcription not confirmed")
	}
	return pass("%d characters transcribed", len(res.Refined))
}

func checkClipboard(_ context.Context, s *state) Result {
	if s.Clipboard == nil {
		return skip("no clipboard")
	}
	prev, _ := s.Clipboard.ReadAll()
	const marker = "vozflow-doctor-check"
	if err := s.Clipboard.WriteAll(marker); err != nil {
		return fail("write: %v", err)
	}
	got, err := s.Clipboard.ReadAll()
	if restoreErr := s.Clipboard.WriteAll(prev); restoreErr != nil {
		return fail("restore: %v", restoreErr)
	}
	if err != nil {
		return fail("read: %v", err)
	}
	if got != marker {
		return fail("read back %q, want %q", got, marker)
	}
	return pass("write and read back ok, previous contents restored")
}

func checkPaste(_ context.Context, s *state) Result {
	if s.Paste == nil {
		return warn("no paste strategy on this platform, text will stay on the clipboard")
	}
	if s.Confirm == nil {
		return skip("%s strategy not exercised unattended", s.Paste.Name())
	}
	if s.Clipboard == nil {
		return skip("no clipboard")
	}

	const marker = "vozflow-doctor-test"
	fmt.Fprintln(s.Out, "  Focus a text editor window...")
	for i := 5; i > 0; i-- {
		fmt.Fprintf(s.Out, "  %d...\n", i)
		time.Sleep(time.Second)
	}
	if err := s.Clipboard.WriteAll(marker); err != nil {
		return fail("clipboard: %v", err)
	}
	if err := s.Paste.Paste(marker); err != nil {
		return fail("%s: %v", s.Paste.Name(), err)
	}
	if !s.Confirm(fmt.Sprintf("Did %q appear?", marker)) {
		return fail("%s paste not confirmed", s.Paste.Name())
	}
	return pass("%s paste verified", s.Paste.Name())
}
