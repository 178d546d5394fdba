package surface

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"vozflow/apperr"
	"vozflow/audio"
	"vozflow/bridge"
	"vozflow/delivery"
	"vozflow/encoder"
	"vozflow/history"
	"vozflow/overlay"
	"vozflow/session"
	"vozflow/transcriber"
)

func tonePCM(samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16((i%32)*512)))
	}
	return pcm
}

type eventLog struct {
	mu  sync.Mutex
	evs []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	l.evs = append(l.evs, ev)
	l.mu.Unlock()
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.evs...)
}

type rig struct {
	api  *bridge.API
	stt  *transcriber.Fake
	ov   *overlay.Logged
	clip *delivery.FakeClipboard
	mic  *audio.FakeContext
	log  *eventLog
	ctrl *Controller
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		stt:  transcriber.NewFake("so um this works", "This works."),
		ov:   overlay.NewLogged(),
		clip: delivery.NewFakeClipboard(""),
		mic:  audio.NewFakeContext(tonePCM(8000)),
		log:  &eventLog{},
	}
	r.api = bridge.NewAPI(bridge.Deps{
		Overlay:  r.ov,
		Delivery: delivery.New(r.clip, nil),
		Pipeline: transcriber.NewPipeline(r.stt, r.stt),
	})
	r.ctrl = NewController(Local{r.api}, audio.NewRecorder(r.mic, nil, encoder.FormatWAV), r.log.add)
	t.Cleanup(r.ctrl.Wait)
	return r
}

func TestControllerRoundTrip(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	if err := r.ctrl.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	if r.ctrl.State() != StateRecording || !r.ov.Visible() {
		t.Fatalf("state = %s visible = %v", r.ctrl.State(), r.ov.Visible())
	}
	if err := r.ctrl.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	if r.ov.Visible() {
		t.Error("overlay still visible after stop")
	}
	r.ctrl.Wait()

	if got, _ := r.clip.ReadAll(); got != "This works." {
		t.Errorf("clipboard = %q", got)
	}
	if r.stt.LastFormat() != encoder.FormatWAV {
		t.Errorf("format = %q", r.stt.LastFormat())
	}
	evs := r.log.all()
	if len(evs) != 3 {
		t.Fatalf("events = %+v", evs)
	}
	for i, want := range []string{StateRecording, StateProcessing, StateIdle} {
		if evs[i].State != want {
			t.Errorf("event %d state = %q, want %q", i, evs[i].State, want)
		}
	}
	last := evs[2]
	if last.Err != nil || last.Result == nil || last.Result.Refined != "This works." {
		t.Errorf("final event = %+v", last)
	}
	if r.mic.Open() != 0 {
		t.Errorf("%d captures left open", r.mic.Open())
	}
}

func TestControllerCaptureError(t *testing.T) {
	r := newRig(t)
	r.mic.StartErr = errors.New("device busy")

	err := r.ctrl.Toggle(context.Background())
	if !apperr.Is(err, apperr.Capture) {
		t.Fatalf("err = %v, want capture error", err)
	}
	if r.ctrl.State() != StateIdle || r.ov.Visible() {
		t.Errorf("state = %s visible = %v", r.ctrl.State(), r.ov.Visible())
	}
	evs := r.log.all()
	if len(evs) != 1 || evs[0].Err == nil {
		t.Errorf("events = %+v", evs)
	}
}

func TestControllerIgnoresToggleWhileProcessing(t *testing.T) {
	r := newRig(t)
	r.stt.Gate = make(chan struct{})
	ctx := context.Background()

	r.ctrl.Toggle(ctx)
	r.ctrl.Toggle(ctx)
	if r.ctrl.State() != StateProcessing {
		t.Fatalf("state = %s", r.ctrl.State())
	}
	if err := r.ctrl.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	if r.ctrl.State() != StateProcessing || r.ov.Visible() {
		t.Errorf("toggle while processing changed state to %s", r.ctrl.State())
	}
	close(r.stt.Gate)
	r.ctrl.Wait()
	if r.ctrl.State() != StateIdle {
		t.Errorf("state = %s", r.ctrl.State())
	}
	if stt, _ := r.stt.Calls(); stt != 1 {
		t.Errorf("transcribe calls = %d", stt)
	}
}

func TestControllerPipelineFailureLeavesClipboard(t *testing.T) {
	r := newRig(t)
	r.stt.RefineErr = errors.New("upstream 500")
	ctx := context.Background()

	r.ctrl.Toggle(ctx)
	r.ctrl.Toggle(ctx)
	r.ctrl.Wait()

	if r.clip.Writes() != 0 {
		t.Errorf("clipboard written %d times", r.clip.Writes())
	}
	evs := r.log.all()
	last := evs[len(evs)-1]
	if last.State != StateIdle || !apperr.Is(last.Err, apperr.Pipeline) || last.Result != nil {
		t.Errorf("final event = %+v", last)
	}
}

func TestStandaloneWithoutKey(t *testing.T) {
	clip := delivery.NewFakeClipboard("")
	missing := apperr.New(apperr.Pipeline, "transcribe", "GROQ_API_KEY is not set")
	s := &Standalone{PipelineErr: missing, Delivery: delivery.New(clip, nil)}
	log := &eventLog{}
	ctrl := NewController(s, audio.NewRecorder(audio.NewFakeContext(tonePCM(4000)), nil, encoder.FormatWAV), log.add)
	ctx := context.Background()

	ctrl.Toggle(ctx)
	ctrl.Toggle(ctx)
	ctrl.Wait()

	evs := log.all()
	if last := evs[len(evs)-1]; last.Err != missing {
		t.Errorf("final event = %+v", last)
	}
	if _, err := s.SetShortcut(ctx, "F5"); !apperr.Is(err, apperr.Configuration) {
		t.Errorf("SetShortcut err = %v", err)
	}
	if s.Mode() != ModeStandalone {
		t.Errorf("mode = %s", s.Mode())
	}
}

func TestStandaloneDelivers(t *testing.T) {
	clip := delivery.NewFakeClipboard("")
	stt := transcriber.NewFake("hi", "Hi.")
	s := &Standalone{Pipeline: transcriber.NewPipeline(stt, stt), Delivery: delivery.New(clip, nil)}
	ctx := context.Background()

	res, err := s.TranscribeAudio(ctx, []byte("RIFF"), encoder.FormatWAV)
	if err != nil || res.Refined != "Hi." {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	if err := s.TypeText(ctx, res.Refined); err != nil {
		t.Fatal(err)
	}
	if got, _ := clip.ReadAll(); got != "Hi." {
		t.Errorf("clipboard = %q", got)
	}
}

func TestDetect(t *testing.T) {
	api := bridge.NewAPI(bridge.Deps{})
	srv := httptest.NewServer(bridge.NewServer(api, "127.0.0.1:0").Handler())
	defer srv.Close()

	standalone := func() (Backend, error) { return &Standalone{}, nil }
	ctx := context.Background()

	b, err := Detect(ctx, strings.TrimPrefix(srv.URL, "http://"), time.Second, standalone)
	if err != nil || b.Mode() != ModeHosted {
		t.Fatalf("mode = %v, err = %v", b, err)
	}

	// A port nobody listens on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	b, err = Detect(ctx, addr, 200*time.Millisecond, standalone)
	if err != nil || b.Mode() != ModeStandalone {
		t.Fatalf("mode = %v, err = %v", b, err)
	}
}

func TestDetectLocal(t *testing.T) {
	standalone := func() (Backend, error) { return &Standalone{}, nil }
	if b, _ := DetectLocal(nil, standalone); b.Mode() != ModeStandalone {
		t.Errorf("nil api mode = %s", b.Mode())
	}
	if b, _ := DetectLocal(bridge.NewAPI(bridge.Deps{}), standalone); b.Mode() != ModeHosted {
		t.Errorf("api mode = %s", b.Mode())
	}
}

func TestLocalToggles(t *testing.T) {
	api := bridge.NewAPI(bridge.Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := Local{api}.Toggles(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if n := api.Bus().Publish(); n != 1 {
		t.Fatalf("delivered to %d", n)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no toggle")
	}

	cancel()
	if n := api.Bus().Publish(); n != 0 {
		t.Errorf("delivered to %d after cancel", n)
	}
}

func TestControllerListen(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.ctrl.Listen(ctx) }()

	deadline := time.After(time.Second)
	for r.api.Bus().Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("controller never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	r.api.Bus().Publish()
	for r.ctrl.State() != StateRecording {
		select {
		case <-deadline:
			t.Fatal("toggle not applied")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Listen = %v", err)
	}
	r.ctrl.Toggle(context.Background())
	r.ctrl.Wait()
}

func TestModelEvents(t *testing.T) {
	m := newModel(context.Background(), Local{bridge.NewAPI(bridge.Deps{})}, nil)

	next, _ := m.Update(Event{State: StateRecording})
	m = next.(model)
	if !strings.Contains(m.View(), "RECORDING") {
		t.Errorf("view = %q", m.View())
	}

	res := transcriber.Result{Original: "um hi there", Refined: "Hi there."}
	next, _ = m.Update(Event{State: StateIdle, Result: &res})
	m = next.(model)
	view := m.View()
	if !strings.Contains(view, "Hi there.") || !strings.Contains(view, "um hi there") || !strings.Contains(view, "#1") {
		t.Errorf("view = %q", view)
	}

	fail := apperr.New(apperr.Delivery, "type text", "clipboard locked")
	next, _ = m.Update(Event{State: StateIdle, Err: fail})
	m = next.(model)
	if !strings.Contains(m.View(), "clipboard locked") {
		t.Errorf("view = %q", m.View())
	}

	next, _ = m.Update(Event{State: StateRecording})
	m = next.(model)
	if m.err != nil {
		t.Errorf("error not cleared on new recording: %v", m.err)
	}
}

func TestModelShortcutEditing(t *testing.T) {
	m := newModel(context.Background(), Local{bridge.NewAPI(bridge.Deps{})}, nil)
	next, _ := m.Update(shortcutMsg{value: "Control+Space"})
	m = next.(model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	m = next.(model)
	if !m.editing || string(m.input) != "Control+Space" {
		t.Fatalf("editing = %v input = %q", m.editing, string(m.input))
	}
	for range len("Space") {
		next, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
		m = next.(model)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("F8")})
	m = next.(model)
	if string(m.input) != "Control+F8" {
		t.Fatalf("input = %q", string(m.input))
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if m.editing || cmd == nil {
		t.Fatalf("enter: editing = %v cmd = %v", m.editing, cmd)
	}

	next, _ = m.Update(shortcutMsg{value: "Control+F8", set: true})
	m = next.(model)
	if m.shortcut != "Control+F8" || !strings.Contains(m.View(), "Shortcut set to Control+F8") {
		t.Errorf("shortcut = %q view = %q", m.shortcut, m.View())
	}
}

func TestModelStandaloneRejectsShortcutEdit(t *testing.T) {
	m := newModel(context.Background(), &Standalone{}, nil)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	m = next.(model)
	if m.editing || !apperr.Is(m.err, apperr.Configuration) {
		t.Errorf("editing = %v err = %v", m.editing, m.err)
	}
	if !strings.Contains(m.View(), "standalone") {
		t.Errorf("view = %q", m.View())
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"", 10, []string{""}},
		{"short", 10, []string{"short"}},
		{"hello world again", 11, []string{"hello world", "again"}},
		{"ñandú ñandú", 6, []string{"ñandú", "ñandú"}},
		{"abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
	}
	for _, tt := range tests {
		got := wrapText(tt.text, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAttachedSurfaceFollowsHostCapture(t *testing.T) {
	hostMic := audio.NewFakeContext(tonePCM(8000))
	stt := transcriber.NewFake("uh hi", "Hi.")
	clip := delivery.NewFakeClipboard("")
	deliverer := delivery.New(clip, nil)

	api := bridge.NewAPI(bridge.Deps{Delivery: deliverer, CaptureOwner: bridge.OwnerHost})
	coord := session.New(session.Options{
		Recorder: audio.NewRecorder(hostMic, nil, encoder.FormatWAV),
		Pipeline: transcriber.NewPipeline(stt, stt),
		Delivery: deliverer,
	})
	coord.OnChange(func(s session.State, _ string) { api.PublishState(s.String()) })
	api.OnToggleRecording(func() { coord.Toggle() }, nil)

	srv := httptest.NewServer(bridge.NewServer(api, "127.0.0.1:0").Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b, err := Detect(ctx, strings.TrimPrefix(srv.URL, "http://"), time.Second, func() (Backend, error) { return &Standalone{}, nil })
	if err != nil || b.CaptureOwner() != bridge.OwnerHost {
		t.Fatalf("backend = %+v, err = %v", b, err)
	}

	surfaceMic := audio.NewFakeContext(tonePCM(8000))
	log := &eventLog{}
	ctrl := NewController(b, audio.NewRecorder(surfaceMic, nil, encoder.FormatWAV), log.add)
	done := make(chan error, 1)
	go func() { done <- ctrl.Listen(ctx) }()

	waitFor(t, "host state stream", func() bool { return api.StateSubscribers() == 1 })
	api.Bus().Publish()
	waitFor(t, "surface to follow recording", func() bool { return ctrl.State() == StateRecording })
	api.Bus().Publish()
	coord.Wait()
	waitFor(t, "surface to follow idle", func() bool { return ctrl.State() == StateIdle })

	if n := hostMic.Created(); n != 1 {
		t.Errorf("host captures = %d, want 1", n)
	}
	if n := surfaceMic.Created(); n != 0 {
		t.Errorf("surface captures = %d, want 0", n)
	}
	if clip.Writes() != 1 {
		t.Errorf("clipboard writes = %d, want 1", clip.Writes())
	}
	if n, _ := stt.Calls(); n != 1 {
		t.Errorf("pipeline runs = %d, want 1", n)
	}

	if err := ctrl.Toggle(ctx); !apperr.Is(err, apperr.Configuration) {
		t.Errorf("local toggle err = %v", err)
	}
	if surfaceMic.Created() != 0 {
		t.Error("local toggle opened the surface microphone")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Listen = %v", err)
	}
}

type memArchive struct {
	mu   sync.Mutex
	recs []history.Record
}

func (a *memArchive) Save(_ context.Context, rec history.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, rec)
	return nil
}

func (a *memArchive) all() []history.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]history.Record(nil), a.recs...)
}

func TestSurfaceCaptureReachesHistoryAndState(t *testing.T) {
	r := newRig(t)
	arch := &memArchive{}
	r.api = bridge.NewAPI(bridge.Deps{
		Overlay:  r.ov,
		Delivery: delivery.New(r.clip, nil),
		Pipeline: transcriber.NewPipeline(r.stt, r.stt),
		Archive:  arch,
	})
	var mu sync.Mutex
	var states []string
	r.api.OnState(func(s string) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}, nil)
	r.ctrl = NewController(Local{r.api}, audio.NewRecorder(r.mic, nil, encoder.FormatWAV), r.log.add)
	ctx := context.Background()

	r.ctrl.Toggle(ctx)
	r.ctrl.Toggle(ctx)
	r.ctrl.Wait()
	r.api.Wait()

	recs := arch.all()
	if len(recs) != 1 || recs[0].RefinedText != "This works." || recs[0].Metadata.Format != encoder.FormatWAV {
		t.Errorf("archived = %+v", recs)
	}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(states, ",") != "recording,processing,idle" {
		t.Errorf("states = %v", states)
	}
}

func TestStandaloneArchives(t *testing.T) {
	stt := transcriber.NewFake("hi", "Hi.")
	arch := &memArchive{}
	s := &Standalone{Pipeline: transcriber.NewPipeline(stt, stt), Delivery: delivery.New(delivery.NewFakeClipboard(""), nil), Archive: arch}

	if _, err := s.TranscribeAudio(context.Background(), []byte("RIFF"), encoder.FormatWAV); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if recs := arch.all(); len(recs) != 1 || recs[0].OriginalText != "hi" {
		t.Errorf("archived = %+v", recs)
	}
}
