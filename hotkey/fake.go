package hotkey

import (
	"errors"
	"sync"
)

var ErrTaken = errors.New("combination owned by another application")

// FakeOS is an in-memory hotkey registry. It parses accelerators like the
// real factory, rejects the ones marked taken, and counts register calls so
// tests can assert that no OS call happened.
type FakeOS struct {
	mu      sync.Mutex
	taken   map[string]bool
	active  map[string]*FakeHotkey
	calls   int
	maxLive int
}

func NewFakeOS(taken ...string) *FakeOS {
	f := &FakeOS{taken: map[string]bool{}, active: map[string]*FakeHotkey{}}
	for _, t := range taken {
		f.Take(t)
	}
	return f
}

// Take marks accel as owned by someone else.
func (f *FakeOS) Take(accel string) {
	a, err := Parse(accel)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	f.taken[a.String()] = true
	f.mu.Unlock()
}

// New satisfies Factory.
func (f *FakeOS) New(accel string) (Hotkey, error) {
	a, err := Parse(accel)
	if err != nil {
		return nil, err
	}
	hk := NewFake()
	hk.os = f
	hk.accel = a.String()
	return hk, nil
}

func (f *FakeOS) RegisterCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Active lists the currently registered accelerators.
func (f *FakeOS) Active() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.active))
	for k := range f.active {
		out = append(out, k)
	}
	return out
}

// MaxLive is the highest number of simultaneous registrations seen.
func (f *FakeOS) MaxLive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxLive
}

// Press simulates the user pressing the registered combination.
func (f *FakeOS) Press(accel string) bool {
	a, err := Parse(accel)
	if err != nil {
		return false
	}
	f.mu.Lock()
	hk := f.active[a.String()]
	f.mu.Unlock()
	if hk == nil {
		return false
	}
	hk.SimKeydown()
	return true
}

type FakeHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}
	os      *FakeOS
	accel   string
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (f *FakeHotkey) Register() error {
	if f.os == nil {
		return nil
	}
	o := f.os
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.taken[f.accel] || o.active[f.accel] != nil {
		return ErrTaken
	}
	o.active[f.accel] = f
	o.maxLive = max(o.maxLive, len(o.active))
	return nil
}

func (f *FakeHotkey) Unregister() {
	if f.os == nil {
		return
	}
	f.os.mu.Lock()
	if f.os.active[f.accel] == f {
		delete(f.os.active, f.accel)
	}
	f.os.mu.Unlock()
}

func (f *FakeHotkey) Keydown() <-chan struct{} { return f.keydown }
func (f *FakeHotkey) Keyup() <-chan struct{}   { return f.keyup }

func (f *FakeHotkey) SimKeydown() { f.keydown <- struct{}{} }
func (f *FakeHotkey) SimKeyup()   { f.keyup <- struct{}{} }
