package bridge

import "sync"

// ToggleTopic is the one topic the host publishes on.
const ToggleTopic = "toggle-recording"

type subscriber struct {
	id      uint64
	handler func()
	alive   func() bool
}

// Bus fans a single named topic out to subscribers. Each subscriber carries
// a liveness check that is evaluated before every dispatch; dead ones are
// dropped.
type Bus struct {
	name string

	mu     sync.Mutex
	nextID uint64
	subs   []subscriber
}

func NewBus(name string) *Bus { return &Bus{name: name} }

func (b *Bus) Name() string { return b.name }

// Subscribe registers handler. A nil alive means always alive. The returned
// func unsubscribes and is safe to call more than once.
func (b *Bus) Subscribe(handler func(), alive func() bool) (unsubscribe func()) {
	if alive == nil {
		alive = func() bool { return true }
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, handler: handler, alive: alive})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// Publish calls every live subscriber and returns how many were called.
// Handlers run on the publishing goroutine.
func (b *Bus) Publish() int {
	b.mu.Lock()
	live := b.subs[:0:0]
	for _, s := range b.subs {
		if s.alive() {
			live = append(live, s)
		}
	}
	b.subs = live
	targets := append([]subscriber(nil), live...)
	b.mu.Unlock()

	for _, s := range targets {
		s.handler()
	}
	return len(targets)
}

func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}
