//go:build darwin

package notify

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type player struct {
	once   sync.Once
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	cues   map[Cue][]byte

	buf atomic.Pointer[[]byte]
	pos atomic.Uint32
}

var speaker player

func play(c Cue) { speaker.play(c) }

func (p *player) init() {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	p.ctx = ctx
	p.cues = make(map[Cue][]byte, len(tones))
	for c, t := range tones {
		p.cues[c] = le16(t.samples(0))
	}
	if err := p.initDevice(); err != nil {
		ctx.Uninit()
		p.ctx = nil
	}
}

func (p *player) initDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = sampleRate
	dev, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{Data: p.fill})
	if err != nil {
		return err
	}
	p.device = dev
	return nil
}

func (p *player) fill(out, _ []byte, frames uint32) {
	clear(out)
	src := p.buf.Load()
	if src == nil {
		return
	}
	pos := p.pos.Load()
	n := min(frames*2, uint32(len(*src))-pos)
	if n == 0 {
		p.buf.Store(nil)
		return
	}
	copy(out[:n], (*src)[pos:pos+n])
	p.pos.Store(pos + n)
}

func (p *player) play(c Cue) {
	p.once.Do(p.init)
	if p.ctx == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.device.Stop()
	samples := p.cues[c]
	p.pos.Store(0)
	p.buf.Store(&samples)
	if err := p.device.Start(); err == nil {
		return
	}
	// The device goes stale across sleep/wake.
	p.device.Uninit()
	if err := p.initDevice(); err != nil || p.device.Start() != nil {
		p.buf.Store(nil)
	}
}
