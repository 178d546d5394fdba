// Package overlay describes the floating recording indicator: a small
// frameless window pinned top-center of the primary display. It is visible
// exactly while a recording is in progress.
package overlay

import (
	"sync"

	"vozflow/log"
)

const (
	Width     = 320
	Height    = 70
	TopOffset = 40
)

type Overlay interface {
	Show()
	Hide()
	Visible() bool
}

type Rect struct {
	X, Y, W, H int
}

type Geometry struct {
	Width, Height, TopOffset int
}

func DefaultGeometry() Geometry {
	return Geometry{Width: Width, Height: Height, TopOffset: TopOffset}
}

// Place centers a window of g's size horizontally in the work area, TopOffset
// pixels below its top edge.
func Place(area Rect, g Geometry) (x, y int) {
	return area.X + (area.W-g.Width)/2, area.Y + g.TopOffset
}

// Logged is the overlay used when no window system is compiled in. It
// tracks visibility and logs transitions.
type Logged struct {
	mu      sync.Mutex
	visible bool
	shows   int
}

func NewLogged() *Logged { return &Logged{} }

func (l *Logged) Show() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.visible {
		return
	}
	l.visible = true
	l.shows++
	log.Info("overlay shown")
}

func (l *Logged) Hide() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.visible {
		return
	}
	l.visible = false
	log.Info("overlay hidden")
}

func (l *Logged) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible
}

// Shows counts hidden-to-visible transitions.
func (l *Logged) Shows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shows
}
