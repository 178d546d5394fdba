//go:build gui

package gui

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

var (
	panelColor = color.RGBA{18, 18, 18, 235}
	barColor   = color.RGBA{255, 59, 48, 255}
	labelColor = color.RGBA{230, 230, 230, 255}
)

// Indicator is the overlay content: a row of animated bars and a label.
// It only animates while active.
type Indicator struct {
	widget.BaseWidget
	size fyne.Size

	mu     sync.Mutex
	frame  int
	label  string
	stopCh chan struct{}
}

func NewIndicator(size fyne.Size) *Indicator {
	in := &Indicator{size: size, label: "Listening..."}
	in.ExtendBaseWidget(in)
	return in
}

// SetActive starts or stops the animation.
func (in *Indicator) SetActive(on bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if on && in.stopCh == nil {
		in.stopCh = make(chan struct{})
		go in.animate(in.stopCh)
	} else if !on && in.stopCh != nil {
		close(in.stopCh)
		in.stopCh = nil
	}
}

func (in *Indicator) animate(stop <-chan struct{}) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			in.mu.Lock()
			in.frame++
			in.mu.Unlock()
			fyne.Do(in.Refresh)
		}
	}
}

func (in *Indicator) MinSize() fyne.Size { return in.size }

func (in *Indicator) CreateRenderer() fyne.WidgetRenderer {
	r := &indicatorRenderer{in: in}
	r.bg = canvas.NewRectangle(panelColor)
	r.bg.CornerRadius = 14
	r.bars = make([]*canvas.Rectangle, barCount)
	for i := range r.bars {
		r.bars[i] = canvas.NewRectangle(barColor)
		r.bars[i].CornerRadius = 2
	}
	r.text = canvas.NewText(in.label, labelColor)
	r.text.TextStyle = fyne.TextStyle{Bold: true}
	r.text.TextSize = 15
	return r
}

type indicatorRenderer struct {
	in   *Indicator
	bg   *canvas.Rectangle
	bars []*canvas.Rectangle
	text *canvas.Text
	size fyne.Size
}

const (
	barWidth = 4
	barGap   = 3
	padding  = 20
)

func (r *indicatorRenderer) Layout(size fyne.Size) {
	r.size = size
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	r.layoutBars()

	ts := r.text.MinSize()
	left := float32(padding + barCount*(barWidth+barGap) + padding/2)
	r.text.Move(fyne.NewPos(left, (size.Height-ts.Height)/2))
	r.text.Resize(ts)
}

func (r *indicatorRenderer) layoutBars() {
	r.in.mu.Lock()
	frame := r.in.frame
	r.in.mu.Unlock()

	maxH := r.size.Height * 0.5
	for i, h := range barHeights(frame) {
		bh := maxH * float32(h)
		x := float32(padding + i*(barWidth+barGap))
		r.bars[i].Move(fyne.NewPos(x, (r.size.Height-bh)/2))
		r.bars[i].Resize(fyne.NewSize(barWidth, bh))
	}
}

func (r *indicatorRenderer) MinSize() fyne.Size { return r.in.MinSize() }

func (r *indicatorRenderer) Refresh() {
	r.in.mu.Lock()
	r.text.Text = r.in.label
	r.in.mu.Unlock()
	r.layoutBars()
	for _, b := range r.bars {
		b.Refresh()
	}
	r.text.Refresh()
}

func (r *indicatorRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, len(r.bars)+2)
	objs = append(objs, r.bg)
	for _, b := range r.bars {
		objs = append(objs, b)
	}
	return append(objs, r.text)
}

func (r *indicatorRenderer) Destroy() { r.in.SetActive(false) }
