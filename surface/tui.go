package surface

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vozflow/apperr"
	"vozflow/transcriber"
)

type tickMsg time.Time

type shortcutMsg struct {
	value string
	err   error
	set   bool
}

type model struct {
	ctx     context.Context
	backend Backend
	ctrl    *Controller

	state    string
	shortcut string
	frame    int
	count    int
	last     *transcriber.Result
	err      error
	notice   string
	width    int

	editing bool
	input   []rune
}

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	rawStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	pulseColors = []string{"52", "88", "124", "160", "196", "160", "124", "88"}
)

func newModel(ctx context.Context, b Backend, ctrl *Controller) model {
	return model{ctx: ctx, backend: b, ctrl: ctrl, state: StateIdle}
}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.fetchShortcut())
}

func (m model) fetchShortcut() tea.Cmd {
	return func() tea.Msg {
		s, err := m.backend.GetShortcut(m.ctx)
		return shortcutMsg{value: s, err: err}
	}
}

func (m model) toggle() tea.Cmd {
	return func() tea.Msg {
		// Failures arrive as an Event.
		m.ctrl.Toggle(m.ctx)
		return nil
	}
}

func (m model) setShortcut(raw string) tea.Cmd {
	return func() tea.Msg {
		s, err := m.backend.SetShortcut(m.ctx, raw)
		return shortcutMsg{value: s, err: err, set: true}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.frame++
		return m, tick()

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "enter":
			return m, m.toggle()
		case "k":
			if m.backend.Mode() == ModeHosted {
				m.editing = true
				m.input = []rune(m.shortcut)
				m.notice = ""
			} else {
				m.err = apperr.New(apperr.Configuration, "set shortcut", "shortcuts need a running host")
			}
		}

	case shortcutMsg:
		if msg.err != nil {
			m.err = msg.err
			m.notice = ""
			if msg.set {
				// The host may have restored an earlier binding.
				return m, m.fetchShortcut()
			}
			return m, nil
		}
		if msg.set {
			m.notice = "Shortcut set to " + msg.value
		}
		m.shortcut = msg.value

	case Event:
		if msg.State != "" {
			m.state = msg.State
		}
		if msg.State == StateRecording {
			m.err = nil
			m.notice = ""
		}
		if msg.Result != nil {
			m.count++
			m.last = msg.Result
		}
		if msg.Err != nil {
			m.err = msg.Err
		}
	}
	return m, nil
}

func (m model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.editing = false
	case tea.KeyEnter:
		m.editing = false
		m.err = nil
		return m, m.setShortcut(string(m.input))
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes, tea.KeySpace:
		m.input = append(m.input, msg.Runes...)
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	switch m.state {
	case StateRecording:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(pulseColors[m.frame%len(pulseColors)])).Render("●")
		b.WriteString(dot + " " + recStyle.Render("RECORDING"))
	case StateProcessing:
		spin := []string{"◐", "◓", "◑", "◒"}[m.frame%4]
		b.WriteString(busyStyle.Render(spin + " TRANSCRIBING"))
	default:
		b.WriteString(dimStyle.Render("○ STANDBY"))
	}
	b.WriteString("\n")

	mode := "[" + m.backend.Mode() + "]"
	if m.backend.Mode() == ModeStandalone {
		mode += " text is copied, not typed"
	}
	following := m.ctrl != nil && m.ctrl.Following()
	if following {
		mode += " the host records, this window follows"
	}
	b.WriteString(dimStyle.Render(mode) + "\n\n")

	width := m.width - 2
	if width < 20 {
		width = 60
	}
	if m.last != nil {
		b.WriteString(titleStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.count)) + "\n\n")
		for _, line := range wrapText(m.last.Refined, width) {
			b.WriteString(textStyle.Render(line) + "\n")
		}
		if m.last.Original != m.last.Refined {
			b.WriteString("\n")
			for _, line := range wrapText(m.last.Original, width) {
				b.WriteString(rawStyle.Render(line) + "\n")
			}
		}
	} else {
		b.WriteString(dimStyle.Render("No transcriptions yet") + "\n")
	}

	if m.err != nil {
		b.WriteString("\n" + errStyle.Render("⚠ "+apperr.Message(m.err)) + "\n")
	}
	if m.notice != "" {
		b.WriteString("\n" + okStyle.Render("✓ "+m.notice) + "\n")
	}
	b.WriteString("\n")

	if m.editing {
		b.WriteString(keyStyle.Render("Shortcut: ") + string(m.input) + pulseCursor(m.frame) + "\n")
		b.WriteString(helpStyle.Render("enter to save, esc to cancel"))
		return b.String()
	}
	switch {
	case following:
		b.WriteString(keyStyle.Render(m.shortcut) + helpStyle.Render(" to record"))
	case m.shortcut != "":
		b.WriteString(keyStyle.Render(m.shortcut) + helpStyle.Render(" or "))
		fallthrough
	default:
		b.WriteString(keyStyle.Render("space") + helpStyle.Render(" to record"))
	}
	if m.backend.Mode() == ModeHosted {
		b.WriteString(helpStyle.Render(", ") + keyStyle.Render("k") + helpStyle.Render(" to change shortcut"))
	}
	b.WriteString(helpStyle.Render(", ") + keyStyle.Render("q") + helpStyle.Render(" to quit"))
	return b.String()
}

func pulseCursor(frame int) string {
	if math.Sin(float64(frame)*0.5) > 0 {
		return "█"
	}
	return " "
}

// wrapText breaks text at spaces so no line is wider than width runes.
func wrapText(text string, width int) []string {
	if text == "" {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}
	r := []rune(text)
	var lines []string
	for len(r) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if r[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(r[:splitAt]))
		r = []rune(strings.TrimLeft(string(r[splitAt:]), " "))
	}
	if len(r) > 0 {
		lines = append(lines, string(r))
	}
	return lines
}

// Run shows the terminal UI until the user quits or ctx ends. It records
// with rec and forwards host shortcut presses to the same toggle.
func Run(ctx context.Context, b Backend, rec Recorder) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	ctrl := NewController(b, rec, func(ev Event) { p.Send(ev) })
	p = tea.NewProgram(newModel(ctx, b, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		if err := ctrl.Listen(ctx); err != nil {
			p.Send(Event{Err: err})
		}
	}()

	_, err := p.Run()
	killed := ctx.Err() != nil
	cancel()
	ctrl.Wait()
	if w, ok := b.(interface{ Wait() }); ok {
		w.Wait()
	}
	if killed && errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
