// Package console is a terminal operator view of the running counter with
// keys to reset the counts and tune the pipeline.
package console

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	depthcount "github.com/swdee/go-depthcount"
	"github.com/swdee/go-depthcount/counter"
)

// refresh is how often the status is polled
const refresh = 200 * time.Millisecond

// Controller is the part of the pipeline the console drives
type Controller interface {
	Status() depthcount.Status
	ResetCounters() counter.State
	Config() *depthcount.Config
	Start() error
	Stop() error
}

// TickMsg triggers a status refresh
type TickMsg time.Time

// Model is the bubbletea model of the console
type Model struct {
	ctl    Controller
	status depthcount.Status
	params depthcount.Params
	// message is the result of the last operator action
	message string
	failed  bool
	width   int
}

// New returns a console model for ctl
func New(ctl Controller) Model {
	return Model{
		ctl:    ctl,
		status: ctl.Status(),
		params: ctl.Config().Snapshot(),
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.refresh()
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {

	var err error
	p := m.ctl.Config().Snapshot()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		m.ctl.ResetCounters()
		m.message = "counters reset"

	case "+", "=":
		err = m.ctl.Config().SetBlurSize(p.BlurSize + 2)
		m.message = fmt.Sprintf("blur size %d", p.BlurSize+2)

	case "-":
		err = m.ctl.Config().SetBlurSize(p.BlurSize - 2)
		m.message = fmt.Sprintf("blur size %d", p.BlurSize-2)

	case "]":
		err = m.ctl.Config().SetMaxTrackAge(p.MaxTrackAgeSeconds + 1)
		m.message = fmt.Sprintf("max track age %gs", p.MaxTrackAgeSeconds+1)

	case "[":
		err = m.ctl.Config().SetMaxTrackAge(p.MaxTrackAgeSeconds - 1)
		m.message = fmt.Sprintf("max track age %gs", p.MaxTrackAgeSeconds-1)

	case "s":
		if m.ctl.Status().Running {
			err = m.ctl.Stop()
			m.message = "capture stopped"
		} else {
			err = m.ctl.Start()
			m.message = "capture started"
		}

	default:
		return m, nil
	}

	m.failed = err != nil
	if err != nil {
		m.message = err.Error()
	}

	m.refresh()

	return m, nil
}

func (m *Model) refresh() {
	m.status = m.ctl.Status()
	m.params = m.ctl.Config().Snapshot()
}

func (m Model) View() string {

	var b strings.Builder

	state := styleStopped.Render("STOPPED")
	if m.status.Running {
		state = styleRunning.Render("RUNNING")
	}

	b.WriteString(styleTitle.Render("depthcount") + " " + state + "\n\n")

	in := styleCount.BorderForeground(colorIn).Foreground(colorIn).
		Render(fmt.Sprintf("IN  %d", m.status.Counts.In))
	out := styleCount.BorderForeground(colorOut).Foreground(colorOut).
		Render(fmt.Sprintf("OUT %d", m.status.Counts.Out))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, in, " ", out) + "\n\n")

	row := func(label string, value any) {
		b.WriteString(styleLabel.Render(fmt.Sprintf("%-14s", label)) +
			styleValue.Render(fmt.Sprint(value)) + "\n")
	}

	row("frame", m.status.Frame)
	row("tracks", m.status.Tracks)
	row("dropped", m.status.Dropped)
	row("blur size", m.params.BlurSize)
	row("max age", fmt.Sprintf("%gs", m.params.MaxTrackAgeSeconds))
	row("gate", fmt.Sprintf("%dx%d", m.params.XNear, m.params.YNear))
	row("association", m.params.Association)

	if m.status.Session != "" {
		row("session", m.status.Session)
	}

	if m.message != "" {
		b.WriteString("\n")
		if m.failed {
			b.WriteString(styleMessage.Render(m.message))
		} else {
			b.WriteString(m.message)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + styleHelp.Render("r reset  +/- blur  ]/[ max age  s start/stop  q quit"))

	return b.String()
}

// Run runs the console until the operator quits
func Run(ctl Controller) error {
	_, err := tea.NewProgram(New(ctl), tea.WithAltScreen()).Run()
	return err
}
