// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Maps function keys to control events and renders playback state
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/clavier-project/clavier-go/internal/controller"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	stateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// StatusMsg carries a controller snapshot into the TUI.
type StatusMsg controller.Status

// Model is the TUI state.
type Model struct {
	events  chan<- controller.Event
	backend string

	status controller.Status

	width  int
	height int
}

// NewModel creates the TUI model posting hotkey events to the
// controller.
func NewModel(events chan<- controller.Event, backendName string) Model {
	return Model{events: events, backend: backendName}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = controller.Status(msg)
	}
	return m, nil
}

// handleKey translates function keys to control events. The raw
// key-to-event mapping lives here; the controller only sees discrete
// events.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "f7":
		m.post(controller.SelectPrevious)
	case "f8":
		m.post(controller.SelectNext)
	case "f9":
		m.post(controller.StartOrResume)
	case "f10":
		m.post(controller.Stop)
	case "f11":
		m.post(controller.PauseToggle)
	case "esc", "q", "ctrl+c":
		m.post(controller.Quit)
		return m, tea.Quit
	}
	return m, nil
}

// post never blocks the input loop; the controller channel is buffered
// and a dropped duplicate is harmless.
func (m Model) post(ev controller.Event) {
	select {
	case m.events <- ev:
	default:
	}
}

// View renders the status box.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	st := m.status

	stateText := stateStyle.Render(strings.ToUpper(st.State.String()))
	if st.State == controller.Paused {
		stateText = pausedStyle.Render("PAUSED")
	}

	track := st.Track
	if track == "" {
		track = dimStyle.Render("(nothing selected)")
	}
	if st.Detail != "" {
		track += dimStyle.Render(" [" + st.Detail + "]")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Clavier Player") + "\n\n")
	b.WriteString(fmt.Sprintf("  State:   %s\n", stateText))
	b.WriteString(fmt.Sprintf("  Track:   %s\n", track))
	if st.Total > 0 {
		b.WriteString(fmt.Sprintf("  Library: %d/%d (%s)\n", st.Index+1, st.Total, st.Mode))
	} else {
		b.WriteString("  Library: " + dimStyle.Render("empty") + "\n")
	}
	b.WriteString(fmt.Sprintf("  Backend: %s\n", m.backend))
	if st.Duration > 0 {
		b.WriteString(fmt.Sprintf("  Time:    %s / %s\n",
			formatDuration(st.Elapsed), formatDuration(st.Duration)))
	}
	if st.Message != "" {
		b.WriteString("\n  " + noticeStyle.Render(st.Message) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("  F7/F8:Prev/Next  F9:Play/Resume  F10:Stop  F11:Pause  Esc:Quit") + "\n")

	return b.String()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
