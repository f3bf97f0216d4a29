// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the player UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/clavier-project/clavier-go/internal/controller"
)

// Run builds the TUI program. The caller starts it with Run() and
// feeds it StatusMsg updates with Send().
func Run(events chan<- controller.Event, backendName string) *tea.Program {
	return tea.NewProgram(NewModel(events, backendName), tea.WithAltScreen())
}
