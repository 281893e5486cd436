// Package tui implements the interactive terminal front end: a session
// picker followed by a multi-model chat screen. All model requests run off
// the update loop; the core session, transcript, and agent components stay
// synchronous underneath.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"nrpchat/internal/client"
	"nrpchat/internal/session"
	"nrpchat/pkg/chattypes"
)

// sendTimeout bounds each model request issued from the TUI.
const sendTimeout = 30 * time.Second

type screen int

const (
	screenSelect screen = iota
	screenChat
)

// appModel is the root bubbletea model, switching between the session
// select screen and the chat screen.
type appModel struct {
	store  *session.Store
	client *client.Client
	resume bool
	logger *log.Logger

	screen     screen
	selectView selectModel
	chatView   chatModel
}

// Options configures the TUI entry point.
type Options struct {
	// Session, when non-nil, skips the select screen.
	Session *chattypes.Session
	// Resume controls whether prior transcripts are replayed.
	Resume bool
}

// Run starts the TUI and blocks until the user quits.
func Run(store *session.Store, cl *client.Client, logger *log.Logger, opts Options) error {
	model := appModel{
		store:  store,
		client: cl,
		resume: opts.Resume,
		logger: logger,
	}

	if opts.Session != nil {
		model.screen = screenChat
		model.chatView = newChatModel(store, cl, opts.Session, opts.Resume, logger)
	} else {
		model.screen = screenSelect
		model.selectView = newSelectModel(store)
	}

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui terminated abnormally: %w", err)
	}
	return nil
}

func (m appModel) Init() tea.Cmd {
	if m.screen == screenChat {
		return m.chatView.Init()
	}
	return m.selectView.Init()
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case sessionChosenMsg:
		m.logger.Info("session selected", "id", msg.session.ID)
		m.screen = screenChat
		m.chatView = newChatModel(m.store, m.client, msg.session, m.resume, m.logger)
		return m, m.chatView.Init()
	}

	var cmd tea.Cmd
	switch m.screen {
	case screenChat:
		m.chatView, cmd = m.chatView.Update(msg)
	default:
		m.selectView, cmd = m.selectView.Update(msg)
	}
	return m, cmd
}

func (m appModel) View() string {
	if m.screen == screenChat {
		return m.chatView.View()
	}
	return m.selectView.View()
}

// joinHorizontal lays panels side by side, top-aligned.
func joinHorizontal(panels []string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

// lipglossJoinColumns joins the model list and chat panels, biasing width
// toward the chat side.
func lipglossJoinColumns(left, right string, width int) string {
	if width > 40 {
		leftWidth := width / 3
		left = lipgloss.NewStyle().Width(leftWidth).Render(left)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}
