package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"nrpchat/internal/session"
	"nrpchat/pkg/chattypes"
)

// sessionChosenMsg switches the app to the chat screen.
type sessionChosenMsg struct {
	session *chattypes.Session
}

// selectModel is the start screen: pick an existing session or create a new
// one by name.
type selectModel struct {
	store    *session.Store
	sessions []*chattypes.Session
	cursor   int
	input    textinput.Model
	status   string
	width    int
}

func newSelectModel(store *session.Store) selectModel {
	input := textinput.New()
	input.Placeholder = "Session name (enter to create/resume)"
	input.CharLimit = 64
	input.Focus()

	return selectModel{
		store:    store,
		sessions: store.List(),
		input:    input,
	}
}

func (m selectModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m selectModel) Update(msg tea.Msg) (selectModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down":
			if m.cursor < len(m.sessions)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			return m.resumeSelected()
		case "ctrl+n":
			return m.createNew()
		case "ctrl+d":
			return m.deleteSelected()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resumeSelected prefers a typed name over the list selection, matching how
// the start screen reads: type a name to create or resume it, or pick one.
func (m selectModel) resumeSelected() (selectModel, tea.Cmd) {
	if label := strings.TrimSpace(m.input.Value()); label != "" {
		sess, err := m.store.GetOrCreate(label, true)
		if err != nil {
			m.status = fmt.Sprintf("Failed to open session: %v", err)
			return m, nil
		}
		return m, chooseSession(sess)
	}

	if m.cursor >= 0 && m.cursor < len(m.sessions) {
		sess, err := m.store.Load(m.sessions[m.cursor].ID)
		if err != nil {
			m.status = fmt.Sprintf("Failed to load session: %v", err)
			return m, nil
		}
		return m, chooseSession(sess)
	}

	m.status = "Select a session or enter a name."
	return m, nil
}

func (m selectModel) createNew() (selectModel, tea.Cmd) {
	label := strings.TrimSpace(m.input.Value())
	if label == "" {
		label = "session"
	}
	sess, err := m.store.Create(label)
	if err != nil {
		m.status = fmt.Sprintf("Failed to create session: %v", err)
		return m, nil
	}
	return m, chooseSession(sess)
}

func (m selectModel) deleteSelected() (selectModel, tea.Cmd) {
	if m.cursor < 0 || m.cursor >= len(m.sessions) {
		m.status = "Select a session to delete."
		return m, nil
	}

	id := m.sessions[m.cursor].ID
	if err := m.store.Delete(id); err != nil {
		m.status = fmt.Sprintf("Could not delete session %s: %v", id, err)
		return m, nil
	}

	m.status = fmt.Sprintf("Deleted session %s.", id)
	m.sessions = m.store.List()
	if m.cursor >= len(m.sessions) {
		m.cursor = len(m.sessions) - 1
	}
	return m, nil
}

func chooseSession(sess *chattypes.Session) tea.Cmd {
	return func() tea.Msg {
		return sessionChosenMsg{session: sess}
	}
}

func (m selectModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Select or create a session"))
	b.WriteString("\n\n")

	if len(m.sessions) == 0 {
		b.WriteString(dimStyle.Render("No sessions yet."))
		b.WriteString("\n")
	}
	for i, sess := range m.sessions {
		line := fmt.Sprintf("%s (%s)", sess.DisplayName, sess.CreatedAt.Format("2006-01-02 15:04"))
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("enter: resume/create · ctrl+n: new · ctrl+d: delete · ctrl+c: quit"))
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusErrStyle.Render(m.status))
	}

	return b.String()
}
