package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"nrpchat/internal/agent"
	"nrpchat/internal/client"
	"nrpchat/internal/session"
	"nrpchat/internal/transcript"
	"nrpchat/pkg/chattypes"
)

const maxPanelLines = 500

type panelStatus int

const (
	statusIdle panelStatus = iota
	statusWaiting
	statusOK
	statusError
)

// chatPanel is the per-model conversation view.
type chatPanel struct {
	lines   []string
	status  panelStatus
	logPath string
}

func (p *chatPanel) write(line string) {
	p.lines = append(p.lines, line)
	if len(p.lines) > maxPanelLines {
		p.lines = p.lines[len(p.lines)-maxPanelLines:]
	}
}

type modelsLoadedMsg struct {
	infos []chattypes.ModelInfo
}

type modelsErrMsg struct {
	err error
}

type sendResultMsg struct {
	model string
	reply string
	err   error
}

// chatModel is the main screen: a model picker on the left and one
// conversation panel per selected model on the right.
type chatModel struct {
	store  *session.Store
	client *client.Client
	sess   *chattypes.Session
	resume bool
	logger *log.Logger

	infos         []chattypes.ModelInfo
	loadingModels bool
	modelsErr     string

	cursor    int
	listFocus bool
	selected  map[string]bool
	order     []string

	agents  map[string]*agent.Agent
	panels  map[string]*chatPanel
	pending int

	input textinput.Model
	spin  spinner.Model

	width  int
	height int
}

func newChatModel(store *session.Store, cl *client.Client, sess *chattypes.Session, resume bool, logger *log.Logger) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message and press Enter"
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := chatModel{
		store:         store,
		client:        cl,
		sess:          sess,
		resume:        resume,
		logger:        logger,
		loadingModels: true,
		selected:      make(map[string]bool),
		agents:        make(map[string]*agent.Agent),
		panels:        make(map[string]*chatPanel),
		input:         input,
		spin:          spin,
	}

	if resume {
		// Restore models previously used in this session.
		for _, modelID := range store.Models(sess) {
			m.addModel(modelID)
		}
	}

	return m
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, m.loadModels())
}

func (m chatModel) loadModels() tea.Cmd {
	cl := m.client
	return func() tea.Msg {
		infos, err := cl.ListModels(context.Background())
		if err != nil {
			return modelsErrMsg{err: err}
		}
		return modelsLoadedMsg{infos: infos}
	}
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case modelsLoadedMsg:
		m.infos = msg.infos
		m.loadingModels = false
		m.modelsErr = ""
		return m, nil

	case modelsErrMsg:
		m.loadingModels = false
		m.modelsErr = fmt.Sprintf("Failed to load models: %v", msg.err)
		m.logger.Error("model listing failed", "error", msg.err)
		return m, nil

	case sendResultMsg:
		m.handleSendResult(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) handleKey(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.listFocus = !m.listFocus
		if m.listFocus {
			m.input.Blur()
		} else {
			m.input.Focus()
		}
		return m, nil
	case "enter":
		if !m.listFocus {
			return m.submit()
		}
		m.toggleCursor()
		return m, nil
	}

	if m.listFocus {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.infos)-1 {
				m.cursor++
			}
		case " ":
			m.toggleCursor()
		case "r":
			m.loadingModels = true
			return m, m.loadModels()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *chatModel) toggleCursor() {
	if m.cursor < 0 || m.cursor >= len(m.infos) {
		return
	}
	modelID := m.infos[m.cursor].ID
	if m.selected[modelID] {
		m.removeModel(modelID)
	} else {
		m.addModel(modelID)
	}
}

// addModel builds a conversation agent for the model, replaying any prior
// transcript of this session into its history and panel.
func (m *chatModel) addModel(modelID string) {
	if m.selected[modelID] {
		return
	}

	var history []chattypes.Message
	if m.resume {
		var err error
		history, err = m.store.LoadHistory(m.sess, modelID)
		if err != nil {
			m.logger.Error("failed to load history", "model", modelID, "error", err)
			history = nil
		}
	}

	writer := transcript.Open(m.sess, modelID, agent.SystemPrompt, m.logger)
	ag := agent.New(modelID, m.client.ChatCompletion, agent.SystemPrompt, history, writer, m.logger)

	panel := &chatPanel{logPath: writer.LogPath()}
	panel.write(dimStyle.Render(fmt.Sprintf("Now chatting with %s (session: %s)", modelID, m.sess.DisplayName)))
	m.renderHistory(panel, modelID, ag.History())

	m.selected[modelID] = true
	m.order = append(m.order, modelID)
	m.agents[modelID] = ag
	m.panels[modelID] = panel
}

func (m *chatModel) removeModel(modelID string) {
	if !m.selected[modelID] {
		return
	}
	delete(m.selected, modelID)
	delete(m.agents, modelID)
	delete(m.panels, modelID)
	for i, id := range m.order {
		if id == modelID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// renderHistory replays resumed messages into a panel, skipping the system
// prompt.
func (m *chatModel) renderHistory(panel *chatPanel, modelID string, history []chattypes.Message) {
	past := 0
	for _, msg := range history {
		switch msg.Role {
		case chattypes.RoleUser:
			panel.write(userStyle.Render("You: ") + msg.Content)
			past++
		case chattypes.RoleAssistant:
			panel.write(assistantStyle.Render(modelID+": ") + msg.Content)
			past++
		}
	}
	if past > 0 {
		panel.write(dimStyle.Render(fmt.Sprintf("Loaded %d previous message(s).", past)))
	}
}

// submit fans the typed message out to every selected model, one request
// per agent. Input is held until all results are in.
func (m chatModel) submit() (chatModel, tea.Cmd) {
	if m.pending > 0 {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if text == "" {
		return m, nil
	}
	if len(m.order) == 0 {
		m.modelsErr = "Select one or more models first."
		return m, nil
	}

	var cmds []tea.Cmd
	for _, modelID := range m.order {
		panel := m.panels[modelID]
		panel.write(userStyle.Render("You: ") + text)
		panel.status = statusWaiting
		m.pending++
		cmds = append(cmds, sendCmd(m.agents[modelID], text))
	}

	return m, tea.Batch(cmds...)
}

// sendCmd runs one blocking agent send off the update loop, bounded by the
// per-send timeout.
func sendCmd(ag *agent.Agent, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		reply, err := ag.Send(ctx, text)
		return sendResultMsg{model: ag.Model(), reply: reply, err: err}
	}
}

func (m *chatModel) handleSendResult(msg sendResultMsg) {
	if m.pending > 0 {
		m.pending--
	}

	panel, ok := m.panels[msg.model]
	if !ok {
		return
	}

	if msg.err != nil {
		m.logger.Error("chat request failed", "model", msg.model, "error", msg.err)
		reason := fmt.Sprintf("failed: %v", msg.err)
		if errors.Is(msg.err, context.DeadlineExceeded) {
			reason = "timed out"
		}
		panel.write(statusErrStyle.Render("[error] Chat request " + reason))
		panel.status = statusError
		return
	}

	panel.write(assistantStyle.Render(msg.model+": ") + msg.reply)
	panel.status = statusOK
}

func (m chatModel) View() string {
	title := titleStyle.Render(fmt.Sprintf("NRP Managed LLMs | session: %s", m.sess.DisplayName))

	left := m.viewModelList()
	right := m.viewPanels()

	columns := lipglossJoinColumns(left, right, m.width)

	var hint string
	switch {
	case m.pending > 0:
		hint = hintStyle.Render(m.spin.View() + " waiting for responses...")
	case len(m.order) == 0:
		hint = hintStyle.Render("Select one or more models to start chatting (tab: focus list, space: toggle).")
	default:
		hint = hintStyle.Render("Chatting with: " + strings.Join(m.order, ", "))
	}

	parts := []string{title, "", columns, "", m.input.View(), hint}
	if m.modelsErr != "" {
		parts = append(parts, statusErrStyle.Render(m.modelsErr))
	}
	return strings.Join(parts, "\n")
}

func (m chatModel) viewModelList() string {
	var b strings.Builder
	b.WriteString(selectedStyle.Render("Models"))
	b.WriteString("\n")

	if m.loadingModels {
		b.WriteString(dimStyle.Render("loading..."))
		b.WriteString("\n")
	}
	for i, info := range m.infos {
		marker := "[ ]"
		if m.selected[info.ID] {
			marker = "[x]"
		}
		line := fmt.Sprintf("%s %s", marker, modelLabel(info))
		if i == m.cursor && m.listFocus {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return panelStyle.Render(b.String())
}

// modelLabel builds the one-line listing label from live and catalog data.
func modelLabel(info chattypes.ModelInfo) string {
	parts := []string{info.ID}
	if info.Status != "" {
		parts = append(parts, "["+info.Status+"]")
	}
	if info.Parameters != "" {
		parts = append(parts, info.Parameters)
	}
	if info.ContextTokens > 0 {
		parts = append(parts, fmt.Sprintf("ctx %d", info.ContextTokens))
	}
	if !info.Created.IsZero() {
		parts = append(parts, info.Created.Format("2006-01-02"))
	}
	return strings.Join(parts, " ")
}

func (m chatModel) viewPanels() string {
	if len(m.order) == 0 {
		return panelStyle.Render(dimStyle.Render("No models selected."))
	}

	rendered := make([]string, 0, len(m.order))
	for _, modelID := range m.order {
		panel := m.panels[modelID]

		var b strings.Builder
		b.WriteString(selectedStyle.Render(modelID))
		b.WriteString(" ")
		b.WriteString(m.statusView(panel.status))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Log: " + panel.logPath))
		b.WriteString("\n")

		visible := panel.lines
		if maxVisible := m.visibleLines(); len(visible) > maxVisible {
			visible = visible[len(visible)-maxVisible:]
		}
		for _, line := range visible {
			b.WriteString(line)
			b.WriteString("\n")
		}

		rendered = append(rendered, panelStyle.Render(b.String()))
	}

	return joinHorizontal(rendered)
}

func (m chatModel) visibleLines() int {
	if m.height <= 0 {
		return 20
	}
	// Title, input, hint, borders.
	lines := m.height - 10
	if lines < 5 {
		return 5
	}
	return lines
}

func (m chatModel) statusView(status panelStatus) string {
	switch status {
	case statusWaiting:
		return hintStyle.Render("[waiting " + m.spin.View() + "]")
	case statusOK:
		return statusOKStyle.Render("[ok]")
	case statusError:
		return statusErrStyle.Render("[error]")
	default:
		return dimStyle.Render("[idle]")
	}
}
