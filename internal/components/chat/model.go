package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"omnichat/rtc"
)

// WelcomeText is shown when the conversation is empty.
const WelcomeText = "Connected to nothing yet.\n\nType a message and press Enter to chat.\nCtrl+U uploads a file, Ctrl+O/P/G toggle mic, camera, and screen share."

// Model renders the conversation log in a scrollable viewport.
type Model struct {
	viewport viewport.Model
	messages []rtc.Message
	width    int
	height   int
}

// New creates a new chat view.
func New(width, height int) Model {
	vp := viewport.New(width, height)
	vp.SetContent("")

	return Model{
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// Init initializes the chat view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles scrolling.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "pgup":
			m.viewport.ViewUp()
		case "pgdown":
			m.viewport.ViewDown()
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the chat view.
func (m Model) View() string {
	return m.viewport.View()
}

// SetSize resizes the viewport.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.updateContent()
}

// SetMessages replaces the rendered log with the given entries. The log
// itself is owned by the orchestration layer; the view only mirrors it.
func (m *Model) SetMessages(msgs []rtc.Message) {
	m.messages = msgs
	m.updateContent()
}

// IsEmpty reports whether there is nothing to show yet.
func (m Model) IsEmpty() bool {
	return len(m.messages) == 0
}

func (m *Model) updateContent() {
	var sb strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(renderMessage(msg, m.width))
		sb.WriteString("\n")
	}

	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}
