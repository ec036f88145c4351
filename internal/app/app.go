package app

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"omnichat/internal/components/chat"
	"omnichat/internal/messages"
	"omnichat/rtc"
)

// Tab selects the visible panel.
type Tab int

const (
	TabChat Tab = iota
	TabFiles
	TabAnalytics
)

// inputMode selects what the text input is collecting.
type inputMode int

const (
	modeChat inputMode = iota
	modeFilePath
)

// Model is the main application model.
type Model struct {
	client *rtc.Client
	chat   chat.Model
	input  textinput.Model

	tab    Tab
	mode   inputMode
	phase  rtc.Phase
	width  int
	height int
	ready  bool
	err    error
}

// New creates the application model around an assembled client.
func New(client *rtc.Client) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Focus()
	ti.CharLimit = 4000

	return Model{
		client: client,
		chat:   chat.New(80, 20),
		input:  ti,
		phase:  client.Session.Phase(),
	}
}

// Init connects the session and starts pumping runtime events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.connectCmd(),
		waitForEvent(m.client.Session.Events()),
	)
}

// connectCmd issues the connect request; the resulting phases arrive on the
// event stream.
func (m Model) connectCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if err := client.Session.Connect(context.Background()); err != nil {
			return messages.ConnectFailedMsg{Err: err}
		}
		return nil
	}
}

// waitForEvent marshals the next inbound session event onto the tea loop.
func waitForEvent(ch <-chan rtc.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return messages.EventStreamClosedMsg{}
		}
		return messages.RuntimeEventMsg{Event: ev}
	}
}
