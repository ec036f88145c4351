package app

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"omnichat/internal/messages"
	"omnichat/rtc"
)

// Update handles all application messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// Reserve space for header (2), input (3), status bar (1).
		bodyHeight := msg.Height - 6
		if bodyHeight < 5 {
			bodyHeight = 5
		}
		m.chat.SetSize(msg.Width, bodyHeight)
		m.input.Width = msg.Width - 6
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case messages.RuntimeEventMsg:
		return m.handleRuntimeEvent(msg.Event)

	case messages.EventStreamClosedMsg:
		// Session torn down; keep the last rendered state on screen.
		return m, nil

	case messages.ConnectFailedMsg:
		m.err = msg.Err
		m.client.Log.System("Connect failed: " + msg.Err.Error())
		m.refreshChat()
		return m, nil

	case messages.ChatSentMsg:
		if msg.Err != nil {
			m.client.Log.System("Message not delivered: " + msg.Err.Error())
		}
		m.refreshChat()
		return m, nil

	case messages.ToggleResultMsg:
		// The toggle set already rolled back and narrated any failure.
		m.refreshChat()
		return m, nil

	case messages.UploadResultMsg:
		if msg.Err != nil {
			m.err = msg.Err
		}
		m.refreshChat()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Sequence(m.disconnectCmd(), tea.Quit)

	case "tab":
		m.tab = (m.tab + 1) % 3
		return m, nil

	case "esc":
		if m.mode == modeFilePath {
			m.mode = modeChat
			m.input.Reset()
			m.input.Placeholder = "Type a message..."
			return m, nil
		}
		return m, tea.Sequence(m.disconnectCmd(), tea.Quit)

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			return m, nil
		}
		if m.mode == modeFilePath {
			m.mode = modeChat
			m.input.Reset()
			m.input.Placeholder = "Type a message..."
			return m, m.uploadCmd(value)
		}
		m.input.Reset()
		return m.sendChat(value)

	case "ctrl+u":
		m.mode = modeFilePath
		m.tab = TabFiles
		m.input.Reset()
		m.input.Placeholder = "Path of file to upload..."
		return m, nil

	case "ctrl+o":
		return m, m.toggleCmd(rtc.FeatureMicrophone)
	case "ctrl+p":
		return m, m.toggleCmd(rtc.FeatureCamera)
	case "ctrl+g":
		return m, m.toggleCmd(rtc.FeatureScreenShare)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleRuntimeEvent(ev rtc.Event) (tea.Model, tea.Cmd) {
	switch ev.Type {
	case rtc.EventPhase:
		m.phase = ev.Phase

	case rtc.EventMessage:
		sender := ev.Sender
		if sender == "" {
			sender = rtc.SenderBot
		}
		modality := ev.Modality
		if modality == "" {
			modality = rtc.ModalityText
		}
		m.client.Log.Append(rtc.Message{
			Sender:   sender,
			Content:  ev.Content,
			Modality: modality,
		})
		m.refreshChat()
	}

	return m, waitForEvent(m.client.Session.Events())
}

// sendChat appends the user message locally, then informs the remote peer.
// The local append is synchronous; only the remote settle is awaited.
func (m Model) sendChat(content string) (tea.Model, tea.Cmd) {
	m.client.Log.Append(rtc.Message{
		Sender:   rtc.SenderUser,
		Content:  content,
		Modality: rtc.ModalityText,
	})
	m.refreshChat()

	gateway := m.client.Gateway
	return m, func() tea.Msg {
		_, err := gateway.Dispatch(context.Background(), "chat", "send_message",
			rtc.Arg{Name: "content", Value: content},
		)
		return messages.ChatSentMsg{Err: err}
	}
}

func (m Model) toggleCmd(f rtc.Feature) tea.Cmd {
	toggles := m.client.Toggles
	return func() tea.Msg {
		enabled, err := toggles.Toggle(context.Background(), f)
		return messages.ToggleResultMsg{Feature: f, Enabled: enabled, Err: err}
	}
}

func (m Model) uploadCmd(path string) tea.Cmd {
	intake := m.client.Intake
	return func() tea.Msg {
		res, err := intake.SubmitFile(context.Background(), path)
		return messages.UploadResultMsg{Name: path, Resource: res, Err: err}
	}
}

func (m Model) disconnectCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		_ = client.Session.Disconnect(context.Background())
		return nil
	}
}

func (m *Model) refreshChat() {
	m.chat.SetMessages(m.client.Log.All())
}
