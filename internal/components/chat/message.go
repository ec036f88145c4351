package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"omnichat/internal/styles"
	"omnichat/rtc"
)

// renderMessage renders one conversation entry with the given width.
func renderMessage(msg rtc.Message, width int) string {
	var sb strings.Builder

	switch msg.Sender {
	case rtc.SenderUser:
		sb.WriteString(styles.UserLabel.Render("You"))
		if msg.Modality == rtc.ModalityVoice {
			sb.WriteString(styles.SystemMessage.Render(" (voice)"))
		}
		sb.WriteString("\n")
		sb.WriteString(styles.UserMessage.Width(width - 2).Render(msg.Content))

	case rtc.SenderBot:
		sb.WriteString(styles.BotLabel.Render("Assistant"))
		sb.WriteString("\n")
		content := msg.Content
		if rendered, err := renderMarkdown(content, width-4); err == nil {
			content = strings.TrimSpace(rendered)
		}
		sb.WriteString(styles.BotMessage.Width(width - 2).Render(content))

	case rtc.SenderSystem:
		sb.WriteString(styles.SystemMessage.Render("• " + msg.Content))
	}

	return sb.String()
}

// renderMarkdown renders markdown content for the terminal.
func renderMarkdown(content string, width int) (string, error) {
	if width < 10 {
		width = 10
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}
