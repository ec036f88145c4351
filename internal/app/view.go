package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"omnichat/internal/components/chat"
	"omnichat/internal/styles"
	"omnichat/rtc"
)

// View renders the application.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	switch m.tab {
	case TabChat:
		body := m.chat.View()
		if m.chat.IsEmpty() {
			welcome := lipgloss.NewStyle().
				Foreground(styles.Muted).
				Width(m.width).
				Align(lipgloss.Center).
				Padding(2, 0)
			body = welcome.Render(chat.WelcomeText)
		}
		sections = append(sections, body)
	case TabFiles:
		sections = append(sections, m.renderFiles())
	case TabAnalytics:
		sections = append(sections, m.renderAnalytics())
	}

	sections = append(sections, styles.InputBorder.Width(m.width-2).Render(m.input.View()))
	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := styles.Header.Render("omnichat")

	tabs := []string{"Chat", "Files", "Analytics"}
	var rendered []string
	for i, name := range tabs {
		if Tab(i) == m.tab {
			rendered = append(rendered, styles.TabActive.Render(name))
		} else {
			rendered = append(rendered, styles.TabInactive.Render(name))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", strings.Join(rendered, " "))
}

func (m Model) renderFiles() string {
	resources := m.client.Intake.Resources()
	if len(resources) == 0 {
		return lipgloss.NewStyle().
			Foreground(styles.Muted).
			Padding(1, 2).
			Render("No files uploaded yet. Press Ctrl+U and enter a path.")
	}

	var sb strings.Builder
	for _, r := range resources {
		line := fmt.Sprintf("%s  %s  %d bytes  %s",
			r.Name, r.MimeType, r.SizeBytes, r.UploadedAt.Format("15:04:05"))
		sb.WriteString(styles.BotMessage.Render(line))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderAnalytics() string {
	snap := m.client.Analytics()
	rows := []string{
		fmt.Sprintf("Total messages  %d", snap.TotalMessages),
		fmt.Sprintf("Text messages   %d", snap.TextMessages),
		fmt.Sprintf("Voice messages  %d", snap.VoiceMessages),
		fmt.Sprintf("Files processed %d", snap.FilesProcessed),
	}

	style := lipgloss.NewStyle().Padding(1, 2).Foreground(styles.LightGray)
	return style.Render(strings.Join(rows, "\n"))
}

func (m Model) renderStatusBar() string {
	phase := styles.PhaseStyle(m.phase).Render("● " + string(m.phase))
	toggles := m.renderToggles()
	help := styles.StatusBar.Render("Enter: send • Tab: panel • ^U: upload • ^O/^P/^G: mic/cam/screen • ^C: quit")

	left := lipgloss.JoinHorizontal(lipgloss.Top, phase, toggles)
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(help)
	spacerWidth := m.width - leftWidth - rightWidth - 2
	if spacerWidth < 0 {
		spacerWidth = 0
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", spacerWidth), help)
}

func (m Model) renderToggles() string {
	render := func(label string, f rtc.Feature) string {
		if m.client.Toggles.Enabled(f) {
			return styles.ToggleOn.Render(label)
		}
		return styles.ToggleOff.Render(label)
	}

	return styles.StatusBar.Render(strings.Join([]string{
		render("mic", rtc.FeatureMicrophone),
		render("cam", rtc.FeatureCamera),
		render("scr", rtc.FeatureScreenShare),
	}, " "))
}
