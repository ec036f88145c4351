package styles

import (
	"github.com/charmbracelet/lipgloss"

	"omnichat/rtc"
)

var (
	// Colors
	Primary   = lipgloss.Color("#7C3AED")
	Secondary = lipgloss.Color("#10B981")
	Error     = lipgloss.Color("#EF4444")
	Warning   = lipgloss.Color("#F59E0B")
	Muted     = lipgloss.Color("#6B7280")
	White     = lipgloss.Color("#FFFFFF")
	LightGray = lipgloss.Color("#E5E7EB")

	// Message styles
	UserLabel = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	UserMessage = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(White).
			Bold(true)

	BotLabel = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	BotMessage = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(LightGray)

	SystemMessage = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true).
			PaddingLeft(2)

	// Panel chrome
	Header = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		Padding(0, 1)

	TabActive = lipgloss.NewStyle().
			Foreground(White).
			Background(Primary).
			Padding(0, 2)

	TabInactive = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 2)

	InputBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	StatusBar = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 1)

	ToggleOn = lipgloss.NewStyle().
			Foreground(Secondary)

	ToggleOff = lipgloss.NewStyle().
			Foreground(Muted)
)

// phaseColors maps each connection phase to a distinct indicator color. An
// errored session must not look like a merely disconnected one.
var phaseColors = map[rtc.Phase]lipgloss.Color{
	rtc.PhaseDisconnected:  Muted,
	rtc.PhaseConnecting:    Warning,
	rtc.PhaseConnected:     Secondary,
	rtc.PhaseReady:         Secondary,
	rtc.PhaseDisconnecting: Warning,
	rtc.PhaseError:         Error,
}

// PhaseStyle returns the status style for a connection phase.
func PhaseStyle(p rtc.Phase) lipgloss.Style {
	color, ok := phaseColors[p]
	if !ok {
		color = Muted
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Padding(0, 1)
}
