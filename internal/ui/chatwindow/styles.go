package chatwindow

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("25")).
			Padding(0, 1)
	botBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("235")).
			Background(lipgloss.Color("255")).
			Padding(0, 1)
	stampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33"))
	inputBusyStyle = inputStyle.BorderForeground(lipgloss.Color("240"))

	sendEnabledStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	sendDisabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	hintStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)
