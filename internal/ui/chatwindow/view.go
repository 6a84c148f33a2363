package chatwindow

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/study-buddy/internal/model/chat"
)

// View renders header, history, busy indicator, input box and key hints.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(m.persona.Name))
	if m.persona.Title != "" {
		b.WriteString(" " + titleStyle.Render(m.persona.Title))
	}
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.session.AwaitingResponse() {
		b.WriteString(m.spinner.View() + " " + hintStyle.Render(m.persona.Name+" is thinking..."))
	}
	b.WriteString("\n")

	box := inputStyle
	if m.session.AwaitingResponse() {
		box = inputBusyStyle
	}
	b.WriteString(box.Render(m.textarea.View()))
	b.WriteString("\n")

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderFooter() string {
	send := sendDisabledStyle.Render("[ Send ]")
	if m.session.CanSend() {
		send = sendEnabledStyle.Render("[ Send ]")
	}
	return send + " " + hintStyle.Render("enter send • alt+enter newline • pgup/pgdn scroll • esc quit")
}

func (m Model) renderHistory() string {
	messages := m.session.Messages()
	if len(messages) == 0 {
		return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Center, emptyStyle.Render(m.persona.EmptyState()))
	}

	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		blocks = append(blocks, m.renderMessage(msg))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg chat.Message) string {
	maxWidth := m.bubbleWidth()

	if msg.Sender == chat.SenderUser {
		bubble := userBubbleStyle.Width(fitWidth(msg.Text, maxWidth)).Render(msg.Text)
		stamp := stampStyle.Render("You · " + msg.Clock())
		block := lipgloss.JoinVertical(lipgloss.Right, bubble, stamp)
		return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, block)
	}

	text := msg.Text
	if m.markdown && m.renderer != nil {
		if rendered, err := m.renderer.Render(text); err == nil {
			text = strings.Trim(rendered, "\n")
		}
	}
	bubble := botBubbleStyle.Width(fitWidth(text, maxWidth)).Render(text)
	stamp := stampStyle.Render(m.persona.Name + " · " + msg.Clock())
	return lipgloss.JoinVertical(lipgloss.Left, bubble, stamp)
}

// fitWidth sizes a bubble to its text, wrapping at maxWidth. The two extra cells are padding.
func fitWidth(text string, maxWidth int) int {
	w := lipgloss.Width(text) + 2
	if w > maxWidth {
		return maxWidth
	}
	if w < 3 {
		return 3
	}
	return w
}
