// Package chatwindow renders a conversation session as a terminal chat window.
package chatwindow

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/study-buddy/internal/model/chat"
	"github.com/zhouzirui/study-buddy/internal/model/persona"
	chatService "github.com/zhouzirui/study-buddy/internal/service/chat"
)

const (
	headerHeight = 2
	footerHeight = 2
	inputHeight  = 3
)

// Options configures a Model.
type Options struct {
	Persona persona.Persona
	// Markdown renders bot replies through glamour.
	Markdown bool
	// MarkdownStyle is a glamour standard style name; empty picks one from the terminal background.
	MarkdownStyle string
	Logger        zerolog.Logger
}

// replyMsg carries the bot message appended when an exchange finished.
type replyMsg struct {
	message chat.Message
}

// Model is the bubbletea model of the chat window.
type Model struct {
	ctx     context.Context
	session *chatService.Service
	persona persona.Persona
	logger  zerolog.Logger

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	markdown      bool
	markdownStyle string
	renderer      *glamour.TermRenderer

	width int
}

// New builds a window over session. ctx bounds the outbound exchanges.
func New(ctx context.Context, session *chatService.Service, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = opts.Persona.Placeholder
	if ta.Placeholder == "" {
		ta.Placeholder = "Type your message..."
	}
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetWidth(76)
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.SetValue(session.Draft())
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		ctx:      ctx,
		session:  session,
		persona:  opts.Persona,
		logger:   opts.Logger,
		textarea: ta,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		markdown: opts.Markdown,
		width:    80,
	}
	m.markdownStyle = opts.MarkdownStyle
	if m.markdown {
		m.renderer = newRenderer(m.markdownStyle, m.bubbleWidth())
	}
	m.refresh()
	return m
}

func newRenderer(style string, wrap int) *glamour.TermRenderer {
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
	if err != nil {
		return nil
	}
	return r
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles input, window resizes and finished exchanges.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if !msg.Alt {
				return m.send()
			}
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		// Input is disabled while an exchange is in flight.
		if m.session.AwaitingResponse() {
			return m, nil
		}

		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		m.session.SetDraft(m.textarea.Value())
		return m, cmd

	case replyMsg:
		m.logger.Debug().Str("id", msg.message.ID).Msg("reply rendered")
		m.refresh()
		return m, m.textarea.Focus()

	case spinner.TickMsg:
		if !m.session.AwaitingResponse() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// send starts an exchange for the current input. Blank input or a busy session is a no-op.
func (m Model) send() (tea.Model, tea.Cmd) {
	ex, err := m.session.Begin(m.textarea.Value())
	if err != nil {
		return m, nil
	}

	m.textarea.Reset()
	m.textarea.Blur()
	m.refresh()

	return m, tea.Batch(m.spinner.Tick, m.exchange(ex))
}

// exchange resolves ex off the UI loop and reports back with a replyMsg.
func (m Model) exchange(ex chatService.Exchange) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		return replyMsg{message: session.Resolve(ctx, ex)}
	}
}

func (m *Model) resize(width, height int) {
	if width < 20 {
		width = 20
	}
	m.width = width

	vpHeight := height - headerHeight - footerHeight - inputHeight - 2
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.textarea.SetWidth(width - 4)

	if m.markdown {
		m.renderer = newRenderer(m.markdownStyle, m.bubbleWidth())
	}
	m.refresh()
}

// bubbleWidth caps message bubbles at 70% of the window.
func (m Model) bubbleWidth() int {
	w := m.width * 7 / 10
	if w < 10 {
		w = 10
	}
	return w
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}
