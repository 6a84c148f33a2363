package chatwindow

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/study-buddy/internal/model/chat"
	"github.com/zhouzirui/study-buddy/internal/model/persona"
	chatService "github.com/zhouzirui/study-buddy/internal/service/chat"
)

type scriptedResponder struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (s *scriptedResponder) Respond(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func newTestModel(r chatService.Responder) (Model, *chatService.Service) {
	svc := chatService.NewService(r)
	p, _ := persona.NewMemoryStore(persona.Seed()).FindByID(persona.DefaultID)
	m := New(context.Background(), svc, Options{Persona: p, Logger: zerolog.Nop()})
	return m, svc
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func pressEnter(m Model) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

// runCmd executes cmd and flattens batches into the produced messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findReply(t *testing.T, msgs []tea.Msg) replyMsg {
	t.Helper()
	for _, msg := range msgs {
		if reply, ok := msg.(replyMsg); ok {
			return reply
		}
	}
	t.Fatalf("no reply message among %d messages", len(msgs))
	return replyMsg{}
}

func TestEmptyStateIsRendered(t *testing.T) {
	m, _ := newTestModel(&scriptedResponder{})

	view := m.View()
	assert.Contains(t, view, "Start a conversation with Study Buddy!")
	assert.Contains(t, view, "[ Send ]")
}

func TestTypingUpdatesDraft(t *testing.T) {
	m, svc := newTestModel(&scriptedResponder{})
	assert.False(t, svc.CanSend())

	m = typeText(t, m, "Hello")

	assert.Equal(t, "Hello", svc.Draft())
	assert.True(t, svc.CanSend())
	assert.Equal(t, "Hello", m.textarea.Value())
}

func TestEnterWithBlankDraftDoesNothing(t *testing.T) {
	r := &scriptedResponder{}
	m, svc := newTestModel(r)
	m = typeText(t, m, "   ")

	_, cmd := pressEnter(m)

	assert.Nil(t, cmd)
	assert.Empty(t, svc.Messages())
	assert.Empty(t, r.prompts)
}

func TestSendAndReceiveReply(t *testing.T) {
	r := &scriptedResponder{reply: "Hi there!"}
	m, svc := newTestModel(r)
	m = typeText(t, m, "Hello")

	m, cmd := pressEnter(m)
	require.NotNil(t, cmd)

	assert.True(t, svc.AwaitingResponse())
	assert.Empty(t, m.textarea.Value())
	assert.False(t, m.textarea.Focused())
	assert.Empty(t, svc.Draft())
	require.Len(t, svc.Messages(), 1)
	assert.Contains(t, m.View(), "is thinking")

	reply := findReply(t, runCmd(cmd))
	assert.Equal(t, "Hi there!", reply.message.Text)

	next, _ := m.Update(reply)
	m = next.(Model)

	assert.False(t, svc.AwaitingResponse())
	assert.True(t, m.textarea.Focused())
	msgs := svc.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.SenderUser, msgs[0].Sender)
	assert.Equal(t, chat.SenderBot, msgs[1].Sender)

	view := m.View()
	assert.Contains(t, view, "Hello")
	assert.Contains(t, view, "Hi there!")
	assert.NotContains(t, view, "is thinking")
	assert.Equal(t, []string{"Hello"}, r.prompts)
}

func TestInputIgnoredWhileAwaitingResponse(t *testing.T) {
	m, svc := newTestModel(&scriptedResponder{reply: "ok"})
	m = typeText(t, m, "first")
	m, cmd := pressEnter(m)
	require.NotNil(t, cmd)

	m = typeText(t, m, "second")
	assert.Empty(t, m.textarea.Value())

	m, again := pressEnter(m)
	assert.Nil(t, again)
	assert.Len(t, svc.Messages(), 1)

	findReply(t, runCmd(cmd))
	assert.Len(t, svc.Messages(), 2)
}

func TestFailureShowsWarning(t *testing.T) {
	m, svc := newTestModel(&scriptedResponder{err: assert.AnError})
	m = typeText(t, m, "Hello")
	m, cmd := pressEnter(m)

	next, _ := m.Update(findReply(t, runCmd(cmd)))
	m = next.(Model)

	msgs := svc.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chatService.ErrorReplyText, msgs[1].Text)
	assert.Contains(t, m.View(), "Error:")
	assert.False(t, svc.AwaitingResponse())
}

func TestAltEnterInsertsNewline(t *testing.T) {
	m, svc := newTestModel(&scriptedResponder{})
	m = typeText(t, m, "line one")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	m = next.(Model)
	m = typeText(t, m, "line two")

	assert.Equal(t, "line one\nline two", m.textarea.Value())
	assert.Empty(t, svc.Messages())
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(&scriptedResponder{})

	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: k})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestWindowResize(t *testing.T) {
	m, _ := newTestModel(&scriptedResponder{})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Equal(t, 120, m.viewport.Width)
	assert.Equal(t, 40-headerHeight-footerHeight-inputHeight-2, m.viewport.Height)
	assert.Equal(t, 84, m.bubbleWidth())

	next, _ = m.Update(tea.WindowSizeMsg{Width: 0, Height: 0})
	m = next.(Model)
	assert.Equal(t, 1, m.viewport.Height)
}

func TestMarkdownRendering(t *testing.T) {
	svc := chatService.NewService(&scriptedResponder{reply: "**bold** answer"})
	m := New(context.Background(), svc, Options{Persona: persona.Seed()[0], Markdown: true, MarkdownStyle: "dark"})

	require.NoError(t, svc.Submit(context.Background(), "Hello"))
	m.refresh()

	view := m.View()
	assert.Contains(t, view, "answer")
	assert.False(t, strings.Contains(view, "**bold**"))
}

func TestFitWidth(t *testing.T) {
	assert.Equal(t, 7, fitWidth("Hello", 40))
	assert.Equal(t, 10, fitWidth(strings.Repeat("x", 30), 10))
	assert.Equal(t, 3, fitWidth("", 40))
}
