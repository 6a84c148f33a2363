package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/study-buddy/internal/model/chat"
	"github.com/zhouzirui/study-buddy/internal/service/responder"
)

// ErrorReplyText is shown in place of a reply whenever an exchange fails.
const ErrorReplyText = "⚠️ Error: Could not get response from server. Check your backend connection."

var (
	ErrEmptyDraft    = errors.New("draft is empty")
	ErrBusy          = errors.New("an exchange is already in flight")
	ErrStaleExchange = errors.New("exchange is not in flight")
)

// Responder answers a prompt with reply text.
type Responder interface {
	Respond(ctx context.Context, prompt string) (string, error)
}

// Exchange identifies the submission currently awaiting a reply.
type Exchange struct {
	ID     string
	Prompt string
}

// Service owns one conversation: its messages, the draft and the busy flag.
// At most one exchange is in flight at a time.
type Service struct {
	responder Responder
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
	feed      *feed

	mu       sync.Mutex
	messages []chat.Message
	draft    string
	inflight *Exchange
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger attaches the logger used for exchange diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides message id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService bootstraps an empty in-memory conversation.
func NewService(r Responder, opts ...Option) *Service {
	s := &Service{
		responder: r,
		logger:    zerolog.Nop(),
		now:       time.Now,
		newID:     newMessageID,
		messages:  make([]chat.Message, 0, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.feed = newFeed(s.logger)
	return s
}

// newMessageID returns a time-ordered identifier.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SetDraft replaces the pending input text.
func (s *Service) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

// Draft returns the pending input text.
func (s *Service) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// AwaitingResponse reports whether an exchange is in flight.
func (s *Service) AwaitingResponse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight != nil
}

// CanSend reports whether the send action is enabled for the current draft.
func (s *Service) CanSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSendLocked()
}

func (s *Service) canSendLocked() bool {
	return s.inflight == nil && strings.TrimSpace(s.draft) != ""
}

// Messages returns a copy of the history in display order.
func (s *Service) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

// Snapshot captures the whole session state at once.
func (s *Service) Snapshot() chat.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() chat.Snapshot {
	phase := chat.PhaseIdle
	if s.inflight != nil {
		phase = chat.PhaseSending
	}
	return chat.Snapshot{
		Messages:         append([]chat.Message{}, s.messages...),
		Draft:            s.draft,
		AwaitingResponse: s.inflight != nil,
		Phase:            phase,
		CanSend:          s.canSendLocked(),
	}
}

// Submit runs a whole exchange and blocks until the reply or failure is appended.
// Exchange failures never surface here: they become a bot message.
func (s *Service) Submit(ctx context.Context, text string) error {
	ex, err := s.Begin(text)
	if err != nil {
		return err
	}
	s.Resolve(ctx, ex)
	return nil
}

// Begin appends the user message, clears the draft and marks the session busy.
// It is a no-op returning ErrEmptyDraft or ErrBusy when the submission is not allowed.
func (s *Service) Begin(text string) (Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return Exchange{}, ErrEmptyDraft
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight != nil {
		s.logger.Debug().Str("exchange", s.inflight.ID).Msg("submit ignored while awaiting response")
		return Exchange{}, ErrBusy
	}

	msg := s.appendLocked(chat.SenderUser, text)
	s.draft = ""
	s.inflight = &Exchange{ID: msg.ID, Prompt: text}
	s.publishLocked(msg)

	s.logger.Debug().Str("exchange", msg.ID).Int("chars", len(text)).Msg("exchange started")
	return *s.inflight, nil
}

// Resolve asks the responder for a reply to ex and completes the exchange.
// It returns the bot message that was appended.
func (s *Service) Resolve(ctx context.Context, ex Exchange) chat.Message {
	reply, err := s.responder.Respond(ctx, ex.Prompt)
	msg, cerr := s.Complete(ex, reply, err)
	if cerr != nil {
		s.logger.Warn().Err(cerr).Str("exchange", ex.ID).Msg("reply dropped")
	}
	return msg
}

// Complete appends the outcome of ex and clears the busy flag.
// A non-nil replyErr is logged and replaced by ErrorReplyText.
func (s *Service) Complete(ex Exchange, reply string, replyErr error) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight == nil || s.inflight.ID != ex.ID {
		return chat.Message{}, ErrStaleExchange
	}

	text := reply
	if replyErr != nil {
		s.logger.Error().
			Err(replyErr).
			Str("exchange", ex.ID).
			Stringer("kind", responder.KindOf(replyErr)).
			Int("status", responder.StatusOf(replyErr)).
			Msg("error sending message")
		text = ErrorReplyText
	}

	msg := s.appendLocked(chat.SenderBot, text)
	s.inflight = nil
	s.publishLocked(msg)

	s.logger.Debug().Str("exchange", ex.ID).Bool("failed", replyErr != nil).Msg("exchange finished")
	return msg, nil
}

// Subscribe returns the current state together with a stream of every later
// event. Events are dropped for a subscriber whose buffer is full; the session
// never waits for one. Close the subscription when done.
func (s *Service) Subscribe(buffer int) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.feed.subscribe(buffer)
	if err != nil {
		return nil, err
	}
	sub.Snapshot = s.snapshotLocked()
	return sub, nil
}

// Close ends every subscription. Later calls to Subscribe fail.
func (s *Service) Close() error {
	return s.feed.close()
}

func (s *Service) appendLocked(sender chat.Sender, text string) chat.Message {
	msg := chat.Message{
		ID:        s.newID(),
		Text:      text,
		Sender:    sender,
		Timestamp: s.now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// publishLocked announces msg and the busy flag that came with it. It runs after
// inflight was updated, so both events carry the state the session is now in.
func (s *Service) publishLocked(msg chat.Message) {
	busy := s.inflight != nil
	s.feed.publish(chat.Event{Type: chat.EventMessage, Message: &msg, AwaitingResponse: busy})
	s.feed.publish(chat.Event{Type: chat.EventState, AwaitingResponse: busy})
}
