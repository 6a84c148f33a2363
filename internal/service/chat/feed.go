package chat

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/study-buddy/internal/model/chat"
)

const (
	eventsTopic = "session.events"
	seqKey      = "seq"

	defaultSubscriberBuffer = 32
)

// feed publishes session events on an in-process watermill topic.
// publish and subscribe must be called with the session lock held, which keeps
// seq consistent with what each subscriber is going to receive.
type feed struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger
	seq    uint64
}

func newFeed(logger zerolog.Logger) *feed {
	return &feed{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: defaultSubscriberBuffer}, watermill.NopLogger{}),
		logger: logger,
	}
}

func (f *feed) publish(ev chat.Event) {
	seq := f.seq
	f.seq++

	payload, err := json.Marshal(ev)
	if err != nil {
		f.logger.Error().Err(err).Uint64("seq", seq).Msg("encode session event")
		payload = nil
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(seqKey, strconv.FormatUint(seq, 10))
	if err := f.pubsub.Publish(eventsTopic, msg); err != nil {
		f.logger.Warn().Err(err).Uint64("seq", seq).Msg("publish session event")
	}
}

func (f *feed) subscribe(buffer int) (*Subscription, error) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := f.pubsub.Subscribe(ctx, eventsTopic)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "subscribe to session events")
	}

	next := f.seq
	out := make(chan chat.Event, buffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.forward(msgs, out, next)
	}()

	return &Subscription{events: out, cancel: cancel, done: done}, nil
}

// forward acks every delivery at once and hands events to out in publish order,
// starting at next. gochannel delivers each message from its own goroutine, so
// deliveries can overtake each other; early ones wait in pending. An event that
// does not fit in out is dropped.
func (f *feed) forward(msgs <-chan *message.Message, out chan<- chat.Event, next uint64) {
	defer close(out)

	// A nil entry marks an event that could not be decoded; it only advances next.
	pending := make(map[uint64]*chat.Event)
	for msg := range msgs {
		msg.Ack()

		seq, err := strconv.ParseUint(msg.Metadata.Get(seqKey), 10, 64)
		if err != nil {
			f.logger.Warn().Err(err).Str("message", msg.UUID).Msg("session event without sequence")
			continue
		}
		if seq < next {
			continue
		}

		var ev *chat.Event
		var decoded chat.Event
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			f.logger.Warn().Err(err).Uint64("seq", seq).Msg("decode session event")
		} else {
			ev = &decoded
		}
		pending[seq] = ev

		for {
			ev, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if ev == nil {
				continue
			}
			select {
			case out <- *ev:
			default:
				f.logger.Debug().Uint64("seq", next-1).Msg("subscriber lagging, event dropped")
			}
		}
	}
}

func (f *feed) close() error {
	return f.pubsub.Close()
}

// Subscription is a live view of the session: Snapshot is the state at subscribe
// time and Events carries every later change, in order.
type Subscription struct {
	Snapshot chat.Snapshot

	events <-chan chat.Event
	cancel context.CancelFunc
	done   <-chan struct{}
	once   sync.Once
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan chat.Event {
	return s.events
}

// Close stops delivery and waits until Events is closed. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
