package chat

import "time"

// Sender tags which side of the window a message belongs to.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid reports whether s is one of the two known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// Message is one immutable entry of the conversation history.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Clock formats the capture time as the window shows it.
func (m Message) Clock() string {
	return m.Timestamp.Local().Format("15:04")
}
