package chat

// Phase is the exchange state of a session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseSending Phase = "sending"
)

// Snapshot is a point-in-time copy of the session state handed to windows.
type Snapshot struct {
	Messages         []Message `json:"messages"`
	Draft            string    `json:"draft"`
	AwaitingResponse bool      `json:"awaitingResponse"`
	Phase            Phase     `json:"phase"`
	CanSend          bool      `json:"canSend"`
}

// EventType names what changed in the session.
type EventType string

const (
	EventMessage EventType = "message"
	EventState   EventType = "state"
)

// Event is published to subscribers whenever the session changes.
type Event struct {
	Type             EventType `json:"type"`
	Message          *Message  `json:"message,omitempty"`
	AwaitingResponse bool      `json:"awaitingResponse"`
}
