package persona

// DefaultID identifies the assistant shown when no persona is configured.
const DefaultID = "study-buddy"

// Persona describes the assistant identity shown by the chat window.
type Persona struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Greeting string `json:"greeting"`
	// Placeholder is the hint shown in an empty input box.
	Placeholder string `json:"placeholder"`
}

// EmptyState is the line rendered while the history has no messages.
func (p Persona) EmptyState() string {
	if p.Greeting != "" {
		return p.Greeting
	}
	return "💬 Start a conversation with " + p.Name + "!"
}

// Seed provides the built-in assistant personas.
func Seed() []Persona {
	return []Persona{
		{
			ID:          DefaultID,
			Name:        "Study Buddy",
			Title:       "Learning companion",
			Placeholder: "Type your message...",
		},
		{
			ID:          "quiz-master",
			Name:        "Quiz Master",
			Title:       "Practice question coach",
			Greeting:    "🎯 Ask Quiz Master for a practice question!",
			Placeholder: "Name a topic to be quizzed on...",
		},
	}
}
