package conversation

import (
	"strings"
	"sync"

	"maizedigest/app/service/composer"

	"github.com/benbjohnson/clock"
)

type State int

const (
	StateIdle State = iota
	StateAwaitingDigestConfirm
	StateAwaitingExportConfirm
)

func (s State) String() string {
	switch s {
	case StateAwaitingDigestConfirm:
		return "awaiting_digest_confirm"
	case StateAwaitingExportConfirm:
		return "awaiting_export_confirm"
	default:
		return "idle"
	}
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string           `json:"role"`
	Content string           `json:"content"`
	Error   bool             `json:"error,omitempty"`
	Raw     string           `json:"raw,omitempty"`
	Sources []string         `json:"sources,omitempty"`
	Digest  *composer.Digest `json:"digest,omitempty"`
}

// Session is the per-conversation state. All fields behind mu; a session
// processes one utterance at a time.
type Session struct {
	mu sync.Mutex

	id           string
	state        State
	pendingQuery string
	lastDigest   *composer.Digest
	messages     []Message
	offerTimer   *clock.Timer
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Message, len(s.messages))
	copy(result, s.messages)

	return result
}

func (s *Session) append(msg Message) {
	s.messages = append(s.messages, msg)
}

// Turn is what one utterance produced: the assistant messages to deliver
// immediately, plus the rendered document when the turn triggered an export.
type Turn struct {
	Messages []Message
	Document []byte
}

func (t *Turn) add(msg Message) Message {
	t.Messages = append(t.Messages, msg)
	return msg
}

// Assistant copy, kept stable because the frontend keys off some of it.
const (
	msgGreeting      = "Hi! I'm your MAIZE Digest assistant. Ask me about any project or topic, and I'll create a structured digest for you."
	msgDigestOffer   = "Would you like me to create a structured Word digest for this topic?"
	msgExportOffer   = "Would you like me to export this digest as a Word document?"
	msgDigestDecline = "Perfect! If you have any other questions, feel free to ask."
	msgExportDecline = "No problem! Feel free to ask me another question."
	msgExportDone    = "Word document exported successfully! Feel free to ask me another question."

	msgAnswerError = "Sorry, I couldn't process your request. Please try again."
	msgDigestError = "Sorry, there was an error generating the digest."
	msgExportError = "Sorry, there was an error generating the Word document. Please try again."
)

// isAffirmative treats any utterance containing "yes" or "si"/"sì" as a
// confirmation. Deliberately permissive substring matching; known limitation,
// kept for compatibility with the existing frontend copy.
func isAffirmative(text string) bool {
	lower := strings.ToLower(text)

	return strings.Contains(lower, "yes") ||
		strings.Contains(lower, "si") ||
		strings.Contains(lower, "sì")
}
