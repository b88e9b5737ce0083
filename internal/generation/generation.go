package generation

import (
	"fmt"
	"time"
)

// Mode selects how a generation result mutates visible state.
type Mode string

const (
	// ModeChat treats the result as a conversational reply.
	ModeChat Mode = "chat"
	// ModeRevise treats the result as the complete replacement for the document.
	ModeRevise Mode = "revise"
)

// ParseMode converts a wire-level mode string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeChat, ModeRevise:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("mode must be %q or %q, got %q", ModeChat, ModeRevise, s)
	}
}

// Sender identifies who produced a conversation turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Turn is one message in the ordered conversation history. Turns are
// immutable once created; history is append-only.
type Turn struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Revise    bool      `json:"revise,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Request carries everything a provider adapter needs for a single
// chat-completion call. The model identifier is passed through verbatim.
type Request struct {
	Prompt       string
	Model        string
	SystemPrompt string
	APIKey       string
	MaxTokens    int
}

// DefaultMaxTokens is used when a request does not specify a token limit.
const DefaultMaxTokens = 2048
