// Package session implements the client-side conversational state machine:
// ordered turn history, the Idle/Generating guard, and the two interaction
// modes that decide how a generation result mutates visible state.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scriptstudio/internal/generation"
)

// ErrBusy is returned when a submission arrives while a generation is
// already in flight. At most one generation runs per session; this is a
// guard, not a queue.
var ErrBusy = errors.New("a generation is already in flight")

// State is the session's steady state between transitions.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
)

// DocumentBuffer is the external document surface. The session only ever
// reads the full content or replaces it wholesale.
type DocumentBuffer interface {
	FullContent() string
	ReplaceFullContent(text string)
}

// Generator is the application-facing generation entry point, satisfied by
// the orchestrator.
type Generator interface {
	Generate(ctx context.Context, mode generation.Mode, promptText, modelID, documentContent string) (string, error)
}

// reviseConfirmation is the short AI turn appended after a successful
// whole-document replacement.
const reviseConfirmation = "Revision applied to the document."

// SubmitResult reports the outcome of one submission after it resolves.
type SubmitResult struct {
	// Reply is the AI turn appended for this submission: the success text,
	// the revise confirmation, or a visible error record.
	Reply generation.Turn `json:"reply"`
	// Failed reports whether the generation failed. The failure text is
	// already part of Reply so history stays a complete audit trail.
	Failed bool `json:"failed"`
	// DocumentReplaced reports whether the document buffer was overwritten.
	DocumentReplaced bool `json:"document_replaced"`
	// ClearPrompt tells the shell whether to clear the prompt input now
	// that the call has resolved.
	ClearPrompt bool `json:"clear_prompt"`
}

// Session holds conversational state for one editor window.
type Session struct {
	mu             sync.Mutex
	state          State
	turns          []generation.Turn
	gen            Generator
	doc            DocumentBuffer
	clearOnFailure bool
}

// New constructs an idle session over the generator and document buffer.
// clearOnFailure controls whether the shell clears the prompt input when a
// generation fails; clearing on success is unconditional.
func New(gen Generator, doc DocumentBuffer, clearOnFailure bool) *Session {
	return &Session{
		state:          StateIdle,
		gen:            gen,
		doc:            doc,
		clearOnFailure: clearOnFailure,
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns returns a copy of the conversation history in display order.
func (s *Session) Turns() []generation.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]generation.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// ReplaceDocument overwrites the document on the user's behalf. It shares
// the session lock so an edit cannot interleave with an in-flight
// generation's snapshot or replacement.
func (s *Session) ReplaceDocument(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.doc.ReplaceFullContent(text)
	return nil
}

// Submit runs one interaction turn. The user turn is appended
// optimistically before the generation starts; the AI turn (success text,
// revise confirmation, or error record) is appended when it resolves. A
// failed generation leaves the document untouched.
func (s *Session) Submit(ctx context.Context, mode generation.Mode, promptText, modelID string) (SubmitResult, error) {
	if strings.TrimSpace(promptText) == "" {
		return SubmitResult{}, generation.NewError(generation.KindValidation, "prompt must not be empty")
	}

	documentContent, err := s.begin(mode, promptText)
	if err != nil {
		return SubmitResult{}, err
	}

	text, genErr := s.gen.Generate(ctx, mode, promptText, modelID, documentContent)
	return s.finish(mode, text, genErr), nil
}

// begin moves the session to Generating, appends the optimistic user turn,
// and snapshots the document for revise mode.
func (s *Session) begin(mode generation.Mode, promptText string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return "", ErrBusy
	}
	s.state = StateGenerating

	s.turns = append(s.turns, newTurn(generation.SenderUser, promptText, mode == generation.ModeRevise))

	if mode == generation.ModeRevise {
		return s.doc.FullContent(), nil
	}
	return "", nil
}

// finish returns the session to Idle and applies the transition effects
// for the resolved generation.
func (s *Session) finish(mode generation.Mode, text string, genErr error) SubmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateIdle

	if genErr != nil {
		reply := newTurn(generation.SenderAI, "Error: "+generation.AsError(genErr).Message, false)
		s.turns = append(s.turns, reply)
		return SubmitResult{
			Reply:       reply,
			Failed:      true,
			ClearPrompt: s.clearOnFailure,
		}
	}

	result := SubmitResult{ClearPrompt: true}
	switch mode {
	case generation.ModeRevise:
		s.doc.ReplaceFullContent(text)
		result.DocumentReplaced = true
		result.Reply = newTurn(generation.SenderAI, reviseConfirmation, false)
	default:
		result.Reply = newTurn(generation.SenderAI, text, false)
	}
	s.turns = append(s.turns, result.Reply)
	return result
}

func newTurn(sender generation.Sender, text string, revise bool) generation.Turn {
	return generation.Turn{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Revise:    revise,
		CreatedAt: time.Now().UTC(),
	}
}
