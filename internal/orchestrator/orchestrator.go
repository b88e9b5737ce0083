// Package orchestrator is the single entry point the interface layer calls
// for both chat and revise generation actions.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scriptstudio/internal/catalog"
	"scriptstudio/internal/config"
	"scriptstudio/internal/credential"
	"scriptstudio/internal/generation"
	"scriptstudio/internal/provider"
)

// reviseSystemPrompt is the fixed instruction for revise mode. The client
// performs an unconditional whole-buffer overwrite with the reply, so the
// provider must return the entire document and nothing else.
const reviseSystemPrompt = `You are revising a script document. Apply the writer's instruction to the full document provided below it. Reply with the entire revised document verbatim. Do not add commentary, preamble, explanations, or any conversational wrapper: your whole reply replaces the document.`

// defaultChatSystemPrompt is used in chat mode when the user has not
// configured their own.
const defaultChatSystemPrompt = `You are a helpful writing assistant inside a script editor. Discuss the writer's questions about their script conversationally and keep answers focused on the craft of writing.`

// Orchestrator resolves credentials and system prompts, then delegates to
// the provider adapter. It never retries, and every failure comes back as
// a *generation.Error value rather than a panic or an untyped error.
type Orchestrator struct {
	registry   *provider.Registry
	creds      credential.Store
	chatPrompt string
	maxTokens  int
}

// New constructs an orchestrator over the registry and credential store.
func New(registry *provider.Registry, creds credential.Store, cfg config.Config) *Orchestrator {
	chatPrompt := strings.TrimSpace(cfg.Prompts.ChatSystemPrompt)
	if chatPrompt == "" {
		chatPrompt = defaultChatSystemPrompt
	}

	maxTokens := cfg.Generation.MaxTokens
	if maxTokens <= 0 {
		maxTokens = generation.DefaultMaxTokens
	}

	return &Orchestrator{
		registry:   registry,
		creds:      creds,
		chatPrompt: chatPrompt,
		maxTokens:  maxTokens,
	}
}

// Generate runs one generation for the given mode. documentContent is the
// full current document; it is only consulted in revise mode, where it is
// sent alongside the instruction so the provider can return the complete
// revised document.
func (o *Orchestrator) Generate(ctx context.Context, mode generation.Mode, promptText, modelID, documentContent string) (string, error) {
	promptText = strings.TrimSpace(promptText)
	if promptText == "" {
		return "", generation.NewError(generation.KindValidation, "prompt must not be empty")
	}

	providerID, err := catalog.ProviderForModel(modelID)
	if err != nil {
		return "", generation.NewError(generation.KindValidation, err.Error())
	}

	adapter, err := o.registry.Lookup(providerID)
	if err != nil {
		if errors.Is(err, provider.ErrNotConfigured) {
			return "", generation.Errorf(generation.KindValidation, "provider %s is not available", providerID)
		}
		return "", generation.AsError(err)
	}

	apiKey, err := o.resolveKey(providerID)
	if err != nil {
		return "", err
	}

	req := generation.Request{
		Prompt:    promptText,
		Model:     modelID,
		APIKey:    apiKey,
		MaxTokens: o.maxTokens,
	}

	switch mode {
	case generation.ModeRevise:
		req.SystemPrompt = reviseSystemPrompt
		req.Prompt = buildRevisePrompt(promptText, documentContent)
	case generation.ModeChat:
		req.SystemPrompt = o.chatPrompt
	default:
		return "", generation.Errorf(generation.KindValidation, "unknown interaction mode %q", mode)
	}

	return adapter.Generate(ctx, req)
}

// ValidateCredential performs a lightweight provider call solely to
// confirm the secret is accepted. The stored credential is not touched.
func (o *Orchestrator) ValidateCredential(ctx context.Context, providerID, secret string) error {
	adapter, err := o.registry.Lookup(providerID)
	if err != nil {
		if errors.Is(err, provider.ErrNotConfigured) {
			return generation.Errorf(generation.KindValidation, "provider %s is not available", providerID)
		}
		return generation.AsError(err)
	}
	return adapter.ValidateKey(ctx, secret)
}

// resolveKey reads the provider's secret from the credential store. A
// storage failure surfaces as an error, never as a missing key.
func (o *Orchestrator) resolveKey(providerID string) (string, error) {
	serviceName, err := catalog.CredentialKey(providerID)
	if err != nil {
		return "", generation.NewError(generation.KindValidation, err.Error())
	}

	secret, ok, err := o.creds.Get(serviceName)
	if err != nil {
		return "", generation.Errorf(generation.KindSetup, "credential store: %v", err)
	}
	if !ok || strings.TrimSpace(secret) == "" {
		return "", generation.NewError(generation.KindValidation, "API key is missing")
	}
	return secret, nil
}

// buildRevisePrompt concatenates the instruction and the full document
// with labeled sections so the provider can tell "what to change" from
// "what to return".
func buildRevisePrompt(instruction, document string) string {
	return fmt.Sprintf("INSTRUCTION:\n%s\n\nDOCUMENT:\n%s", instruction, document)
}
