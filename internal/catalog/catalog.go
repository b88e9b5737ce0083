// Package catalog holds the static model catalog and the mapping from
// model identifiers to the provider that serves them.
package catalog

import (
	"fmt"
	"strings"
)

// Provider identifiers. OpenAI is reserved: its credential slot and model
// prefix are recognised, but no adapter exists for it today.
const (
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
)

// Entry describes one selectable model. ID is the wire-level identifier
// passed to the provider verbatim; DisplayName is presentation only.
type Entry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider"`
}

var entries = []Entry{
	{ID: "claude-3-5-sonnet-20240620", DisplayName: "Claude 3.5 Sonnet", Provider: ProviderAnthropic},
	{ID: "claude-3-haiku-20240307", DisplayName: "Claude 3 Haiku", Provider: ProviderAnthropic},
	{ID: "gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro", Provider: ProviderGoogle},
	{ID: "gemini-1.5-flash", DisplayName: "Gemini 1.5 Flash", Provider: ProviderGoogle},
}

// Entries returns a copy of the catalog in display order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup returns the catalog entry for a model identifier.
func Lookup(modelID string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == modelID {
			return e, true
		}
	}
	return Entry{}, false
}

// ProviderForModel resolves the provider implied by a model identifier's
// prefix. Catalogued models resolve through their entry; uncatalogued
// identifiers fall back to the prefix so newer model revisions keep working.
func ProviderForModel(modelID string) (string, error) {
	if e, ok := Lookup(modelID); ok {
		return e.Provider, nil
	}

	switch {
	case strings.HasPrefix(modelID, "claude-"):
		return ProviderAnthropic, nil
	case strings.HasPrefix(modelID, "gemini-"):
		return ProviderGoogle, nil
	case strings.HasPrefix(modelID, "gpt-"):
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("model %q does not map to a known provider", modelID)
	}
}

// CredentialKey returns the credential store service name for a provider.
func CredentialKey(providerID string) (string, error) {
	switch providerID {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY", nil
	case ProviderGoogle:
		return "GOOGLE_API_KEY", nil
	case ProviderOpenAI:
		return "OPENAI_API_KEY", nil
	default:
		return "", fmt.Errorf("unknown provider %q", providerID)
	}
}

// KnownProvider reports whether the provider identifier is part of the
// closed provider set, including reserved ones.
func KnownProvider(providerID string) bool {
	_, err := CredentialKey(providerID)
	return err == nil
}
