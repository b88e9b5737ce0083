package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntriesHaveUniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range Entries() {
		assert.False(t, seen[e.ID], "duplicate model id %q", e.ID)
		seen[e.ID] = true
		assert.NotEmpty(t, e.DisplayName)
		assert.True(t, KnownProvider(e.Provider))
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	first := Entries()
	first[0].ID = "mutated"
	assert.NotEqual(t, "mutated", Entries()[0].ID)
}

func TestProviderForModel(t *testing.T) {
	tests := []struct {
		model    string
		provider string
	}{
		{"claude-3-5-sonnet-20240620", ProviderAnthropic},
		{"claude-9-experimental", ProviderAnthropic},
		{"gemini-1.5-flash", ProviderGoogle},
		{"gemini-2.0-new", ProviderGoogle},
		{"gpt-4o", ProviderOpenAI},
	}
	for _, tt := range tests {
		got, err := ProviderForModel(tt.model)
		require.NoError(t, err, tt.model)
		assert.Equal(t, tt.provider, got, tt.model)
	}
}

func TestProviderForModelUnknownPrefix(t *testing.T) {
	_, err := ProviderForModel("llama-3-70b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llama-3-70b")
}

func TestCredentialKey(t *testing.T) {
	tests := map[string]string{
		ProviderAnthropic: "ANTHROPIC_API_KEY",
		ProviderGoogle:    "GOOGLE_API_KEY",
		ProviderOpenAI:    "OPENAI_API_KEY",
	}
	for providerID, want := range tests {
		got, err := CredentialKey(providerID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := CredentialKey("mistral")
	require.Error(t, err)
	assert.False(t, KnownProvider("mistral"))
}
