package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"scriptstudio/internal/config"
	"scriptstudio/internal/generation"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "scriptstudio/0.1"
	apiVersion      = "2023-06-01"
	defaultBaseURL  = "https://api.anthropic.com"

	// validationModel is the cheapest model used by key-validation probes.
	validationModel = "claude-3-haiku-20240307"

	maxErrorBodyBytes = 64 * 1024
)

// Provider implements Anthropic Messages API interactions. The API key is
// supplied per request so the credential store stays authoritative.
type Provider struct {
	baseURL  string
	client   *http.Client
	messages string
}

// New constructs an Anthropic provider instance.
func New(cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		baseURL:  baseURL,
		client:   client,
		messages: baseURL + "/v1/messages",
	}, nil
}

func (p *Provider) Name() string {
	return "anthropic"
}

// Generate performs a single Messages API call and returns the first text
// segment of the response content.
func (p *Provider) Generate(ctx context.Context, req generation.Request) (string, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return "", generation.NewError(generation.KindValidation, "anthropic key is missing")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", generation.NewError(generation.KindValidation, "prompt must not be empty")
	}

	payload := messagePayload{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages: []message{
			{Role: "user", Content: req.Prompt},
		},
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = generation.DefaultMaxTokens
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		payload.System = req.SystemPrompt
	}

	body, err := p.roundTrip(ctx, req.APIKey, payload)
	if err != nil {
		return "", err
	}

	var resp messageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", generation.NewError(generation.KindUnexpectedResponse, "Unexpected response structure").WithRawDetail(body)
	}
	text, ok := resp.firstText()
	if !ok {
		return "", generation.NewError(generation.KindUnexpectedResponse, "Unexpected response structure").WithRawDetail(body)
	}
	return text, nil
}

// ValidateKey sends a minimal one-token request to confirm the secret is
// accepted. It never touches stored credentials.
func (p *Provider) ValidateKey(ctx context.Context, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return generation.NewError(generation.KindValidation, "anthropic key is missing")
	}

	payload := messagePayload{
		Model:     validationModel,
		MaxTokens: 1,
		Messages: []message{
			{Role: "user", Content: "ping"},
		},
	}

	_, err := p.roundTrip(ctx, apiKey, payload)
	return err
}

// roundTrip performs the HTTP exchange and applies the three-tier error
// classification: provider rejection, transport failure, setup failure.
func (p *Provider) roundTrip(ctx context.Context, apiKey string, payload messagePayload) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, generation.Errorf(generation.KindSetup, "marshal payload: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.messages, bytes.NewReader(encoded))
	if err != nil {
		return nil, generation.Errorf(generation.KindSetup, "construct request: %v", err)
	}

	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Error("anthropic request failed", "err", err)
		return nil, generation.NewError(generation.KindTransport, "No response from server")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, parseAPIError(httpResp)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, generation.NewError(generation.KindTransport, "No response from server")
	}
	return body, nil
}

type messagePayload struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
	System    string    `json:"system,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// firstText extracts the first text segment from the content collection.
func (r messageResponse) firstText() (string, bool) {
	for _, block := range r.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, true
		}
	}
	return "", false
}

type apiErrorResponse struct {
	Error  apiError `json:"error"`
	Detail string   `json:"detail"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// parseAPIError prefers the nested error.message, then the generic detail
// field, then the HTTP status code.
func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return generation.Errorf(generation.KindProviderRejection, "API request failed with status %d", resp.StatusCode)
	}

	message := fmt.Sprintf("API request failed with status %d", resp.StatusCode)
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		} else if apiErr.Detail != "" {
			message = apiErr.Detail
		}
	}

	return generation.NewError(generation.KindProviderRejection, message).WithRawDetail(body)
}
