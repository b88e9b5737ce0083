package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"scriptstudio/internal/config"
	"scriptstudio/internal/generation"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "scriptstudio/0.1"
	defaultBaseURL  = "https://generativelanguage.googleapis.com"

	validationModel = "gemini-1.5-flash"

	maxErrorBodyBytes = 64 * 1024
)

// Provider implements Google Gemini generateContent interactions.
type Provider struct {
	baseURL string
	client  *http.Client
}

// New constructs a Google provider instance.
func New(cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{baseURL: baseURL, client: client}, nil
}

func (p *Provider) Name() string {
	return "google"
}

// Generate performs a single generateContent call and returns the first
// text part of the first candidate.
func (p *Provider) Generate(ctx context.Context, req generation.Request) (string, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return "", generation.NewError(generation.KindValidation, "google key is missing")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", generation.NewError(generation.KindValidation, "prompt must not be empty")
	}

	payload := generatePayload{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: req.Prompt}}},
		},
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = generation.DefaultMaxTokens
	}
	payload.GenerationConfig = &generationConfig{MaxOutputTokens: maxTokens}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}

	body, err := p.roundTrip(ctx, req.Model, req.APIKey, payload)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", generation.NewError(generation.KindUnexpectedResponse, "Unexpected response structure").WithRawDetail(body)
	}
	text, ok := resp.firstText()
	if !ok {
		return "", generation.NewError(generation.KindUnexpectedResponse, "Unexpected response structure").WithRawDetail(body)
	}
	return text, nil
}

// ValidateKey sends a minimal request to confirm the secret is accepted.
func (p *Provider) ValidateKey(ctx context.Context, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return generation.NewError(generation.KindValidation, "google key is missing")
	}

	payload := generatePayload{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: "ping"}}},
		},
		GenerationConfig: &generationConfig{MaxOutputTokens: 1},
	}

	_, err := p.roundTrip(ctx, validationModel, apiKey, payload)
	return err
}

// endpoint deliberately excludes the API key: it travels in the
// x-goog-api-key header so transport errors, which quote the full URL,
// never carry the secret into logs.
func (p *Provider) endpoint(model string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		p.baseURL, url.PathEscape(model))
}

func (p *Provider) roundTrip(ctx context.Context, model, apiKey string, payload generatePayload) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, generation.Errorf(generation.KindSetup, "marshal payload: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(model), bytes.NewReader(encoded))
	if err != nil {
		return nil, generation.Errorf(generation.KindSetup, "construct request: %v", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("x-goog-api-key", apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Error("google request failed", "err", err)
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

type generatePayload struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

func (r generateResponse) firstText() (string, bool) {
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				return p.Text, true
			}
		}
	}
	return "", false
}

type apiErrorResponse struct {
	Error  apiError `json:"error"`
	Detail string   `json:"detail"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

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
