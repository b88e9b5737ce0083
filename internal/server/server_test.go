package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptstudio/internal/catalog"
	"scriptstudio/internal/config"
	"scriptstudio/internal/credential"
	"scriptstudio/internal/document"
	"scriptstudio/internal/generation"
	"scriptstudio/internal/orchestrator"
	"scriptstudio/internal/provider"
	"scriptstudio/internal/session"
)

// stubAdapter lets handler tests script provider behaviour without HTTP.
type stubAdapter struct {
	text        string
	err         error
	validateErr error
	calls       int
}

func (a *stubAdapter) Name() string { return "anthropic" }

func (a *stubAdapter) Generate(ctx context.Context, req generation.Request) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return a.text, nil
}

func (a *stubAdapter) ValidateKey(ctx context.Context, apiKey string) error {
	return a.validateErr
}

type fixture struct {
	srv     *Server
	adapter *stubAdapter
	doc     *document.Buffer
	creds   credential.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()

	creds, err := credential.NewFileStore(cfg.Storage.Dir)
	require.NoError(t, err)

	adapter := &stubAdapter{text: "Hi there"}
	registry := provider.NewRegistry()
	require.NoError(t, registry.Register(catalog.ProviderAnthropic, adapter))

	orch := orchestrator.New(registry, creds, cfg)
	doc := document.NewBuffer("INT. DAY")
	sess := session.New(orch, doc, cfg.ClearPromptOnFailure())

	srv, err := New(cfg, orch, creds, doc, sess)
	require.NoError(t, err)

	return &fixture{srv: srv, adapter: adapter, doc: doc, creds: creds}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.app.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func (f *fixture) storeAnthropicKey(t *testing.T) {
	t.Helper()
	require.NoError(t, f.creds.Set("ANTHROPIC_API_KEY", "sk-ant-test"))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'; form-action 'none'", rec.Header().Get("Content-Security-Policy"))
}

func TestListModels(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var data struct {
		Models []catalog.Entry `json:"models"`
	}
	require.NoError(t, json.Unmarshal(mustMarshal(t, env.Data), &data))
	assert.Equal(t, catalog.Entries(), data.Models)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestSetCredential(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/v1/credentials/anthropic", `{"api_key":"sk-ant-new"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)

	secret, ok, err := f.creds.Get("ANTHROPIC_API_KEY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sk-ant-new", secret)
}

func TestSetCredentialUnknownProvider(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/v1/credentials/mistral", `{"api_key":"sk"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestSetCredentialEmptyKey(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/v1/credentials/anthropic", `{"api_key":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateCredential(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/credentials/anthropic/validate", `{"api_key":"sk-candidate"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Contains(t, string(mustMarshal(t, env.Data)), `"ok":true`)
}

func TestValidateCredentialRejected(t *testing.T) {
	f := newFixture(t)
	f.adapter.validateErr = generation.NewError(generation.KindProviderRejection, "invalid x-api-key")

	rec := f.do(t, http.MethodPost, "/v1/credentials/anthropic/validate", `{"api_key":"sk-bad"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(mustMarshal(t, env.Data), &data))
	assert.False(t, data.OK)
	assert.Equal(t, "invalid x-api-key", data.Message)
}

func TestDocumentRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/document", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "INT. DAY")

	rec = f.do(t, http.MethodPut, "/v1/document", `{"content":"EXT. BEACH"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EXT. BEACH", f.doc.FullContent())
}

func TestSubmitChatMessage(t *testing.T) {
	f := newFixture(t)
	f.storeAnthropicKey(t)

	rec := f.do(t, http.MethodPost, "/v1/session/messages",
		`{"mode":"chat","prompt":"Hello","model":"claude-3-haiku-20240307"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result session.SubmitResult
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(mustMarshal(t, env.Data), &result))

	assert.False(t, result.Failed)
	assert.Equal(t, "Hi there", result.Reply.Text)
	assert.Equal(t, "INT. DAY", f.doc.FullContent())
	assert.Equal(t, 1, f.adapter.calls)
}

func TestSubmitReviseMessage(t *testing.T) {
	f := newFixture(t)
	f.storeAnthropicKey(t)
	f.adapter.text = "INT. NIGHT"

	rec := f.do(t, http.MethodPost, "/v1/session/messages",
		`{"mode":"revise","prompt":"Make it night","model":"claude-3-haiku-20240307"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result session.SubmitResult
	require.NoError(t, json.Unmarshal(mustMarshal(t, decodeEnvelope(t, rec).Data), &result))

	assert.True(t, result.DocumentReplaced)
	assert.Equal(t, "INT. NIGHT", f.doc.FullContent())
}

func TestSubmitMissingKeyRecordsErrorTurn(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/session/messages",
		`{"mode":"chat","prompt":"Hello","model":"claude-3-haiku-20240307"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result session.SubmitResult
	require.NoError(t, json.Unmarshal(mustMarshal(t, decodeEnvelope(t, rec).Data), &result))

	assert.True(t, result.Failed)
	assert.Equal(t, "Error: API key is missing", result.Reply.Text)
	assert.Equal(t, 0, f.adapter.calls)
}

func TestSubmitInvalidMode(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/session/messages",
		`{"mode":"summarise","prompt":"Hello","model":"claude-3-haiku-20240307"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitEmptyPrompt(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/session/messages",
		`{"mode":"chat","prompt":"   ","model":"claude-3-haiku-20240307"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRejectsTrailingGarbage(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/session/messages",
		`{"mode":"chat","prompt":"Hello","model":"claude-3-haiku-20240307"} {"again":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTurnsAfterConversation(t *testing.T) {
	f := newFixture(t)
	f.storeAnthropicKey(t)

	_ = f.do(t, http.MethodPost, "/v1/session/messages",
		`{"mode":"chat","prompt":"Hello","model":"claude-3-haiku-20240307"}`)

	rec := f.do(t, http.MethodGet, "/v1/session/turns", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		State session.State     `json:"state"`
		Turns []generation.Turn `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(mustMarshal(t, decodeEnvelope(t, rec).Data), &data))

	assert.Equal(t, session.StateIdle, data.State)
	require.Len(t, data.Turns, 2)
	assert.Equal(t, generation.SenderUser, data.Turns[0].Sender)
	assert.Equal(t, generation.SenderAI, data.Turns[1].Sender)
}
