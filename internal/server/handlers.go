package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"scriptstudio/internal/catalog"
	"scriptstudio/internal/generation"
	"scriptstudio/internal/session"
)

// envelope is the uniform response shape the shell consumes. Exactly one
// of Data or Error is populated.
type envelope struct {
	Success  bool            `json:"success"`
	Data     any             `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
	RawError json.RawMessage `json:"raw_error,omitempty"`
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(c echo.Context) error {
	return ok(c, map[string]any{"models": catalog.Entries()})
}

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) handleSetCredential(c echo.Context) error {
	providerID := c.Param("provider")
	if !catalog.KnownProvider(providerID) {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("unknown provider %q", providerID),
		}
	}

	var req credentialRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "api_key must not be empty",
		}
	}

	serviceName, err := catalog.CredentialKey(providerID)
	if err != nil {
		return requestError{Status: http.StatusBadRequest, Message: err.Error()}
	}
	if err := s.creds.Set(serviceName, req.APIKey); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}

	return ok(c, map[string]string{"provider": providerID})
}

func (s *Server) handleValidateCredential(c echo.Context) error {
	providerID := c.Param("provider")
	if !catalog.KnownProvider(providerID) {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("unknown provider %q", providerID),
		}
	}

	var req credentialRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	if err := s.orch.ValidateCredential(c.Request().Context(), providerID, req.APIKey); err != nil {
		genErr := generation.AsError(err)
		return ok(c, map[string]any{"ok": false, "message": genErr.Message})
	}
	return ok(c, map[string]any{"ok": true})
}

func (s *Server) handleGetDocument(c echo.Context) error {
	return ok(c, map[string]string{"content": s.doc.FullContent()})
}

type documentRequest struct {
	Content string `json:"content"`
}

// handleReplaceDocument is the user-typing path. Edits are rejected while
// a generation is in flight so user typing and AI replacement stay
// serialized, matching the shell disabling the editor.
func (s *Server) handleReplaceDocument(c echo.Context) error {
	var req documentRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	if err := s.session.ReplaceDocument(req.Content); err != nil {
		return requestError{
			Status:  http.StatusConflict,
			Message: "document is locked while a generation is in flight",
		}
	}
	return ok(c, map[string]string{"content": req.Content})
}

func (s *Server) handleListTurns(c echo.Context) error {
	return ok(c, map[string]any{
		"state": s.session.State(),
		"turns": s.session.Turns(),
	})
}

type submitRequest struct {
	Mode   string `json:"mode"`
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

func (s *Server) handleSubmitMessage(c echo.Context) error {
	var req submitRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	mode, err := generation.ParseMode(req.Mode)
	if err != nil {
		return requestError{Status: http.StatusBadRequest, Message: err.Error()}
	}

	result, err := s.session.Submit(c.Request().Context(), mode, req.Prompt, req.Model)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			return requestError{Status: http.StatusConflict, Message: err.Error()}
		}
		var genErr *generation.Error
		if errors.As(err, &genErr) && genErr.Kind == generation.KindValidation {
			return requestError{Status: http.StatusBadRequest, Message: genErr.Message}
		}
		return err
	}

	return ok(c, result)
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = c.JSON(reqErr.Status, envelope{Success: false, Error: reqErr.Message})
		return
	}

	var genErr *generation.Error
	if errors.As(err, &genErr) {
		_ = c.JSON(http.StatusBadGateway, envelope{
			Success:  false,
			Error:    genErr.Message,
			RawError: genErr.RawDetail,
		})
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, envelope{Success: false, Error: fmt.Sprintf("%v", httpErr.Message)})
		return
	}

	_ = c.JSON(http.StatusInternalServerError, envelope{Success: false, Error: "internal server error"})
}
