package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"modelmux/internal/chat"
	"modelmux/internal/core"
	"modelmux/internal/embeddings"
)

// Handler holds the route implementations.
type Handler struct {
	chat       *chat.Service
	embeddings *embeddings.Service
	logger     *slog.Logger
}

type streamChatRequest struct {
	TenantID       string            `json:"tenant_id"`
	UserID         string            `json:"user_id"`
	ConversationID string            `json:"conversation_id,omitempty"`
	ModelID        *int64            `json:"model_id,omitempty"`
	Message        string            `json:"message"`
	SystemPrompt   string            `json:"system_prompt,omitempty"`
	TemplateID     *int64            `json:"template_id,omitempty"`
	TemplateVars   map[string]string `json:"template_vars,omitempty"`
}

// StreamChat handles POST /v1/chat/stream. Events go out as SSE; the stream
// ends with a done event and a [DONE] sentinel. Errors before the first event
// map to a JSON error response; errors mid-stream terminate the stream
// without the done event.
func (h *Handler) StreamChat(c echo.Context) error {
	var req streamChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_request", "invalid request body"))
	}
	if req.TenantID == "" || req.UserID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_request", "tenant_id, user_id and message are required"))
	}

	w := c.Response()
	started := false
	emit := func(e chat.Event) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := writeEvent(w, e); err != nil {
			return err
		}
		w.Flush()
		return nil
	}

	err := h.chat.StreamChat(c.Request().Context(), &chat.Request{
		TenantID:       req.TenantID,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		ModelID:        req.ModelID,
		Message:        req.Message,
		SystemPrompt:   req.SystemPrompt,
		TemplateID:     req.TemplateID,
		TemplateVars:   req.TemplateVars,
	}, emit)
	if err != nil {
		if !started {
			return handleError(c, err)
		}
		// Headers are gone; the truncated stream is the error signal.
		h.logger.Warn("stream aborted", "error", err)
		return nil
	}

	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return nil
	}
	w.Flush()
	return nil
}

func writeEvent(w *echo.Response, e chat.Event) error {
	if e.Type == chat.EventDone {
		_, err := fmt.Fprint(w, "event: done\ndata: \n\n")
		return err
	}
	// JSON-encode the chunk so embedded newlines survive SSE framing.
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload)
	return err
}

type embeddingsRequest struct {
	TenantID string   `json:"tenant_id"`
	UserID   string   `json:"user_id"`
	ModelID  *int64   `json:"model_id,omitempty"`
	Input    []string `json:"input"`
}

// Embeddings handles POST /v1/embeddings.
func (h *Handler) Embeddings(c echo.Context) error {
	var req embeddingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_request", "invalid request body"))
	}
	if req.TenantID == "" || req.UserID == "" || len(req.Input) == 0 {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_request", "tenant_id, user_id and input are required"))
	}

	resp, err := h.embeddings.Embed(c.Request().Context(), &embeddings.Request{
		TenantID: req.TenantID,
		UserID:   req.UserID,
		ModelID:  req.ModelID,
		Input:    req.Input,
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteConversationMemory handles DELETE /v1/conversations/:id. It clears
// the conversation's stored history; row deletion itself belongs to the
// surrounding CRUD service.
func (h *Handler) DeleteConversationMemory(c echo.Context) error {
	tenantID := c.QueryParam("tenant_id")
	userID := c.QueryParam("user_id")
	if tenantID == "" || userID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_request", "tenant_id and user_id are required"))
	}
	if err := h.chat.ClearMemory(c.Request().Context(), tenantID, userID, c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Health handles GET /health.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func handleError(c echo.Context, err error) error {
	var gwErr *core.Error
	if errors.As(err, &gwErr) {
		return c.JSON(gwErr.HTTPStatusCode(), map[string]any{
			"error": map[string]any{
				"code":    gwErr.Code,
				"message": gwErr.Message,
			},
		})
	}
	return c.JSON(http.StatusInternalServerError, errorBody("internal_error", "an unexpected error occurred"))
}

func errorBody(code, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{"code": code, "message": message},
	}
}
