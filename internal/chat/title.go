package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"modelmux/internal/conversation"
	"modelmux/internal/core"
	"modelmux/internal/metrics"
)

const titleInstruction = "Summarize the following message as a conversation title. " +
	"At most 20 characters, no quotes or punctuation, answer with the title only.\n\n%s"

// maxTitleRunes caps the persisted title length, truncation marker included.
const maxTitleRunes = 255

const titleTruncationMarker = "..."

// quoteCutset covers straight quotes and the common curly variants models
// like to wrap titles in.
const quoteCutset = "\"'“”‘’"

// generateTitle runs the fire-and-forget title call for a new conversation's
// first turn. Every failure path logs and leaves the placeholder title in
// place.
func generateTitle(ctx context.Context, store conversation.Store, client core.ChatClient, logger *slog.Logger, modelCode, conversationID, firstMessage string) error {
	resp, err := client.Chat(ctx, &core.ChatRequest{
		Model: modelCode,
		Messages: []core.Message{
			{Role: core.RoleUser, Content: fmt.Sprintf(titleInstruction, firstMessage)},
		},
	})
	if err != nil {
		metrics.SideEffectFailures.WithLabelValues("title").Inc()
		return fmt.Errorf("title call for conversation %s: %w", conversationID, err)
	}

	title := cleanTitle(resp.Content)
	if title == "" {
		logger.Debug("title generation produced empty title", "conversation_id", conversationID)
		return nil
	}
	if err := store.UpdateTitle(ctx, conversationID, title); err != nil {
		metrics.SideEffectFailures.WithLabelValues("title").Inc()
		return fmt.Errorf("persist title for conversation %s: %w", conversationID, err)
	}
	return nil
}

// cleanTitle strips wrapping quotes and whitespace, then truncates to
// maxTitleRunes with a trailing marker.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, quoteCutset)
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	keep := maxTitleRunes - len([]rune(titleTruncationMarker))
	return string(runes[:keep]) + titleTruncationMarker
}
