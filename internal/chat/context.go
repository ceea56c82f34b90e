package chat

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"

	"modelmux/internal/catalog"
	"modelmux/internal/conversation"
	"modelmux/internal/core"
	"modelmux/internal/resolver"
)

// placeholderTitleRunes is how much of the first user message seeds the title
// before the real one is generated.
const placeholderTitleRunes = 30

// Request is one inbound chat turn.
type Request struct {
	TenantID       string
	UserID         string
	ConversationID string
	ModelID        *int64
	Message        string
	SystemPrompt   string
	TemplateID     *int64
	TemplateVars   map[string]string
}

// turnContext is everything Prepare resolves before the model call.
type turnContext struct {
	Conversation      *conversation.Conversation
	IsNew             bool
	Client            core.ChatClient
	Model             *catalog.Model
	ProviderCode      string
	SupportsReasoning bool
	SystemPrompt      string
}

// contextBuilder loads or creates the conversation and resolves the client.
type contextBuilder struct {
	conversations conversation.Store
	router        *resolver.Router[core.ChatClient]
}

// Prepare resolves the turn context. For an existing conversation it enforces
// ownership and inherits the bound model and prompt; otherwise it persists a
// fresh conversation row before any model call happens.
func (b *contextBuilder) Prepare(ctx context.Context, req *Request) (*turnContext, error) {
	tc := &turnContext{}

	if req.ConversationID != "" {
		conv, err := b.conversations.Find(ctx, req.ConversationID)
		if err != nil {
			if errors.Is(err, conversation.ErrNotFound) {
				return nil, core.Errorf(core.CodeConversationNotFound,
					"conversation %s not found", req.ConversationID)
			}
			return nil, err
		}
		if conv.TenantID != req.TenantID || conv.UserID != req.UserID {
			return nil, core.Errorf(core.CodeConversationNotOwned,
				"conversation %s does not belong to user %s", req.ConversationID, req.UserID)
		}
		tc.Conversation = conv
		tc.SystemPrompt = conv.SystemPrompt
	} else {
		prompt, err := b.resolvePrompt(ctx, req)
		if err != nil {
			return nil, err
		}
		conv := &conversation.Conversation{
			ID:           uuid.NewString(),
			TenantID:     req.TenantID,
			UserID:       req.UserID,
			ModelID:      req.ModelID,
			SystemPrompt: prompt,
			Title:        placeholderTitle(req.Message),
		}
		if err := b.conversations.Insert(ctx, conv); err != nil {
			return nil, err
		}
		tc.Conversation = conv
		tc.SystemPrompt = prompt
		tc.IsNew = true
	}

	modelID := req.ModelID
	if modelID == nil {
		modelID = tc.Conversation.ModelID
	}

	var resolved *resolver.Resolved[core.ChatClient]
	var err error
	if modelID != nil {
		resolved, err = b.router.ResolveModel(ctx, req.TenantID, *modelID)
	} else {
		resolved, err = b.router.ResolveDefault(ctx, req.TenantID)
	}
	if err != nil {
		return nil, err
	}
	tc.Client = resolved.Client
	tc.Model = resolved.Model
	tc.ProviderCode = resolved.Provider.Code
	tc.SupportsReasoning = resolved.Model.SupportsReasoning
	return tc, nil
}

// resolvePrompt applies the priority template reference > inline prompt >
// none.
func (b *contextBuilder) resolvePrompt(ctx context.Context, req *Request) (string, error) {
	if req.TemplateID != nil {
		tmpl, err := b.conversations.FindTemplate(ctx, *req.TemplateID)
		if err != nil {
			if errors.Is(err, conversation.ErrNotFound) {
				return "", core.Errorf(core.CodeTemplateNotFound,
					"prompt template %d not found", *req.TemplateID)
			}
			return "", err
		}
		return conversation.RenderTemplate(tmpl, req.TemplateVars)
	}
	return req.SystemPrompt, nil
}

func placeholderTitle(message string) string {
	if utf8.RuneCountInString(message) <= placeholderTitleRunes {
		return message
	}
	runes := []rune(message)
	return string(runes[:placeholderTitleRunes])
}
