package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"modelmux/internal/conversation"
	"modelmux/internal/core"
	"modelmux/internal/metrics"
	"modelmux/internal/resolver"
	"modelmux/internal/tasks"
	"modelmux/internal/usage"
)

// continueUserMessage is the synthetic user turn stored after a successful
// prefix continuation.
const continueUserMessage = "continue"

// Service drives streaming chat turns end to end.
type Service struct {
	builder  *contextBuilder
	memory   conversation.MemoryStore
	recorder *usage.Recorder
	runner   *tasks.Runner
	logger   *slog.Logger
}

func NewService(
	conversations conversation.Store,
	memory conversation.MemoryStore,
	router *resolver.Router[core.ChatClient],
	recorder *usage.Recorder,
	runner *tasks.Runner,
	logger *slog.Logger,
) *Service {
	return &Service{
		builder:  &contextBuilder{conversations: conversations, router: router},
		memory:   memory,
		recorder: recorder,
		runner:   runner,
		logger:   logger,
	}
}

// StreamChat runs one chat turn, delivering typed events to emit in order.
// Configuration and ownership errors return before any event is emitted. A
// successful stream ends with exactly one done event; an upstream failure
// returns the error with no done event. Completion bookkeeping runs after the
// stream closes and never blocks or fails the turn.
func (s *Service) StreamChat(ctx context.Context, req *Request, emit Sink) error {
	start := time.Now()
	tc, err := s.builder.Prepare(ctx, req)
	if err != nil {
		return err
	}
	if eligibleForContinuation(tc, req.Message) {
		return s.streamContinuation(ctx, req, tc, emit, start)
	}
	return s.streamNormal(ctx, req, tc, emit, start)
}

func (s *Service) streamNormal(ctx context.Context, req *Request, tc *turnContext, emit Sink, start time.Time) error {
	metrics.StreamsStarted.WithLabelValues("normal").Inc()

	history, err := s.memory.Get(ctx, tc.Conversation.ID)
	if err != nil {
		return fmt.Errorf("load conversation memory: %w", err)
	}

	messages := make([]core.Message, 0, len(history)+2)
	if tc.SystemPrompt != "" {
		messages = append(messages, core.Message{Role: core.RoleSystem, Content: tc.SystemPrompt})
	}
	for _, entry := range history {
		messages = append(messages, core.Message{Role: entry.Role, Content: entry.Content})
	}
	messages = append(messages, core.Message{Role: core.RoleUser, Content: req.Message})

	res, err := s.runStream(ctx, tc, messages, emit)
	if err != nil {
		metrics.StreamsFailed.WithLabelValues("normal").Inc()
		s.recorder.Record(s.buildRecord(req, tc, res, usage.KindChat, start, err))
		return err
	}

	// A rejected done event is a caller disconnect after the upstream call
	// already completed; the turn is still persisted and accounted for.
	doneErr := emit(Event{Type: EventDone})
	convID := tc.Conversation.ID
	s.appendMemory(convID, req.Message, res.answer.String())
	s.recorder.Record(s.buildRecord(req, tc, res, usage.KindChat, start, doneErr))
	if doneErr != nil {
		metrics.StreamsFailed.WithLabelValues("normal").Inc()
		return doneErr
	}
	if tc.IsNew {
		client, modelCode := tc.Client, tc.Model.Code
		s.runner.Go("title-generate", func(ctx context.Context) error {
			return generateTitle(ctx, s.builder.conversations, client, s.logger, modelCode, convID, req.Message)
		})
	}
	return nil
}

// streamContinuation resumes the last assistant message through the vendor's
// prefix mode: the stored history is replayed with that message recast as a
// generation prefix, and the generated tail is appended to memory afterwards.
func (s *Service) streamContinuation(ctx context.Context, req *Request, tc *turnContext, emit Sink, start time.Time) error {
	metrics.StreamsStarted.WithLabelValues("prefix").Inc()

	history, err := s.memory.Get(ctx, tc.Conversation.ID)
	if err != nil {
		return fmt.Errorf("load conversation memory: %w", err)
	}
	if len(history) == 0 {
		return core.Errorf(core.CodePrefixContinueNoHistory,
			"conversation %s has no history to continue", tc.Conversation.ID)
	}

	last := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == core.RoleAssistant {
			last = i
			break
		}
	}
	if last < 0 || strings.TrimSpace(history[last].Content) == "" {
		return core.Errorf(core.CodePrefixContinueNoHistory,
			"conversation %s has no assistant message to continue", tc.Conversation.ID)
	}

	messages := make([]core.Message, 0, len(history))
	for i, entry := range history {
		if i == last {
			continue
		}
		messages = append(messages, core.Message{Role: entry.Role, Content: entry.Content})
	}
	messages = append(messages, core.Message{
		Role:    core.RoleAssistant,
		Content: history[last].Content,
		Prefix:  true,
	})

	res, err := s.runStream(ctx, tc, messages, emit)
	if err != nil {
		metrics.StreamsFailed.WithLabelValues("prefix").Inc()
		s.recorder.Record(s.buildRecord(req, tc, res, usage.KindChatContinue, start, err))
		return err
	}

	doneErr := emit(Event{Type: EventDone})
	s.appendMemory(tc.Conversation.ID, continueUserMessage, res.answer.String())
	s.recorder.Record(s.buildRecord(req, tc, res, usage.KindChatContinue, start, doneErr))
	if doneErr != nil {
		metrics.StreamsFailed.WithLabelValues("prefix").Inc()
		return doneErr
	}
	return nil
}

// appendMemory persists the turn's two new entries off the request path.
// Write failures are counted and logged by the runner, never surfaced.
func (s *Service) appendMemory(convID, userMessage, answer string) {
	s.runner.Go("memory-append", func(ctx context.Context) error {
		err := s.memory.Append(ctx, convID,
			conversation.MemoryEntry{Role: core.RoleUser, Content: userMessage},
			conversation.MemoryEntry{Role: core.RoleAssistant, Content: answer},
		)
		if err != nil {
			metrics.SideEffectFailures.WithLabelValues("memory_append").Inc()
		}
		return err
	})
}

// streamResult carries what the frame loop captured: accumulated answer text
// and the last non-empty usage and finish reason seen.
type streamResult struct {
	answer strings.Builder
	usage  *core.Usage
	finish string
}

// runStream issues the model call and multiplexes frames into events.
// Reasoning for a frame is always emitted before that frame's answer text.
func (s *Service) runStream(ctx context.Context, tc *turnContext, messages []core.Message, emit Sink) (*streamResult, error) {
	res := &streamResult{}

	stream, err := tc.Client.StreamChat(ctx, &core.ChatRequest{
		Model:    tc.Model.Code,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return res, err
	}
	defer stream.Close()

	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		if frame.Usage != nil {
			res.usage = frame.Usage
		}
		if frame.FinishReason != "" {
			res.finish = frame.FinishReason
		}
		if tc.SupportsReasoning && frame.Reasoning != "" {
			if err := emit(Event{Type: EventReasoning, Data: frame.Reasoning}); err != nil {
				return res, err
			}
		}
		if frame.Content != "" {
			res.answer.WriteString(frame.Content)
			if err := emit(Event{Type: EventAnswer, Data: frame.Content}); err != nil {
				return res, err
			}
		}
	}
}

func (s *Service) buildRecord(req *Request, tc *turnContext, res *streamResult, kind string, start time.Time, streamErr error) *usage.Record {
	rec := &usage.Record{
		TenantID:       req.TenantID,
		UserID:         req.UserID,
		ConversationID: tc.Conversation.ID,
		RequestKind:    kind,
		Duration:       time.Since(start),
		FinishReason:   res.finish,
		Success:        streamErr == nil,
	}
	if tc.Model != nil {
		rec.ModelID = &tc.Model.ID
	}
	if streamErr != nil {
		rec.ErrorText = streamErr.Error()
	}
	if res.usage != nil {
		rec.InputTokens = res.usage.InputTokens
		rec.OutputTokens = res.usage.OutputTokens
		rec.TotalTokens = res.usage.TotalTokens
		rec.Cost = usage.Cost(tc.Model, res.usage)
	}
	return rec
}

// ClearMemory removes the stored history for a conversation the caller owns.
// Called by the transport when a conversation is deleted.
func (s *Service) ClearMemory(ctx context.Context, tenantID, userID, conversationID string) error {
	conv, err := s.builder.conversations.Find(ctx, conversationID)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return core.Errorf(core.CodeConversationNotFound, "conversation %s not found", conversationID)
		}
		return err
	}
	if conv.TenantID != tenantID || conv.UserID != userID {
		return core.Errorf(core.CodeConversationNotOwned,
			"conversation %s does not belong to user %s", conversationID, userID)
	}
	return s.memory.Clear(ctx, conversationID)
}
