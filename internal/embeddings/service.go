// Package embeddings serves embedding requests through the resolved tenant
// provisions, recording usage the same way chat turns do.
package embeddings

import (
	"context"
	"log/slog"
	"time"

	"modelmux/internal/core"
	"modelmux/internal/resolver"
	"modelmux/internal/usage"
)

// Request identifies the tenant, the caller, and the texts to embed. A nil
// ModelID selects the tenant's default embedding model.
type Request struct {
	TenantID string
	UserID   string
	ModelID  *int64
	Input    []string
}

// Service resolves the embedding client and runs the call.
type Service struct {
	router   *resolver.Router[core.EmbeddingClient]
	recorder *usage.Recorder
	logger   *slog.Logger
}

func NewService(router *resolver.Router[core.EmbeddingClient], recorder *usage.Recorder, logger *slog.Logger) *Service {
	return &Service{router: router, recorder: recorder, logger: logger}
}

// Embed resolves the model, calls the vendor, and records usage off the
// request path. Resolution failures carry the same error codes as chat.
func (s *Service) Embed(ctx context.Context, req *Request) (*core.EmbeddingResponse, error) {
	start := time.Now()

	var (
		res *resolver.Resolved[core.EmbeddingClient]
		err error
	)
	if req.ModelID != nil {
		res, err = s.router.ResolveModel(ctx, req.TenantID, *req.ModelID)
	} else {
		res, err = s.router.ResolveDefault(ctx, req.TenantID)
	}
	if err != nil {
		return nil, err
	}

	resp, err := res.Client.Embed(ctx, &core.EmbeddingRequest{
		Model: res.Model.Code,
		Input: req.Input,
	})
	s.recorder.Record(s.buildRecord(req, res, resp, start, err))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) buildRecord(req *Request, res *resolver.Resolved[core.EmbeddingClient], resp *core.EmbeddingResponse, start time.Time, callErr error) *usage.Record {
	rec := &usage.Record{
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		ModelID:     &res.Model.ID,
		RequestKind: usage.KindEmbedding,
		Duration:    time.Since(start),
		Success:     callErr == nil,
	}
	if callErr != nil {
		rec.ErrorText = callErr.Error()
	}
	if resp != nil && resp.Usage != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.TotalTokens = resp.Usage.TotalTokens
		rec.Cost = usage.Cost(res.Model, resp.Usage)
	}
	return rec
}
