package resolver

import (
	"context"
	"errors"
	"log/slog"

	"modelmux/internal/adapters"
	"modelmux/internal/catalog"
	"modelmux/internal/core"
	"modelmux/internal/metrics"
	"modelmux/internal/secrets"
)

// Router resolves a tenant's request to a ready client for one capability.
// Every lookup, hit or miss, walks the provision -> model -> provider chain in
// the catalog, so a row flipped inactive takes effect on the next request.
type Router[T any] struct {
	catalog catalog.Store
	secrets secrets.Decrypter
	factory *adapters.Factory[T]
	cache   *ClientCache[T]
	logger  *slog.Logger
}

func NewRouter[T any](cat catalog.Store, dec secrets.Decrypter, factory *adapters.Factory[T], logger *slog.Logger) *Router[T] {
	return &Router[T]{
		catalog: cat,
		secrets: dec,
		factory: factory,
		cache:   NewClientCache[T](),
		logger:  logger.With("capability", string(factory.Capability())),
	}
}

// Cache exposes the underlying cache for administrative eviction.
func (r *Router[T]) Cache() *ClientCache[T] { return r.cache }

// ResolveProvision returns a client for the given provision. A cached client
// is revalidated against the catalog before it is returned; a dead link in
// the chain evicts the entry and fails with the matching *Disabled code.
func (r *Router[T]) ResolveProvision(ctx context.Context, provisionID int64) (T, error) {
	var zero T
	capability := string(r.factory.Capability())

	provision, model, provider, err := r.liveChain(ctx, provisionID)
	if err != nil {
		if _, cached := r.cache.Get(provisionID); cached {
			r.cache.Evict(provisionID)
			metrics.ClientCacheEvictions.WithLabelValues(capability).Inc()
			r.logger.Info("evicted cached client", "provision_id", provisionID, "reason", err)
		}
		return zero, err
	}

	if client, ok := r.cache.Get(provisionID); ok {
		metrics.ClientCacheHits.WithLabelValues(capability).Inc()
		return client, nil
	}
	metrics.ClientCacheMisses.WithLabelValues(capability).Inc()

	secret, err := r.decrypt(provision)
	if err != nil {
		return zero, err
	}
	client, err := r.factory.Build(adapters.BuildInput{
		Provider:  provider,
		Model:     model,
		Provision: provision,
		Secret:    secret,
	})
	if err != nil {
		return zero, err
	}
	r.cache.Put(provisionID, client)
	r.logger.Debug("built client", "provision_id", provisionID, "provider", provider.Code, "model", model.Code)
	return client, nil
}

// ResolveModel finds the tenant's active provision for the model and resolves
// it. A Resolved carries the catalog rows alongside the client so callers can
// price and label the turn without a second lookup.
func (r *Router[T]) ResolveModel(ctx context.Context, tenantID string, modelID int64) (*Resolved[T], error) {
	provision, err := r.catalog.FindActiveProvision(ctx, tenantID, modelID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, core.Errorf(core.CodeProvisionNotFound,
				"tenant %s has no active provision for model %d", tenantID, modelID)
		}
		return nil, err
	}
	return r.resolved(ctx, provision.ID)
}

// ResolveDefault resolves the tenant's default provision for this router's
// capability.
func (r *Router[T]) ResolveDefault(ctx context.Context, tenantID string) (*Resolved[T], error) {
	provision, err := r.catalog.FindDefaultProvision(ctx, tenantID, r.factory.Capability())
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, core.Errorf(core.CodeDefaultModelNotConfigured,
				"tenant %s has no default %s model", tenantID, r.factory.Capability())
		}
		return nil, err
	}
	return r.resolved(ctx, provision.ID)
}

// Resolved pairs a ready client with the catalog rows it was built from.
type Resolved[T any] struct {
	Client    T
	Provision *catalog.Provision
	Model     *catalog.Model
	Provider  *catalog.Provider
}

func (r *Router[T]) resolved(ctx context.Context, provisionID int64) (*Resolved[T], error) {
	client, err := r.ResolveProvision(ctx, provisionID)
	if err != nil {
		return nil, err
	}
	// The chain was live moments ago in ResolveProvision; a second walk here
	// keeps the returned rows consistent with what the client was checked
	// against.
	provision, model, provider, err := r.liveChain(ctx, provisionID)
	if err != nil {
		return nil, err
	}
	return &Resolved[T]{Client: client, Provision: provision, Model: model, Provider: provider}, nil
}

// liveChain loads the provision, its model, and its provider, failing fast at
// the first missing or inactive link.
func (r *Router[T]) liveChain(ctx context.Context, provisionID int64) (*catalog.Provision, *catalog.Model, *catalog.Provider, error) {
	provision, err := r.catalog.FindProvision(ctx, provisionID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil, nil, core.Errorf(core.CodeProvisionDisabled, "provision %d not found", provisionID)
		}
		return nil, nil, nil, err
	}
	if !provision.Active {
		return nil, nil, nil, core.Errorf(core.CodeProvisionDisabled, "provision %d is disabled", provisionID)
	}
	model, err := r.catalog.FindModel(ctx, provision.ModelID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil, nil, core.Errorf(core.CodeModelDisabled, "model %d not found", provision.ModelID)
		}
		return nil, nil, nil, err
	}
	if !model.Active {
		return nil, nil, nil, core.Errorf(core.CodeModelDisabled, "model %s is disabled", model.Code)
	}
	provider, err := r.catalog.FindProvider(ctx, model.ProviderID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil, nil, core.Errorf(core.CodeProviderDisabled, "provider %d not found", model.ProviderID)
		}
		return nil, nil, nil, err
	}
	if !provider.Active {
		return nil, nil, nil, core.Errorf(core.CodeProviderDisabled, "provider %s is disabled", provider.Code)
	}
	return provision, model, provider, nil
}

func (r *Router[T]) decrypt(provision *catalog.Provision) (string, error) {
	if provision.EncCredential == "" {
		return "", core.Errorf(core.CodeCredentialMissing, "provision %d has no credential", provision.ID)
	}
	secret, err := r.secrets.Decrypt(provision.EncCredential)
	if err != nil {
		return "", core.NewError(core.CodeCredentialMissing, "credential decrypt failed", err)
	}
	if secret == "" {
		return "", core.Errorf(core.CodeCredentialMissing, "provision %d credential is empty", provision.ID)
	}
	return secret, nil
}
