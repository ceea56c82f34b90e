// Package catalog holds the persisted Provider, Model, and Provision records
// and their lookup store. The records are read-only from the gateway core;
// admin CRUD lives elsewhere.
package catalog

import (
	"context"
	"errors"
	"time"

	"modelmux/internal/core"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Provider is a vendor definition.
type Provider struct {
	ID        int64
	Code      string
	Protocol  string
	BaseURL   string
	Active    bool
	CreatedAt time.Time
}

// Model is one offering of a Provider.
type Model struct {
	ID         int64
	ProviderID int64
	Code       string
	Capability core.Capability

	SupportsVision           bool
	SupportsToolCall         bool
	SupportsStructuredOutput bool
	SupportsStreaming        bool
	SupportsReasoning        bool

	ContextWindow   int
	MaxOutputTokens int

	// Pricing per million tokens; nil when the tenant has not configured it.
	InputPerMtok  *float64
	OutputPerMtok *float64

	Active    bool
	CreatedAt time.Time
}

// Provision links one tenant to one Model with its own credential and
// optional endpoint override. The provision id is the client cache key.
type Provision struct {
	ID               int64
	TenantID         string
	ModelID          int64
	EndpointOverride string
	EncCredential    string
	IsDefault        bool
	Active           bool
	CreatedAt        time.Time
}

// Store exposes the point lookups the resolution router needs.
// Implementations must be safe for concurrent use.
type Store interface {
	FindProvider(ctx context.Context, id int64) (*Provider, error)
	FindModel(ctx context.Context, id int64) (*Model, error)
	FindProvision(ctx context.Context, id int64) (*Provision, error)

	// FindActiveProvision returns the tenant's active provision for the model.
	FindActiveProvision(ctx context.Context, tenantID string, modelID int64) (*Provision, error)

	// FindDefaultProvision returns the tenant's default-flagged active
	// provision for the capability.
	FindDefaultProvision(ctx context.Context, tenantID string, capability core.Capability) (*Provision, error)
}
