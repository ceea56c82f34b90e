// Package adapters builds the stateless vendor protocol clients. The factory
// dispatches first on the provider's protocol family, then on its vendor
// code, falling back to the family's generic adapter for unknown but
// protocol-compatible vendors.
package adapters

import (
	"modelmux/internal/catalog"
	"modelmux/internal/core"
)

// Protocol family codes carried on catalog.Provider.Protocol.
const (
	ProtocolOpenAICompatible    = "openai-compatible"
	ProtocolAnthropicCompatible = "anthropic-compatible"
)

// Vendor codes with dedicated registrations.
const (
	VendorOpenAI    = "openai"
	VendorDeepSeek  = "deepseek"
	VendorAnthropic = "anthropic"
)

// BuildInput carries everything a builder needs to construct a client for one
// resolved provision.
type BuildInput struct {
	Provider  *catalog.Provider
	Model     *catalog.Model
	Provision *catalog.Provision
	Secret    string
}

// BaseURL resolves the effective endpoint: provision override beats the
// provider's base URL, which beats the family default.
func (in BuildInput) BaseURL(familyDefault string) string {
	if in.Provision != nil && in.Provision.EndpointOverride != "" {
		return in.Provision.EndpointOverride
	}
	if in.Provider != nil && in.Provider.BaseURL != "" {
		return in.Provider.BaseURL
	}
	return familyDefault
}

// Builder constructs one client kind from a resolved provision.
type Builder[T any] func(in BuildInput) T

type familyTable[T any] struct {
	fallback Builder[T]
	vendors  map[string]Builder[T]
}

// Factory is the per-capability dispatch table. Registration happens at
// startup; lookups afterwards are read-only, so no locking is needed.
type Factory[T any] struct {
	capability core.Capability
	families   map[string]*familyTable[T]
}

// NewFactory creates an empty factory for one capability.
func NewFactory[T any](capability core.Capability) *Factory[T] {
	return &Factory[T]{
		capability: capability,
		families:   make(map[string]*familyTable[T]),
	}
}

// Capability returns the capability this factory serves.
func (f *Factory[T]) Capability() core.Capability { return f.capability }

// RegisterFamily installs the generic fallback adapter for a protocol family.
func (f *Factory[T]) RegisterFamily(protocol string, fallback Builder[T]) {
	f.table(protocol).fallback = fallback
}

// RegisterVendor installs a vendor-specific adapter within a family.
func (f *Factory[T]) RegisterVendor(protocol, vendorCode string, b Builder[T]) {
	f.table(protocol).vendors[vendorCode] = b
}

func (f *Factory[T]) table(protocol string) *familyTable[T] {
	t, ok := f.families[protocol]
	if !ok {
		t = &familyTable[T]{vendors: make(map[string]Builder[T])}
		f.families[protocol] = t
	}
	return t
}

// Build constructs a client for the resolved provision. An unknown vendor
// code within a known family uses the family fallback; an unknown family
// fails with UnsupportedProtocol.
func (f *Factory[T]) Build(in BuildInput) (T, error) {
	var zero T
	table, ok := f.families[in.Provider.Protocol]
	if !ok {
		return zero, core.Errorf(core.CodeUnsupportedProtocol,
			"no %s adapter for protocol family %q", f.capability, in.Provider.Protocol)
	}
	if b, ok := table.vendors[in.Provider.Code]; ok {
		return b(in), nil
	}
	if table.fallback == nil {
		return zero, core.Errorf(core.CodeUnsupportedProtocol,
			"protocol family %q has no fallback %s adapter", in.Provider.Protocol, f.capability)
	}
	return table.fallback(in), nil
}

// NewChatFactory returns the chat factory with the stock registrations.
func NewChatFactory() *Factory[core.ChatClient] {
	f := NewFactory[core.ChatClient](core.CapabilityChat)
	f.RegisterFamily(ProtocolOpenAICompatible, func(in BuildInput) core.ChatClient {
		return newOpenAIChatClient(in, openaiDefaultBaseURL)
	})
	f.RegisterVendor(ProtocolOpenAICompatible, VendorDeepSeek, func(in BuildInput) core.ChatClient {
		// The beta host accepts assistant prefix messages.
		return newOpenAIChatClient(in, deepseekDefaultBaseURL)
	})
	f.RegisterFamily(ProtocolAnthropicCompatible, func(in BuildInput) core.ChatClient {
		return newAnthropicChatClient(in)
	})
	return f
}

// NewEmbeddingFactory returns the embedding factory with the stock
// registrations. Anthropic-compatible vendors expose no embeddings endpoint,
// so only the OpenAI-compatible family is registered.
func NewEmbeddingFactory() *Factory[core.EmbeddingClient] {
	f := NewFactory[core.EmbeddingClient](core.CapabilityEmbedding)
	f.RegisterFamily(ProtocolOpenAICompatible, func(in BuildInput) core.EmbeddingClient {
		return newOpenAIEmbeddingClient(in)
	})
	return f
}
