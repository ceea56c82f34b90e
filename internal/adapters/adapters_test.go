package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmux/internal/catalog"
	"modelmux/internal/core"
)

func buildInput(protocol, vendorCode, baseURL, override string) BuildInput {
	return BuildInput{
		Provider: &catalog.Provider{
			Code:     vendorCode,
			Protocol: protocol,
			BaseURL:  baseURL,
		},
		Model:     &catalog.Model{Code: "m1", Capability: core.CapabilityChat},
		Provision: &catalog.Provision{EndpointOverride: override},
		Secret:    "sk-test",
	}
}

func TestFactoryVendorBeatsFallback(t *testing.T) {
	f := NewFactory[string](core.CapabilityChat)
	f.RegisterFamily(ProtocolOpenAICompatible, func(BuildInput) string { return "fallback" })
	f.RegisterVendor(ProtocolOpenAICompatible, VendorDeepSeek, func(BuildInput) string { return "deepseek" })

	got, err := f.Build(buildInput(ProtocolOpenAICompatible, VendorDeepSeek, "", ""))
	require.NoError(t, err)
	assert.Equal(t, "deepseek", got)
}

func TestFactoryUnknownVendorFallsBack(t *testing.T) {
	f := NewFactory[string](core.CapabilityChat)
	f.RegisterFamily(ProtocolOpenAICompatible, func(BuildInput) string { return "fallback" })

	got, err := f.Build(buildInput(ProtocolOpenAICompatible, "some-startup", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestFactoryUnknownFamily(t *testing.T) {
	f := NewFactory[string](core.CapabilityChat)
	f.RegisterFamily(ProtocolOpenAICompatible, func(BuildInput) string { return "fallback" })

	_, err := f.Build(buildInput("grpc-something", "x", "", ""))
	assert.True(t, core.IsCode(err, core.CodeUnsupportedProtocol), "got %v", err)
}

func TestFactoryFamilyWithoutFallback(t *testing.T) {
	f := NewFactory[string](core.CapabilityChat)
	f.RegisterVendor(ProtocolAnthropicCompatible, VendorAnthropic, func(BuildInput) string { return "anthropic" })

	_, err := f.Build(buildInput(ProtocolAnthropicCompatible, "other", "", ""))
	assert.True(t, core.IsCode(err, core.CodeUnsupportedProtocol), "got %v", err)
}

func TestBaseURLPriority(t *testing.T) {
	cases := []struct {
		name     string
		in       BuildInput
		fallback string
		want     string
	}{
		{"override wins", buildInput(ProtocolOpenAICompatible, "openai", "https://provider", "https://override"), "https://family", "https://override"},
		{"provider beats family", buildInput(ProtocolOpenAICompatible, "openai", "https://provider", ""), "https://family", "https://provider"},
		{"family default", buildInput(ProtocolOpenAICompatible, "openai", "", ""), "https://family", "https://family"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.BaseURL(tc.fallback))
		})
	}
}

func TestStockChatFactoryRegistrations(t *testing.T) {
	f := NewChatFactory()

	_, err := f.Build(buildInput(ProtocolOpenAICompatible, VendorDeepSeek, "", ""))
	assert.NoError(t, err, "deepseek")
	_, err = f.Build(buildInput(ProtocolOpenAICompatible, "moonshot", "https://api.moonshot.cn/v1", ""))
	assert.NoError(t, err, "openai-compatible fallback")
	_, err = f.Build(buildInput(ProtocolAnthropicCompatible, VendorAnthropic, "", ""))
	assert.NoError(t, err, "anthropic")
}

func TestStockEmbeddingFactoryHasNoAnthropic(t *testing.T) {
	f := NewEmbeddingFactory()
	_, err := f.Build(buildInput(ProtocolAnthropicCompatible, VendorAnthropic, "", ""))
	assert.True(t, core.IsCode(err, core.CodeUnsupportedProtocol), "got %v", err)
}
