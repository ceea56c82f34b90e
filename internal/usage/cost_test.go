package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmux/internal/catalog"
	"modelmux/internal/core"
)

func pricedModel(in, out float64) *catalog.Model {
	return &catalog.Model{InputPerMtok: &in, OutputPerMtok: &out}
}

func TestCost(t *testing.T) {
	got := Cost(pricedModel(2.00, 6.00), &core.Usage{InputTokens: 1_000_000, OutputTokens: 500_000})
	require.NotNil(t, got)
	assert.InDelta(t, 5.000000, *got, 1e-9)
}

func TestCostRoundsHalfUpPerSide(t *testing.T) {
	// 1 token at 0.75/Mtok = 0.00000075, rounds up to 0.000001 per side.
	got := Cost(pricedModel(0.75, 0.75), &core.Usage{InputTokens: 1, OutputTokens: 1})
	require.NotNil(t, got)
	assert.InDelta(t, 0.000002, *got, 1e-12)
}

func TestCostZeroUsage(t *testing.T) {
	got := Cost(pricedModel(2.00, 6.00), &core.Usage{})
	require.NotNil(t, got)
	assert.Zero(t, *got)
}

func TestCostUnknownInputs(t *testing.T) {
	price := 2.0
	tests := []struct {
		name  string
		model *catalog.Model
		usage *core.Usage
	}{
		{"nil model", nil, &core.Usage{InputTokens: 10}},
		{"nil usage", pricedModel(2, 6), nil},
		{"no pricing", &catalog.Model{}, &core.Usage{InputTokens: 10}},
		{"missing output price", &catalog.Model{InputPerMtok: &price}, &core.Usage{InputTokens: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Cost(tt.model, tt.usage))
		})
	}
}
