package usage

import (
	"math"

	"modelmux/internal/catalog"
	"modelmux/internal/core"
)

// Cost computes the call cost from static per-Mtok pricing. Each side is
// rounded half-up to 6 decimals before summing. Returns nil when the model,
// the usage, or either price is unknown.
func Cost(model *catalog.Model, u *core.Usage) *float64 {
	if model == nil || u == nil {
		return nil
	}
	if model.InputPerMtok == nil || model.OutputPerMtok == nil {
		return nil
	}
	in := roundHalfUp(float64(u.InputTokens) * *model.InputPerMtok / 1_000_000)
	out := roundHalfUp(float64(u.OutputTokens) * *model.OutputPerMtok / 1_000_000)
	total := in + out
	return &total
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v*1e6+0.5) / 1e6
}
