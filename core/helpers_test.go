package core

import (
	"github.com/signalsfoundry/cascade-simulator/model"
)

// passthroughRules makes every zone release exactly its inflow, which
// keeps chains transparent for routing tests.
func passthroughRules() map[model.Zone]model.RuleDefinition {
	rules := make(map[model.Zone]model.RuleDefinition)
	for _, z := range model.Zones() {
		rules[z] = model.RuleDefinition{Kind: model.RuleMatchInflow}
	}
	return rules
}

// testReservoir builds a valid definition with ample capacity, a linear
// storage-level curve, and passthrough rules. Vary fields per test.
func testReservoir(id string, inflow []float64) model.ReservoirDefinition {
	return model.ReservoirDefinition{
		ID:              id,
		Capacity:        1e9,
		InitialStorage:  0,
		MaxRelease:      1e6,
		FloodLimitLevel: 1e6,
		ZoneBoundaries:  [3]float64{25, 50, 75},
		Curve: []model.CurvePoint{
			{Storage: 0, Level: 0},
			{Storage: 1e9, Level: 100},
		},
		Inflow: inflow,
		Rules:  passthroughRules(),
	}
}

func constantSeries(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
