package core

import (
	"testing"

	"github.com/signalsfoundry/cascade-simulator/model"
)

func forecastingReservoir(t *testing.T, rules map[model.Zone]model.RuleDefinition) *Reservoir {
	t.Helper()
	def := testReservoir("r1", nil)
	def.Rules = rules
	def.Forecast = &model.ForecastDefinition{LeadTime: 3}
	res, err := NewReservoir(def)
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}
	return res
}

// Pre-release trigger: currentInflow=100, forecast max 300 > 100 × 1.5,
// so the decision is 100 × 1.2 = 120 regardless of the zone default.
func TestDecide_PreReleaseOverridesZoneRule(t *testing.T) {
	res := forecastingReservoir(t, map[model.Zone]model.RuleDefinition{
		model.ZoneDead: {Kind: model.RuleConstant, Value: 2},
	})
	policy := NewPolicy()

	got := policy.Decide(res, 100, []float64{100, 200, 300}, 0)
	if got != 120 {
		t.Fatalf("Decide = %v, want 120", got)
	}
}

func TestDecide_ForecastBelowTriggerUsesZoneRule(t *testing.T) {
	res := forecastingReservoir(t, map[model.Zone]model.RuleDefinition{
		model.ZoneDead: {Kind: model.RuleConstant, Value: 2},
	})
	policy := NewPolicy()

	// max(forecast) = 140 is not above 100 × 1.5.
	if got := policy.Decide(res, 100, []float64{90, 140, 120}, 0); got != 2 {
		t.Fatalf("Decide = %v, want zone rule 2", got)
	}
}

func TestDecide_NoForecastForcesRegularRule(t *testing.T) {
	res := forecastingReservoir(t, map[model.Zone]model.RuleDefinition{
		model.ZoneDead: {Kind: model.RuleConstant, Value: 2},
	})
	policy := NewPolicy()

	if got := policy.Decide(res, 100, nil, 0); got != 2 {
		t.Fatalf("Decide with nil forecast = %v, want 2", got)
	}
	if got := policy.Decide(res, 100, []float64{}, 0); got != 2 {
		t.Fatalf("Decide with empty forecast = %v, want 2", got)
	}
}

func TestDecide_PreReleaseClampedToMaxRelease(t *testing.T) {
	def := testReservoir("r1", nil)
	def.MaxRelease = 110
	def.Forecast = &model.ForecastDefinition{LeadTime: 3}
	res, err := NewReservoir(def)
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}

	// 100 × 1.2 = 120 exceeds the outlet's 110 limit.
	if got := NewPolicy().Decide(res, 100, []float64{400}, 0); got != 110 {
		t.Fatalf("Decide = %v, want clamp to 110", got)
	}
}

func TestDecide_RuleKinds(t *testing.T) {
	policy := NewPolicy()

	cases := []struct {
		name string
		rule model.RuleDefinition
		want float64
	}{
		{"constant", model.RuleDefinition{Kind: model.RuleConstant, Value: 7}, 7},
		{"inflow factor", model.RuleDefinition{Kind: model.RuleInflowFactor, Value: 0.5}, 20},
		{"max release", model.RuleDefinition{Kind: model.RuleMaxRelease}, 500},
		{"match inflow", model.RuleDefinition{Kind: model.RuleMatchInflow}, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := testReservoir("r1", nil)
			def.MaxRelease = 500
			def.Rules = map[model.Zone]model.RuleDefinition{model.ZoneDead: tc.rule}
			res, err := NewReservoir(def)
			if err != nil {
				t.Fatalf("NewReservoir: %v", err)
			}
			if got := policy.Decide(res, 40, nil, 0); got != tc.want {
				t.Fatalf("Decide = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDecide_DefaultRulesWhenZoneUnconfigured(t *testing.T) {
	def := testReservoir("r1", nil)
	def.Rules = nil // fall back to built-in defaults
	def.Capacity = 1000
	def.InitialStorage = 1000 // level 100, surcharge for boundaries 25/50/75
	def.Curve = []model.CurvePoint{{Storage: 0, Level: 0}, {Storage: 1000, Level: 100}}
	def.MaxRelease = 80
	res, err := NewReservoir(def)
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}

	// Surcharge defaults to evacuating at the maximum rate.
	if got := NewPolicy().Decide(res, 10, nil, 0); got != 80 {
		t.Fatalf("Decide = %v, want max release 80", got)
	}
}

// Decide is a pure function of (zone, inflow, forecast): repeated calls
// with identical inputs return identical outputs.
func TestDecide_Deterministic(t *testing.T) {
	res := forecastingReservoir(t, passthroughRules())
	policy := NewPolicy()

	forecast := []float64{100, 200, 300}
	first := policy.Decide(res, 100, forecast, 5)
	for i := 0; i < 10; i++ {
		if got := policy.Decide(res, 100, forecast, 5); got != first {
			t.Fatalf("Decide not deterministic: %v then %v", first, got)
		}
	}
}
