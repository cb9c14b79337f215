package core

import (
	"github.com/signalsfoundry/cascade-simulator/model"
)

// Built-in zone rules applied when a reservoir's configuration does not
// override them. Dead storage keeps a minimal supply release, the
// normal zone keeps a small circulation release, and the flood zones
// evacuate water as fast as the outlet allows.
var defaultZoneRules = map[model.Zone]model.RuleDefinition{
	model.ZoneDead:         {Kind: model.RuleConstant, Value: 1},
	model.ZoneNormal:       {Kind: model.RuleConstant, Value: 5},
	model.ZoneFloodControl: {Kind: model.RuleMaxRelease},
	model.ZoneSurcharge:    {Kind: model.RuleMaxRelease},
}

// Policy maps a reservoir's operating zone, and optionally a forecast
// signal, to a requested release. Decide is a pure function: no hidden
// state, identical inputs produce identical output.
type Policy struct{}

// NewPolicy constructs the rule-based operating policy.
func NewPolicy() *Policy { return &Policy{} }

// Decide returns the requested release rate for one reservoir at step t.
//
// The pre-release guard runs before the zone table: when a forecast is
// present and its maximum exceeds currentInflow × preReleaseFactor, the
// requested release is currentInflow × preReleaseGain, creating storage
// headroom ahead of the predicted surge. The trigger is re-evaluated
// fresh every step; there is no hysteresis.
//
// Otherwise the reservoir's zone rule (configured or default) applies.
// The result is clamped to [0, MaxRelease]; the storage-bound clamp is
// the reservoir's job during mass balance.
func (p *Policy) Decide(res *Reservoir, currentInflow float64, forecast []float64, t int) float64 {
	def := res.Definition()

	if fc := def.Forecast; fc != nil && len(forecast) > 0 {
		factor := fc.PreReleaseFactor
		if factor == 0 {
			factor = model.DefaultPreReleaseFactor
		}
		gain := fc.PreReleaseGain
		if gain == 0 {
			gain = model.DefaultPreReleaseGain
		}
		if maxOf(forecast) > currentInflow*factor {
			return clampRelease(currentInflow*gain, def.MaxRelease)
		}
	}

	zone := res.ZoneFor(res.Level())
	rule, ok := def.Rules[zone]
	if !ok {
		rule = defaultZoneRules[zone]
	}

	var requested float64
	switch rule.Kind {
	case model.RuleConstant:
		requested = rule.Value
	case model.RuleInflowFactor:
		requested = currentInflow * rule.Value
	case model.RuleMaxRelease:
		requested = def.MaxRelease
	case model.RuleMatchInflow:
		requested = currentInflow
	}

	return clampRelease(requested, def.MaxRelease)
}

func clampRelease(v, maxRelease float64) float64 {
	if v < 0 {
		return 0
	}
	if v > maxRelease {
		return maxRelease
	}
	return v
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
