// core/scenario_loader.go
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signalsfoundry/cascade-simulator/model"
)

var (
	ErrScenarioDecode  = errors.New("scenario decode failed")
	ErrScenarioInvalid = errors.New("invalid scenario")
)

// Scenario is the validated result of loading a cascade description:
// everything needed to build a topology and run the engine.
type Scenario struct {
	Dt         float64
	Horizon    int
	Reservoirs []model.ReservoirDefinition
	Links      []model.RoutingLinkDefinition
}

// internal JSON shapes – kept unexported so we're free to evolve them.
type scenarioJSON struct {
	Dt         float64           `json:"dt"`
	Horizon    int               `json:"horizon"`
	Reservoirs []reservoirJSON   `json:"reservoirs"`
	Links      []routingLinkJSON `json:"links"`
}

type reservoirJSON struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Capacity        float64             `json:"capacity"`
	InitialStorage  float64             `json:"initial_storage"`
	MaxRelease      float64             `json:"max_release"`
	FloodLimitLevel float64             `json:"flood_limit_level"`
	ZoneBoundaries  []float64           `json:"zone_boundaries"`
	Curve           []curvePointJSON    `json:"storage_level_curve"`
	Inflow          []float64           `json:"inflow"`
	Rules           map[string]ruleJSON `json:"rules"`
	Forecast        *forecastJSON       `json:"forecast"`
}

type curvePointJSON struct {
	Storage float64 `json:"storage"`
	Level   float64 `json:"level"`
}

type ruleJSON struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

type forecastJSON struct {
	LeadTime         int     `json:"lead_time"`
	PreReleaseFactor float64 `json:"pre_release_factor"`
	PreReleaseGain   float64 `json:"pre_release_gain"`
	TimeoutMs        int     `json:"timeout_ms"`
}

type routingLinkJSON struct {
	Upstream      string  `json:"upstream"`
	Downstream    string  `json:"downstream"`
	TravelTime    int     `json:"travel_time"`
	LateralInflow float64 `json:"lateral_inflow"`
	WarmupFlow    float64 `json:"warmup_flow"`
}

// LoadScenario reads a JSON cascade scenario from r and converts it into
// validated model records. Structural problems fail here with the
// offending entity named; the deeper physical validation (curves,
// boundaries, cycles) happens in NewCascadeTopology, mirroring how the
// direct constructors behave in tests.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var payload scenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScenarioDecode, err)
	}

	if payload.Dt <= 0 {
		return nil, fmt.Errorf("%w: dt %.6g", ErrScenarioInvalid, payload.Dt)
	}
	if payload.Horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon %d", ErrScenarioInvalid, payload.Horizon)
	}

	out := &Scenario{Dt: payload.Dt, Horizon: payload.Horizon}

	for _, jr := range payload.Reservoirs {
		if jr.ID == "" {
			return nil, fmt.Errorf("%w: reservoir with empty id", ErrScenarioInvalid)
		}
		if len(jr.ZoneBoundaries) != 3 {
			return nil, fmt.Errorf("%w: reservoir %q needs exactly 3 zone boundaries, got %d",
				ErrScenarioInvalid, jr.ID, len(jr.ZoneBoundaries))
		}
		if len(jr.Inflow) < payload.Horizon {
			return nil, fmt.Errorf("%w: reservoir %q inflow has %d steps, horizon %d",
				ErrHorizonMismatch, jr.ID, len(jr.Inflow), payload.Horizon)
		}

		def := model.ReservoirDefinition{
			ID:              jr.ID,
			Name:            jr.Name,
			Capacity:        jr.Capacity,
			InitialStorage:  jr.InitialStorage,
			MaxRelease:      jr.MaxRelease,
			FloodLimitLevel: jr.FloodLimitLevel,
			ZoneBoundaries:  [3]float64{jr.ZoneBoundaries[0], jr.ZoneBoundaries[1], jr.ZoneBoundaries[2]},
			Inflow:          jr.Inflow,
		}
		for _, p := range jr.Curve {
			def.Curve = append(def.Curve, model.CurvePoint{Storage: p.Storage, Level: p.Level})
		}

		if len(jr.Rules) > 0 {
			def.Rules = make(map[model.Zone]model.RuleDefinition, len(jr.Rules))
			for zoneName, rule := range jr.Rules {
				zone, err := zoneFromString(zoneName)
				if err != nil {
					return nil, fmt.Errorf("%w: reservoir %q: %v", ErrScenarioInvalid, jr.ID, err)
				}
				kind, err := ruleKindFromString(rule.Kind)
				if err != nil {
					return nil, fmt.Errorf("%w: reservoir %q zone %q: %v", ErrScenarioInvalid, jr.ID, zoneName, err)
				}
				def.Rules[zone] = model.RuleDefinition{Kind: kind, Value: rule.Value}
			}
		}

		if jr.Forecast != nil {
			if jr.Forecast.LeadTime <= 0 {
				return nil, fmt.Errorf("%w: reservoir %q forecast lead time %d",
					ErrScenarioInvalid, jr.ID, jr.Forecast.LeadTime)
			}
			def.Forecast = &model.ForecastDefinition{
				LeadTime:         jr.Forecast.LeadTime,
				PreReleaseFactor: jr.Forecast.PreReleaseFactor,
				PreReleaseGain:   jr.Forecast.PreReleaseGain,
				Timeout:          time.Duration(jr.Forecast.TimeoutMs) * time.Millisecond,
			}
		}

		out.Reservoirs = append(out.Reservoirs, def)
	}

	for _, jl := range payload.Links {
		out.Links = append(out.Links, model.RoutingLinkDefinition{
			UpstreamID:    jl.Upstream,
			DownstreamID:  jl.Downstream,
			TravelTime:    jl.TravelTime,
			LateralInflow: jl.LateralInflow,
			WarmupFlow:    jl.WarmupFlow,
		})
	}

	return out, nil
}

// zoneFromString maps the JSON zone names to model.Zone values. Names
// are matched case-insensitively.
func zoneFromString(s string) (model.Zone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dead":
		return model.ZoneDead, nil
	case "normal":
		return model.ZoneNormal, nil
	case "flood_control", "flood-control", "flood":
		return model.ZoneFloodControl, nil
	case "surcharge":
		return model.ZoneSurcharge, nil
	default:
		return 0, fmt.Errorf("unknown zone %q", s)
	}
}

func ruleKindFromString(s string) (model.RuleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "constant":
		return model.RuleConstant, nil
	case "inflow_factor":
		return model.RuleInflowFactor, nil
	case "max_release":
		return model.RuleMaxRelease, nil
	case "match_inflow":
		return model.RuleMatchInflow, nil
	default:
		return 0, fmt.Errorf("unknown rule kind %q", s)
	}
}
