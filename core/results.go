package core

import (
	"github.com/signalsfoundry/cascade-simulator/model"
)

// DiagnosticKind classifies a recoverable per-step condition.
type DiagnosticKind int

const (
	// DiagForecastUnavailable means a forecaster call failed or timed
	// out and the regular zone rule was used for that step.
	DiagForecastUnavailable DiagnosticKind = iota
	// DiagForcedSpill means the mass balance had to spill water over
	// the requested release to keep storage within capacity.
	DiagForcedSpill
	// DiagReleaseCapped means the requested release would have drawn
	// storage negative and was reduced to the deliverable amount.
	DiagReleaseCapped
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagForecastUnavailable:
		return "forecast_unavailable"
	case DiagForcedSpill:
		return "forced_spill"
	case DiagReleaseCapped:
		return "release_capped"
	default:
		return "unknown"
	}
}

// Diagnostic records one recoverable condition observed during a run.
// Diagnostics are never fatal; they are summarized in the assessment.
type Diagnostic struct {
	Step        int
	ReservoirID string
	Kind        DiagnosticKind
	Detail      string
}

// ReservoirSeries holds the per-step output series of one reservoir.
// All slices have length Horizon once a run completes; a cancelled run
// leaves them truncated at the last completed step.
type ReservoirSeries struct {
	ID      string
	Inflow  []float64
	Outflow []float64
	Storage []float64
	Level   []float64
	Zone    []model.Zone
}

// Results is the structured output of one engine run: per-reservoir
// series plus run-level diagnostics, ready for assessment or export.
type Results struct {
	Dt             float64
	StepsCompleted int
	Reservoirs     map[string]*ReservoirSeries
	InitialStorage map[string]float64
	Diagnostics    []Diagnostic

	// floodLimits carries each reservoir's flood-limit level so the
	// assessment does not need the topology.
	floodLimits map[string]float64
}

func newResults(topo *CascadeTopology, horizon int, dt float64) *Results {
	res := &Results{
		Dt:             dt,
		Reservoirs:     make(map[string]*ReservoirSeries, topo.Size()),
		InitialStorage: make(map[string]float64, topo.Size()),
		floodLimits:    make(map[string]float64, topo.Size()),
	}
	for _, r := range topo.Reservoirs() {
		res.Reservoirs[r.ID()] = &ReservoirSeries{
			ID:      r.ID(),
			Inflow:  make([]float64, horizon),
			Outflow: make([]float64, horizon),
			Storage: make([]float64, horizon),
			Level:   make([]float64, horizon),
			Zone:    make([]model.Zone, horizon),
		}
		res.InitialStorage[r.ID()] = r.Storage()
		res.floodLimits[r.ID()] = r.Definition().FloodLimitLevel
	}
	return res
}

// truncate trims every series to n completed steps after an early stop.
func (r *Results) truncate(n int) {
	r.StepsCompleted = n
	for _, s := range r.Reservoirs {
		s.Inflow = s.Inflow[:n]
		s.Outflow = s.Outflow[:n]
		s.Storage = s.Storage[:n]
		s.Level = s.Level[:n]
		s.Zone = s.Zone[:n]
	}
}
