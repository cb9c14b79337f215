package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/cascade-simulator/model"
)

var (
	ErrEmptyReservoirID   = errors.New("empty reservoir ID")
	ErrBadCapacity        = errors.New("capacity must be positive")
	ErrBadInitialStorage  = errors.New("initial storage outside [0, capacity]")
	ErrBadMaxRelease      = errors.New("max release must be non-negative")
	ErrZoneBoundaryOrder  = errors.New("zone boundaries must increase strictly")
	ErrNegativeInflow     = errors.New("external inflow must be non-negative")
)

// Reservoir owns the mutable hydraulic state of one node in the cascade:
// current storage, the level and zone derived from it, and the outflow
// history that downstream routing links consume. It is mutated exactly
// once per step, by the engine goroutine responsible for it.
type Reservoir struct {
	def   model.ReservoirDefinition
	curve *StorageLevelCurve

	storage float64
	level   float64
	zone    model.Zone

	// outflow[t] is the actual delivered release at step t. It is
	// retained for the whole run; routing links index it directly.
	outflow []float64
}

// NewReservoir validates the definition and builds a reservoir at its
// initial storage.
func NewReservoir(def model.ReservoirDefinition) (*Reservoir, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("%w", ErrEmptyReservoirID)
	}
	if def.Capacity <= 0 {
		return nil, fmt.Errorf("%w: reservoir %q capacity %.6g", ErrBadCapacity, def.ID, def.Capacity)
	}
	if def.InitialStorage < 0 || def.InitialStorage > def.Capacity {
		return nil, fmt.Errorf("%w: reservoir %q initial %.6g capacity %.6g",
			ErrBadInitialStorage, def.ID, def.InitialStorage, def.Capacity)
	}
	if def.MaxRelease < 0 {
		return nil, fmt.Errorf("%w: reservoir %q", ErrBadMaxRelease, def.ID)
	}
	if !(def.ZoneBoundaries[0] < def.ZoneBoundaries[1] && def.ZoneBoundaries[1] < def.ZoneBoundaries[2]) {
		return nil, fmt.Errorf("%w: reservoir %q boundaries %v", ErrZoneBoundaryOrder, def.ID, def.ZoneBoundaries)
	}
	for i, q := range def.Inflow {
		if q < 0 {
			return nil, fmt.Errorf("%w: reservoir %q step %d value %.6g", ErrNegativeInflow, def.ID, i, q)
		}
	}

	curve, err := NewStorageLevelCurve(def.Curve)
	if err != nil {
		return nil, fmt.Errorf("reservoir %q: %w", def.ID, err)
	}

	r := &Reservoir{
		def:     def,
		curve:   curve,
		storage: def.InitialStorage,
	}
	r.level = curve.LevelFor(r.storage)
	r.zone = r.ZoneFor(r.level)
	return r, nil
}

// ID returns the reservoir's identifier.
func (r *Reservoir) ID() string { return r.def.ID }

// Definition returns the static configuration the reservoir was built from.
func (r *Reservoir) Definition() model.ReservoirDefinition { return r.def }

// Storage returns the current storage volume.
func (r *Reservoir) Storage() float64 { return r.storage }

// Level returns the current water level.
func (r *Reservoir) Level() float64 { return r.level }

// Zone returns the current operating zone.
func (r *Reservoir) Zone() model.Zone { return r.zone }

// MaxRelease returns the maximum instantaneous release rate.
func (r *Reservoir) MaxRelease() float64 { return r.def.MaxRelease }

// ExternalInflow returns the configured external inflow at step t.
func (r *Reservoir) ExternalInflow(t int) float64 {
	if t < 0 || t >= len(r.def.Inflow) {
		return 0
	}
	return r.def.Inflow[t]
}

// ZoneFor locates level among the configured boundaries. Each boundary
// is inclusive on its lower side and exclusive on its upper side; the
// surcharge zone has no upper bound.
func (r *Reservoir) ZoneFor(level float64) model.Zone {
	b := r.def.ZoneBoundaries
	switch {
	case level < b[0]:
		return model.ZoneDead
	case level < b[1]:
		return model.ZoneNormal
	case level < b[2]:
		return model.ZoneFloodControl
	default:
		return model.ZoneSurcharge
	}
}

// ApplyMassBalance advances the reservoir by one step of length dt with
// the given total inflow and requested release rate. The returned actual
// release is what must be propagated downstream:
//
//   - if the unclamped storage would exceed capacity, the excess leaves
//     as forced spill on top of the requested release (spilled = true);
//   - if it would go negative, the release is capped so storage stays
//     at zero, and the capped value is the actual release.
//
// The step's actual release is appended to the outflow history.
func (r *Reservoir) ApplyMassBalance(t int, inflow, requested, dt float64) (actual float64, spilled bool) {
	actual = requested

	next := r.storage + (inflow-actual)*dt
	if next > r.def.Capacity {
		// Forced spill keeps the water balance closed instead of
		// discarding the excess.
		actual += (next - r.def.Capacity) / dt
		next = r.def.Capacity
		spilled = true
	} else if next < 0 {
		// The requested release would overdraw storage; deliver only
		// what the step's water can supply.
		actual = inflow + r.storage/dt
		next = 0
	}

	r.storage = next
	r.level = r.curve.LevelFor(next)
	r.zone = r.ZoneFor(r.level)

	if t != len(r.outflow) {
		// Steps are applied exactly once, in order; anything else is an
		// engine bug, not a recoverable condition.
		panic(fmt.Sprintf("reservoir %q: mass balance for step %d with %d steps recorded", r.def.ID, t, len(r.outflow)))
	}
	r.outflow = append(r.outflow, actual)
	return actual, spilled
}

// OutflowAt returns the actual release recorded at step t, or zero when
// the step has not been simulated.
func (r *Reservoir) OutflowAt(t int) float64 {
	if t < 0 || t >= len(r.outflow) {
		return 0
	}
	return r.outflow[t]
}

// StepsRecorded returns how many steps of outflow history exist.
func (r *Reservoir) StepsRecorded() int { return len(r.outflow) }
