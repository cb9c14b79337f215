package model

import "time"

// CurvePoint is one sample of a reservoir's storage-to-level curve.
// Storage is a volume, Level an elevation; both must increase strictly
// from one point to the next so the curve stays invertible.
type CurvePoint struct {
	Storage float64
	Level   float64
}

// ForecastDefinition configures forecast-aware (pre-release) operation
// for a single reservoir.
type ForecastDefinition struct {
	// LeadTime is the number of future steps the forecaster is asked for.
	LeadTime int

	// PreReleaseFactor triggers pre-release when the forecast maximum
	// exceeds currentInflow × PreReleaseFactor. Defaults to 1.5.
	PreReleaseFactor float64

	// PreReleaseGain sizes the pre-release as currentInflow × PreReleaseGain.
	// Defaults to 1.2.
	PreReleaseGain float64

	// Timeout bounds a single forecaster call. Zero means no bound.
	Timeout time.Duration
}

// DefaultPreReleaseFactor and DefaultPreReleaseGain are applied when a
// scenario leaves the corresponding ForecastDefinition fields unset.
const (
	DefaultPreReleaseFactor = 1.5
	DefaultPreReleaseGain   = 1.2
)

// ReservoirDefinition is the static configuration of one reservoir.
// It is validated once at topology construction; the mutable hydraulic
// state lives in core.Reservoir.
type ReservoirDefinition struct {
	ID   string
	Name string

	// Capacity is the maximum storage volume.
	Capacity float64

	// InitialStorage is the storage at step 0, in [0, Capacity].
	InitialStorage float64

	// MaxRelease is the maximum instantaneous release rate.
	MaxRelease float64

	// FloodLimitLevel is the compliance threshold for the level series.
	FloodLimitLevel float64

	// ZoneBoundaries are the three strictly increasing levels separating
	// dead/normal, normal/flood-control and flood-control/surcharge.
	// Each boundary is inclusive on its lower side; the surcharge zone
	// is open-ended upward.
	ZoneBoundaries [3]float64

	// Curve is the storage-to-level relationship, at least two points,
	// strictly increasing in both coordinates.
	Curve []CurvePoint

	// Inflow is the external (uncontrolled) inflow series; its length
	// must cover the simulation horizon.
	Inflow []float64

	// Rules overrides the default zone release table. Missing zones fall
	// back to built-in defaults.
	Rules map[Zone]RuleDefinition

	// Forecast enables pre-release operation when non-nil.
	Forecast *ForecastDefinition
}

// RoutingLinkDefinition describes one upstream → downstream connection.
type RoutingLinkDefinition struct {
	UpstreamID   string
	DownstreamID string

	// TravelTime is the routing delay in whole steps, >= 0.
	TravelTime int

	// LateralInflow is a constant interval inflow added at the
	// downstream end of the reach.
	LateralInflow float64

	// WarmupFlow is delivered for steps t < TravelTime, before any
	// upstream outflow has had time to arrive. Defaults to zero.
	WarmupFlow float64
}
