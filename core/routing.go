package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/cascade-simulator/model"
)

var (
	ErrNegativeTravelTime = errors.New("travel time must be non-negative")
	ErrLinkEndpoints      = errors.New("link endpoints must name distinct reservoirs")
)

// RoutingLink models one upstream → downstream reach with a fixed
// integer routing delay. It is immutable after construction; every step
// it only reads the upstream reservoir's already-finalized outflow
// history.
type RoutingLink struct {
	def      model.RoutingLinkDefinition
	upstream *Reservoir
}

// NewRoutingLink validates the definition against its resolved upstream
// reservoir.
func NewRoutingLink(def model.RoutingLinkDefinition, upstream *Reservoir) (*RoutingLink, error) {
	if def.UpstreamID == "" || def.DownstreamID == "" || def.UpstreamID == def.DownstreamID {
		return nil, fmt.Errorf("%w: %q -> %q", ErrLinkEndpoints, def.UpstreamID, def.DownstreamID)
	}
	if def.TravelTime < 0 {
		return nil, fmt.Errorf("%w: %q -> %q travel time %d",
			ErrNegativeTravelTime, def.UpstreamID, def.DownstreamID, def.TravelTime)
	}
	return &RoutingLink{def: def, upstream: upstream}, nil
}

// UpstreamID returns the ID of the reservoir whose outflow the link carries.
func (l *RoutingLink) UpstreamID() string { return l.def.UpstreamID }

// DownstreamID returns the ID of the reservoir the link feeds.
func (l *RoutingLink) DownstreamID() string { return l.def.DownstreamID }

// TravelTime returns the routing delay in steps.
func (l *RoutingLink) TravelTime() int { return l.def.TravelTime }

// ContributionAt returns the flow the link delivers downstream at step t:
// the upstream outflow recorded at t − travelTime plus the constant
// lateral inflow. Before any upstream release has had time to arrive
// (t < travelTime) the configured warm-up flow is delivered instead;
// the warm-up default is zero.
func (l *RoutingLink) ContributionAt(t int) float64 {
	src := t - l.def.TravelTime
	if src < 0 {
		return l.def.WarmupFlow + l.def.LateralInflow
	}
	return l.upstream.OutflowAt(src) + l.def.LateralInflow
}
