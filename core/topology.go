package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/signalsfoundry/cascade-simulator/model"
)

var (
	ErrDuplicateReservoir = errors.New("reservoir already exists")
	ErrUnknownReservoir   = errors.New("link references unknown reservoir")
	ErrCycle              = errors.New("cascade topology contains a cycle")
)

// CascadeTopology is the directed acyclic graph of reservoirs and
// routing links. It is immutable after construction and provides the
// wave-ordered evaluation sequence the engine walks every step.
type CascadeTopology struct {
	reservoirs map[string]*Reservoir
	incoming   map[string][]*RoutingLink
	outgoing   map[string][]*RoutingLink

	// levels groups reservoir IDs into topological waves: every upstream
	// endpoint of a link sits in a strictly earlier wave than its
	// downstream endpoint, so reservoirs within one wave are mutually
	// independent within a step.
	levels [][]string
}

// NewCascadeTopology validates all definitions and builds the graph.
// Construction fails on duplicate or unknown reservoir IDs, invalid
// reservoir parameters, negative travel times, and cycles: a reservoir
// can never be its own eventual upstream, even through zero-delay links.
func NewCascadeTopology(reservoirs []model.ReservoirDefinition, links []model.RoutingLinkDefinition) (*CascadeTopology, error) {
	topo := &CascadeTopology{
		reservoirs: make(map[string]*Reservoir, len(reservoirs)),
		incoming:   make(map[string][]*RoutingLink),
		outgoing:   make(map[string][]*RoutingLink),
	}

	for _, def := range reservoirs {
		if _, exists := topo.reservoirs[def.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateReservoir, def.ID)
		}
		res, err := NewReservoir(def)
		if err != nil {
			return nil, err
		}
		topo.reservoirs[def.ID] = res
	}

	for _, def := range links {
		up, ok := topo.reservoirs[def.UpstreamID]
		if !ok {
			return nil, fmt.Errorf("%w: upstream %q", ErrUnknownReservoir, def.UpstreamID)
		}
		if _, ok := topo.reservoirs[def.DownstreamID]; !ok {
			return nil, fmt.Errorf("%w: downstream %q", ErrUnknownReservoir, def.DownstreamID)
		}
		link, err := NewRoutingLink(def, up)
		if err != nil {
			return nil, err
		}
		topo.incoming[def.DownstreamID] = append(topo.incoming[def.DownstreamID], link)
		topo.outgoing[def.UpstreamID] = append(topo.outgoing[def.UpstreamID], link)
	}

	levels, err := topo.computeLevels()
	if err != nil {
		return nil, err
	}
	topo.levels = levels
	return topo, nil
}

// computeLevels runs Kahn's algorithm, grouping zero in-degree
// reservoirs into successive waves. A remainder after the queue drains
// means a cycle.
func (ct *CascadeTopology) computeLevels() ([][]string, error) {
	inDeg := make(map[string]int, len(ct.reservoirs))
	for id := range ct.reservoirs {
		inDeg[id] = len(ct.incoming[id])
	}

	var queue []string
	for id, deg := range inDeg {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	var levels [][]string
	processed := 0
	for len(queue) > 0 {
		sort.Strings(queue) // deterministic order within a wave
		levels = append(levels, queue)
		processed += len(queue)

		var next []string
		for _, id := range queue {
			for _, link := range ct.outgoing[id] {
				down := link.DownstreamID()
				inDeg[down]--
				if inDeg[down] == 0 {
					next = append(next, down)
				}
			}
		}
		queue = next
	}

	if processed != len(ct.reservoirs) {
		var stuck []string
		for id, deg := range inDeg {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: involving %v", ErrCycle, stuck)
	}
	return levels, nil
}

// Reservoir returns the reservoir with the given ID, or nil.
func (ct *CascadeTopology) Reservoir(id string) *Reservoir {
	return ct.reservoirs[id]
}

// Reservoirs returns all reservoirs in deterministic (sorted ID) order.
func (ct *CascadeTopology) Reservoirs() []*Reservoir {
	ids := make([]string, 0, len(ct.reservoirs))
	for id := range ct.reservoirs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Reservoir, 0, len(ids))
	for _, id := range ids {
		out = append(out, ct.reservoirs[id])
	}
	return out
}

// Incoming returns the routing links feeding the given reservoir.
func (ct *CascadeTopology) Incoming(id string) []*RoutingLink {
	return ct.incoming[id]
}

// Levels returns the topological evaluation waves.
func (ct *CascadeTopology) Levels() [][]string {
	return ct.levels
}

// Size returns the number of reservoirs.
func (ct *CascadeTopology) Size() int { return len(ct.reservoirs) }
