package core

import (
	"context"
	"testing"

	"github.com/signalsfoundry/cascade-simulator/model"
)

// Three-reservoir chain with constant inflow 100 into A only and
// passthrough rules: B sees the flow after the A→B delay of 2 steps,
// C one step after that.
func TestEngineRun_ChainRoutingDelays(t *testing.T) {
	const horizon = 8

	defs := []model.ReservoirDefinition{
		testReservoir("a", constantSeries(100, horizon)),
		testReservoir("b", constantSeries(0, horizon)),
		testReservoir("c", constantSeries(0, horizon)),
	}
	links := []model.RoutingLinkDefinition{
		{UpstreamID: "a", DownstreamID: "b", TravelTime: 2},
		{UpstreamID: "b", DownstreamID: "c", TravelTime: 1},
	}

	topo, err := NewCascadeTopology(defs, links)
	if err != nil {
		t.Fatalf("NewCascadeTopology: %v", err)
	}
	engine, err := NewEngine(topo, NewPolicy(), 1)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	results, err := engine.Run(context.Background(), horizon)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	b := results.Reservoirs["b"]
	c := results.Reservoirs["c"]

	for tt := 0; tt < 2; tt++ {
		if b.Inflow[tt] != 0 {
			t.Fatalf("b.Inflow[%d] = %v, want 0 before arrival", tt, b.Inflow[tt])
		}
	}
	for tt := 2; tt < horizon; tt++ {
		if b.Inflow[tt] != 100 {
			t.Fatalf("b.Inflow[%d] = %v, want 100", tt, b.Inflow[tt])
		}
	}

	for tt := 0; tt < 3; tt++ {
		if c.Inflow[tt] != 0 {
			t.Fatalf("c.Inflow[%d] = %v, want 0 before arrival", tt, c.Inflow[tt])
		}
	}
	for tt := 3; tt < horizon; tt++ {
		if c.Inflow[tt] != 100 {
			t.Fatalf("c.Inflow[%d] = %v, want 100", tt, c.Inflow[tt])
		}
	}
}

// Downstream inflow contribution at t must exactly equal upstream
// outflow at t − τ for a two-node chain, including a varying hydrograph.
func TestEngineRun_RoutingExactness(t *testing.T) {
	const (
		horizon = 10
		tau     = 3
	)
	hydrograph := []float64{5, 10, 40, 90, 120, 80, 40, 20, 10, 5}

	defs := []model.ReservoirDefinition{
		testReservoir("up", hydrograph),
		testReservoir("down", constantSeries(0, horizon)),
	}
	links := []model.RoutingLinkDefinition{
		{UpstreamID: "up", DownstreamID: "down", TravelTime: tau},
	}

	topo, err := NewCascadeTopology(defs, links)
	if err != nil {
		t.Fatalf("NewCascadeTopology: %v", err)
	}
	engine, err := NewEngine(topo, NewPolicy(), 1)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	results, err := engine.Run(context.Background(), horizon)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	up := results.Reservoirs["up"]
	down := results.Reservoirs["down"]
	for tt := 0; tt < horizon; tt++ {
		want := 0.0
		if tt >= tau {
			want = up.Outflow[tt-tau]
		}
		if down.Inflow[tt] != want {
			t.Fatalf("down.Inflow[%d] = %v, want %v", tt, down.Inflow[tt], want)
		}
	}
}
