package core

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/cascade-simulator/model"
)

func TestNewReservoir_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*model.ReservoirDefinition)
		wantErr error
	}{
		{"empty id", func(d *model.ReservoirDefinition) { d.ID = "" }, ErrEmptyReservoirID},
		{"zero capacity", func(d *model.ReservoirDefinition) { d.Capacity = 0 }, ErrBadCapacity},
		{"initial above capacity", func(d *model.ReservoirDefinition) { d.InitialStorage = 2e9 }, ErrBadInitialStorage},
		{"negative initial", func(d *model.ReservoirDefinition) { d.InitialStorage = -1 }, ErrBadInitialStorage},
		{"negative max release", func(d *model.ReservoirDefinition) { d.MaxRelease = -1 }, ErrBadMaxRelease},
		{"unordered boundaries", func(d *model.ReservoirDefinition) { d.ZoneBoundaries = [3]float64{50, 25, 75} }, ErrZoneBoundaryOrder},
		{"equal boundaries", func(d *model.ReservoirDefinition) { d.ZoneBoundaries = [3]float64{25, 25, 75} }, ErrZoneBoundaryOrder},
		{"negative inflow", func(d *model.ReservoirDefinition) { d.Inflow = []float64{10, -1} }, ErrNegativeInflow},
		{"bad curve", func(d *model.ReservoirDefinition) {
			d.Curve = []model.CurvePoint{{Storage: 0, Level: 10}, {Storage: 100, Level: 5}}
		}, ErrCurveNotMonotonic},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := testReservoir("r1", constantSeries(1, 4))
			tc.mutate(&def)
			if _, err := NewReservoir(def); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestReservoir_ZoneForBoundaries(t *testing.T) {
	def := testReservoir("r1", nil)
	def.ZoneBoundaries = [3]float64{10, 20, 30}
	res, err := NewReservoir(def)
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}

	cases := []struct {
		level float64
		want  model.Zone
	}{
		{0, model.ZoneDead},
		{9.999, model.ZoneDead},
		{10, model.ZoneNormal}, // boundaries are inclusive on the lower edge
		{19.999, model.ZoneNormal},
		{20, model.ZoneFloodControl},
		{29.999, model.ZoneFloodControl},
		{30, model.ZoneSurcharge},
		{1e6, model.ZoneSurcharge}, // topmost zone is open-ended
	}
	for _, tc := range cases {
		if got := res.ZoneFor(tc.level); got != tc.want {
			t.Fatalf("ZoneFor(%v) = %v, want %v", tc.level, got, tc.want)
		}
	}
}

// A single step may cross several boundaries; the zone is derived from
// the level directly, never incremented, so large jumps land correctly.
func TestReservoir_ZoneJumpAcrossMultipleBoundaries(t *testing.T) {
	def := testReservoir("r1", nil)
	def.Capacity = 1000
	def.ZoneBoundaries = [3]float64{25, 50, 75}
	def.Curve = []model.CurvePoint{{Storage: 0, Level: 0}, {Storage: 1000, Level: 100}}
	def.InitialStorage = 0
	res, err := NewReservoir(def)
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}
	if res.Zone() != model.ZoneDead {
		t.Fatalf("initial zone = %v, want DEAD", res.Zone())
	}

	// Inflow burst large enough to jump straight past NORMAL and
	// FLOOD_CONTROL into SURCHARGE.
	res.ApplyMassBalance(0, 800, 0, 1)
	if res.Zone() != model.ZoneSurcharge {
		t.Fatalf("zone after burst = %v, want SURCHARGE", res.Zone())
	}
}

func TestReservoir_MassBalancePlain(t *testing.T) {
	def := testReservoir("r1", nil)
	def.Capacity = 1000
	def.InitialStorage = 500
	res, err := NewReservoir(def)
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}

	actual, spilled := res.ApplyMassBalance(0, 50, 30, 1)
	if spilled {
		t.Fatalf("unexpected spill")
	}
	if actual != 30 {
		t.Fatalf("actual = %v, want 30", actual)
	}
	if got := res.Storage(); got != 520 {
		t.Fatalf("storage = %v, want 520", got)
	}
	if got := res.OutflowAt(0); got != 30 {
		t.Fatalf("OutflowAt(0) = %v, want 30", got)
	}
}

func TestReservoir_MassBalanceForcedSpill(t *testing.T) {
	def := testReservoir("r1", nil)
	def.Capacity = 1000
	def.InitialStorage = 990
	res, err := NewReservoir(def)
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}

	// 990 + (50 − 30) would hit 1010; the 10 over capacity must leave as
	// forced spill on top of the requested release.
	actual, spilled := res.ApplyMassBalance(0, 50, 30, 1)
	if !spilled {
		t.Fatalf("expected forced spill")
	}
	if math.Abs(actual-40) > 1e-12 {
		t.Fatalf("actual = %v, want 40", actual)
	}
	if got := res.Storage(); got != 1000 {
		t.Fatalf("storage = %v, want capacity 1000", got)
	}
}

func TestReservoir_MassBalanceCapsOverdraw(t *testing.T) {
	def := testReservoir("r1", nil)
	def.Capacity = 1000
	def.InitialStorage = 10
	res, err := NewReservoir(def)
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}

	// Requested release would draw storage to −70; only inflow plus the
	// available storage can actually be delivered.
	actual, spilled := res.ApplyMassBalance(0, 20, 100, 1)
	if spilled {
		t.Fatalf("unexpected spill")
	}
	if math.Abs(actual-30) > 1e-12 {
		t.Fatalf("actual = %v, want 30", actual)
	}
	if got := res.Storage(); got != 0 {
		t.Fatalf("storage = %v, want 0", got)
	}
	// The capped value, not the requested one, is what history records.
	if got := res.OutflowAt(0); math.Abs(got-30) > 1e-12 {
		t.Fatalf("OutflowAt(0) = %v, want 30", got)
	}
}

func TestReservoir_LevelStaysConsistentWithStorage(t *testing.T) {
	def := testReservoir("r1", nil)
	def.Capacity = 1000
	def.InitialStorage = 250
	def.Curve = []model.CurvePoint{{Storage: 0, Level: 0}, {Storage: 1000, Level: 100}}
	res, err := NewReservoir(def)
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}
	if got := res.Level(); math.Abs(got-25) > 1e-12 {
		t.Fatalf("initial level = %v, want 25", got)
	}

	res.ApplyMassBalance(0, 100, 50, 1)
	if got := res.Level(); math.Abs(got-30) > 1e-12 {
		t.Fatalf("level after step = %v, want 30", got)
	}
}
