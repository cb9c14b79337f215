package core

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/cascade-simulator/model"
)

func TestStorageLevelCurve_RejectsShortCurve(t *testing.T) {
	_, err := NewStorageLevelCurve([]model.CurvePoint{{Storage: 0, Level: 0}})
	if !errors.Is(err, ErrCurveTooShort) {
		t.Fatalf("expected ErrCurveTooShort, got %v", err)
	}
}

func TestStorageLevelCurve_RejectsNonMonotonic(t *testing.T) {
	cases := []struct {
		name   string
		points []model.CurvePoint
	}{
		{"storage not increasing", []model.CurvePoint{
			{Storage: 0, Level: 0}, {Storage: 100, Level: 10}, {Storage: 100, Level: 20},
		}},
		{"level not increasing", []model.CurvePoint{
			{Storage: 0, Level: 0}, {Storage: 100, Level: 10}, {Storage: 200, Level: 10},
		}},
		{"storage decreasing", []model.CurvePoint{
			{Storage: 0, Level: 0}, {Storage: 100, Level: 10}, {Storage: 50, Level: 20},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewStorageLevelCurve(tc.points); !errors.Is(err, ErrCurveNotMonotonic) {
				t.Fatalf("expected ErrCurveNotMonotonic, got %v", err)
			}
		})
	}
}

func TestStorageLevelCurve_InterpolatesAndInverts(t *testing.T) {
	curve, err := NewStorageLevelCurve([]model.CurvePoint{
		{Storage: 0, Level: 0},
		{Storage: 100, Level: 10},
		{Storage: 300, Level: 20},
	})
	if err != nil {
		t.Fatalf("NewStorageLevelCurve: %v", err)
	}

	if got := curve.LevelFor(50); math.Abs(got-5) > 1e-12 {
		t.Fatalf("LevelFor(50) = %v, want 5", got)
	}
	if got := curve.LevelFor(200); math.Abs(got-15) > 1e-12 {
		t.Fatalf("LevelFor(200) = %v, want 15", got)
	}

	// Round-trip at sampled and interpolated storages.
	for _, s := range []float64{0, 50, 100, 200, 300} {
		if got := curve.StorageFor(curve.LevelFor(s)); math.Abs(got-s) > 1e-9 {
			t.Fatalf("StorageFor(LevelFor(%v)) = %v", s, got)
		}
	}
}

func TestStorageLevelCurve_ExtrapolatesEndSegments(t *testing.T) {
	curve, err := NewStorageLevelCurve([]model.CurvePoint{
		{Storage: 100, Level: 10},
		{Storage: 200, Level: 20},
	})
	if err != nil {
		t.Fatalf("NewStorageLevelCurve: %v", err)
	}

	if got := curve.LevelFor(0); math.Abs(got-0) > 1e-12 {
		t.Fatalf("LevelFor(0) = %v, want 0", got)
	}
	if got := curve.LevelFor(300); math.Abs(got-30) > 1e-12 {
		t.Fatalf("LevelFor(300) = %v, want 30", got)
	}
}
