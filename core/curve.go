package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/cascade-simulator/model"
)

var (
	ErrCurveTooShort     = errors.New("storage-level curve needs at least two points")
	ErrCurveNotMonotonic = errors.New("storage-level curve must increase strictly")
)

// StorageLevelCurve is a piecewise-linear, strictly increasing mapping
// between storage volume and water level. Strict monotonicity in both
// coordinates keeps the mapping invertible, so levels can be converted
// back to storages when needed (e.g. translating zone boundaries).
type StorageLevelCurve struct {
	points []model.CurvePoint
}

// NewStorageLevelCurve validates the points and builds a curve.
func NewStorageLevelCurve(points []model.CurvePoint) (*StorageLevelCurve, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrCurveTooShort, len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].Storage <= points[i-1].Storage {
			return nil, fmt.Errorf("%w: storage %.6g after %.6g at point %d",
				ErrCurveNotMonotonic, points[i].Storage, points[i-1].Storage, i)
		}
		if points[i].Level <= points[i-1].Level {
			return nil, fmt.Errorf("%w: level %.6g after %.6g at point %d",
				ErrCurveNotMonotonic, points[i].Level, points[i-1].Level, i)
		}
	}
	cp := make([]model.CurvePoint, len(points))
	copy(cp, points)
	return &StorageLevelCurve{points: cp}, nil
}

// LevelFor interpolates the level for a storage volume. Storages outside
// the sampled range are extrapolated linearly along the end segments, so
// the mapping stays defined (and strictly increasing) everywhere.
func (c *StorageLevelCurve) LevelFor(storage float64) float64 {
	return interpolate(c.points, storage, func(p model.CurvePoint) (float64, float64) {
		return p.Storage, p.Level
	})
}

// StorageFor inverts the curve: the storage volume at a given level.
func (c *StorageLevelCurve) StorageFor(level float64) float64 {
	return interpolate(c.points, level, func(p model.CurvePoint) (float64, float64) {
		return p.Level, p.Storage
	})
}

// interpolate performs piecewise-linear interpolation over points using
// axis to pick the (input, output) coordinates of each point.
func interpolate(points []model.CurvePoint, x float64, axis func(model.CurvePoint) (float64, float64)) float64 {
	n := len(points)

	seg := func(i int) (x0, y0, x1, y1 float64) {
		x0, y0 = axis(points[i])
		x1, y1 = axis(points[i+1])
		return
	}

	// Find the segment whose input range contains x; clamp the search to
	// the end segments for out-of-range inputs.
	lo, hi := 0, n-2
	for lo < hi {
		mid := (lo + hi) / 2
		_, _, xm, _ := seg(mid)
		if x > xm {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	x0, y0, x1, y1 := seg(lo)
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}
