package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrForecastUnavailable reports that a forecaster could not produce a
// sequence for the requested epoch. The engine recovers locally by
// falling back to the regular zone rule for that step.
var ErrForecastUnavailable = errors.New("forecast unavailable")

// Forecaster is the consumed interface of an external hydrological
// forecasting model: given the current step, it returns up to leadTime
// predicted inflow values for the following steps.
type Forecaster interface {
	Forecast(ctx context.Context, t, leadTime int) ([]float64, error)
}

// SeriesForecaster is a perfect-foresight forecaster backed by a known
// inflow series. It is the standard collaborator for replays and tests:
// the forecast for step t is simply the series values t+1 .. t+leadTime.
type SeriesForecaster struct {
	series []float64
}

// NewSeriesForecaster builds a forecaster over the given inflow series.
func NewSeriesForecaster(series []float64) *SeriesForecaster {
	cp := make([]float64, len(series))
	copy(cp, series)
	return &SeriesForecaster{series: cp}
}

// Forecast returns the next leadTime values after step t, truncated at
// the end of the series. An empty window is ErrForecastUnavailable.
func (f *SeriesForecaster) Forecast(ctx context.Context, t, leadTime int) ([]float64, error) {
	start := t + 1
	if start < 0 || start >= len(f.series) || leadTime <= 0 {
		return nil, fmt.Errorf("%w: no data after step %d", ErrForecastUnavailable, t)
	}
	end := start + leadTime
	if end > len(f.series) {
		end = len(f.series)
	}
	out := make([]float64, end-start)
	copy(out, f.series[start:end])
	return out, nil
}

// BoundedForecaster wraps another forecaster with a per-call timeout so
// a slow external model cannot stall the stepping loop. Timeouts and
// errors both surface as ErrForecastUnavailable.
type BoundedForecaster struct {
	inner   Forecaster
	timeout time.Duration
}

// NewBoundedForecaster wraps inner with the given timeout. A zero
// timeout disables the bound.
func NewBoundedForecaster(inner Forecaster, timeout time.Duration) *BoundedForecaster {
	return &BoundedForecaster{inner: inner, timeout: timeout}
}

type forecastResult struct {
	seq []float64
	err error
}

// Forecast invokes the wrapped forecaster, giving up after the timeout.
func (f *BoundedForecaster) Forecast(ctx context.Context, t, leadTime int) ([]float64, error) {
	if f.timeout <= 0 {
		seq, err := f.inner.Forecast(ctx, t, leadTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrForecastUnavailable, err)
		}
		return seq, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	ch := make(chan forecastResult, 1)
	go func() {
		seq, err := f.inner.Forecast(ctx, t, leadTime)
		ch <- forecastResult{seq: seq, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrForecastUnavailable, res.err)
		}
		return res.seq, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrForecastUnavailable, ctx.Err())
	}
}
