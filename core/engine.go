package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/cascade-simulator/internal/logging"
	"github.com/signalsfoundry/cascade-simulator/model"
)

var (
	ErrHorizonMismatch = errors.New("external inflow series shorter than horizon")
	ErrBadHorizon      = errors.New("horizon must be positive")
	ErrBadDt           = errors.New("dt must be positive")
	ErrNoForecaster    = errors.New("reservoir enables forecasting but no forecaster is wired")
)

// StepObserver receives per-step observations from the engine. The
// Prometheus collector in internal/observability implements it; tests
// use lightweight fakes.
type StepObserver interface {
	ObserveStep(t int, d time.Duration)
	ObserveReservoir(id string, storage, level float64, zone model.Zone)
	IncSpill(id string)
	IncForecastFailure(id string)
}

// Pacer throttles the stepping loop, letting a run replay in real time.
// timectrl.StepPacer implements it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Engine is the time-stepping driver of the cascade. The outer time
// loop is strictly sequential; within one step, reservoirs of the same
// topological wave are evaluated concurrently since each one reads only
// already-finalized upstream history and writes only its own state.
type Engine struct {
	topo   *CascadeTopology
	policy *Policy
	dt     float64

	forecasters map[string]Forecaster

	log      logging.Logger
	observer StepObserver
	pacer    Pacer
	tracer   trace.Tracer

	mu          sync.Mutex
	diagnostics []Diagnostic
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger; the default drops all logs.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver attaches a step observer (e.g. the Prometheus collector).
func WithObserver(o StepObserver) Option {
	return func(e *Engine) { e.observer = o }
}

// WithPacer throttles steps for real-time replay.
func WithPacer(p Pacer) Option {
	return func(e *Engine) { e.pacer = p }
}

// WithTracer records a span per run and per step.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithForecaster wires a forecaster to the reservoir with the given ID.
// The reservoir's configured timeout is applied around every call.
func WithForecaster(reservoirID string, f Forecaster) Option {
	return func(e *Engine) { e.forecasters[reservoirID] = f }
}

// NewEngine builds an engine over a validated topology. Construction
// fails when dt is not positive or a reservoir enables forecast-aware
// operation without a wired forecaster.
func NewEngine(topo *CascadeTopology, policy *Policy, dt float64, opts ...Option) (*Engine, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("%w: %.6g", ErrBadDt, dt)
	}
	e := &Engine{
		topo:        topo,
		policy:      policy,
		dt:          dt,
		forecasters: make(map[string]Forecaster),
		log:         logging.Noop(),
		tracer:      noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, r := range topo.Reservoirs() {
		fc := r.Definition().Forecast
		if fc == nil {
			continue
		}
		inner, ok := e.forecasters[r.ID()]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNoForecaster, r.ID())
		}
		e.forecasters[r.ID()] = NewBoundedForecaster(inner, fc.Timeout)
	}
	return e, nil
}

// Run simulates horizon steps and returns the recorded history. The
// configuration is fully re-checked against the horizon before any
// state mutation, so a HorizonMismatch aborts with the reservoirs
// untouched. Cancelling ctx stops the run between steps; the returned
// results are consistent up to the last completed step and accompany
// the context error.
func (e *Engine) Run(ctx context.Context, horizon int) (*Results, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadHorizon, horizon)
	}
	for _, r := range e.topo.Reservoirs() {
		if len(r.Definition().Inflow) < horizon {
			return nil, fmt.Errorf("%w: reservoir %q has %d steps, horizon %d",
				ErrHorizonMismatch, r.ID(), len(r.Definition().Inflow), horizon)
		}
	}

	ctx, runSpan := e.tracer.Start(ctx, "cascade.run",
		trace.WithAttributes(
			attribute.Int("cascade.horizon", horizon),
			attribute.Int("cascade.reservoirs", e.topo.Size()),
		))
	defer runSpan.End()

	results := newResults(e.topo, horizon, e.dt)
	e.log.Info(ctx, "run started",
		logging.Int("horizon", horizon),
		logging.Int("reservoirs", e.topo.Size()),
		logging.Float("dt", e.dt))

	for t := 0; t < horizon; t++ {
		if err := ctx.Err(); err != nil {
			e.finish(results, t)
			e.log.Warn(ctx, "run cancelled", logging.Int("step", t))
			return results, err
		}

		start := time.Now()
		if err := e.step(ctx, t, results); err != nil {
			e.finish(results, t)
			return results, err
		}

		if e.observer != nil {
			e.observer.ObserveStep(t, time.Since(start))
		}
		if e.pacer != nil {
			if err := e.pacer.Wait(ctx); err != nil {
				e.finish(results, t+1)
				return results, err
			}
		}
	}

	e.finish(results, horizon)
	e.log.Info(ctx, "run finished",
		logging.Int("steps", horizon),
		logging.Int("diagnostics", len(results.Diagnostics)))
	return results, nil
}

// step evaluates every reservoir once, walking topological waves in
// order and evaluating each wave's reservoirs concurrently.
func (e *Engine) step(ctx context.Context, t int, results *Results) error {
	ctx, span := e.tracer.Start(ctx, "cascade.step",
		trace.WithAttributes(attribute.Int("cascade.t", t)))
	defer span.End()

	for _, wave := range e.topo.Levels() {
		g, gctx := errgroup.WithContext(ctx)
		for _, id := range wave {
			res := e.topo.Reservoir(id)
			series := results.Reservoirs[id]
			g.Go(func() error {
				e.stepReservoir(gctx, t, res, series)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// stepReservoir resolves one reservoir's inflow, asks the policy for a
// release, applies the mass balance, and records the step. It touches
// only state owned by this reservoir plus the shared diagnostics slice
// (mutex-guarded), so wave-mates can run concurrently.
func (e *Engine) stepReservoir(ctx context.Context, t int, res *Reservoir, series *ReservoirSeries) {
	inflow := res.ExternalInflow(t)
	for _, link := range e.topo.Incoming(res.ID()) {
		inflow += link.ContributionAt(t)
	}

	var forecast []float64
	if fc, ok := e.forecasters[res.ID()]; ok {
		def := res.Definition().Forecast
		seq, err := fc.Forecast(ctx, t, def.LeadTime)
		if err != nil {
			// Fail soft: the regular zone rule applies for this step.
			e.record(Diagnostic{Step: t, ReservoirID: res.ID(), Kind: DiagForecastUnavailable, Detail: err.Error()})
			e.log.Warn(ctx, "forecast unavailable",
				logging.String("reservoir", res.ID()),
				logging.Int("step", t),
				logging.Any("error", err.Error()))
			if e.observer != nil {
				e.observer.IncForecastFailure(res.ID())
			}
		} else {
			forecast = seq
		}
	}

	requested := e.policy.Decide(res, inflow, forecast, t)
	actual, spilled := res.ApplyMassBalance(t, inflow, requested, e.dt)

	if spilled {
		e.record(Diagnostic{
			Step: t, ReservoirID: res.ID(), Kind: DiagForcedSpill,
			Detail: fmt.Sprintf("requested %.6g, delivered %.6g", requested, actual),
		})
		if e.observer != nil {
			e.observer.IncSpill(res.ID())
		}
	} else if actual < requested {
		e.record(Diagnostic{
			Step: t, ReservoirID: res.ID(), Kind: DiagReleaseCapped,
			Detail: fmt.Sprintf("requested %.6g, delivered %.6g", requested, actual),
		})
	}

	series.Inflow[t] = inflow
	series.Outflow[t] = actual
	series.Storage[t] = res.Storage()
	series.Level[t] = res.Level()
	series.Zone[t] = res.Zone()

	if e.observer != nil {
		e.observer.ObserveReservoir(res.ID(), res.Storage(), res.Level(), res.Zone())
	}
}

func (e *Engine) record(d Diagnostic) {
	e.mu.Lock()
	e.diagnostics = append(e.diagnostics, d)
	e.mu.Unlock()
}

// finish truncates the series to the completed steps and moves the
// accumulated diagnostics into the results in deterministic order.
func (e *Engine) finish(results *Results, steps int) {
	results.truncate(steps)

	e.mu.Lock()
	diags := e.diagnostics
	e.diagnostics = nil
	e.mu.Unlock()

	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Step != diags[j].Step {
			return diags[i].Step < diags[j].Step
		}
		return diags[i].ReservoirID < diags[j].ReservoirID
	})
	results.Diagnostics = diags
}
