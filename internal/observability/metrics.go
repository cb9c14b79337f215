package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/cascade-simulator/model"
)

// SimulationCollector bundles Prometheus metrics for the cascade engine
// and implements core.StepObserver so the engine can drive it directly.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	StepsTotal   prometheus.Counter
	StepDuration prometheus.Histogram
	Reservoirs   prometheus.Gauge

	ReservoirStorage *prometheus.GaugeVec
	ReservoirLevel   *prometheus.GaugeVec
	ReservoirZone    *prometheus.GaugeVec

	SpillEvents      *prometheus.CounterVec
	ForecastFailures *prometheus.CounterVec
}

// NewSimulationCollector registers the engine metrics against the
// provided registerer, defaulting to the global Prometheus registry
// when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cascade_steps_total",
		Help: "Total number of completed simulation steps.",
	}), "cascade_steps_total")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cascade_step_duration_seconds",
		Help:    "Wall-clock duration of one simulation step.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
	duration, err = registerHistogram(reg, duration, "cascade_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	reservoirs, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cascade_reservoirs",
		Help: "Number of reservoirs in the loaded cascade.",
	}), "cascade_reservoirs")
	if err != nil {
		return nil, err
	}

	storage := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cascade_reservoir_storage",
		Help: "Current storage volume per reservoir.",
	}, []string{"reservoir"})
	storage, err = registerGaugeVec(reg, storage, "cascade_reservoir_storage")
	if err != nil {
		return nil, err
	}

	level := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cascade_reservoir_level",
		Help: "Current water level per reservoir.",
	}, []string{"reservoir"})
	level, err = registerGaugeVec(reg, level, "cascade_reservoir_level")
	if err != nil {
		return nil, err
	}

	zone := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cascade_reservoir_zone",
		Help: "Current operating zone per reservoir (0=dead, 1=normal, 2=flood-control, 3=surcharge).",
	}, []string{"reservoir"})
	zone, err = registerGaugeVec(reg, zone, "cascade_reservoir_zone")
	if err != nil {
		return nil, err
	}

	spills := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_spill_events_total",
		Help: "Forced spill events per reservoir.",
	}, []string{"reservoir"})
	spills, err = registerCounterVec(reg, spills, "cascade_spill_events_total")
	if err != nil {
		return nil, err
	}

	fcFails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_forecast_failures_total",
		Help: "Forecast calls that failed or timed out, per reservoir.",
	}, []string{"reservoir"})
	fcFails, err = registerCounterVec(reg, fcFails, "cascade_forecast_failures_total")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:         gatherer,
		StepsTotal:       steps,
		StepDuration:     duration,
		Reservoirs:       reservoirs,
		ReservoirStorage: storage,
		ReservoirLevel:   level,
		ReservoirZone:    zone,
		SpillEvents:      spills,
		ForecastFailures: fcFails,
	}, nil
}

// SetReservoirCount records the size of the loaded cascade.
func (c *SimulationCollector) SetReservoirCount(n int) {
	if c == nil {
		return
	}
	c.Reservoirs.Set(float64(n))
}

// ObserveStep records a completed step and its duration.
func (c *SimulationCollector) ObserveStep(t int, d time.Duration) {
	if c == nil {
		return
	}
	c.StepsTotal.Inc()
	c.StepDuration.Observe(d.Seconds())
}

// ObserveReservoir updates the per-reservoir state gauges.
func (c *SimulationCollector) ObserveReservoir(id string, storage, level float64, zone model.Zone) {
	if c == nil {
		return
	}
	c.ReservoirStorage.WithLabelValues(id).Set(storage)
	c.ReservoirLevel.WithLabelValues(id).Set(level)
	c.ReservoirZone.WithLabelValues(id).Set(float64(zone))
}

// IncSpill counts one forced spill event.
func (c *SimulationCollector) IncSpill(id string) {
	if c == nil {
		return
	}
	c.SpillEvents.WithLabelValues(id).Inc()
}

// IncForecastFailure counts one failed forecast call.
func (c *SimulationCollector) IncForecastFailure(id string) {
	if c == nil {
		return
	}
	c.ForecastFailures.WithLabelValues(id).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
