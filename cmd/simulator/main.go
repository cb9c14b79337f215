package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/cascade-simulator/core"
	"github.com/signalsfoundry/cascade-simulator/internal/logging"
	"github.com/signalsfoundry/cascade-simulator/internal/observability"
	"github.com/signalsfoundry/cascade-simulator/runstore"
	"github.com/signalsfoundry/cascade-simulator/timectrl"
)

func main() {
	scenarioPath := flag.String("scenario", "configs/cascade_scenario.json", "path to the cascade scenario JSON")
	horizon := flag.Int("horizon", 0, "override the scenario horizon (0 keeps the scenario value)")
	listen := flag.String("listen", "", "address for the Prometheus /metrics endpoint (empty disables)")
	paced := flag.Bool("paced", false, "pace one simulation step per tick instead of running flat out")
	tick := flag.Duration("tick", 1*time.Second, "tick interval for paced runs")
	format := flag.String("format", "text", "report format: text or json")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, log = logging.WithRunLogger(ctx, log)

	tracer, shutdownTracing, err := observability.Setup(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	f, err := os.Open(*scenarioPath)
	if err != nil {
		log.Error(ctx, "failed to open scenario", logging.String("path", *scenarioPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	scenario, err := core.LoadScenario(f)
	f.Close()
	if err != nil {
		log.Error(ctx, "failed to load scenario", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *horizon > 0 {
		scenario.Horizon = *horizon
	}

	topo, err := core.NewCascadeTopology(scenario.Reservoirs, scenario.Links)
	if err != nil {
		log.Error(ctx, "invalid cascade configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "loaded cascade scenario",
		logging.String("path", *scenarioPath),
		logging.Int("reservoirs", topo.Size()),
		logging.Int("horizon", scenario.Horizon))

	opts := []core.Option{
		core.WithLogger(log),
		core.WithTracer(tracer),
	}

	runs := runstore.NewStore()
	runs.Subscribe(func(e runstore.Event) {
		log.Info(ctx, "run archived",
			logging.String("run_id", e.Run.RunID),
			logging.Int("steps_completed", e.Run.StepsCompleted))
	})

	if *listen != "" {
		collector, err := observability.NewSimulationCollector(nil)
		if err != nil {
			log.Error(ctx, "metrics init failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		collector.SetReservoirCount(topo.Size())
		opts = append(opts, core.WithObserver(collector))

		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		mux.Handle("/runs", runs.Handler())
		go func() {
			if err := http.ListenAndServe(*listen, mux); err != nil {
				log.Warn(ctx, "metrics endpoint stopped", logging.String("error", err.Error()))
			}
		}()
		log.Info(ctx, "serving metrics", logging.String("addr", *listen))
	}

	if *paced {
		opts = append(opts, core.WithPacer(timectrl.NewStepPacer(*tick, timectrl.RealTime)))
	}

	// Reservoirs configured for pre-release replay against their own
	// inflow series (perfect foresight). A live deployment would wire a
	// hydrological model client here instead.
	for _, def := range scenario.Reservoirs {
		if def.Forecast != nil {
			opts = append(opts, core.WithForecaster(def.ID, core.NewSeriesForecaster(def.Inflow)))
		}
	}

	engine, err := core.NewEngine(topo, core.NewPolicy(), scenario.Dt, opts...)
	if err != nil {
		log.Error(ctx, "engine construction failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	results, err := engine.Run(ctx, scenario.Horizon)
	if err != nil {
		// A nil results means Run rejected the configuration before any
		// state mutation; only a cancelled run carries partial history.
		if results == nil {
			log.Error(ctx, "run aborted", logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Warn(ctx, "run ended early", logging.String("error", err.Error()),
			logging.Int("steps_completed", results.StepsCompleted))
	}

	assessment := core.Assess(results)
	if err := runs.Add(&runstore.Record{
		RunID:          logging.RunIDFromContext(ctx),
		CompletedAt:    time.Now(),
		Dt:             results.Dt,
		StepsCompleted: results.StepsCompleted,
		Assessment:     assessment,
		Diagnostics:    results.Diagnostics,
	}); err != nil {
		log.Warn(ctx, "run archive failed", logging.String("error", err.Error()))
	}

	if err := printReport(os.Stdout, *format, results, assessment); err != nil {
		log.Error(ctx, "report failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

func printReport(w *os.File, format string, results *core.Results, sys core.SystemAssessment) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			StepsCompleted int                   `json:"steps_completed"`
			Assessment     core.SystemAssessment `json:"assessment"`
			Diagnostics    []core.Diagnostic     `json:"diagnostics"`
		}{results.StepsCompleted, sys, results.Diagnostics})
	}

	fmt.Fprintf(w, "Completed %d steps, dt=%.6gs\n", results.StepsCompleted, results.Dt)
	for _, a := range sys.Reservoirs {
		fmt.Fprintf(w, "  %-12s peak-shaving %.3f  flood-compliant %-5v  residual %.3g  spills %d  forecast-failures %d\n",
			a.ID, a.PeakShavingRatio, a.FloodLimitCompliant, a.WaterBalanceResidual, a.SpillEvents, a.ForecastFailures)
	}
	fmt.Fprintf(w, "System: flood-compliant=%v water-balance-ok=%v spills=%d forecast-failures=%d\n",
		sys.FloodLimitCompliant, sys.WaterBalanceOK, sys.TotalSpillEvents, sys.TotalForecastFailures)
	return nil
}
