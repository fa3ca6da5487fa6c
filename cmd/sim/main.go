package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ardalan-sia/planar-traffic/pkg/config"
	"github.com/ardalan-sia/planar-traffic/pkg/feed"
	"github.com/ardalan-sia/planar-traffic/pkg/graph"
	"github.com/ardalan-sia/planar-traffic/pkg/report"
	"github.com/ardalan-sia/planar-traffic/pkg/rng"
	"github.com/ardalan-sia/planar-traffic/pkg/simulation"
)

type options struct {
	configPath string
	seed       uint64
	duration   time.Duration
	addr       string
	reportPath string
	headless   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "config file (default: search $TRAFFICSIM_CONFIG, ./trafficsim.yaml, XDG)")
	flag.Uint64Var(&opts.seed, "seed", 0, "network seed, overrides the config")
	flag.DurationVar(&opts.duration, "duration", 0, "stop after this much simulated time, 0 runs until interrupted")
	flag.StringVar(&opts.addr, "addr", "", "serve the snapshot feed on this address")
	flag.StringVar(&opts.reportPath, "report", "", "record run statistics to this SQLite file")
	flag.BoolVar(&opts.headless, "headless", false, "tick with a fixed step as fast as possible instead of in real time")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "sim"})

	cfg, path, err := loadConfig(opts.configPath)
	if err != nil {
		logger.Fatal("failed to load config", "path", path, "err", err)
	}
	opts.apply(cfg)
	logger.SetLevel(cfg.Level())
	if path != "" {
		logger.Info("config loaded", "path", path)
	}

	if err := run(cfg, opts.headless, logger); err != nil {
		logger.Fatal("simulation aborted", "err", err)
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func (o options) apply(cfg *config.Config) {
	if o.seed != 0 {
		cfg.Network.Seed = o.seed
	}
	if o.duration != 0 {
		cfg.Run.Duration = config.Duration(o.duration)
	}
	if o.addr != "" {
		cfg.Feed.Enabled = true
		cfg.Feed.Addr = o.addr
	}
	if o.reportPath != "" {
		cfg.Report.Enabled = true
		cfg.Report.Path = o.reportPath
	}
}

func run(cfg *config.Config, headless bool, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bcfg := cfg.BuildConfig()
	net := graph.Build(bcfg, rng.New(cfg.Network.Seed), logger)
	if err := net.Validate(bcfg.MaxDegree, bcfg.MaxEdgeLength); err != nil {
		return err
	}
	logger.Info("network ready", "seed", cfg.Network.Seed, "nodes", len(net.Nodes), "edges", len(net.Edges))

	sim := simulation.NewSimulator(net, cfg.SimConfig(), rng.New(cfg.Traffic.SpawnSeed), logger)
	runner := simulation.NewRunner(sim, logger)

	var (
		store *report.Store
		runID string
	)
	if cfg.Report.Enabled {
		var err error
		store, err = report.Open(cfg.Report.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.StartRun(ctx, report.RunMeta{
			Seed:      cfg.Network.Seed,
			SpawnSeed: cfg.Traffic.SpawnSeed,
			Nodes:     len(net.Nodes),
			Edges:     len(net.Edges),
		})
		if err != nil {
			return err
		}
		runner.Recorder = store.Recorder(id)
		runner.RecordEvery = cfg.Report.EveryTicks
		runID = id.String()
		logger.Info("recording run", "db", cfg.Report.Path, "run", runID)

		defer func() {
			// ctx may already be cancelled by the signal that ended the run.
			fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.FinishRun(fctx, id, runner.Stats()); err != nil {
				logger.Error("failed to finish run", "run", runID, "err", err)
			}
		}()
	}

	if cfg.Feed.Enabled {
		srv := feed.New(runner, cfg.Feed.PushInterval.Duration(), logger)
		server := &http.Server{
			Addr:         cfg.Feed.Addr,
			Handler:      srv.Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go srv.Run(ctx)
		go func() {
			logger.Info("feed listening", "addr", cfg.Feed.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("feed server failed", "err", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(sctx); err != nil {
				logger.Error("feed shutdown failed", "err", err)
			}
		}()
	}

	tick := cfg.Run.Tick.Duration()
	limit := cfg.Run.Duration.Duration()
	var err error
	switch {
	case headless:
		if limit == 0 {
			limit = time.Minute
		}
		logger.Info("running headless", "step", tick, "until", limit)
		err = runner.RunFor(ctx, tick.Seconds(), limit.Seconds())
	default:
		rctx := ctx
		if limit > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, limit)
			defer cancel()
		}
		logger.Info("running", "tick", tick, "limit", limit)
		err = runner.Run(rctx, tick)
	}
	if err != nil {
		return err
	}

	summarize(runner.Sample(), logger)
	return nil
}

func summarize(s simulation.Sample, logger *log.Logger) {
	st := s.Stats
	logger.Info("run finished",
		"time", s.Time,
		"live", s.Live,
		"spawned", st.Spawned,
		"arrived", st.Arrived,
		"discarded", st.Discarded,
		"crowded", st.Crowded,
		"moving_steps", st.MovingSteps,
		"jammed_steps", st.JammedSteps,
		"max_passes", s.MaxPasses,
		"avg_hops", st.AvgHops(),
	)
	for hops, count := range st.HopHistogram {
		if count == 0 {
			continue
		}
		label := "hops"
		if hops == simulation.HistogramBuckets-1 {
			label = "hops_at_least"
		}
		logger.Info("route length", label, hops, "routes", count)
	}
}
