// Package main is the entry point for the schedsim workload driver.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cloudsched/simcore/internal/config"
	"github.com/cloudsched/simcore/internal/domain"
	"github.com/cloudsched/simcore/internal/hostsim"
	"github.com/cloudsched/simcore/internal/scheduler"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		println("schedsim workload driver")
		println("Version:", version)
		println("Commit:", commit)
		println("Build Date:", buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		println("Failed to load config:", err.Error())
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	defer logger.Sync()

	logger.Info("Starting schedsim",
		zap.String("version", version),
		zap.String("policy", cfg.Scheduler.Policy),
		zap.Int("task_count", len(cfg.Sim.Tasks)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Simulation error", zap.Error(err))
	}
}

// completion is a scheduled task-finish event in the replay loop.
type completion struct {
	at     domain.Time
	taskID string
}

// run replays the configured workload against an in-memory cluster.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	cluster := hostsim.NewCluster(cfg.Sim.Machines)

	sched, err := scheduler.New(cluster, cfg.Scheduler, logger)
	if err != nil {
		return err
	}
	if err := sched.Init(ctx); err != nil {
		return err
	}
	deliver(ctx, cluster, sched)

	arrivals := append([]hostsim.TaskSpec(nil), cfg.Sim.Tasks...)
	sort.SliceStable(arrivals, func(i, j int) bool {
		return arrivals[i].ArrivalUs < arrivals[j].ArrivalUs
	})

	var completions []completion
	nextTick := domain.Time(cfg.Sim.PeriodicCheckUs)

	for len(arrivals) > 0 || len(completions) > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Completions are delivered before arrivals at the same timestamp so
		// freed capacity is visible to the next placement.
		var now domain.Time
		runCompletion := false
		switch {
		case len(arrivals) == 0:
			runCompletion = true
			now = completions[0].at
		case len(completions) == 0:
			now = domain.Time(arrivals[0].ArrivalUs)
		case completions[0].at <= domain.Time(arrivals[0].ArrivalUs):
			runCompletion = true
			now = completions[0].at
		default:
			now = domain.Time(arrivals[0].ArrivalUs)
		}

		for cfg.Sim.PeriodicCheckUs > 0 && nextTick < now {
			cluster.AdvanceTo(nextTick)
			sched.PeriodicCheck(ctx, nextTick)
			nextTick += domain.Time(cfg.Sim.PeriodicCheckUs)
		}
		cluster.AdvanceTo(now)

		if runCompletion {
			done := completions[0]
			completions = completions[1:]
			if err := cluster.CompleteTask(done.taskID); err != nil {
				return fmt.Errorf("complete task %s: %w", done.taskID, err)
			}
			sched.TaskComplete(ctx, now, done.taskID)
		} else {
			spec := arrivals[0]
			arrivals = arrivals[1:]
			taskID, err := cluster.SubmitTask(spec)
			if err != nil {
				return fmt.Errorf("submit task: %w", err)
			}
			sched.NewTask(ctx, now, taskID)

			if cluster.IsAllocated(taskID) {
				duration := spec.DurationUs
				if duration == 0 {
					duration = 1
				}
				completions = insertCompletion(completions, completion{
					at:     now + domain.Time(duration),
					taskID: taskID,
				})
			}
		}

		deliver(ctx, cluster, sched)
	}

	end := cluster.Now()
	sched.Shutdown(ctx, end)
	return report(ctx, cluster, end)
}

// deliver forwards queued host events to the scheduler.
func deliver(ctx context.Context, cluster *hostsim.Cluster, sched *scheduler.Scheduler) {
	for _, ev := range cluster.DrainEvents() {
		switch ev.Type {
		case hostsim.EventStateChangeComplete:
			sched.StateChangeComplete(ctx, ev.At, ev.MachineID)
		case hostsim.EventMemoryWarning:
			sched.MemoryWarning(ctx, ev.At, ev.MachineID)
		}
	}
}

// insertCompletion keeps the completion list sorted by time.
func insertCompletion(list []completion, c completion) []completion {
	i := sort.Search(len(list), func(i int) bool { return list[i].at > c.at })
	list = append(list, completion{})
	copy(list[i+1:], list[i:])
	list[i] = c
	return list
}

// report prints the end-of-run figures the host accumulated.
func report(ctx context.Context, cluster *hostsim.Cluster, end domain.Time) error {
	fmt.Println("SLA violation report")
	for _, class := range []domain.SLAClass{domain.SLA0, domain.SLA1, domain.SLA2} {
		pct, err := cluster.SLAViolationPct(ctx, class)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %.2f%%\n", class, pct)
	}
	energy, err := cluster.ClusterEnergyKWh(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Total Energy %.4f KW-Hour\n", energy)
	fmt.Printf("Simulation run finished in %.6f seconds\n", end.Seconds())
	return nil
}

// setupLogger configures the zap logger based on configuration.
func setupLogger(cfg config.LoggingConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		panic("Failed to create logger: " + err.Error())
	}

	return logger
}
