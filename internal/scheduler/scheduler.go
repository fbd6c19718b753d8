package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloudsched/simcore/internal/domain"
	"github.com/cloudsched/simcore/internal/observability"
)

// Scheduler is the event-handling surface the simulation host drives. It
// sequences host events into the active placement policy and the registry,
// and issues placement commands back to the host.
//
// The host invokes exactly one entry point at a time; the scheduler holds no
// locks of its own.
type Scheduler struct {
	host   Host
	policy Policy
	reg    *Registry
	logger *zap.Logger
}

// New creates a scheduler driving the given host with the configured policy.
func New(host Host, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	policy, err := newPolicy(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		host:   host,
		policy: policy,
		reg:    NewRegistry(),
		logger: logger.With(
			zap.String("component", "scheduler"),
			zap.String("policy", policy.Name()),
		),
	}, nil
}

// PolicyName returns the name of the active placement policy.
func (s *Scheduler) PolicyName() string { return s.policy.Name() }

// Init registers every machine the host reports, requests READY power state
// for any that are not, and runs the policy's own initialization.
func (s *Scheduler) Init(ctx context.Context) error {
	ids, err := s.host.ListMachines(ctx)
	if err != nil {
		return fmt.Errorf("list machines: %w", err)
	}

	for _, id := range ids {
		m, err := s.host.GetMachine(ctx, id)
		if err != nil {
			return fmt.Errorf("read machine %s: %w", id, err)
		}
		if m.Power != domain.PowerReady {
			if err := s.host.SetMachineState(ctx, id, domain.PowerReady); err != nil {
				return fmt.Errorf("power on machine %s: %w", id, err)
			}
			observability.PowerTransitions.Inc()
		}
		s.reg.AddMachine(id)
	}

	s.logger.Info("Scheduler initialized", zap.Int("machines", s.reg.ActiveMachines()))
	return s.policy.Init(ctx, s.host, s.reg)
}

// NewTask handles a task arrival: it derives the task's requirements, asks
// the policy for a destination, and issues the add-task command. Infeasible
// placement is an expected outcome, reported through logs and metrics, never
// as an error to the host.
func (s *Scheduler) NewTask(ctx context.Context, now domain.Time, taskID string) {
	task, err := s.host.GetTask(ctx, taskID)
	if err != nil {
		s.logger.Error("Failed to read task", zap.String("task_id", taskID), zap.Error(err))
		return
	}

	vmsBefore := s.reg.VMCount()
	vmID, err := s.policy.Place(ctx, s.host, s.reg, task)
	if err != nil {
		if errors.Is(err, domain.ErrInfeasible) {
			s.logger.Warn("No feasible host for task, leaving unallocated",
				zap.String("task_id", taskID),
				zap.String("sla", task.SLA.String()),
				zap.Uint64("now", uint64(now)),
			)
		} else {
			// Host refused a create/attach; a failed attempt, not a fault.
			s.logger.Error("Placement attempt failed",
				zap.String("task_id", taskID),
				zap.Error(err),
			)
		}
		observability.UnallocatedTasks.WithLabelValues(task.SLA.String()).Inc()
		return
	}
	if s.reg.VMCount() > vmsBefore {
		observability.VMsCreated.WithLabelValues(s.policy.Name()).Inc()
	}

	if err := s.host.AddTask(ctx, vmID, taskID, task.SLA.Priority()); err != nil {
		s.logger.Error("Failed to add task to VM",
			zap.String("task_id", taskID),
			zap.String("vm_id", vmID),
			zap.Error(err),
		)
		observability.UnallocatedTasks.WithLabelValues(task.SLA.String()).Inc()
		return
	}

	observability.Placements.WithLabelValues(s.policy.Name()).Inc()
	s.logger.Debug("Task placed",
		zap.String("task_id", taskID),
		zap.String("vm_id", vmID),
		zap.Uint64("now", uint64(now)),
	)
}

// TaskComplete handles a task completion. Pure bookkeeping: load figures are
// re-read fresh on the next placement, so nothing is rebalanced here.
func (s *Scheduler) TaskComplete(ctx context.Context, now domain.Time, taskID string) {
	s.logger.Debug("Task complete",
		zap.String("task_id", taskID),
		zap.Uint64("now", uint64(now)),
	)
}

// PeriodicCheck is the hook for consolidation or power sweeps. None of the
// shipped policies act here.
func (s *Scheduler) PeriodicCheck(ctx context.Context, now domain.Time) {
	s.logger.Debug("Periodic check", zap.Uint64("now", uint64(now)))
}

// MigrationComplete clears the VM's migration latch so future placements may
// target it again.
func (s *Scheduler) MigrationComplete(ctx context.Context, now domain.Time, vmID string) {
	s.reg.ClearMigrating(vmID)
	s.logger.Debug("Migration complete",
		zap.String("vm_id", vmID),
		zap.Uint64("now", uint64(now)),
	)
}

// StateChangeComplete acknowledges a machine power-state change.
func (s *Scheduler) StateChangeComplete(ctx context.Context, now domain.Time, machineID string) {
	s.logger.Debug("Machine state change complete",
		zap.String("machine_id", machineID),
		zap.Uint64("now", uint64(now)),
	)
}

// MemoryWarning handles a host alert that a machine's memory is overcommitted.
func (s *Scheduler) MemoryWarning(ctx context.Context, now domain.Time, machineID string) {
	s.logger.Warn("Machine memory overcommitted",
		zap.String("machine_id", machineID),
		zap.Uint64("now", uint64(now)),
	)
}

// SLAWarning handles a host alert that a task is running late by boosting it
// to high priority.
func (s *Scheduler) SLAWarning(ctx context.Context, now domain.Time, taskID string) {
	if err := s.host.SetTaskPriority(ctx, taskID, domain.PriorityHigh); err != nil {
		s.logger.Error("Failed to boost late task",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Boosted late task to high priority",
		zap.String("task_id", taskID),
		zap.Uint64("now", uint64(now)),
	)
}

// Shutdown requests shutdown of every registered VM in one pass, then
// surfaces the host's end-of-run report. Idempotent with respect to the
// registry; the host treats repeated shutdowns as no-ops.
func (s *Scheduler) Shutdown(ctx context.Context, now domain.Time) {
	for _, vmID := range s.reg.VMs() {
		if err := s.host.ShutdownVM(ctx, vmID); err != nil {
			s.logger.Error("Failed to shut down VM", zap.String("vm_id", vmID), zap.Error(err))
		}
	}

	fields := []zap.Field{zap.Float64("duration_s", now.Seconds())}
	for _, class := range []domain.SLAClass{domain.SLA0, domain.SLA1, domain.SLA2} {
		pct, err := s.host.SLAViolationPct(ctx, class)
		if err != nil {
			s.logger.Error("Failed to read SLA report", zap.Error(err))
			continue
		}
		fields = append(fields, zap.Float64(class.String()+"_violation_pct", pct))
	}
	if energy, err := s.host.ClusterEnergyKWh(ctx); err == nil {
		fields = append(fields, zap.Float64("energy_kwh", energy))
	} else {
		s.logger.Error("Failed to read cluster energy", zap.Error(err))
	}

	s.logger.Info("Simulation complete", fields...)
}
