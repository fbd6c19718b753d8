package scheduler

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cloudsched/simcore/internal/domain"
)

// gpuSlackBonus rewards machines that can satisfy a task's GPU need; for the
// greedy policy the GPU requirement is a scoring signal, not a filter.
const gpuSlackBonus = 0.05

// GreedyPolicy provisions no VMs at init and places each task on the machine
// with the most remaining headroom, creating a VM on demand. A watermark
// heuristic: it spreads load rather than consolidating it.
type GreedyPolicy struct {
	relaxCPU bool
	logger   *zap.Logger
}

// NewGreedyPolicy creates a slack-maximizing placement policy. With relaxCPU
// set, machines with a mismatched CPU architecture stay candidates.
func NewGreedyPolicy(relaxCPU bool, logger *zap.Logger) *GreedyPolicy {
	return &GreedyPolicy{
		relaxCPU: relaxCPU,
		logger:   logger.With(zap.String("policy", PolicyGreedy)),
	}
}

// Name returns the policy's config name.
func (p *GreedyPolicy) Name() string { return PolicyGreedy }

// Init registers nothing beyond the machines the facade already added.
func (p *GreedyPolicy) Init(ctx context.Context, host Host, reg *Registry) error {
	p.logger.Info("Greedy policy initialized",
		zap.Int("machines", reg.ActiveMachines()),
		zap.Bool("relax_cpu_type", p.relaxCPU),
	)
	return nil
}

// Place scores every admissible machine by slack and picks the highest.
func (p *GreedyPolicy) Place(ctx context.Context, host Host, reg *Registry, task *domain.Task) (string, error) {
	var best *domain.Machine
	bestScore := math.Inf(-1)

	for _, mid := range reg.Machines() {
		m, err := host.GetMachine(ctx, mid)
		if err != nil {
			return "", fmt.Errorf("read machine %s: %w", mid, err)
		}
		if !machineFits(m, task, p.relaxCPU, false) {
			continue
		}

		score := slackScore(m, task)
		if task.NeedsGPU && m.HasGPU {
			score += gpuSlackBonus
		}

		// Strict > keeps the first-seen machine on ties.
		if score > bestScore {
			bestScore = score
			best = m
		}
	}

	if best == nil {
		return "", domain.ErrInfeasible
	}

	p.logger.Debug("Selected max-slack machine",
		zap.String("task_id", task.ID),
		zap.String("machine_id", best.ID),
		zap.Float64("slack", bestScore),
	)
	return reuseOrCreate(ctx, host, reg, best, task)
}

// slackScore is the headroom left on the machine after admitting the task:
// 1 - (CPU utilization + projected memory utilization). CPU utilization is
// active tasks over core count, capped at 1.
func slackScore(m *domain.Machine, t *domain.Task) float64 {
	cpuUtil := 1.0
	if m.Cores > 0 {
		cpuUtil = float64(m.ActiveTasks) / float64(m.Cores)
		if cpuUtil > 1.0 {
			cpuUtil = 1.0
		}
	}

	memUtil := 1.0
	if m.MemoryMiB > 0 {
		memUtil = float64(m.MemoryUsedMiB+t.MemoryMiB) / float64(m.MemoryMiB)
	}

	return 1.0 - (cpuUtil + memUtil)
}
