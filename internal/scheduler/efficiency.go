package scheduler

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cloudsched/simcore/internal/domain"
)

const (
	// vmReuseBonus rewards machines that already hold a compatible VM,
	// biasing placement toward already-warm hosts.
	vmReuseBonus = 0.1

	// gpuEfficiencyBonus rewards GPU machines for GPU tasks on top of the
	// hard GPU filter.
	gpuEfficiencyBonus = 0.1
)

// EfficiencyPolicy is the consolidation-oriented scorer: strict on CPU and
// GPU requirements, and biased toward machines that are already utilized and
// already hold a compatible VM. The intended energy-proportionality lever:
// load lands on fewer machines.
type EfficiencyPolicy struct {
	logger *zap.Logger
}

// NewEfficiencyPolicy creates a consolidation-scoring placement policy.
func NewEfficiencyPolicy(logger *zap.Logger) *EfficiencyPolicy {
	return &EfficiencyPolicy{
		logger: logger.With(zap.String("policy", PolicyEfficiency)),
	}
}

// Name returns the policy's config name.
func (p *EfficiencyPolicy) Name() string { return PolicyEfficiency }

// Init registers nothing beyond the machines the facade already added.
func (p *EfficiencyPolicy) Init(ctx context.Context, host Host, reg *Registry) error {
	p.logger.Info("Efficiency policy initialized", zap.Int("machines", reg.ActiveMachines()))
	return nil
}

// Place scores every admissible machine and picks the highest.
func (p *EfficiencyPolicy) Place(ctx context.Context, host Host, reg *Registry, task *domain.Task) (string, error) {
	var best *domain.Machine
	bestScore := math.Inf(-1)

	for _, mid := range reg.Machines() {
		m, err := host.GetMachine(ctx, mid)
		if err != nil {
			return "", fmt.Errorf("read machine %s: %w", mid, err)
		}
		if !machineFits(m, task, false, true) {
			continue
		}

		score := efficiencyScore(m, task)

		warmVM, err := findCompatibleVM(ctx, host, reg, m, task)
		if err != nil {
			return "", err
		}
		if warmVM != "" {
			score += vmReuseBonus
		}
		if task.NeedsGPU && m.HasGPU {
			score += gpuEfficiencyBonus
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

	p.logger.Debug("Selected max-efficiency machine",
		zap.String("task_id", task.ID),
		zap.String("machine_id", best.ID),
		zap.Float64("score", bestScore),
	)
	return reuseOrCreate(ctx, host, reg, best, task)
}

// efficiencyScore weighs CPU and projected memory utilization equally:
// 1 - (0.5*cpuUtil + 0.5*projectedMemUtil).
func efficiencyScore(m *domain.Machine, t *domain.Task) float64 {
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

	return 1.0 - (0.5*cpuUtil + 0.5*memUtil)
}
