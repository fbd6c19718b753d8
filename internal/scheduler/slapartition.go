package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloudsched/simcore/internal/domain"
)

// SLAPartitionPolicy reserves capacity for strict-SLA tasks. Machines are
// split into two contiguous pools by index: the first half serves SLA0/SLA1
// tasks, the second half best-effort tasks. Each task first-fits its preferred
// pool and falls back to a first-fit scan over all VMs on overflow.
type SLAPartitionPolicy struct {
	logger *zap.Logger
}

// NewSLAPartitionPolicy creates an SLA-partitioned placement policy.
func NewSLAPartitionPolicy(logger *zap.Logger) *SLAPartitionPolicy {
	return &SLAPartitionPolicy{
		logger: logger.With(zap.String("policy", PolicySLAPartition)),
	}
}

// Name returns the policy's config name.
func (p *SLAPartitionPolicy) Name() string { return PolicySLAPartition }

// Init creates and attaches one VM per machine, identical to loadbalance.
func (p *SLAPartitionPolicy) Init(ctx context.Context, host Host, reg *Registry) error {
	if err := provisionPerMachine(ctx, host, reg); err != nil {
		return err
	}
	split := reg.VMCount() / 2
	p.logger.Info("Partitioned machine pool",
		zap.Int("high_priority", split),
		zap.Int("best_effort", reg.VMCount()-split),
	)
	return nil
}

// Place first-fits the task's preferred pool, then the whole cluster.
func (p *SLAPartitionPolicy) Place(ctx context.Context, host Host, reg *Registry, task *domain.Task) (string, error) {
	vms := reg.VMs()
	split := len(vms) / 2

	var preferred []string
	if task.SLA <= domain.SLA1 {
		preferred = vms[:split]
	} else {
		preferred = vms[split:]
	}

	vmID, err := p.firstFit(ctx, host, reg, preferred, task)
	if err != nil {
		return "", err
	}
	if vmID == "" {
		// Preferred pool exhausted; overflow onto the whole cluster.
		vmID, err = p.firstFit(ctx, host, reg, vms, task)
		if err != nil {
			return "", err
		}
	}
	if vmID == "" {
		return "", domain.ErrInfeasible
	}

	p.logger.Debug("Selected first-fit VM",
		zap.String("task_id", task.ID),
		zap.String("vm_id", vmID),
		zap.String("sla", task.SLA.String()),
	)
	return vmID, nil
}

// firstFit returns the first feasible VM in index order, or "" when the pool
// has none.
func (p *SLAPartitionPolicy) firstFit(ctx context.Context, host Host, reg *Registry, pool []string, task *domain.Task) (string, error) {
	for _, vmID := range pool {
		if reg.IsMigrating(vmID) {
			continue
		}

		vm, err := host.GetVM(ctx, vmID)
		if err != nil {
			return "", fmt.Errorf("read vm %s: %w", vmID, err)
		}
		if !vm.IsAttached() {
			continue
		}
		m, err := host.GetMachine(ctx, vm.MachineID)
		if err != nil {
			return "", fmt.Errorf("read machine %s: %w", vm.MachineID, err)
		}

		if canHost(m, vm, task) {
			return vmID, nil
		}
	}
	return "", nil
}
