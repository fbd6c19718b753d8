package scheduler

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cloudsched/simcore/internal/domain"
)

// LoadBalancePolicy pre-provisions one VM per machine and places each task on
// the feasible VM whose machine has the fewest active tasks. Ties go to the
// lowest machine index. No VM is created or destroyed after init.
type LoadBalancePolicy struct {
	logger *zap.Logger
}

// NewLoadBalancePolicy creates a load-balancing placement policy.
func NewLoadBalancePolicy(logger *zap.Logger) *LoadBalancePolicy {
	return &LoadBalancePolicy{
		logger: logger.With(zap.String("policy", PolicyLoadBalance)),
	}
}

// Name returns the policy's config name.
func (p *LoadBalancePolicy) Name() string { return PolicyLoadBalance }

// Init creates and attaches one VM per machine.
func (p *LoadBalancePolicy) Init(ctx context.Context, host Host, reg *Registry) error {
	if err := provisionPerMachine(ctx, host, reg); err != nil {
		return err
	}
	p.logger.Info("Pre-provisioned one VM per machine", zap.Int("vms", reg.VMCount()))
	return nil
}

// Place scans every managed VM and picks the least-loaded feasible one.
func (p *LoadBalancePolicy) Place(ctx context.Context, host Host, reg *Registry, task *domain.Task) (string, error) {
	bestVM := ""
	bestLoad := int32(math.MaxInt32)

	for _, vmID := range reg.VMs() {
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

		if !canHost(m, vm, task) {
			continue
		}

		// Strict < keeps the earliest-scanned VM on ties.
		if m.ActiveTasks < bestLoad {
			bestLoad = m.ActiveTasks
			bestVM = vmID
		}
	}

	if bestVM == "" {
		return "", domain.ErrInfeasible
	}

	p.logger.Debug("Selected least-loaded VM",
		zap.String("task_id", task.ID),
		zap.String("vm_id", bestVM),
		zap.Int32("active_tasks", bestLoad),
	)
	return bestVM, nil
}
