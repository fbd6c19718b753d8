package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloudsched/simcore/internal/domain"
)

// Policy names accepted by Config.Policy.
const (
	PolicyLoadBalance  = "loadbalance"
	PolicySLAPartition = "slapartition"
	PolicyGreedy       = "greedy"
	PolicyEfficiency   = "efficiency"
)

// Policy selects a destination VM for an incoming task. Implementations must
// be deterministic given identical host state and must leave the registry and
// host state unchanged on the infeasible path.
type Policy interface {
	// Name returns the policy's config name.
	Name() string

	// Init runs once after the facade has powered on and registered every
	// machine; policies that pre-provision VMs do so here.
	Init(ctx context.Context, host Host, reg *Registry) error

	// Place returns the VM (existing or newly created) that should run the
	// task, or domain.ErrInfeasible when no host qualifies.
	Place(ctx context.Context, host Host, reg *Registry, task *domain.Task) (string, error)
}

// newPolicy builds the policy named by the configuration.
func newPolicy(cfg Config, logger *zap.Logger) (Policy, error) {
	switch cfg.Policy {
	case PolicyLoadBalance, "":
		return NewLoadBalancePolicy(logger), nil
	case PolicySLAPartition:
		return NewSLAPartitionPolicy(logger), nil
	case PolicyGreedy:
		return NewGreedyPolicy(cfg.RelaxCPUType, logger), nil
	case PolicyEfficiency:
		return NewEfficiencyPolicy(logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown placement policy %q", domain.ErrInvalidArgument, cfg.Policy)
	}
}

// provisionPerMachine creates and attaches one VM per registered machine.
// The VM's CPU mirrors its machine and the image follows the CPU family.
// Used by the loadbalance and slapartition inits.
func provisionPerMachine(ctx context.Context, host Host, reg *Registry) error {
	for _, mid := range reg.Machines() {
		m, err := host.GetMachine(ctx, mid)
		if err != nil {
			return fmt.Errorf("read machine %s: %w", mid, err)
		}

		vmID, err := host.CreateVM(ctx, domain.DefaultVMTypeFor(m.CPU), m.CPU)
		if err != nil {
			return fmt.Errorf("create vm for machine %s: %w", mid, err)
		}
		if err := host.AttachVM(ctx, vmID, mid); err != nil {
			return fmt.Errorf("attach vm %s to machine %s: %w", vmID, mid, err)
		}

		reg.AddVM(vmID, mid)
	}
	return nil
}

// findCompatibleVM returns the first managed VM on the machine whose image
// matches the task and whose CPU matches the machine, skipping VMs with an
// in-flight migration. Returns "" when none qualifies.
func findCompatibleVM(ctx context.Context, host Host, reg *Registry, m *domain.Machine, t *domain.Task) (string, error) {
	for _, vmID := range reg.VMsOn(m.ID) {
		if reg.IsMigrating(vmID) {
			continue
		}
		vm, err := host.GetVM(ctx, vmID)
		if err != nil {
			return "", fmt.Errorf("read vm %s: %w", vmID, err)
		}
		if vm.IsAttached() && vm.Type == t.VMType && vm.CPU == m.CPU {
			return vmID, nil
		}
	}
	return "", nil
}

// reuseOrCreate places the task's VM on the chosen machine: an existing
// compatible VM if one is attached, otherwise a freshly created one. The
// registry is only mutated after a successful create+attach; a host refusal
// fails the placement attempt without partial state.
func reuseOrCreate(ctx context.Context, host Host, reg *Registry, m *domain.Machine, t *domain.Task) (string, error) {
	vmID, err := findCompatibleVM(ctx, host, reg, m, t)
	if err != nil {
		return "", err
	}
	if vmID != "" {
		return vmID, nil
	}

	// VM CPU mirrors the machine so the attach invariant holds even when the
	// greedy policy placed across architectures.
	vmID, err = host.CreateVM(ctx, t.VMType, m.CPU)
	if err != nil {
		return "", fmt.Errorf("create vm: %w", err)
	}
	if err := host.AttachVM(ctx, vmID, m.ID); err != nil {
		return "", fmt.Errorf("attach vm %s: %w", vmID, err)
	}

	reg.AddVM(vmID, m.ID)
	return vmID, nil
}
