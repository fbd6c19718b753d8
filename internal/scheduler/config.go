package scheduler

// Config holds the scheduler configuration.
type Config struct {
	// Policy selects the placement policy.
	// - "loadbalance":  least-loaded VM over a pre-provisioned VM-per-machine pool
	// - "slapartition": pool-split first-fit with capacity reserved for strict SLAs
	// - "greedy":       slack-maximizing machine scorer, VMs created on demand
	// - "efficiency":   consolidation scorer preferring already-warm machines
	Policy string `mapstructure:"policy"`

	// RelaxCPUType makes the greedy policy ignore CPU-architecture mismatch
	// when filtering machines. Only the greedy policy honors it.
	RelaxCPUType bool `mapstructure:"relax_cpu_type"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Policy:       PolicyLoadBalance,
		RelaxCPUType: false,
	}
}
