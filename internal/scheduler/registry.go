package scheduler

// Registry is the scheduler's only persistent state: the ordered collection
// of managed machine and VM identifiers, plus a per-VM migration latch.
//
// The core is single-threaded by contract (the host delivers one event at a
// time), so the Registry carries no lock. A host that parallelizes event
// delivery must synchronize around it.
type Registry struct {
	machines  []string
	vms       []string
	vmHost    map[string]string
	migrating map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		vmHost:    make(map[string]string),
		migrating: make(map[string]bool),
	}
}

// AddMachine registers a machine under management. Order of registration is
// the host's init order and is the tie-break order for every policy.
func (r *Registry) AddMachine(id string) {
	r.machines = append(r.machines, id)
}

// Machines returns the managed machine IDs in registration order.
func (r *Registry) Machines() []string {
	return append([]string(nil), r.machines...)
}

// ActiveMachines returns the number of machines considered for scheduling.
func (r *Registry) ActiveMachines() int {
	return len(r.machines)
}

// AddVM registers a VM and the machine it was attached to. Called only after
// a successful create+attach; the infeasible path never reaches it.
func (r *Registry) AddVM(vmID, machineID string) {
	r.vms = append(r.vms, vmID)
	r.vmHost[vmID] = machineID
}

// VMs returns the managed VM IDs in registration order.
func (r *Registry) VMs() []string {
	return append([]string(nil), r.vms...)
}

// VMCount returns the number of managed VMs.
func (r *Registry) VMCount() int {
	return len(r.vms)
}

// MachineFor returns the machine a managed VM was attached to.
func (r *Registry) MachineFor(vmID string) (string, bool) {
	id, ok := r.vmHost[vmID]
	return id, ok
}

// VMsOn returns the managed VMs attached to a machine, in registration order.
func (r *Registry) VMsOn(machineID string) []string {
	var out []string
	for _, vmID := range r.vms {
		if r.vmHost[vmID] == machineID {
			out = append(out, vmID)
		}
	}
	return out
}

// MarkMigrating latches a VM as mid-migration. Latched VMs are skipped by
// placement until the host reports MigrationComplete.
func (r *Registry) MarkMigrating(vmID string) {
	r.migrating[vmID] = true
}

// ClearMigrating clears a VM's migration latch.
func (r *Registry) ClearMigrating(vmID string) {
	delete(r.migrating, vmID)
}

// IsMigrating returns true if the VM has an in-flight migration.
func (r *Registry) IsMigrating(vmID string) bool {
	return r.migrating[vmID]
}
