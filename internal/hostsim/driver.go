package hostsim

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cloudsched/simcore/internal/domain"
)

// Driver-side surface of the cluster: the simulation loop owns the clock and
// task lifecycle and uses these methods; the scheduler core never sees them.

// SubmitTask registers a task with the host and returns its identifier. The
// task counts against its SLA class until the scheduler places it.
func (c *Cluster) SubmitTask(spec TaskSpec) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if spec.MemoryMiB <= 0 {
		return "", fmt.Errorf("task memory footprint must be positive: %w", domain.ErrInvalidArgument)
	}

	task := domain.Task{
		ID:        uuid.NewString(),
		CPU:       spec.CPU,
		VMType:    spec.VMType,
		NeedsGPU:  spec.NeedsGPU,
		MemoryMiB: spec.MemoryMiB,
		SLA:       domain.SLAClass(spec.SLA),
	}
	if task.CPU == "" {
		task.CPU = domain.CPUX86
	}
	if task.VMType == "" {
		task.VMType = domain.DefaultVMTypeFor(task.CPU)
	}
	if task.SLA < domain.SLA0 || task.SLA > domain.SLA3 {
		return "", fmt.Errorf("sla class %d out of range: %w", spec.SLA, domain.ErrInvalidArgument)
	}

	c.tasks[task.ID] = &taskState{task: task}
	c.slaTotal[task.SLA]++
	c.slaUnallocated[task.SLA]++
	return task.ID, nil
}

// IsAllocated reports whether the scheduler placed the task on a VM.
func (c *Cluster) IsAllocated(taskID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ts, ok := c.tasks[taskID]
	return ok && ts.allocated
}

// TaskVM returns the VM an allocated task was placed on.
func (c *Cluster) TaskVM(taskID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ts, ok := c.tasks[taskID]
	if !ok || !ts.allocated {
		return "", false
	}
	return ts.vmID, true
}

// VMCount returns the number of VMs the host has created.
func (c *Cluster) VMCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vms)
}

// CompleteTask finishes an allocated task, releasing its memory and its
// machine's active-task slot.
func (c *Cluster) CompleteTask(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if !ts.allocated {
		return fmt.Errorf("task %s is not allocated: %w", taskID, domain.ErrInvalidArgument)
	}

	vm := c.vms[ts.vmID]
	if m, ok := c.machines[vm.MachineID]; ok {
		m.MemoryUsedMiB -= ts.task.MemoryMiB
		m.ActiveTasks--
	}
	for i, id := range vm.TaskIDs {
		if id == taskID {
			vm.TaskIDs = append(vm.TaskIDs[:i], vm.TaskIDs[i+1:]...)
			break
		}
	}
	ts.allocated = false
	ts.completed = true
	return nil
}

// Now returns the current simulated time.
func (c *Cluster) Now() domain.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// AdvanceTo moves the simulated clock forward, integrating each machine's
// wattage over the elapsed interval. Moving backward is a no-op.
func (c *Cluster) AdvanceTo(t domain.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t <= c.now {
		return
	}
	hours := (t - c.now).Seconds() / 3600

	for _, m := range c.machines {
		watts := wattsOff
		switch m.Power {
		case domain.PowerReady:
			watts = wattsReady + wattsPerTask*float64(m.ActiveTasks)
		case domain.PowerTransitioning:
			watts = wattsTransitioning
		}
		c.energyWh += watts * hours
	}
	c.now = t
}

// DrainEvents completes pending power transitions and returns the queued
// events for delivery to the scheduler, oldest first.
func (c *Cluster) DrainEvents() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	for machineID, target := range c.pendingPower {
		if m, ok := c.machines[machineID]; ok {
			m.Power = target
		}
		delete(c.pendingPower, machineID)
	}

	events := c.events
	c.events = nil
	return events
}
