// Package hostsim provides an in-memory simulation host: the cluster state,
// event queue, and end-of-run accounting the scheduler core is driven by in
// tests and in the schedsim CLI.
package hostsim

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cloudsched/simcore/internal/domain"
	"github.com/cloudsched/simcore/internal/scheduler"
)

// Ensure Cluster implements the full host surface the core depends on.
var _ scheduler.Host = (*Cluster)(nil)

// EventType identifies an asynchronous host event.
type EventType string

const (
	EventStateChangeComplete EventType = "STATE_CHANGE_COMPLETE"
	EventMemoryWarning       EventType = "MEMORY_WARNING"
)

// Event is an asynchronous host notification, delivered to the scheduler by
// the simulation driver.
type Event struct {
	Type      EventType
	MachineID string
	At        domain.Time
}

// MachineSpec describes a group of identical machines to build.
type MachineSpec struct {
	Count     int            `mapstructure:"count" json:"count"`
	CPU       domain.CPUType `mapstructure:"cpu" json:"cpu"`
	Cores     int32          `mapstructure:"cores" json:"cores"`
	MemoryMiB int64          `mapstructure:"memory_mib" json:"memory_mib"`
	HasGPU    bool           `mapstructure:"has_gpu" json:"has_gpu"`

	// StartOff builds the group powered off, so the scheduler's init has to
	// bring it up.
	StartOff bool `mapstructure:"start_off" json:"start_off"`
}

// TaskSpec describes a workload task to submit.
type TaskSpec struct {
	ArrivalUs  uint64         `mapstructure:"arrival_us" json:"arrival_us"`
	DurationUs uint64         `mapstructure:"duration_us" json:"duration_us"`
	CPU        domain.CPUType `mapstructure:"cpu" json:"cpu"`
	VMType     domain.VMType  `mapstructure:"vm_type" json:"vm_type"`
	MemoryMiB  int64          `mapstructure:"memory_mib" json:"memory_mib"`
	NeedsGPU   bool           `mapstructure:"needs_gpu" json:"needs_gpu"`
	SLA        int            `mapstructure:"sla" json:"sla"`
}

// Per-state machine wattage for the energy account.
const (
	wattsOff           = 10.0
	wattsTransitioning = 120.0
	wattsReady         = 200.0
	wattsPerTask       = 15.0
)

type taskState struct {
	task      domain.Task
	allocated bool
	completed bool
	vmID      string
	priority  domain.TaskPriority
}

// Cluster is the in-memory simulation host. All state reads return deep
// clones so callers can never mutate ground truth, and unknown identifiers
// yield domain.ErrNotFound.
type Cluster struct {
	mu sync.RWMutex

	now      domain.Time
	order    []string
	machines map[string]*domain.Machine
	vms      map[string]*domain.VM
	tasks    map[string]*taskState

	pendingPower map[string]domain.PowerState
	events       []Event

	energyWh       float64
	slaTotal       map[domain.SLAClass]int
	slaUnallocated map[domain.SLAClass]int
}

// NewCluster builds a cluster from machine group specs. Machines power up
// READY unless the group says otherwise.
func NewCluster(specs []MachineSpec) *Cluster {
	c := &Cluster{
		machines:       make(map[string]*domain.Machine),
		vms:            make(map[string]*domain.VM),
		tasks:          make(map[string]*taskState),
		pendingPower:   make(map[string]domain.PowerState),
		slaTotal:       make(map[domain.SLAClass]int),
		slaUnallocated: make(map[domain.SLAClass]int),
	}

	for _, spec := range specs {
		for i := 0; i < spec.Count; i++ {
			power := domain.PowerReady
			if spec.StartOff {
				power = domain.PowerOff
			}
			m := &domain.Machine{
				ID:        uuid.NewString(),
				CPU:       spec.CPU,
				Power:     power,
				Cores:     spec.Cores,
				MemoryMiB: spec.MemoryMiB,
				HasGPU:    spec.HasGPU,
			}
			c.machines[m.ID] = m
			c.order = append(c.order, m.ID)
		}
	}

	return c
}

// ============================================================================
// scheduler.Host — read side
// ============================================================================

// ListMachines returns every machine ID in creation order.
func (c *Cluster) ListMachines(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]string(nil), c.order...), nil
}

// GetMachine retrieves a machine snapshot by ID.
func (c *Cluster) GetMachine(ctx context.Context, id string) (*domain.Machine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.machines[id]
	if !ok {
		return nil, fmt.Errorf("machine %s: %w", id, domain.ErrNotFound)
	}
	clone := *m
	return &clone, nil
}

// GetVM retrieves a VM snapshot by ID.
func (c *Cluster) GetVM(ctx context.Context, id string) (*domain.VM, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	vm, ok := c.vms[id]
	if !ok {
		return nil, fmt.Errorf("vm %s: %w", id, domain.ErrNotFound)
	}
	return cloneVM(vm), nil
}

// GetTask retrieves a task's requirements by ID.
func (c *Cluster) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ts, ok := c.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	clone := ts.task
	return &clone, nil
}

// ============================================================================
// scheduler.Host — command side
// ============================================================================

// SetMachineState requests a power-state change. The machine transitions
// immediately to TRANSITIONING; the change completes when the driver drains
// the event queue.
func (c *Cluster) SetMachineState(ctx context.Context, machineID string, state domain.PowerState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.machines[machineID]
	if !ok {
		return fmt.Errorf("machine %s: %w", machineID, domain.ErrNotFound)
	}
	if state == domain.PowerTransitioning {
		return fmt.Errorf("cannot request transitional state: %w", domain.ErrInvalidArgument)
	}
	if m.Power == state {
		return nil
	}

	m.Power = domain.PowerTransitioning
	c.pendingPower[machineID] = state
	c.events = append(c.events, Event{
		Type:      EventStateChangeComplete,
		MachineID: machineID,
		At:        c.now,
	})
	return nil
}

// CreateVM creates an unattached VM of the given image type and CPU.
func (c *Cluster) CreateVM(ctx context.Context, vmType domain.VMType, cpu domain.CPUType) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vm := &domain.VM{
		ID:    uuid.NewString(),
		Type:  vmType,
		CPU:   cpu,
		State: domain.VMStateUnattached,
	}
	c.vms[vm.ID] = vm
	return vm.ID, nil
}

// AttachVM attaches an unattached VM to a machine of the same CPU type.
func (c *Cluster) AttachVM(ctx context.Context, vmID, machineID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	vm, ok := c.vms[vmID]
	if !ok {
		return fmt.Errorf("vm %s: %w", vmID, domain.ErrNotFound)
	}
	m, ok := c.machines[machineID]
	if !ok {
		return fmt.Errorf("machine %s: %w", machineID, domain.ErrNotFound)
	}
	if vm.State != domain.VMStateUnattached {
		return fmt.Errorf("vm %s is %s: %w", vmID, vm.State, domain.ErrInvalidArgument)
	}
	if vm.CPU != m.CPU {
		return fmt.Errorf("vm cpu %s does not match machine cpu %s: %w", vm.CPU, m.CPU, domain.ErrInvalidArgument)
	}

	vm.MachineID = machineID
	vm.State = domain.VMStateAttached
	return nil
}

// AddTask schedules a task onto an attached VM, committing its memory and
// bumping the machine's active-task count. An overcommit queues a
// MemoryWarning event instead of failing, matching host semantics.
func (c *Cluster) AddTask(ctx context.Context, vmID, taskID string, priority domain.TaskPriority) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	vm, ok := c.vms[vmID]
	if !ok {
		return fmt.Errorf("vm %s: %w", vmID, domain.ErrNotFound)
	}
	ts, ok := c.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if !vm.IsAttached() {
		return fmt.Errorf("vm %s is not attached: %w", vmID, domain.ErrInvalidArgument)
	}
	if ts.allocated || ts.completed {
		return fmt.Errorf("task %s already scheduled: %w", taskID, domain.ErrAlreadyExists)
	}
	m := c.machines[vm.MachineID]

	m.MemoryUsedMiB += ts.task.MemoryMiB
	m.ActiveTasks++
	vm.TaskIDs = append(vm.TaskIDs, taskID)
	ts.allocated = true
	ts.vmID = vmID
	ts.priority = priority
	c.slaUnallocated[ts.task.SLA]--

	if m.MemoryUsedMiB > m.MemoryMiB {
		c.events = append(c.events, Event{
			Type:      EventMemoryWarning,
			MachineID: m.ID,
			At:        c.now,
		})
	}
	return nil
}

// SetTaskPriority changes an admitted task's priority.
func (c *Cluster) SetTaskPriority(ctx context.Context, taskID string, priority domain.TaskPriority) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	ts.priority = priority
	return nil
}

// ShutdownVM shuts a VM down, releasing whatever its tasks still held.
// Repeated shutdowns are no-ops.
func (c *Cluster) ShutdownVM(ctx context.Context, vmID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	vm, ok := c.vms[vmID]
	if !ok {
		return fmt.Errorf("vm %s: %w", vmID, domain.ErrNotFound)
	}
	if vm.State == domain.VMStateShutDown {
		return nil
	}

	if m, ok := c.machines[vm.MachineID]; ok {
		for _, taskID := range vm.TaskIDs {
			ts := c.tasks[taskID]
			m.MemoryUsedMiB -= ts.task.MemoryMiB
			m.ActiveTasks--
			ts.allocated = false
			ts.completed = true
		}
	}
	vm.TaskIDs = nil
	vm.State = domain.VMStateShutDown
	return nil
}

// ============================================================================
// scheduler.Host — reporting side
// ============================================================================

// SLAViolationPct returns the percentage of tasks of the class left
// unallocated. Class 3 is exempt from violation accounting.
func (c *Cluster) SLAViolationPct(ctx context.Context, class domain.SLAClass) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !class.CountsTowardViolations() {
		return 0, nil
	}
	total := c.slaTotal[class]
	if total == 0 {
		return 0, nil
	}
	return float64(c.slaUnallocated[class]) / float64(total) * 100, nil
}

// ClusterEnergyKWh returns the energy consumed by all machines so far.
func (c *Cluster) ClusterEnergyKWh(ctx context.Context) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.energyWh / 1000, nil
}

func cloneVM(vm *domain.VM) *domain.VM {
	clone := *vm
	clone.TaskIDs = append([]string(nil), vm.TaskIDs...)
	return &clone
}
