package scheduler

import (
	"context"
	"fmt"

	"github.com/cloudsched/simcore/internal/domain"
)

// fakeHost is a hand-rolled Host for unit tests: machine/VM/task state is set
// up directly and every command is recorded.
type fakeHost struct {
	order    []string
	machines map[string]*domain.Machine
	vms      map[string]*domain.VM
	tasks    map[string]*domain.Task

	nextVM     int
	failCreate bool
	failAttach bool

	stateRequests map[string]domain.PowerState
	priorities    map[string]domain.TaskPriority
	added         []addedTask
	shutdown      []string
}

type addedTask struct {
	vmID     string
	taskID   string
	priority domain.TaskPriority
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		machines:      make(map[string]*domain.Machine),
		vms:           make(map[string]*domain.VM),
		tasks:         make(map[string]*domain.Task),
		stateRequests: make(map[string]domain.PowerState),
		priorities:    make(map[string]domain.TaskPriority),
	}
}

func (h *fakeHost) addMachine(m domain.Machine) string {
	if m.ID == "" {
		m.ID = fmt.Sprintf("m%d", len(h.order))
	}
	if m.Power == "" {
		m.Power = domain.PowerReady
	}
	stored := m
	h.machines[stored.ID] = &stored
	h.order = append(h.order, stored.ID)
	return stored.ID
}

func (h *fakeHost) addTaskSpec(t domain.Task) string {
	if t.ID == "" {
		t.ID = fmt.Sprintf("t%d", len(h.tasks))
	}
	stored := t
	h.tasks[stored.ID] = &stored
	return stored.ID
}

func (h *fakeHost) ListMachines(ctx context.Context) ([]string, error) {
	return append([]string(nil), h.order...), nil
}

func (h *fakeHost) GetMachine(ctx context.Context, id string) (*domain.Machine, error) {
	m, ok := h.machines[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (h *fakeHost) GetVM(ctx context.Context, id string) (*domain.VM, error) {
	vm, ok := h.vms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *vm
	clone.TaskIDs = append([]string(nil), vm.TaskIDs...)
	return &clone, nil
}

func (h *fakeHost) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	t, ok := h.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (h *fakeHost) SetMachineState(ctx context.Context, machineID string, state domain.PowerState) error {
	m, ok := h.machines[machineID]
	if !ok {
		return domain.ErrNotFound
	}
	h.stateRequests[machineID] = state
	// The fake applies state changes synchronously.
	m.Power = state
	return nil
}

func (h *fakeHost) CreateVM(ctx context.Context, vmType domain.VMType, cpu domain.CPUType) (string, error) {
	if h.failCreate {
		return "", domain.ErrOperationFailed
	}
	id := fmt.Sprintf("vm%d", h.nextVM)
	h.nextVM++
	h.vms[id] = &domain.VM{ID: id, Type: vmType, CPU: cpu, State: domain.VMStateUnattached}
	return id, nil
}

func (h *fakeHost) AttachVM(ctx context.Context, vmID, machineID string) error {
	if h.failAttach {
		return domain.ErrOperationFailed
	}
	vm, ok := h.vms[vmID]
	if !ok {
		return domain.ErrNotFound
	}
	m, ok := h.machines[machineID]
	if !ok {
		return domain.ErrNotFound
	}
	if vm.CPU != m.CPU {
		return domain.ErrInvalidArgument
	}
	vm.MachineID = machineID
	vm.State = domain.VMStateAttached
	return nil
}

func (h *fakeHost) AddTask(ctx context.Context, vmID, taskID string, priority domain.TaskPriority) error {
	vm, ok := h.vms[vmID]
	if !ok {
		return domain.ErrNotFound
	}
	t, ok := h.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	m := h.machines[vm.MachineID]
	m.MemoryUsedMiB += t.MemoryMiB
	m.ActiveTasks++
	vm.TaskIDs = append(vm.TaskIDs, taskID)
	h.added = append(h.added, addedTask{vmID: vmID, taskID: taskID, priority: priority})
	return nil
}

func (h *fakeHost) SetTaskPriority(ctx context.Context, taskID string, priority domain.TaskPriority) error {
	if _, ok := h.tasks[taskID]; !ok {
		return domain.ErrNotFound
	}
	h.priorities[taskID] = priority
	return nil
}

func (h *fakeHost) ShutdownVM(ctx context.Context, vmID string) error {
	vm, ok := h.vms[vmID]
	if !ok {
		return domain.ErrNotFound
	}
	vm.State = domain.VMStateShutDown
	h.shutdown = append(h.shutdown, vmID)
	return nil
}

func (h *fakeHost) SLAViolationPct(ctx context.Context, class domain.SLAClass) (float64, error) {
	return 0, nil
}

func (h *fakeHost) ClusterEnergyKWh(ctx context.Context) (float64, error) {
	return 0, nil
}

// newTestRegistry registers every fake machine in order.
func newTestRegistry(h *fakeHost) *Registry {
	reg := NewRegistry()
	for _, id := range h.order {
		reg.AddMachine(id)
	}
	return reg
}
