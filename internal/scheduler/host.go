// Package scheduler defines the interfaces the scheduler core needs from the
// simulation host. The host owns all physical state; the core only reads
// point-in-time snapshots through these interfaces and issues commands back.
package scheduler

import (
	"context"

	"github.com/cloudsched/simcore/internal/domain"
)

// MachineReader provides point-in-time machine snapshots. Reads have no side
// effects and never fail for identifiers the host handed out at init.
type MachineReader interface {
	// ListMachines returns the identifiers of every machine in the cluster,
	// in the host's stable init order.
	ListMachines(ctx context.Context) ([]string, error)

	// GetMachine retrieves a machine snapshot by ID.
	GetMachine(ctx context.Context, id string) (*domain.Machine, error)
}

// VMReader provides point-in-time VM snapshots.
type VMReader interface {
	// GetVM retrieves a VM snapshot by ID.
	GetVM(ctx context.Context, id string) (*domain.VM, error)
}

// TaskReader provides task requirement lookups.
type TaskReader interface {
	// GetTask retrieves a task's placement requirements by ID.
	GetTask(ctx context.Context, id string) (*domain.Task, error)
}

// Commander issues state-changing commands to the host.
type Commander interface {
	// SetMachineState requests a machine power-state change. The host reports
	// completion asynchronously through StateChangeComplete.
	SetMachineState(ctx context.Context, machineID string, state domain.PowerState) error

	// CreateVM creates an unattached VM of the given image type and CPU.
	CreateVM(ctx context.Context, vmType domain.VMType, cpu domain.CPUType) (string, error)

	// AttachVM attaches a VM to a machine. The VM's CPU type must equal the
	// machine's.
	AttachVM(ctx context.Context, vmID, machineID string) error

	// AddTask schedules a task onto a VM at the given priority.
	AddTask(ctx context.Context, vmID, taskID string, priority domain.TaskPriority) error

	// SetTaskPriority changes the priority of an already-admitted task.
	SetTaskPriority(ctx context.Context, taskID string, priority domain.TaskPriority) error

	// ShutdownVM shuts a VM down and releases its resources.
	ShutdownVM(ctx context.Context, vmID string) error
}

// Reporter exposes the host's end-of-run accounting. The figures are produced
// entirely by the host; the core only surfaces them at shutdown.
type Reporter interface {
	// SLAViolationPct returns the percentage of tasks of the given class that
	// missed their SLA.
	SLAViolationPct(ctx context.Context, class domain.SLAClass) (float64, error)

	// ClusterEnergyKWh returns the total energy consumed by the cluster so far.
	ClusterEnergyKWh(ctx context.Context) (float64, error)
}

// Host aggregates everything the scheduler core needs from the simulation host.
type Host interface {
	MachineReader
	VMReader
	TaskReader
	Commander
	Reporter
}
