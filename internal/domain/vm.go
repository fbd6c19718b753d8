package domain

// VMType identifies the operating-system image a VM runs.
type VMType string

const (
	VMLinux   VMType = "LINUX"
	VMLinuxRT VMType = "LINUX_RT"
	VMWin     VMType = "WIN"
	VMAIX     VMType = "AIX"
)

// VMState represents the lifecycle state of a virtual machine.
type VMState string

const (
	VMStateUnattached VMState = "UNATTACHED"
	VMStateAttached   VMState = "ATTACHED"
	VMStateShutDown   VMState = "SHUTDOWN"
)

// VM represents a virtual machine as reported by the simulation host.
// Invariant: an attached VM's CPU type equals the CPU type of its machine.
type VM struct {
	ID        string   `json:"id"`
	Type      VMType   `json:"type"`
	CPU       CPUType  `json:"cpu"`
	MachineID string   `json:"machine_id,omitempty"`
	State     VMState  `json:"state"`
	TaskIDs   []string `json:"task_ids,omitempty"`
}

// IsAttached returns true if the VM is attached to a machine and usable.
func (vm *VM) IsAttached() bool {
	return vm.State == VMStateAttached && vm.MachineID != ""
}

// DefaultVMTypeFor returns the default OS image for a machine CPU.
// POWER machines boot AIX images, everything else runs Linux.
func DefaultVMTypeFor(cpu CPUType) VMType {
	if cpu == CPUPower {
		return VMAIX
	}
	return VMLinux
}
