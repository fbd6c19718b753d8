package domain

// CPUType identifies a processor architecture.
type CPUType string

const (
	CPUX86   CPUType = "X86"
	CPUARM   CPUType = "ARM"
	CPUPower CPUType = "POWER"
	CPURiscv CPUType = "RISCV"
)

// PowerState represents the power state of a machine.
type PowerState string

const (
	PowerOff           PowerState = "OFF"
	PowerTransitioning PowerState = "TRANSITIONING"
	PowerReady         PowerState = "READY"
)

// Time is a simulated timestamp in microseconds since the start of the run.
// The host owns the clock; the scheduler core never advances it.
type Time uint64

// Seconds converts a simulated timestamp to seconds.
func (t Time) Seconds() float64 {
	return float64(t) / 1e6
}

// Machine represents a physical host as reported by the simulation host.
// Every attribute is owned by the host and re-read fresh on each decision;
// the scheduler never caches these figures.
type Machine struct {
	ID            string     `json:"id"`
	CPU           CPUType    `json:"cpu"`
	Power         PowerState `json:"power"`
	Cores         int32      `json:"cores"`
	MemoryMiB     int64      `json:"memory_mib"`
	MemoryUsedMiB int64      `json:"memory_used_mib"`
	HasGPU        bool       `json:"has_gpu"`
	ActiveTasks   int32      `json:"active_tasks"`
}

// IsReady returns true if the machine is powered on and not mid-transition.
func (m *Machine) IsReady() bool {
	return m.Power == PowerReady
}

// AvailableMemory returns the uncommitted memory in MiB.
func (m *Machine) AvailableMemory() int64 {
	return m.MemoryMiB - m.MemoryUsedMiB
}

// FitsMemory returns true if committing footprintMiB more memory would not
// exceed the machine's capacity.
func (m *Machine) FitsMemory(footprintMiB int64) bool {
	return m.MemoryUsedMiB+footprintMiB <= m.MemoryMiB
}
